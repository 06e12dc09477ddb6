package main

import (
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"stylistapi/controllers"
	"stylistapi/dbhelper"
	"stylistapi/services"
)

func main() {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		Environment:      services.GetEnv("ENV", "local"),
		Release:          "stylistapi@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	db := dbhelper.SetupDB()

	redisAddr := services.GetEnv("REDIS_ADDR", "localhost:6379")
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	asynqInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})
	jobStore := services.NewRedisJobStore(redis.NewClient(&redis.Options{Addr: redisAddr}))

	registry := services.NewProviderRegistry(
		services.NewGeminiProvider(os.Getenv("GOOGLE_API_KEY")),
		services.NewOpenAICompatProvider(services.GetEnv("OPENAI_BASE_URL", ""), os.Getenv("OPENAI_API_KEY")),
	)

	catalogCache, err := services.NewCatalogCacheService(db)
	if err != nil {
		log.Fatal("Failed to initialize catalog cache service")
	}

	e := controllers.SetupServer(db, jobStore, registry, catalogCache, asynqClient, asynqInspector)
	e.Debug = true
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(3)))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Logger.Fatal(e.Start(":8083"))
}
