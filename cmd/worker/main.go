package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"stylistapi/services"
	"stylistapi/tasks"
)

func main() {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         os.Getenv("SENTRY_DSN"),
		Environment: services.GetEnv("ENV", "local"),
		Release:     "stylistapi@1.0.0",
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	redisAddr := services.GetEnv("REDIS_ADDR", "localhost:6379")
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			tasks.QueueGenerate: 7,
		}},
	)

	jobStore := services.NewRedisJobStore(redis.NewClient(&redis.Options{Addr: redisAddr}))
	registry := services.NewProviderRegistry(
		services.NewGeminiProvider(os.Getenv("GOOGLE_API_KEY")),
		services.NewOpenAICompatProvider(services.GetEnv("OPENAI_BASE_URL", ""), os.Getenv("OPENAI_API_KEY")),
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeOutfitGeneration, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleOutfitGenerationTask(ctx, t, jobStore, registry)
	})

	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
