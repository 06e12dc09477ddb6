package controllers

import (
	"net/http"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		// Optionally, you could return the error to give each route more control over the status code
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func SetupServer(
	db *gorm.DB,
	jobStore services.JobStoreProvider,
	registry *services.ProviderRegistry,
	catalogCache services.CatalogCacheProvider,
	asynqClient *asynq.Client,
	asynqInspector *asynq.Inspector,
) *echo.Echo {
	e := echo.New()

	v := validator.New()
	v.RegisterValidation("clothingcategory", models.ValidateCategory)
	v.RegisterValidation("generationmode", models.ValidateGenerationMode)
	e.Validator = &CustomValidator{validator: v}

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", asynqClient)
			c.Set("__asynqinspector", asynqInspector)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-Owner-ID"},
	}))

	outfitsController := OutfitsController{JobStore: jobStore, Registry: registry, CatalogCache: catalogCache}
	outfitsGroup := e.Group("/outfits")
	outfitsController.OutfitRoutes(outfitsGroup)

	wardrobeController := WardrobeController{CatalogCache: catalogCache}
	wardrobeGroup := e.Group("/wardrobe")
	wardrobeController.WardrobeRoutes(wardrobeGroup)

	return e
}
