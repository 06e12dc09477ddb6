package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type WardrobeController struct {
	CatalogCache services.CatalogCacheProvider
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.POST("", controller.CreateItem)
	g.GET("", controller.ListItems)
	g.PUT("/:itemId", controller.UpdateItem)
	g.DELETE("/:itemId", controller.DeleteItem)
}

func ownerID(c echo.Context) (string, bool) {
	owner := c.Request().Header.Get("X-Owner-ID")
	return owner, owner != ""
}

func (controller *WardrobeController) CreateItem(c echo.Context) error {
	owner, ok := ownerID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-Owner-ID header required"})
	}
	var req models.WardrobeItemIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	item := models.WardrobeItem{
		OwnerID:     owner,
		Name:        req.Name,
		Category:    req.Category,
		Colors:      req.Colors,
		Fabric:      req.Fabric,
		Silhouette:  req.Silhouette,
		Description: req.Description,
		Considering: req.Considering,
	}
	if err := db.Create(&item).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save wardrobe item"})
	}
	if err := controller.CatalogCache.Invalidate(c.Request().Context(), owner); err != nil {
		fmt.Printf("[Wardrobe] cache invalidation failed for %s: %v\n", owner, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (controller *WardrobeController) ListItems(c echo.Context) error {
	owner, ok := ownerID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-Owner-ID header required"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	var items []models.WardrobeItem
	if err := db.Where("owner_id = ?", owner).Order("id asc").Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe"})
	}
	return c.JSON(http.StatusOK, models.WardrobeListResponse{Items: items})
}

func (controller *WardrobeController) UpdateItem(c echo.Context) error {
	owner, ok := ownerID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-Owner-ID header required"})
	}
	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid item id"})
	}
	var req models.WardrobeItemIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var item models.WardrobeItem
	if err := db.Where("id = ? AND owner_id = ?", itemID, owner).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Wardrobe item not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe item"})
	}
	item.Name = req.Name
	item.Category = req.Category
	item.Colors = req.Colors
	item.Fabric = req.Fabric
	item.Silhouette = req.Silhouette
	item.Description = req.Description
	item.Considering = req.Considering
	if err := db.Save(&item).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update wardrobe item"})
	}
	if err := controller.CatalogCache.Invalidate(c.Request().Context(), owner); err != nil {
		fmt.Printf("[Wardrobe] cache invalidation failed for %s: %v\n", owner, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (controller *WardrobeController) DeleteItem(c echo.Context) error {
	owner, ok := ownerID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-Owner-ID header required"})
	}
	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid item id"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	result := db.Where("id = ? AND owner_id = ?", itemID, owner).Delete(&models.WardrobeItem{})
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete wardrobe item"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Wardrobe item not found"})
	}
	if err := controller.CatalogCache.Invalidate(c.Request().Context(), owner); err != nil {
		fmt.Printf("[Wardrobe] cache invalidation failed for %s: %v\n", owner, err)
	}
	return c.NoContent(http.StatusNoContent)
}
