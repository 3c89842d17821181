package wishlist

import (
	"fmt"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AddRequest struct {
	ProductID uint `json:"product_id"`
}

// GET /api/wishlist
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var items []models.WishlistItem
		if err := db.WithContext(c.UserContext()).
			Preload("Product").
			Where("user_id = ?", id.ID).
			Order("created_at DESC").
			Find(&items).Error; err != nil {
			return fmt.Errorf("list wishlist: %w", err)
		}
		if items == nil {
			items = []models.WishlistItem{}
		}
		return c.JSON(items)
	}
}

// POST /api/wishlist is idempotent: adding a product twice keeps one row.
func AddHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body AddRequest
		if err := c.BodyParser(&body); err != nil || body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id is required")
		}

		var p models.Product
		if err := db.WithContext(c.UserContext()).Select("id").Take(&p, body.ProductID).Error; err != nil {
			if database.IsNotFound(err) {
				return fiber.NewError(fiber.StatusNotFound, "product not found")
			}
			return err
		}

		item := models.WishlistItem{UserID: id.ID, ProductID: body.ProductID}
		res := db.WithContext(c.UserContext()).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&item)
		if res.Error != nil {
			return fmt.Errorf("add to wishlist: %w", res.Error)
		}

		status := fiber.StatusCreated
		if res.RowsAffected == 0 {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(fiber.Map{"product_id": body.ProductID, "added": res.RowsAffected > 0})
	}
}

// DELETE /api/wishlist/:productId
func RemoveHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		productID, err := web.ParamID(c, "productId")
		if err != nil {
			return err
		}
		res := db.WithContext(c.UserContext()).
			Where("user_id = ? AND product_id = ?", id.ID, productID).
			Delete(&models.WishlistItem{})
		if res.Error != nil {
			return fmt.Errorf("remove from wishlist: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "product is not in the wishlist")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
