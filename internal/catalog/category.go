package catalog

import (
	"fmt"
	"strings"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProductCount int64  `json:"product_count"`
}

// GET /api/categories (public)
func ListCategoriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var res []CategoryResponse
		err := db.WithContext(c.UserContext()).
			Table("categories").
			Select("categories.id, categories.name, categories.description, COUNT(products.id) AS product_count").
			Joins("LEFT JOIN products ON products.category_id = categories.id AND products.is_active = ?", true).
			Group("categories.id, categories.name, categories.description").
			Order("categories.name").
			Scan(&res).Error
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		if res == nil {
			res = []CategoryResponse{}
		}
		return c.JSON(res)
	}
}

// POST /api/categories
func CreateCategoryHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		cat := models.Category{Name: body.Name, Description: strings.TrimSpace(body.Description)}
		if err := db.WithContext(c.UserContext()).Create(&cat).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "category already exists")
			}
			return fmt.Errorf("create category: %w", err)
		}

		logs.RecordCtx(c, models.ActivityCreate, "category", cat.ID, "created category "+cat.Name, nil)
		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := web.ParamID(c, "id")
		if err != nil {
			return err
		}
		var cat models.Category
		if err := db.WithContext(c.UserContext()).First(&cat, id).Error; err != nil {
			if database.IsNotFound(err) {
				return fiber.NewError(fiber.StatusNotFound, "category not found")
			}
			return err
		}

		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if name := strings.TrimSpace(body.Name); name != "" {
			cat.Name = name
		}
		cat.Description = strings.TrimSpace(body.Description)

		if err := db.WithContext(c.UserContext()).Save(&cat).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "category already exists")
			}
			return fmt.Errorf("update category: %w", err)
		}

		logs.RecordCtx(c, models.ActivityUpdate, "category", cat.ID, "updated category "+cat.Name, body)
		return c.JSON(cat)
	}
}

// DELETE /api/categories/:id refuses while products still use the category.
func DeleteCategoryHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := web.ParamID(c, "id")
		if err != nil {
			return err
		}
		var inUse int64
		if err := db.WithContext(c.UserContext()).Model(&models.Product{}).
			Where("category_id = ?", id).Count(&inUse).Error; err != nil {
			return fmt.Errorf("count category products: %w", err)
		}
		if inUse > 0 {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("category still has %d products", inUse))
		}

		res := db.WithContext(c.UserContext()).Delete(&models.Category{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete category: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "category not found")
		}

		logs.RecordCtx(c, models.ActivityDelete, "category", id, "deleted category", nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
