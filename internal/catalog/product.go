package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/config"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/export"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/upload"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("product not found")

type CreateProductRequest struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	CategoryID   uint    `json:"category_id"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	ReorderLevel int     `json:"reorder_level"`
	IsActive     *bool   `json:"is_active"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	SKU         *string  `json:"sku"`
	CategoryID  *uint    `json:"category_id"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	IsActive    *bool    `json:"is_active"`
}

// ownerScope returns the tenant id products are restricted to, or nil for staff.
func ownerScope(id auth.Identity) *uint {
	if id.Role == models.RoleTenant {
		tid := id.ID
		return &tid
	}
	return nil
}

func scoped(q *gorm.DB, owner *uint) *gorm.DB {
	if owner != nil {
		return q.Where("products.tenant_id = ?", *owner)
	}
	return q
}

func normalizeSKU(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func loadProduct(c *fiber.Ctx, db *gorm.DB, owner *uint) (*models.Product, error) {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	var p models.Product
	err = scoped(db.WithContext(c.UserContext()), owner).
		Preload("Category").Preload("Inventory").
		Where("products.id = ?", id).Take(&p).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, fiber.NewError(fiber.StatusNotFound, ErrProductNotFound.Error())
		}
		return nil, err
	}
	return &p, nil
}

func categoryExists(c *fiber.Ctx, db *gorm.DB, id uint) error {
	var n int64
	if err := db.WithContext(c.UserContext()).Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "category does not exist")
	}
	return nil
}

func listQuery(c *fiber.Ctx, db *gorm.DB) *gorm.DB {
	q := db.WithContext(c.UserContext()).Model(&models.Product{})
	if s := strings.TrimSpace(c.Query("search")); s != "" {
		like := "%" + s + "%"
		q = q.Where("products.name ILIKE ? OR products.sku ILIKE ?", like, like)
	}
	if cat := c.QueryInt("category_id"); cat > 0 {
		q = q.Where("products.category_id = ?", cat)
	}
	if v := c.Query("min_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q = q.Where("products.price >= ?", f)
		}
	}
	if v := c.Query("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q = q.Where("products.price <= ?", f)
		}
	}
	return q
}

func sortOrder(c *fiber.Ctx) string {
	switch c.Query("sort") {
	case "price_asc":
		return "products.price ASC, products.id"
	case "price_desc":
		return "products.price DESC, products.id"
	case "newest":
		return "products.created_at DESC, products.id DESC"
	}
	return "products.name ASC, products.id"
}

func paged(c *fiber.Ctx, q *gorm.DB) (web.PagedResponse[models.Product], error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return web.PagedResponse[models.Product]{}, fmt.Errorf("count products: %w", err)
	}
	page, size := web.Page(c)
	var products []models.Product
	err := q.Preload("Category").Preload("Inventory").
		Order(sortOrder(c)).
		Scopes(database.Paginate(page, size)).
		Find(&products).Error
	if err != nil {
		return web.PagedResponse[models.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return web.NewPaged(products, total, page, size), nil
}

// GET /api/products (public, active only)
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := paged(c, listQuery(c, db).Where("products.is_active = ?", true))
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// GET /api/products/:id (public)
func GetProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := loadProduct(c, db.Where("products.is_active = ?", true), nil)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// GET /api/products/manage lists inactive products too; tenants see their own only.
func ManageProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		q := scoped(listQuery(c, db), ownerScope(id))
		if active := c.Query("active"); active != "" {
			q = q.Where("products.is_active = ?", active == "true")
		}
		res, err := paged(c, q)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// POST /api/products creates the product and its inventory row together.
func CreateProductHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		body.SKU = normalizeSKU(body.SKU)
		if body.Name == "" || body.SKU == "" || body.CategoryID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "name, sku and category_id are required")
		}
		if body.Price < 0 || body.Quantity < 0 || body.ReorderLevel < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "price, quantity and reorder_level must not be negative")
		}
		if err := categoryExists(c, db, body.CategoryID); err != nil {
			return err
		}

		p := models.Product{
			CategoryID:  body.CategoryID,
			TenantID:    ownerScope(id),
			Name:        body.Name,
			SKU:         body.SKU,
			Description: strings.TrimSpace(body.Description),
			Price:       body.Price,
			IsActive:    body.IsActive == nil || *body.IsActive,
		}
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit("Category", "Inventory").Create(&p).Error; err != nil {
				return err
			}
			inv := models.Inventory{ProductID: p.ID, Quantity: body.Quantity, ReorderLevel: body.ReorderLevel}
			if err := tx.Create(&inv).Error; err != nil {
				return err
			}
			p.Inventory = &inv
			return nil
		})
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "sku already exists")
			}
			return fmt.Errorf("create product: %w", err)
		}

		logs.RecordCtx(c, models.ActivityCreate, "product", p.ID, "created product "+p.SKU, body)
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id
func UpdateProductHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		p, err := loadProduct(c, db, ownerScope(id))
		if err != nil {
			return err
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name must not be empty")
			}
			p.Name = name
		}
		if body.SKU != nil {
			sku := normalizeSKU(*body.SKU)
			if sku == "" {
				return fiber.NewError(fiber.StatusBadRequest, "sku must not be empty")
			}
			p.SKU = sku
		}
		if body.CategoryID != nil && *body.CategoryID != p.CategoryID {
			if err := categoryExists(c, db, *body.CategoryID); err != nil {
				return err
			}
			p.CategoryID = *body.CategoryID
			p.Category = nil
		}
		if body.Description != nil {
			p.Description = strings.TrimSpace(*body.Description)
		}
		if body.Price != nil {
			if *body.Price < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "price must not be negative")
			}
			p.Price = *body.Price
		}
		if body.IsActive != nil {
			p.IsActive = *body.IsActive
		}

		err = db.WithContext(c.UserContext()).Model(p).Select(
			"CategoryID", "Name", "SKU", "Description", "Price", "IsActive",
		).Updates(p).Error
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "sku already exists")
			}
			return fmt.Errorf("update product: %w", err)
		}

		logs.RecordCtx(c, models.ActivityUpdate, "product", p.ID, "updated product "+p.SKU, body)
		return c.JSON(p)
	}
}

// DELETE /api/products/:id. Products that appear in orders are deactivated instead.
func DeleteProductHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		p, err := loadProduct(c, db, ownerScope(id))
		if err != nil {
			return err
		}

		var ordered int64
		if err := db.WithContext(c.UserContext()).Model(&models.Order{}).
			Where("product_id = ?", p.ID).Count(&ordered).Error; err != nil {
			return fmt.Errorf("count product orders: %w", err)
		}

		if ordered > 0 {
			if err := db.WithContext(c.UserContext()).Model(p).Update("is_active", false).Error; err != nil {
				return fmt.Errorf("deactivate product: %w", err)
			}
			logs.RecordCtx(c, models.ActivityUpdate, "product", p.ID, "deactivated product "+p.SKU+" (has orders)", nil)
			return c.JSON(fiber.Map{"message": "product has orders and was deactivated", "id": p.ID})
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("product_id = ?", p.ID).Delete(&models.Inventory{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Product{}, p.ID).Error
		})
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}

		logs.RecordCtx(c, models.ActivityDelete, "product", p.ID, "deleted product "+p.SKU, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/products/:id/image (multipart field "image")
func UploadImageHandler(db *gorm.DB, cfg config.UploadConfig, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		p, err := loadProduct(c, db, ownerScope(id))
		if err != nil {
			return err
		}

		rel, err := upload.Save(c, "image", cfg.Dir, "products", cfg.MaxBytes, upload.ImageExtensions)
		if err != nil {
			return upload.HTTPError(err)
		}
		old := p.ImagePath
		if err := db.WithContext(c.UserContext()).Model(p).Update("image_path", rel).Error; err != nil {
			_ = upload.Remove(cfg.Dir, rel)
			return fmt.Errorf("save product image: %w", err)
		}
		if err := upload.Remove(cfg.Dir, old); err != nil {
			log.Warn("old product image not removed", zap.String("path", old), zap.Error(err))
		}
		return c.JSON(p)
	}
}

// GET /api/products/export?format=csv|xlsx
func ExportProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		format, err := export.FormatFromQuery(c)
		if err != nil {
			return err
		}

		var products []models.Product
		err = scoped(listQuery(c, db), ownerScope(id)).
			Preload("Category").Preload("Inventory").
			Order("products.name").
			Find(&products).Error
		if err != nil {
			return fmt.Errorf("export products: %w", err)
		}

		rows := make([][]string, 0, len(products))
		for _, p := range products {
			category, qty, reorder := "", 0, 0
			if p.Category != nil {
				category = p.Category.Name
			}
			if p.Inventory != nil {
				qty, reorder = p.Inventory.Quantity, p.Inventory.ReorderLevel
			}
			rows = append(rows, []string{
				p.Name, p.SKU, category, export.Money(p.Price),
				strconv.Itoa(qty), strconv.Itoa(reorder), p.Description,
				strconv.FormatBool(p.IsActive),
			})
		}
		header := append(append([]string{}, ImportHeader...), "is_active")
		return export.Send(c, format, "products", header, rows)
	}
}
