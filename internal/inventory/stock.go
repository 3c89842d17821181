// Package inventory manages per-product stock levels.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/export"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("inventory not found")
	ErrNegativeStock     = errors.New("stock cannot go below zero")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type StockRow struct {
	ProductID    uint      `json:"product_id"`
	ProductName  string    `json:"product_name"`
	SKU          string    `json:"sku"`
	CategoryName string    `json:"category_name"`
	Price        float64   `json:"price"`
	IsActive     bool      `json:"is_active"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
	IsLow        bool      `json:"is_low"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AdjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type ReorderRequest struct {
	ReorderLevel int `json:"reorder_level"`
}

const stockColumns = `products.id AS product_id, products.name AS product_name, products.sku,
	COALESCE(categories.name, '') AS category_name, products.price, products.is_active,
	inventory.quantity, inventory.reorder_level, inventory.quantity <= inventory.reorder_level AS is_low,
	inventory.updated_at`

// Decrement takes qty units off a product's stock inside tx, refusing to go below zero.
func Decrement(tx *gorm.DB, productID uint, qty int) error {
	res := tx.Model(&models.Inventory{}).
		Where("product_id = ? AND quantity >= ?", productID, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func Restock(tx *gorm.DB, productID uint, qty int) error {
	return tx.Model(&models.Inventory{}).
		Where("product_id = ?", productID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty)).Error
}

// Adjust applies a signed delta; the guard keeps the quantity non-negative.
func Adjust(ctx context.Context, db *gorm.DB, productID uint, delta int) (models.Inventory, error) {
	var inv models.Inventory
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Inventory{}).
			Where("product_id = ? AND quantity + ? >= 0", productID, delta).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		err := tx.Where("product_id = ?", productID).Take(&inv).Error
		if database.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return ErrNegativeStock
		}
		return nil
	})
	return inv, err
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNegativeStock):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

// stockQuery joins inventory to its product. Tenants only see stock of their own products.
func stockQuery(c *fiber.Ctx, db *gorm.DB) (*gorm.DB, error) {
	id, err := auth.CurrentUser(c)
	if err != nil {
		return nil, err
	}
	q := db.WithContext(c.UserContext()).Table("inventory").
		Joins("JOIN products ON products.id = inventory.product_id").
		Joins("LEFT JOIN categories ON categories.id = products.category_id")
	if id.Role == models.RoleTenant {
		q = q.Where("products.tenant_id = ?", id.ID)
	}
	if s := strings.TrimSpace(c.Query("search")); s != "" {
		like := "%" + s + "%"
		q = q.Where("products.name ILIKE ? OR products.sku ILIKE ?", like, like)
	}
	if cat := c.QueryInt("category_id"); cat > 0 {
		q = q.Where("products.category_id = ?", cat)
	}
	if c.QueryBool("low") {
		q = q.Where("inventory.quantity <= inventory.reorder_level")
	}
	return q, nil
}

func listStock(c *fiber.Ctx, q *gorm.DB, order string) error {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return fmt.Errorf("count inventory: %w", err)
	}
	page, size := web.Page(c)
	var rows []StockRow
	if err := q.Select(stockColumns).Order(order).Scopes(database.Paginate(page, size)).Scan(&rows).Error; err != nil {
		return fmt.Errorf("list inventory: %w", err)
	}
	return c.JSON(web.NewPaged(rows, total, page, size))
}

// GET /api/inventory
func ListInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := stockQuery(c, db)
		if err != nil {
			return err
		}
		return listStock(c, q, "products.name, products.id")
	}
}

// GET /api/inventory/low-stock, most depleted first
func LowStockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := stockQuery(c, db)
		if err != nil {
			return err
		}
		q = q.Where("inventory.quantity <= inventory.reorder_level")
		return listStock(c, q, "inventory.quantity - inventory.reorder_level, products.name")
	}
}

// ownedProduct 404s when a tenant touches stock of a product it does not own.
func ownedProduct(c *fiber.Ctx, db *gorm.DB) (uint, error) {
	productID, err := web.ParamID(c, "productId")
	if err != nil {
		return 0, err
	}
	id, err := auth.CurrentUser(c)
	if err != nil {
		return 0, err
	}
	if id.Role != models.RoleTenant {
		return productID, nil
	}
	var n int64
	if err := db.WithContext(c.UserContext()).Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", productID, id.ID).Count(&n).Error; err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
	}
	return productID, nil
}

// POST /api/inventory/:productId/adjust
func AdjustStockHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, err := ownedProduct(c, db)
		if err != nil {
			return err
		}
		var body AdjustRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Delta == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "delta must not be zero")
		}

		inv, err := Adjust(c.UserContext(), db, productID, body.Delta)
		if err != nil {
			return httpError(err)
		}

		logs.RecordCtx(c, models.ActivityUpdate, "inventory", productID,
			fmt.Sprintf("stock adjusted by %+d to %d", body.Delta, inv.Quantity), body)
		return c.JSON(inv)
	}
}

// PUT /api/inventory/:productId/reorder-level
func SetReorderLevelHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, err := ownedProduct(c, db)
		if err != nil {
			return err
		}
		var body ReorderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ReorderLevel < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "reorder_level must not be negative")
		}

		res := db.WithContext(c.UserContext()).Model(&models.Inventory{}).
			Where("product_id = ?", productID).
			Update("reorder_level", body.ReorderLevel)
		if res.Error != nil {
			return fmt.Errorf("set reorder level: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
		}

		logs.RecordCtx(c, models.ActivityUpdate, "inventory", productID,
			"reorder level set to "+strconv.Itoa(body.ReorderLevel), body)
		return c.JSON(fiber.Map{"product_id": productID, "reorder_level": body.ReorderLevel})
	}
}

// GET /api/inventory/export?format=csv|xlsx
func ExportInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format, err := export.FormatFromQuery(c)
		if err != nil {
			return err
		}
		q, err := stockQuery(c, db)
		if err != nil {
			return err
		}
		var stock []StockRow
		if err := q.Select(stockColumns).Order("products.name").Scan(&stock).Error; err != nil {
			return fmt.Errorf("export inventory: %w", err)
		}

		header := []string{"sku", "product", "category", "quantity", "reorder_level", "low_stock", "updated_at"}
		rows := make([][]string, 0, len(stock))
		for _, s := range stock {
			rows = append(rows, []string{
				s.SKU, s.ProductName, s.CategoryName,
				strconv.Itoa(s.Quantity), strconv.Itoa(s.ReorderLevel),
				strconv.FormatBool(s.IsLow), export.Date(s.UpdatedAt),
			})
		}
		return export.Send(c, format, "inventory", header, rows)
	}
}
