package cart

import (
	"fmt"
	"math"

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
	Quantity  int  `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type ItemResponse struct {
	ID          uint    `json:"id"`
	ProductID   uint    `json:"product_id"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	ImagePath   string  `json:"image_path"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Stock       int     `json:"stock"`
	LineTotal   float64 `json:"line_total"`
	IsAvailable bool    `json:"is_available"`
}

type CartResponse struct {
	Items     []ItemResponse `json:"items"`
	ItemCount int            `json:"item_count"`
	Subtotal  float64        `json:"subtotal"`
}

func toResponse(items []models.CartItem) CartResponse {
	res := CartResponse{Items: make([]ItemResponse, 0, len(items))}
	var cents int64
	for _, it := range items {
		r := ItemResponse{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity}
		if p := it.Product; p != nil {
			r.Name = p.Name
			r.SKU = p.SKU
			r.ImagePath = p.ImagePath
			r.UnitPrice = p.Price
			if p.Inventory != nil {
				r.Stock = p.Inventory.Quantity
			}
			r.IsAvailable = p.IsActive && r.Stock >= it.Quantity
		}
		line := web.Round2(r.UnitPrice * float64(r.Quantity))
		r.LineTotal = line
		cents += int64(math.Round(line * 100))
		res.ItemCount += it.Quantity
		res.Items = append(res.Items, r)
	}
	res.Subtotal = float64(cents) / 100
	return res
}

func load(c *fiber.Ctx, db *gorm.DB, userID uint) (CartResponse, error) {
	var items []models.CartItem
	err := db.WithContext(c.UserContext()).
		Preload("Product").
		Preload("Product.Inventory").
		Where("user_id = ?", userID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return CartResponse{}, fmt.Errorf("load cart: %w", err)
	}
	return toResponse(items), nil
}

func activeProduct(c *fiber.Ctx, db *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	err := db.WithContext(c.UserContext()).Preload("Inventory").
		Where("id = ? AND is_active = ?", id, true).Take(&p).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return nil, err
	}
	return &p, nil
}

// GET /api/cart
func GetCartHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		res, err := load(c, db, id.ID)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// POST /api/cart adds quantity to the existing line or creates it.
func AddItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body AddRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Quantity == 0 {
			body.Quantity = 1
		}
		if body.ProductID == 0 || body.Quantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id and a positive quantity are required")
		}
		if _, err := activeProduct(c, db, body.ProductID); err != nil {
			return err
		}

		item := models.CartItem{UserID: id.ID, ProductID: body.ProductID, Quantity: body.Quantity}
		err = db.WithContext(c.UserContext()).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
				"updated_at": gorm.Expr("EXCLUDED.updated_at"),
			}),
		}).Create(&item).Error
		if err != nil {
			return fmt.Errorf("add to cart: %w", err)
		}

		res, err := load(c, db, id.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// PUT /api/cart/:productId; quantity 0 removes the line.
func SetQuantityHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		productID, err := web.ParamID(c, "productId")
		if err != nil {
			return err
		}
		var body SetQuantityRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Quantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must not be negative")
		}

		q := db.WithContext(c.UserContext()).Where("user_id = ? AND product_id = ?", id.ID, productID)
		var res *gorm.DB
		if body.Quantity == 0 {
			res = q.Delete(&models.CartItem{})
		} else {
			res = q.Model(&models.CartItem{}).Update("quantity", body.Quantity)
		}
		if res.Error != nil {
			return fmt.Errorf("update cart: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "product is not in the cart")
		}

		out, err := load(c, db, id.ID)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// DELETE /api/cart/:productId
func RemoveItemHandler(db *gorm.DB) fiber.Handler {
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
			Delete(&models.CartItem{})
		if res.Error != nil {
			return fmt.Errorf("remove from cart: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "product is not in the cart")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DELETE /api/cart
func ClearHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		if err := db.WithContext(c.UserContext()).Where("user_id = ?", id.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
