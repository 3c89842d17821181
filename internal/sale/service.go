// Package sale records walk-in sales rung up at a branch till and reports on all completed sales.
package sale

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/inventory"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/order"

	"gorm.io/gorm"
)

var (
	ErrNoItems            = errors.New("sale has no items")
	ErrInvalidItem        = errors.New("invalid sale item")
	ErrDuplicateItem      = errors.New("product listed twice")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrDiscountTooLarge   = errors.New("discount exceeds line subtotal")
	ErrPaymentMethod      = errors.New("payment_method must be cash, card or transfer")
)

var paymentMethods = map[string]bool{"cash": true, "card": true, "transfer": true}

type ItemRequest struct {
	ProductID      uint    `json:"product_id"`
	Quantity       int     `json:"quantity"`
	DiscountAmount float64 `json:"discount_amount"`
}

type CreateRequest struct {
	Items         []ItemRequest `json:"items"`
	CustomerID    *uint         `json:"customer_id"`
	PaymentMethod string        `json:"payment_method"`
}

type Receipt struct {
	SaleCode       string        `json:"sale_code"`
	BranchID       *uint         `json:"branch_id"`
	PaymentMethod  string        `json:"payment_method"`
	DiscountAmount float64       `json:"discount_amount"`
	TotalAmount    float64       `json:"total_amount"`
	SoldAt         time.Time     `json:"sold_at"`
	Items          []models.Sale `json:"items"`
}

func cents(v float64) int64 { return int64(math.Round(v * 100)) }

func (r *CreateRequest) validate() error {
	if len(r.Items) == 0 {
		return ErrNoItems
	}
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))
	if r.PaymentMethod == "" {
		r.PaymentMethod = "cash"
	}
	if !paymentMethods[r.PaymentMethod] {
		return ErrPaymentMethod
	}
	seen := make(map[uint]bool, len(r.Items))
	for _, it := range r.Items {
		if it.ProductID == 0 || it.Quantity <= 0 || it.DiscountAmount < 0 {
			return fmt.Errorf("%w: product_id and a positive quantity are required", ErrInvalidItem)
		}
		if seen[it.ProductID] {
			return fmt.Errorf("%w: %d", ErrDuplicateItem, it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}

// Create rings up a walk-in sale: stock for every item is taken in one transaction and
// all rows share one sale code.
func Create(ctx context.Context, db *gorm.DB, cashier auth.Identity, req CreateRequest, now time.Time) (Receipt, error) {
	if err := req.validate(); err != nil {
		return Receipt{}, err
	}

	rec := Receipt{
		SaleCode:      order.NewCode("SAL", now),
		BranchID:      cashier.BranchID,
		PaymentMethod: req.PaymentMethod,
		SoldAt:        now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, len(req.Items))
		for i, it := range req.Items {
			ids[i] = it.ProductID
		}
		var products []models.Product
		if err := tx.Where("id IN ? AND is_active = ?", ids, true).Find(&products).Error; err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		byID := make(map[uint]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		cashierID := cashier.ID
		var discount, total int64
		rows := make([]models.Sale, 0, len(req.Items))
		for _, it := range req.Items {
			p, ok := byID[it.ProductID]
			if !ok {
				return fmt.Errorf("%w: %d", ErrProductUnavailable, it.ProductID)
			}
			sub := cents(p.Price) * int64(it.Quantity)
			d := cents(it.DiscountAmount)
			if d > sub {
				return fmt.Errorf("%w: %s", ErrDiscountTooLarge, p.Name)
			}

			err := inventory.Decrement(tx, p.ID, it.Quantity)
			if errors.Is(err, inventory.ErrInsufficientStock) {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
			}
			if err != nil {
				return fmt.Errorf("decrement stock of product %d: %w", p.ID, err)
			}

			rows = append(rows, models.Sale{
				SaleCode:       rec.SaleCode,
				ProductID:      p.ID,
				ProductName:    p.Name,
				CustomerID:     req.CustomerID,
				CashierID:      &cashierID,
				BranchID:       cashier.BranchID,
				Quantity:       it.Quantity,
				UnitPrice:      p.Price,
				DiscountAmount: float64(d) / 100,
				TotalAmount:    float64(sub-d) / 100,
				PaymentMethod:  req.PaymentMethod,
				SoldAt:         now,
			})
			discount += d
			total += sub - d
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert sales: %w", err)
		}
		rec.Items = rows
		rec.DiscountAmount = float64(discount) / 100
		rec.TotalAmount = float64(total) / 100
		return nil
	})
	return rec, err
}

func IsRejection(err error) bool {
	for _, target := range []error{
		ErrNoItems, ErrInvalidItem, ErrDuplicateItem, ErrProductUnavailable,
		ErrInsufficientStock, ErrDiscountTooLarge, ErrPaymentMethod,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
