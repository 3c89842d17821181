package coupon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("coupon not found")
	ErrInactive    = errors.New("coupon is not active")
	ErrNotStarted  = errors.New("coupon is not valid yet")
	ErrExpired     = errors.New("coupon has expired")
	ErrExhausted   = errors.New("coupon usage limit reached")
	ErrMinPurchase = errors.New("minimum purchase amount not reached")
)

// NormalizeCode uppercases and trims a coupon code; codes are stored normalized.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks c against subtotal at now and returns the discount, capped at subtotal.
func Validate(c *models.Coupon, subtotal float64, now time.Time) (float64, error) {
	if c == nil {
		return 0, ErrNotFound
	}
	if !c.IsActive {
		return 0, ErrInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return 0, ErrNotStarted
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return 0, ErrExpired
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return 0, ErrExhausted
	}
	if c.MinPurchaseAmount > subtotal {
		return 0, fmt.Errorf("%w: need %.2f, have %.2f", ErrMinPurchase, c.MinPurchaseAmount, subtotal)
	}

	var discount float64
	switch c.DiscountType {
	case models.DiscountPercentage:
		discount = math.Round(subtotal*c.DiscountValue) / 100
	default:
		discount = c.DiscountValue
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

// Find loads a coupon by code. db may be a transaction.
func Find(ctx context.Context, db *gorm.DB, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).Take(&c).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Redeem bumps used_count, guarded against the usage limit racing with another checkout.
func Redeem(ctx context.Context, tx *gorm.DB, id uint) error {
	res := tx.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND (max_uses = 0 OR used_count < max_uses)", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrExhausted
	}
	return nil
}

// IsRejection reports whether err is a business rejection rather than a failure.
func IsRejection(err error) bool {
	for _, target := range []error{ErrNotFound, ErrInactive, ErrNotStarted, ErrExpired, ErrExhausted, ErrMinPurchase} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
