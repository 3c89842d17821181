package models

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	Code              string       `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Description       string       `gorm:"size:255" json:"description"`
	DiscountType      DiscountType `gorm:"size:20;not null" json:"discount_type"`
	DiscountValue     float64      `gorm:"not null" json:"discount_value"`
	MinPurchaseAmount float64      `gorm:"not null" json:"min_purchase_amount"`
	MaxUses           int          `gorm:"not null" json:"max_uses"` // 0 means unlimited
	UsedCount         int          `gorm:"not null" json:"used_count"`
	IsActive          bool         `gorm:"not null" json:"is_active"`
	StartsAt          *time.Time   `json:"starts_at"`
	ExpiresAt         *time.Time   `json:"expires_at"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
