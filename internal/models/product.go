package models

import "time"

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;unique" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Product struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CategoryID  uint       `gorm:"index;not null" json:"category_id"`
	Category    *Category  `json:"category,omitempty"`
	TenantID    *uint      `gorm:"index" json:"tenant_id"` // owning tenant, nil for store-owned products
	Name        string     `gorm:"size:150;not null" json:"name"`
	SKU         string     `gorm:"size:64;not null;uniqueIndex" json:"sku"`
	Description string     `gorm:"type:text" json:"description"`
	Price       float64    `gorm:"not null" json:"price"`
	ImagePath   string     `gorm:"size:255" json:"image_path"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	Inventory   *Inventory `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"inventory,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Inventory is 1:1 with Product.
type Inventory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProductID    uint      `gorm:"uniqueIndex;not null" json:"product_id"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	ReorderLevel int       `gorm:"not null" json:"reorder_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Inventory) TableName() string {
	return "inventory"
}

func (i Inventory) IsLow() bool {
	return i.Quantity <= i.ReorderLevel
}
