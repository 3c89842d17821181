package models

import "time"

type ActivityAction string

const (
	ActivityCreate ActivityAction = "create"
	ActivityUpdate ActivityAction = "update"
	ActivityDelete ActivityAction = "delete"
	ActivityStatus ActivityAction = "status_change"
	ActivityImport ActivityAction = "import"
	ActivityLogin  ActivityAction = "login"
)

type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID   *uint    `gorm:"index" json:"user_id"`
	UserRole UserRole `gorm:"size:20" json:"user_role"`

	// e.g. "product", "order", "coupon"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   string `gorm:"size:64;index" json:"entity_id"`

	Action      ActivityAction `gorm:"size:20;index" json:"action"`
	Description string         `gorm:"size:255" json:"description"`
	Details     string         `gorm:"type:jsonb" json:"details"`
	IP          string         `gorm:"size:64" json:"ip"`
}
