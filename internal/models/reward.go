package models

import "time"

type RewardType string

const (
	RewardEarn   RewardType = "earn"
	RewardRedeem RewardType = "redeem"
	RewardRefund RewardType = "refund"
	RewardAdjust RewardType = "adjust"
)

// RewardTransaction is one ledger entry. Points are signed; a balance is the sum per user.
type RewardTransaction struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	OrderCode string     `gorm:"size:40;index" json:"order_code"`
	Type      RewardType `gorm:"size:20;not null" json:"type"`
	Points    int        `gorm:"not null" json:"points"`
	Note      string     `gorm:"size:255" json:"note"`
	CreatedBy *uint      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}
