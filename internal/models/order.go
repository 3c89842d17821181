package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderApproved, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order is one line item. Line items created by the same checkout share OrderCode.
type Order struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	OrderCode        string        `gorm:"size:40;not null;index" json:"order_code"`
	UserID           uint          `gorm:"not null;index" json:"user_id"`
	BranchID         *uint         `gorm:"index" json:"branch_id"`
	ProductID        uint          `gorm:"not null;index" json:"product_id"`
	ProductName      string        `gorm:"size:150;not null" json:"product_name"`
	Quantity         int           `gorm:"not null" json:"quantity"`
	UnitPrice        float64       `gorm:"not null" json:"unit_price"`
	Subtotal         float64       `gorm:"not null" json:"subtotal"`
	CouponCode       string        `gorm:"size:50" json:"coupon_code"`
	DiscountAmount   float64       `gorm:"not null" json:"discount_amount"`
	RewardPointsUsed int           `gorm:"not null" json:"reward_points_used"`
	RewardDiscount   float64       `gorm:"not null" json:"reward_discount"`
	TotalAmount      float64       `gorm:"not null" json:"total_amount"`
	Status           OrderStatus   `gorm:"size:20;not null;index" json:"status"`
	PaymentStatus    PaymentStatus `gorm:"size:20;not null" json:"payment_status"`
	ShippingAddress  string        `gorm:"size:255" json:"shipping_address"`
	Notes            string        `gorm:"size:255" json:"notes"`
	CancelReason     string        `gorm:"size:255" json:"cancel_reason"`
	CancelRemarks    string        `gorm:"type:text" json:"cancel_remarks"`
	CancelledBy      *uint         `json:"cancelled_by"`
	StatusChangedAt  *time.Time    `json:"status_changed_at"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Sale mirrors a completed line item (delivered order or walk-in sale) for reporting.
type Sale struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SaleCode       string    `gorm:"size:40;not null;index" json:"sale_code"`
	OrderID        *uint     `gorm:"uniqueIndex" json:"order_id"`
	ProductID      uint      `gorm:"not null;index" json:"product_id"`
	ProductName    string    `gorm:"size:150;not null" json:"product_name"`
	CustomerID     *uint     `gorm:"index" json:"customer_id"`
	CashierID      *uint     `json:"cashier_id"`
	BranchID       *uint     `gorm:"index" json:"branch_id"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	UnitPrice      float64   `gorm:"not null" json:"unit_price"`
	DiscountAmount float64   `gorm:"not null" json:"discount_amount"`
	TotalAmount    float64   `gorm:"not null" json:"total_amount"`
	PaymentMethod  string    `gorm:"size:20" json:"payment_method"`
	SoldAt         time.Time `gorm:"not null;index" json:"sold_at"`
	CreatedAt      time.Time `json:"created_at"`
}

type Payment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderCode  string    `gorm:"size:40;not null;index" json:"order_code"`
	Amount     float64   `gorm:"not null" json:"amount"`
	Method     string    `gorm:"size:20;not null" json:"method"`
	Reference  string    `gorm:"size:100" json:"reference"`
	ReceivedBy uint      `gorm:"not null" json:"received_by"`
	PaidAt     time.Time `gorm:"not null" json:"paid_at"`
	CreatedAt  time.Time `json:"created_at"`
}
