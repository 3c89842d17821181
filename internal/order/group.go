package order

import (
	"fmt"
	"strings"
	"time"

	"stockhub-backend/internal/models"

	"github.com/google/uuid"
)

// Group is an order as the customer sees it: every line item sharing one order code.
type Group struct {
	OrderCode        string               `json:"order_code"`
	UserID           uint                 `json:"user_id"`
	BranchID         *uint                `json:"branch_id"`
	Status           models.OrderStatus   `json:"status"`
	PaymentStatus    models.PaymentStatus `json:"payment_status"`
	CouponCode       string               `json:"coupon_code"`
	Subtotal         float64              `json:"subtotal"`
	DiscountAmount   float64              `json:"discount_amount"`
	RewardPointsUsed int                  `json:"reward_points_used"`
	RewardDiscount   float64              `json:"reward_discount"`
	TotalAmount      float64              `json:"total_amount"`
	ItemCount        int                  `json:"item_count"`
	ShippingAddress  string               `json:"shipping_address"`
	Notes            string               `json:"notes"`
	CancelReason     string               `json:"cancel_reason,omitempty"`
	CancelRemarks    string               `json:"cancel_remarks,omitempty"`
	NextStatuses     []models.OrderStatus `json:"next_statuses"`
	CreatedAt        time.Time            `json:"created_at"`
	StatusChangedAt  *time.Time           `json:"status_changed_at"`
	Lines            []models.Order       `json:"lines"`
}

// Summarize folds the line items of one order code. Money fields are sums of the lines,
// so the group total always equals the sum of line totals.
func Summarize(lines []models.Order) Group {
	if len(lines) == 0 {
		return Group{Lines: []models.Order{}, NextStatuses: []models.OrderStatus{}}
	}
	first := lines[0]
	g := Group{
		OrderCode:       first.OrderCode,
		UserID:          first.UserID,
		BranchID:        first.BranchID,
		Status:          first.Status,
		PaymentStatus:   first.PaymentStatus,
		CouponCode:      first.CouponCode,
		ItemCount:       len(lines),
		ShippingAddress: first.ShippingAddress,
		Notes:           first.Notes,
		CancelReason:    first.CancelReason,
		CancelRemarks:   first.CancelRemarks,
		NextStatuses:    NextStatuses(first.Status),
		CreatedAt:       first.CreatedAt,
		StatusChangedAt: first.StatusChangedAt,
		Lines:           lines,
	}
	var subtotal, discount, reward, total int64
	for _, l := range lines {
		subtotal += toCents(l.Subtotal)
		discount += toCents(l.DiscountAmount)
		reward += toCents(l.RewardDiscount)
		total += toCents(l.TotalAmount)
		g.RewardPointsUsed += l.RewardPointsUsed
	}
	g.Subtotal = fromCents(subtotal)
	g.DiscountAmount = fromCents(discount)
	g.RewardDiscount = fromCents(reward)
	g.TotalAmount = fromCents(total)
	return g
}

// NewCode returns a fresh order code such as ORD-20260310-9F86D081.
func NewCode(prefix string, now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), id)
}
