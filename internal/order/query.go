package order

import (
	"context"
	"fmt"
	"time"

	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GroupRow is one order group in a list, aggregated in SQL.
type GroupRow struct {
	OrderCode      string               `json:"order_code"`
	UserID         uint                 `json:"user_id"`
	CustomerName   string               `json:"customer_name"`
	Status         models.OrderStatus   `json:"status"`
	PaymentStatus  models.PaymentStatus `json:"payment_status"`
	ItemCount      int                  `json:"item_count"`
	Subtotal       float64              `json:"subtotal"`
	DiscountAmount float64              `json:"discount_amount"`
	RewardDiscount float64              `json:"reward_discount"`
	TotalAmount    float64              `json:"total_amount"`
	CreatedAt      time.Time            `json:"created_at"`
	// Mixed is set when the lines disagree on status or payment status.
	Mixed bool `json:"mixed,omitempty"`
}

type ListFilter struct {
	UserID   uint
	BranchID *uint
	Status   models.OrderStatus
	Search   string
	From, To *time.Time
	Page     int
	PageSize int
}

func (f ListFilter) apply(q *gorm.DB) *gorm.DB {
	if f.UserID != 0 {
		q = q.Where("orders.user_id = ?", f.UserID)
	}
	if f.BranchID != nil {
		q = q.Where("orders.branch_id = ?", *f.BranchID)
	}
	if f.Status != "" {
		q = q.Where("orders.status = ?", f.Status)
	}
	if f.Search != "" {
		q = q.Where("orders.order_code ILIKE ?", "%"+f.Search+"%")
	}
	if f.From != nil {
		q = q.Where("orders.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("orders.created_at < ?", *f.To)
	}
	return q
}

// ListGroups returns one row per order code. Totals are sums of the line totals.
// Lines of a group change status together, so the MIN of status is the group status. A group
// whose lines disagree is flagged and logged rather than folded silently.
func (s *Service) ListGroups(ctx context.Context, f ListFilter) ([]GroupRow, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := f.apply(db.Model(&models.Order{})).
		Distinct("orders.order_code").
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var rows []GroupRow
	err := f.apply(db.Table("orders")).
		Select(`orders.order_code, orders.user_id, users.name AS customer_name,
			MIN(orders.status) AS status, MIN(orders.payment_status) AS payment_status,
			COUNT(*) AS item_count, SUM(orders.subtotal) AS subtotal,
			SUM(orders.discount_amount) AS discount_amount, SUM(orders.reward_discount) AS reward_discount,
			SUM(orders.total_amount) AS total_amount, MIN(orders.created_at) AS created_at,
			(COUNT(DISTINCT orders.status) > 1 OR COUNT(DISTINCT orders.payment_status) > 1) AS mixed`).
		Joins("LEFT JOIN users ON users.id = orders.user_id").
		Group("orders.order_code, orders.user_id, users.name").
		Order("created_at DESC").
		Scopes(database.Paginate(f.Page, f.PageSize)).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	for i := range rows {
		rows[i].Subtotal = fromCents(toCents(rows[i].Subtotal))
		rows[i].TotalAmount = fromCents(toCents(rows[i].TotalAmount))
		if rows[i].Mixed {
			s.log.Warn("order lines disagree on status", zap.String("order_code", rows[i].OrderCode))
		}
	}
	return rows, total, nil
}

// ExportLines returns raw line items for reports, newest first.
func (s *Service) ExportLines(ctx context.Context, f ListFilter) ([]models.Order, error) {
	var lines []models.Order
	err := f.apply(s.db.WithContext(ctx).Model(&models.Order{})).
		Order("orders.created_at DESC, orders.id").
		Limit(10000).
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("export orders: %w", err)
	}
	return lines, nil
}
