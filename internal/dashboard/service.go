// Package dashboard serves aggregate report queries. They run through sqlx on the GORM pool.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
)

type Summary struct {
	ProductCount       int            `json:"product_count"`
	ActiveProductCount int            `json:"active_product_count"`
	LowStockCount      int            `json:"low_stock_count"`
	OrdersByStatus     map[string]int `json:"orders_by_status"`
	Revenue            float64        `json:"revenue"`
	SalesToday         float64        `json:"sales_today"`
	TransactionsToday  int            `json:"transactions_today"`
}

type TopProduct struct {
	ProductID   uint    `db:"product_id" json:"product_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	Quantity    int     `db:"quantity" json:"quantity"`
	Revenue     float64 `db:"revenue" json:"revenue"`
}

type Service struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewService(db *sqlx.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// withBranch appends a branch filter when branch is set.
func withBranch(query string, args []interface{}, branch *uint) (string, []interface{}) {
	if branch == nil {
		return query, args
	}
	return query + " AND branch_id = ?", append(args, *branch)
}

func (s *Service) today() (time.Time, time.Time) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

func (s *Service) Summary(ctx context.Context, branch *uint) (Summary, error) {
	sum := Summary{OrdersByStatus: map[string]int{}}

	var products struct {
		Total  int `db:"total"`
		Active int `db:"active"`
	}
	err := s.db.GetContext(ctx, &products,
		`SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active FROM products`)
	if err != nil {
		return Summary{}, fmt.Errorf("count products: %w", err)
	}
	sum.ProductCount, sum.ActiveProductCount = products.Total, products.Active

	err = s.db.GetContext(ctx, &sum.LowStockCount, `
		SELECT COUNT(*) FROM inventory
		JOIN products ON products.id = inventory.product_id
		WHERE products.is_active AND inventory.quantity <= inventory.reorder_level`)
	if err != nil {
		return Summary{}, fmt.Errorf("count low stock: %w", err)
	}

	var statuses []struct {
		Status string `db:"status"`
		Groups int    `db:"groups"`
	}
	q, args := withBranch(`SELECT status, COUNT(DISTINCT order_code) AS groups FROM orders WHERE 1 = 1`, nil, branch)
	if err := s.db.SelectContext(ctx, &statuses, s.db.Rebind(q+" GROUP BY status"), args...); err != nil {
		return Summary{}, fmt.Errorf("count orders by status: %w", err)
	}
	for _, st := range statuses {
		sum.OrdersByStatus[st.Status] = st.Groups
	}

	q, args = withBranch(`SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status = 'delivered'`, nil, branch)
	if err := s.db.GetContext(ctx, &sum.Revenue, s.db.Rebind(q), args...); err != nil {
		return Summary{}, fmt.Errorf("sum revenue: %w", err)
	}
	sum.Revenue = round2(sum.Revenue)

	start, end := s.today()
	var today struct {
		Transactions int     `db:"transactions"`
		Revenue      float64 `db:"revenue"`
	}
	q, args = withBranch(`
		SELECT COUNT(DISTINCT sale_code) AS transactions, COALESCE(SUM(total_amount), 0) AS revenue
		FROM sales WHERE sold_at >= ? AND sold_at < ?`, []interface{}{start, end}, branch)
	if err := s.db.GetContext(ctx, &today, s.db.Rebind(q), args...); err != nil {
		return Summary{}, fmt.Errorf("sum sales today: %w", err)
	}
	sum.TransactionsToday, sum.SalesToday = today.Transactions, round2(today.Revenue)
	return sum, nil
}

// TopProducts ranks products by units sold in [from, to).
func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit int, branch *uint) ([]TopProduct, error) {
	q, args := withBranch(`
		SELECT product_id, MAX(product_name) AS product_name,
		       SUM(quantity) AS quantity, SUM(total_amount) AS revenue
		FROM sales WHERE sold_at >= ? AND sold_at < ?`, []interface{}{from, to}, branch)
	q += " GROUP BY product_id ORDER BY quantity DESC, revenue DESC LIMIT ?"
	args = append(args, limit)

	top := []TopProduct{}
	if err := s.db.SelectContext(ctx, &top, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	for i := range top {
		top[i].Revenue = round2(top[i].Revenue)
	}
	return top, nil
}
