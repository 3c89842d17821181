package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type DaySummary struct {
	Day            time.Time `db:"day" json:"day"`
	Transactions   int       `db:"transactions" json:"transactions"`
	Items          int       `db:"items" json:"items"`
	DiscountAmount float64   `db:"discount_amount" json:"discount_amount"`
	Revenue        float64   `db:"revenue" json:"revenue"`
}

type Summary struct {
	From         time.Time    `json:"from"`
	To           time.Time    `json:"to"`
	Transactions int          `json:"transactions"`
	Items        int          `json:"items"`
	Revenue      float64      `json:"revenue"`
	Days         []DaySummary `json:"days"`
}

type Reports struct {
	db *sqlx.DB
}

func NewReports(db *sqlx.DB) *Reports {
	return &Reports{db: db}
}

// Daily groups sales in [from, to) by calendar day. branchID narrows to one branch.
func (r *Reports) Daily(ctx context.Context, from, to time.Time, branchID *uint) (Summary, error) {
	query := `
		SELECT DATE(sold_at) AS day,
		       COUNT(DISTINCT sale_code) AS transactions,
		       COALESCE(SUM(quantity), 0) AS items,
		       COALESCE(SUM(discount_amount), 0) AS discount_amount,
		       COALESCE(SUM(total_amount), 0) AS revenue
		FROM sales
		WHERE sold_at >= ? AND sold_at < ?`
	args := []interface{}{from, to}
	if branchID != nil {
		query += ` AND branch_id = ?`
		args = append(args, *branchID)
	}
	query += ` GROUP BY DATE(sold_at) ORDER BY day`

	days := []DaySummary{}
	if err := r.db.SelectContext(ctx, &days, r.db.Rebind(query), args...); err != nil {
		return Summary{}, fmt.Errorf("daily sales summary: %w", err)
	}

	s := Summary{From: from, To: to, Days: days}
	var revenue int64
	for _, d := range days {
		s.Transactions += d.Transactions
		s.Items += d.Items
		revenue += cents(d.Revenue)
	}
	s.Revenue = float64(revenue) / 100
	return s, nil
}
