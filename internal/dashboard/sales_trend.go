package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

type TrendPoint struct {
	Label    string  `json:"label"` // bucket start date
	Cash     float64 `json:"cash"`
	Card     float64 `json:"card"`
	Transfer float64 `json:"transfer"`
	Online   float64 `json:"online"`
	Total    float64 `json:"total"`
}

type TrendResponse struct {
	Period      Period       `json:"period"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Points      []TrendPoint `json:"points"`
	GrandTotals TrendPoint   `json:"grand_totals"`
}

// window returns the first bucket start and the exclusive end for count buckets ending today.
func window(period Period, count int, now time.Time) (Period, time.Time, time.Time) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch period {
	case PeriodWeekly:
		// weeks start on Monday, matching date_trunc('week')
		offset := (int(today.Weekday()) + 6) % 7
		monday := today.AddDate(0, 0, -offset)
		return PeriodWeekly, monday.AddDate(0, 0, -7*(count-1)), today.AddDate(0, 0, 1)
	case PeriodMonthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return PeriodMonthly, first.AddDate(0, -(count - 1), 0), today.AddDate(0, 0, 1)
	}
	return PeriodDaily, today.AddDate(0, 0, -(count - 1)), today.AddDate(0, 0, 1)
}

func (s *Service) Trend(ctx context.Context, period Period, count int, branch *uint) (TrendResponse, error) {
	period, start, end := window(period, count, s.now())

	bucket := "DATE(sold_at)"
	switch period {
	case PeriodWeekly:
		bucket = "date_trunc('week', sold_at)::date"
	case PeriodMonthly:
		bucket = "date_trunc('month', sold_at)::date"
	}

	var rows []struct {
		Bucket time.Time `db:"bucket"`
		Method string    `db:"method"`
		Total  float64   `db:"total"`
	}
	q, args := withBranch(fmt.Sprintf(`
		SELECT %s AS bucket, payment_method AS method, SUM(total_amount) AS total
		FROM sales WHERE sold_at >= ? AND sold_at < ?`, bucket), []interface{}{start, end}, branch)
	q += " GROUP BY bucket, method"
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return TrendResponse{}, fmt.Errorf("sales trend: %w", err)
	}

	buckets := make(map[string]*TrendPoint)
	for _, r := range rows {
		label := r.Bucket.Format("2006-01-02")
		p, ok := buckets[label]
		if !ok {
			p = &TrendPoint{Label: label}
			buckets[label] = p
		}
		switch r.Method {
		case "cash":
			p.Cash += r.Total
		case "card":
			p.Card += r.Total
		case "transfer":
			p.Transfer += r.Total
		default:
			p.Online += r.Total
		}
	}

	res := TrendResponse{
		Period: period,
		From:   start.Format("2006-01-02"),
		To:     end.AddDate(0, 0, -1).Format("2006-01-02"),
		Points: make([]TrendPoint, 0, len(buckets)),
	}
	for _, p := range buckets {
		p.Cash, p.Card, p.Transfer, p.Online = round2(p.Cash), round2(p.Card), round2(p.Transfer), round2(p.Online)
		p.Total = round2(p.Cash + p.Card + p.Transfer + p.Online)
		res.Points = append(res.Points, *p)

		g := &res.GrandTotals
		g.Cash += p.Cash
		g.Card += p.Card
		g.Transfer += p.Transfer
		g.Online += p.Online
		g.Total += p.Total
	}
	sort.Slice(res.Points, func(i, j int) bool { return res.Points[i].Label < res.Points[j].Label })

	g := &res.GrandTotals
	g.Label = "total"
	g.Cash, g.Card, g.Transfer, g.Online, g.Total = round2(g.Cash), round2(g.Card), round2(g.Transfer), round2(g.Online), round2(g.Total)
	return res, nil
}
