package dashboard

import (
	"time"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
)

// branchFor confines branch staff to their branch; others may pass ?branch_id=.
func branchFor(c *fiber.Ctx) (*uint, error) {
	id, err := auth.CurrentUser(c)
	if err != nil {
		return nil, err
	}
	if b := id.BranchScope(); b != nil {
		return b, nil
	}
	if b := c.QueryInt("branch_id"); b > 0 {
		v := uint(b)
		return &v, nil
	}
	return nil, nil
}

// GET /api/dashboard/summary
func SummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := branchFor(c)
		if err != nil {
			return err
		}
		sum, err := svc.Summary(c.UserContext(), branch)
		if err != nil {
			return err
		}
		return c.JSON(sum)
	}
}

// GET /api/dashboard/sales-trend?period=daily|weekly|monthly&count=N (or ?days=N)
func SalesTrendHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := branchFor(c)
		if err != nil {
			return err
		}

		period := Period(c.Query("period", string(PeriodDaily)))
		defaults := map[Period]int{PeriodDaily: 7, PeriodWeekly: 8, PeriodMonthly: 12}
		count, ok := defaults[period]
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "period must be daily, weekly or monthly")
		}
		if period == PeriodDaily {
			count = c.QueryInt("days", count)
		}
		count = c.QueryInt("count", count)
		if count < 1 || count > 366 {
			return fiber.NewError(fiber.StatusBadRequest, "count must be between 1 and 366")
		}

		res, err := svc.Trend(c.UserContext(), period, count, branch)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// GET /api/dashboard/top-products?limit=N&days=N (or from/to)
func TopProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := branchFor(c)
		if err != nil {
			return err
		}
		limit := c.QueryInt("limit", 10)
		if limit < 1 || limit > 50 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 50")
		}
		from, to, err := web.DateRange(c)
		if err != nil {
			return err
		}
		if to == nil {
			now := svc.now()
			end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
			to = &end
		}
		if from == nil {
			start := to.AddDate(0, 0, -c.QueryInt("days", 30))
			from = &start
		}

		top, err := svc.TopProducts(c.UserContext(), *from, *to, limit, branch)
		if err != nil {
			return err
		}
		return c.JSON(top)
	}
}
