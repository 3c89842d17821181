package sale

import (
	"fmt"
	"strconv"
	"time"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/export"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func httpError(err error) error {
	if IsRejection(err) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func listQuery(c *fiber.Ctx, db *gorm.DB) (*gorm.DB, error) {
	id, err := auth.CurrentUser(c)
	if err != nil {
		return nil, err
	}
	from, to, err := web.DateRange(c)
	if err != nil {
		return nil, err
	}
	q := db.WithContext(c.UserContext()).Model(&models.Sale{})
	if b := id.BranchScope(); b != nil {
		q = q.Where("branch_id = ?", *b)
	} else if b := c.QueryInt("branch_id"); b > 0 {
		q = q.Where("branch_id = ?", b)
	}
	if from != nil {
		q = q.Where("sold_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("sold_at < ?", *to)
	}
	if p := c.QueryInt("product_id"); p > 0 {
		q = q.Where("product_id = ?", p)
	}
	if code := c.Query("sale_code"); code != "" {
		q = q.Where("sale_code = ?", code)
	}
	return q, nil
}

// GET /api/sales
func ListSalesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := listQuery(c, db)
		if err != nil {
			return err
		}
		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return fmt.Errorf("count sales: %w", err)
		}
		page, size := web.Page(c)
		var sales []models.Sale
		if err := q.Order("sold_at DESC, id DESC").Scopes(database.Paginate(page, size)).Find(&sales).Error; err != nil {
			return fmt.Errorf("list sales: %w", err)
		}
		return c.JSON(web.NewPaged(sales, total, page, size))
	}
}

// POST /api/sales
func CreateSaleHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body CreateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		rec, err := Create(c.UserContext(), db, id, body, time.Now())
		if err != nil {
			return httpError(err)
		}

		logs.RecordCtx(c, models.ActivityCreate, "sale", rec.SaleCode,
			fmt.Sprintf("walk-in sale of %d items, total %.2f", len(rec.Items), rec.TotalAmount), body)
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// GET /api/sales/summary?from=&to= defaults to the last 30 days.
func SummaryHandler(r *Reports) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		from, to, err := web.DateRange(c)
		if err != nil {
			return err
		}
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if to == nil {
			end := today.AddDate(0, 0, 1)
			to = &end
		}
		if from == nil {
			start := to.AddDate(0, 0, -30)
			from = &start
		}

		s, err := r.Daily(c.UserContext(), *from, *to, id.BranchScope())
		if err != nil {
			return err
		}
		return c.JSON(s)
	}
}

// GET /api/sales/export?format=csv|xlsx
func ExportSalesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format, err := export.FormatFromQuery(c)
		if err != nil {
			return err
		}
		q, err := listQuery(c, db)
		if err != nil {
			return err
		}
		var sales []models.Sale
		if err := q.Order("sold_at, id").Find(&sales).Error; err != nil {
			return fmt.Errorf("export sales: %w", err)
		}

		header := []string{"sale_code", "sold_at", "product", "quantity", "unit_price", "discount", "total", "payment_method", "order_id"}
		rows := make([][]string, 0, len(sales))
		for _, s := range sales {
			orderID := ""
			if s.OrderID != nil {
				orderID = strconv.FormatUint(uint64(*s.OrderID), 10)
			}
			rows = append(rows, []string{
				s.SaleCode, export.Date(s.SoldAt), s.ProductName, strconv.Itoa(s.Quantity),
				export.Money(s.UnitPrice), export.Money(s.DiscountAmount), export.Money(s.TotalAmount),
				s.PaymentMethod, orderID,
			})
		}
		return export.Send(c, format, "sales", header, rows)
	}
}
