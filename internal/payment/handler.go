package payment

import (
	"errors"
	"fmt"
	"strings"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case IsRejection(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

// POST /api/payments
func RecordPaymentHandler(svc *Service, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body RecordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if strings.TrimSpace(body.OrderCode) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "order_code is required")
		}

		bal, err := svc.Record(c.UserContext(), body, id.ID)
		if err != nil {
			return HTTPError(err)
		}

		logs.RecordCtx(c, models.ActivityCreate, "payment", bal.OrderCode,
			fmt.Sprintf("payment of %.2f by %s, %.2f outstanding", body.Amount, body.Method, bal.Outstanding), body)
		return c.Status(fiber.StatusCreated).JSON(bal)
	}
}

// GET /api/payments
func ListPaymentsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := web.DateRange(c)
		if err != nil {
			return err
		}
		q := db.WithContext(c.UserContext()).Model(&models.Payment{})
		if from != nil {
			q = q.Where("paid_at >= ?", *from)
		}
		if to != nil {
			q = q.Where("paid_at < ?", *to)
		}
		if m := c.Query("method"); m != "" {
			q = q.Where("method = ?", strings.ToLower(m))
		}
		if code := strings.TrimSpace(c.Query("order_code")); code != "" {
			q = q.Where("order_code = ?", code)
		}

		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return fmt.Errorf("count payments: %w", err)
		}
		page, size := web.Page(c)
		var payments []models.Payment
		if err := q.Order("paid_at DESC, id DESC").Scopes(database.Paginate(page, size)).Find(&payments).Error; err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		return c.JSON(web.NewPaged(payments, total, page, size))
	}
}

// GET /api/payments/:code
func GetBalanceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bal, err := svc.Balance(c.UserContext(), c.Params("code"))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(bal)
	}
}
