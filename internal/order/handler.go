package order

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/coupon"
	"stockhub-backend/internal/export"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/reward"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
)

type StatusRequest struct {
	Status  models.OrderStatus `json:"status"`
	Reason  string             `json:"reason"`
	Remarks string             `json:"remarks"`
}

type CancelRequest struct {
	Reason  string `json:"reason"`
	Remarks string `json:"remarks"`
}

// HTTPError maps order and coupon errors onto the API error taxonomy.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, coupon.ErrNotFound):
		return fiber.NewError(fiber.StatusBadRequest, "invalid coupon code")
	case errors.Is(err, reward.ErrInsufficientPoints):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case IsRejection(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func filterFrom(c *fiber.Ctx) (ListFilter, error) {
	from, to, err := web.DateRange(c)
	if err != nil {
		return ListFilter{}, err
	}
	page, size := web.Page(c)
	f := ListFilter{
		Status:   models.OrderStatus(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
		From:     from,
		To:       to,
		Page:     page,
		PageSize: size,
	}
	if f.Status != "" && !f.Status.Valid() {
		return ListFilter{}, fiber.NewError(fiber.StatusBadRequest, ErrInvalidStatus.Error())
	}
	return f, nil
}

// POST /api/orders/checkout
func CheckoutHandler(svc *Service, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body CheckoutRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		g, err := svc.Checkout(c.UserContext(), id.ID, body)
		if err != nil {
			return HTTPError(err)
		}

		logs.RecordCtx(c, models.ActivityCreate, "order", g.OrderCode,
			fmt.Sprintf("checkout of %d items, total %.2f", g.ItemCount, g.TotalAmount), nil)
		return c.Status(fiber.StatusCreated).JSON(g)
	}
}

// POST /api/cart/quote
func QuoteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body QuoteRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}
		q, err := svc.Quote(c.UserContext(), id.ID, body)
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(q)
	}
}

// GET /api/orders/me
func MyOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		f, err := filterFrom(c)
		if err != nil {
			return err
		}
		f.UserID = id.ID

		rows, total, err := svc.ListGroups(c.UserContext(), f)
		if err != nil {
			return err
		}
		return c.JSON(web.NewPaged(rows, total, f.Page, f.PageSize))
	}
}

// GET /api/orders/me/:code
func MyOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		lines, err := svc.Lines(c.UserContext(), c.Params("code"), id.ID)
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(Summarize(lines))
	}
}

// POST /api/orders/me/:code/cancel
func CancelMyOrderHandler(svc *Service, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body CancelRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		code := c.Params("code")
		g, err := svc.Transition(c.UserContext(), code, StatusChange{
			To:      models.OrderCancelled,
			Reason:  body.Reason,
			Remarks: body.Remarks,
			ActorID: id.ID,
			OwnerID: id.ID,
		})
		if err != nil {
			return HTTPError(err)
		}

		logs.RecordCtx(c, models.ActivityStatus, "order", code, "customer cancelled order: "+g.CancelReason, body)
		return c.JSON(g)
	}
}

// GET /api/orders
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		f, err := filterFrom(c)
		if err != nil {
			return err
		}
		f.BranchID = id.BranchScope()
		if v := c.Query("user_id"); v != "" {
			uid, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
			}
			f.UserID = uint(uid)
		}

		rows, total, err := svc.ListGroups(c.UserContext(), f)
		if err != nil {
			return err
		}
		return c.JSON(web.NewPaged(rows, total, f.Page, f.PageSize))
	}
}

// GET /api/orders/:code
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		lines, err := svc.Lines(c.UserContext(), c.Params("code"), 0)
		if err != nil {
			return HTTPError(err)
		}
		if b := id.BranchScope(); b != nil && (lines[0].BranchID == nil || *lines[0].BranchID != *b) {
			return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
		}
		return c.JSON(Summarize(lines))
	}
}

// PUT /api/orders/:code/status
func UpdateStatusHandler(svc *Service, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		code := c.Params("code")
		if b := id.BranchScope(); b != nil {
			lines, err := svc.Lines(c.UserContext(), code, 0)
			if err != nil {
				return HTTPError(err)
			}
			if lines[0].BranchID == nil || *lines[0].BranchID != *b {
				return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
			}
		}

		g, err := svc.Transition(c.UserContext(), code, StatusChange{
			To:      body.Status,
			Reason:  body.Reason,
			Remarks: body.Remarks,
			ActorID: id.ID,
		})
		if err != nil {
			return HTTPError(err)
		}

		logs.RecordCtx(c, models.ActivityStatus, "order", code,
			fmt.Sprintf("order status changed to %s", body.Status), body)
		return c.JSON(g)
	}
}

// GET /api/orders/export
func ExportOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		format, err := export.FormatFromQuery(c)
		if err != nil {
			return err
		}
		f, err := filterFrom(c)
		if err != nil {
			return err
		}
		f.BranchID = id.BranchScope()

		lines, err := svc.ExportLines(c.UserContext(), f)
		if err != nil {
			return err
		}

		header := []string{"order_code", "date", "user_id", "product", "quantity", "unit_price",
			"subtotal", "coupon", "discount", "reward_discount", "total", "status", "payment_status"}
		rows := make([][]string, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, []string{
				l.OrderCode,
				export.Date(l.CreatedAt),
				strconv.FormatUint(uint64(l.UserID), 10),
				l.ProductName,
				strconv.Itoa(l.Quantity),
				export.Money(l.UnitPrice),
				export.Money(l.Subtotal),
				l.CouponCode,
				export.Money(l.DiscountAmount),
				export.Money(l.RewardDiscount),
				export.Money(l.TotalAmount),
				string(l.Status),
				string(l.PaymentStatus),
			})
		}
		return export.Send(c, format, "orders", header, rows)
	}
}
