package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CouponRequest struct {
	Code              string              `json:"code"`
	Description       string              `json:"description"`
	DiscountType      models.DiscountType `json:"discount_type"`
	DiscountValue     float64             `json:"discount_value"`
	MinPurchaseAmount float64             `json:"min_purchase_amount"`
	MaxUses           int                 `json:"max_uses"`
	IsActive          *bool               `json:"is_active"`
	StartsAt          *time.Time          `json:"starts_at"`
	ExpiresAt         *time.Time          `json:"expires_at"`
}

type ValidateRequest struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
}

type ValidateResponse struct {
	Code           string  `json:"code"`
	Valid          bool    `json:"valid"`
	DiscountAmount float64 `json:"discount_amount"`
	Total          float64 `json:"total"`
}

func (r *CouponRequest) apply(c *models.Coupon) error {
	code := NormalizeCode(r.Code)
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}
	switch r.DiscountType {
	case models.DiscountPercentage:
		if r.DiscountValue <= 0 || r.DiscountValue > 100 {
			return fiber.NewError(fiber.StatusBadRequest, "percentage discount must be in (0, 100]")
		}
	case models.DiscountFixed:
		if r.DiscountValue <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "fixed discount must be positive")
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "discount_type must be percentage or fixed")
	}
	if r.MinPurchaseAmount < 0 || r.MaxUses < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "min_purchase_amount and max_uses must not be negative")
	}
	if r.StartsAt != nil && r.ExpiresAt != nil && !r.StartsAt.Before(*r.ExpiresAt) {
		return fiber.NewError(fiber.StatusBadRequest, "starts_at must be before expires_at")
	}

	c.Code = code
	c.Description = strings.TrimSpace(r.Description)
	c.DiscountType = r.DiscountType
	c.DiscountValue = r.DiscountValue
	c.MinPurchaseAmount = r.MinPurchaseAmount
	c.MaxUses = r.MaxUses
	c.StartsAt = r.StartsAt
	c.ExpiresAt = r.ExpiresAt
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
	return nil
}

func loadCoupon(c *fiber.Ctx, db *gorm.DB) (*models.Coupon, error) {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	var coupon models.Coupon
	if err := db.WithContext(c.UserContext()).First(&coupon, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
		}
		return nil, err
	}
	return &coupon, nil
}

// GET /api/coupons
func ListCouponsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).Model(&models.Coupon{})
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			q = q.Where("code ILIKE ?", "%"+s+"%")
		}
		if active := c.Query("active"); active != "" {
			q = q.Where("is_active = ?", active == "true")
		}

		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return fmt.Errorf("count coupons: %w", err)
		}
		page, size := web.Page(c)
		var coupons []models.Coupon
		if err := q.Order("created_at DESC").Scopes(database.Paginate(page, size)).Find(&coupons).Error; err != nil {
			return fmt.Errorf("list coupons: %w", err)
		}
		return c.JSON(web.NewPaged(coupons, total, page, size))
	}
}

// GET /api/coupons/:id
func GetCouponHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		coupon, err := loadCoupon(c, db)
		if err != nil {
			return err
		}
		return c.JSON(coupon)
	}
}

// POST /api/coupons
func CreateCouponHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CouponRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		coupon := models.Coupon{IsActive: true}
		if err := body.apply(&coupon); err != nil {
			return err
		}

		if err := db.WithContext(c.UserContext()).Create(&coupon).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "coupon code already exists")
			}
			return fmt.Errorf("create coupon: %w", err)
		}

		logs.RecordCtx(c, models.ActivityCreate, "coupon", coupon.ID, "created coupon "+coupon.Code, body)
		return c.Status(fiber.StatusCreated).JSON(coupon)
	}
}

// PUT /api/coupons/:id
func UpdateCouponHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		coupon, err := loadCoupon(c, db)
		if err != nil {
			return err
		}
		var body CouponRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := body.apply(coupon); err != nil {
			return err
		}

		if err := db.WithContext(c.UserContext()).Save(coupon).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "coupon code already exists")
			}
			return fmt.Errorf("update coupon: %w", err)
		}

		logs.RecordCtx(c, models.ActivityUpdate, "coupon", coupon.ID, "updated coupon "+coupon.Code, body)
		return c.JSON(coupon)
	}
}

// DELETE /api/coupons/:id
func DeleteCouponHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		coupon, err := loadCoupon(c, db)
		if err != nil {
			return err
		}
		if err := db.WithContext(c.UserContext()).Delete(coupon).Error; err != nil {
			return fmt.Errorf("delete coupon: %w", err)
		}
		logs.RecordCtx(c, models.ActivityDelete, "coupon", coupon.ID, "deleted coupon "+coupon.Code, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/coupons/validate
func ValidateCouponHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ValidateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if NormalizeCode(body.Code) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "code is required")
		}
		if body.Subtotal < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "subtotal must not be negative")
		}

		coupon, err := Find(c.UserContext(), db, body.Code)
		if err != nil {
			return HTTPError(err)
		}
		discount, err := Validate(coupon, body.Subtotal, time.Now())
		if err != nil {
			return HTTPError(err)
		}

		return c.JSON(ValidateResponse{
			Code:           coupon.Code,
			Valid:          true,
			DiscountAmount: discount,
			Total:          web.Round2(body.Subtotal - discount),
		})
	}
}

// HTTPError maps coupon rejections to 400 and a missing coupon to 404.
func HTTPError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if IsRejection(err) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}
