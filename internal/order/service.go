package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockhub-backend/internal/config"
	"stockhub-backend/internal/coupon"
	"stockhub-backend/internal/events"
	"stockhub-backend/internal/inventory"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/reward"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrProductUnavailable = errors.New("product is not available")
	ErrNotFound           = errors.New("order not found")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrReasonRequired     = errors.New("cancellation reason is required")
	ErrNotCancellable     = errors.New("only pending orders can be cancelled")
	ErrNegativePoints     = errors.New("reward points must not be negative")
)

type Service struct {
	db      *gorm.DB
	pub     events.Publisher
	log     *zap.Logger
	rewards config.RewardsConfig
	now     func() time.Time
}

func NewService(db *gorm.DB, pub events.Publisher, log *zap.Logger, rewards config.RewardsConfig) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{db: db, pub: pub, log: log, rewards: rewards, now: time.Now}
}

// QuoteRequest is what the buyer asks for; the server decides what applies.
type QuoteRequest struct {
	CouponCode   string `json:"coupon_code"`
	RewardPoints int    `json:"reward_points"`
}

type CheckoutRequest struct {
	QuoteRequest
	BranchID        *uint  `json:"branch_id"`
	ShippingAddress string `json:"shipping_address"`
	Notes           string `json:"notes"`
}

type cartLine struct {
	item    models.CartItem
	product models.Product
	stock   int
}

func (s *Service) loadCart(ctx context.Context, db *gorm.DB, userID uint) ([]cartLine, error) {
	var items []models.CartItem
	err := db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Inventory").
		Where("user_id = ?", userID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]cartLine, 0, len(items))
	for _, it := range items {
		if it.Product == nil || !it.Product.IsActive {
			return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, it.ProductID)
		}
		l := cartLine{item: it, product: *it.Product}
		if it.Product.Inventory != nil {
			l.stock = it.Product.Inventory.Quantity
		}
		if it.Quantity > l.stock {
			return nil, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, it.Product.Name, l.stock)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func toLines(cart []cartLine) []Line {
	lines := make([]Line, len(cart))
	for i, c := range cart {
		lines[i] = Line{
			ProductID:   c.product.ID,
			ProductName: c.product.Name,
			Quantity:    c.item.Quantity,
			UnitPrice:   c.product.Price,
		}
	}
	return lines
}

func subtotalOf(lines []Line) float64 {
	var cents int64
	for _, l := range lines {
		cents += toCents(l.UnitPrice) * int64(l.Quantity)
	}
	return fromCents(cents)
}

// price validates the coupon and the redemption against the cart and builds the quote.
// balance reads the reward balance; inside checkout it locks the user row.
func (s *Service) price(ctx context.Context, db *gorm.DB, lines []Line, req QuoteRequest,
	balance func() (int, error)) (Quote, *models.Coupon, error) {
	if req.RewardPoints < 0 {
		return Quote{}, nil, ErrNegativePoints
	}

	var (
		c        *models.Coupon
		discount float64
	)
	if code := coupon.NormalizeCode(req.CouponCode); code != "" {
		found, err := coupon.Find(ctx, db, code)
		if err != nil {
			return Quote{}, nil, err
		}
		discount, err = coupon.Validate(found, subtotalOf(lines), s.now())
		if err != nil {
			return Quote{}, nil, err
		}
		c = found
	}

	r := Redemption{Requested: req.RewardPoints, PointValue: s.rewards.PointValue}
	if req.RewardPoints > 0 {
		b, err := balance()
		if err != nil {
			return Quote{}, nil, err
		}
		r.Balance = b
	}
	return BuildQuote(lines, discount, r), c, nil
}

// Quote prices the caller's cart without writing anything.
func (s *Service) Quote(ctx context.Context, userID uint, req QuoteRequest) (Quote, error) {
	cart, err := s.loadCart(ctx, s.db, userID)
	if err != nil {
		return Quote{}, err
	}
	q, _, err := s.price(ctx, s.db, toLines(cart), req, func() (int, error) {
		return reward.Balance(ctx, s.db, userID)
	})
	return q, err
}

// Checkout turns the cart into one order group in a single transaction.
func (s *Service) Checkout(ctx context.Context, userID uint, req CheckoutRequest) (Group, error) {
	var rows []models.Order
	now := s.now()
	code := NewCode("ORD", now)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.loadCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		q, c, err := s.price(ctx, tx, toLines(cart), req.QuoteRequest, func() (int, error) {
			return reward.LockedBalance(ctx, tx, userID)
		})
		if err != nil {
			return err
		}

		for _, l := range q.Lines {
			err := inventory.Decrement(tx, l.ProductID, l.Quantity)
			if errors.Is(err, inventory.ErrInsufficientStock) {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, l.ProductName)
			}
			if err != nil {
				return fmt.Errorf("decrement stock of product %d: %w", l.ProductID, err)
			}
		}

		couponCode := ""
		if c != nil {
			if err := coupon.Redeem(ctx, tx, c.ID); err != nil {
				return err
			}
			couponCode = c.Code
		}

		// Nothing is owed on a group fully covered by discounts.
		paymentStatus := models.PaymentUnpaid
		if toCents(q.TotalAmount) == 0 {
			paymentStatus = models.PaymentPaid
		}

		rows = make([]models.Order, len(q.Lines))
		for i, l := range q.Lines {
			rows[i] = models.Order{
				OrderCode:        code,
				UserID:           userID,
				BranchID:         req.BranchID,
				ProductID:        l.ProductID,
				ProductName:      l.ProductName,
				Quantity:         l.Quantity,
				UnitPrice:        l.UnitPrice,
				Subtotal:         l.Subtotal,
				CouponCode:       couponCode,
				DiscountAmount:   l.DiscountAmount,
				RewardPointsUsed: l.RewardPointsUsed,
				RewardDiscount:   l.RewardDiscount,
				TotalAmount:      l.TotalAmount,
				Status:           models.OrderPending,
				PaymentStatus:    paymentStatus,
				ShippingAddress:  strings.TrimSpace(req.ShippingAddress),
				Notes:            strings.TrimSpace(req.Notes),
				StatusChangedAt:  &now,
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}

		if q.RewardPointsUsed > 0 {
			err := reward.Append(ctx, tx, &models.RewardTransaction{
				UserID:    userID,
				OrderCode: code,
				Type:      models.RewardRedeem,
				Points:    -q.RewardPointsUsed,
				Note:      "redeemed at checkout",
			})
			if err != nil {
				return fmt.Errorf("redeem points: %w", err)
			}
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return Group{}, err
	}

	g := Summarize(rows)
	events.Emit(ctx, s.pub, s.log, events.New(events.OrderCreated, code, g))
	return g, nil
}

// StatusChange describes a requested transition of a whole group.
type StatusChange struct {
	To      models.OrderStatus
	Reason  string
	Remarks string
	ActorID uint
	// OwnerID restricts the change to the owner's own pending group.
	OwnerID uint
}

// Transition moves every line of the group to c.To inside one transaction, with the group rows
// locked. Cancelling restocks and refunds redeemed points; delivering records sales and earns points.
func (s *Service) Transition(ctx context.Context, code string, c StatusChange) (Group, error) {
	if !c.To.Valid() {
		return Group{}, ErrInvalidStatus
	}
	c.Reason = strings.TrimSpace(c.Reason)
	c.Remarks = strings.TrimSpace(c.Remarks)
	if c.To == models.OrderCancelled && c.Reason == "" {
		return Group{}, ErrReasonRequired
	}

	var (
		lines []models.Order
		from  models.OrderStatus
	)
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_code = ?", code).
			Order("id").
			Find(&lines).Error
		if err != nil {
			return fmt.Errorf("lock order %s: %w", code, err)
		}
		if len(lines) == 0 {
			return ErrNotFound
		}
		from = lines[0].Status

		if c.OwnerID != 0 {
			if lines[0].UserID != c.OwnerID {
				return ErrNotFound
			}
			if c.To != models.OrderCancelled || from != models.OrderPending {
				return ErrNotCancellable
			}
		}
		if !CanTransition(from, c.To) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, c.To)
		}

		updates := map[string]any{
			"status":            c.To,
			"status_changed_at": now,
		}
		if c.To == models.OrderCancelled {
			actor := c.ActorID
			updates["cancel_reason"] = c.Reason
			updates["cancel_remarks"] = c.Remarks
			updates["cancelled_by"] = &actor
			if lines[0].PaymentStatus == models.PaymentPaid {
				updates["payment_status"] = models.PaymentRefunded
			}
		}
		res := tx.Model(&models.Order{}).Where("order_code = ?", code).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update order %s: %w", code, res.Error)
		}
		if res.RowsAffected != int64(len(lines)) {
			return fmt.Errorf("update order %s: %d of %d lines changed", code, res.RowsAffected, len(lines))
		}

		switch c.To {
		case models.OrderCancelled:
			return s.onCancelled(ctx, tx, code, lines)
		case models.OrderDelivered:
			return s.onDelivered(ctx, tx, code, lines, now)
		}
		return nil
	})
	if err != nil {
		return Group{}, err
	}

	for i := range lines {
		lines[i].Status = c.To
		lines[i].StatusChangedAt = &now
		if c.To == models.OrderCancelled {
			actor := c.ActorID
			lines[i].CancelReason = c.Reason
			lines[i].CancelRemarks = c.Remarks
			lines[i].CancelledBy = &actor
			if lines[i].PaymentStatus == models.PaymentPaid {
				lines[i].PaymentStatus = models.PaymentRefunded
			}
		}
	}
	g := Summarize(lines)

	events.Emit(ctx, s.pub, s.log, events.New(events.OrderStatusChanged, code, map[string]any{
		"order_code": code,
		"from":       from,
		"to":         c.To,
		"actor_id":   c.ActorID,
	}))
	return g, nil
}

func (s *Service) onCancelled(ctx context.Context, tx *gorm.DB, code string, lines []models.Order) error {
	points := 0
	for _, l := range lines {
		if err := inventory.Restock(tx, l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("restock product %d: %w", l.ProductID, err)
		}
		points += l.RewardPointsUsed
	}
	if points > 0 {
		return reward.Append(ctx, tx, &models.RewardTransaction{
			UserID:    lines[0].UserID,
			OrderCode: code,
			Type:      models.RewardRefund,
			Points:    points,
			Note:      "order cancelled",
		})
	}
	return nil
}

func (s *Service) onDelivered(ctx context.Context, tx *gorm.DB, code string, lines []models.Order, now time.Time) error {
	sales := make([]models.Sale, len(lines))
	var paid int64
	for i, l := range lines {
		orderID := l.ID
		customer := l.UserID
		sales[i] = models.Sale{
			SaleCode:       code,
			OrderID:        &orderID,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			CustomerID:     &customer,
			BranchID:       l.BranchID,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountAmount: fromCents(toCents(l.DiscountAmount) + toCents(l.RewardDiscount)),
			TotalAmount:    l.TotalAmount,
			PaymentMethod:  "online",
			SoldAt:         now,
		}
		paid += toCents(l.TotalAmount)
	}
	if err := tx.WithContext(ctx).Create(&sales).Error; err != nil {
		return fmt.Errorf("record sales for %s: %w", code, err)
	}

	earned := reward.EarnedPoints(fromCents(paid), s.rewards.EarnRate)
	if earned > 0 {
		return reward.Append(ctx, tx, &models.RewardTransaction{
			UserID:    lines[0].UserID,
			OrderCode: code,
			Type:      models.RewardEarn,
			Points:    earned,
			Note:      "order delivered",
		})
	}
	return nil
}

// Lines returns the line items of one group. userID restricts to the owner when non-zero.
func (s *Service) Lines(ctx context.Context, code string, userID uint) ([]models.Order, error) {
	q := s.db.WithContext(ctx).Where("order_code = ?", code)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var lines []models.Order
	if err := q.Order("id").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("load order %s: %w", code, err)
	}
	if len(lines) == 0 {
		return nil, ErrNotFound
	}
	return lines, nil
}

// IsRejection reports whether err is a business rule failure the caller can fix.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrEmptyCart, ErrInsufficientStock, ErrProductUnavailable, ErrInvalidStatus,
		ErrInvalidTransition, ErrReasonRequired, ErrNotCancellable, ErrNegativePoints,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return coupon.IsRejection(err)
}
