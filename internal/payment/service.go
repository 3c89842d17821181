// Package payment records money received against order groups.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"stockhub-backend/internal/events"
	"stockhub-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderCancelled = errors.New("order is cancelled")
	ErrAlreadyPaid    = errors.New("order is already paid")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrOverpayment    = errors.New("amount exceeds outstanding balance")
	ErrInvalidMethod  = errors.New("method must be cash, card, transfer or online")
)

var methods = map[string]bool{"cash": true, "card": true, "transfer": true, "online": true}

type RecordRequest struct {
	OrderCode string  `json:"order_code"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
}

// Balance is the payment position of one order group.
type Balance struct {
	OrderCode     string               `json:"order_code"`
	TotalAmount   float64              `json:"total_amount"`
	PaidAmount    float64              `json:"paid_amount"`
	Outstanding   float64              `json:"outstanding"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Payments      []models.Payment     `json:"payments"`
}

type Service struct {
	db  *gorm.DB
	pub events.Publisher
	log *zap.Logger
	now func() time.Time
}

func NewService(db *gorm.DB, pub events.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{db: db, pub: pub, log: log, now: time.Now}
}

func cents(v float64) int64 { return int64(math.Round(v * 100)) }

func balanceOf(code string, lines []models.Order, payments []models.Payment) Balance {
	var total, paid int64
	for _, l := range lines {
		total += cents(l.TotalAmount)
	}
	for _, p := range payments {
		paid += cents(p.Amount)
	}
	outstanding := total - paid
	if outstanding < 0 {
		outstanding = 0
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return Balance{
		OrderCode:     code,
		TotalAmount:   float64(total) / 100,
		PaidAmount:    float64(paid) / 100,
		Outstanding:   float64(outstanding) / 100,
		PaymentStatus: lines[0].PaymentStatus,
		Payments:      payments,
	}
}

// Record stores a payment. When the paid total reaches the group total every line turns paid.
func (s *Service) Record(ctx context.Context, req RecordRequest, receivedBy uint) (Balance, error) {
	code := strings.TrimSpace(req.OrderCode)
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	if cents(req.Amount) <= 0 {
		return Balance{}, ErrInvalidAmount
	}
	if !methods[req.Method] {
		return Balance{}, ErrInvalidMethod
	}

	var bal Balance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lines []models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_code = ?", code).Order("id").Find(&lines).Error
		if err != nil {
			return fmt.Errorf("lock order %s: %w", code, err)
		}
		if len(lines) == 0 {
			return ErrOrderNotFound
		}
		if lines[0].Status == models.OrderCancelled {
			return ErrOrderCancelled
		}
		if lines[0].PaymentStatus == models.PaymentPaid {
			return ErrAlreadyPaid
		}

		var payments []models.Payment
		if err := tx.Where("order_code = ?", code).Order("paid_at, id").Find(&payments).Error; err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		before := balanceOf(code, lines, payments)
		if cents(req.Amount) > cents(before.Outstanding) {
			return fmt.Errorf("%w: %.2f outstanding", ErrOverpayment, before.Outstanding)
		}

		p := models.Payment{
			OrderCode:  code,
			Amount:     float64(cents(req.Amount)) / 100,
			Method:     req.Method,
			Reference:  strings.TrimSpace(req.Reference),
			ReceivedBy: receivedBy,
			PaidAt:     s.now(),
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		payments = append(payments, p)

		bal = balanceOf(code, lines, payments)
		if bal.Outstanding == 0 {
			err := tx.Model(&models.Order{}).Where("order_code = ?", code).
				Update("payment_status", models.PaymentPaid).Error
			if err != nil {
				return fmt.Errorf("mark order paid: %w", err)
			}
			bal.PaymentStatus = models.PaymentPaid
		}
		return nil
	})
	if err != nil {
		return Balance{}, err
	}

	events.Emit(ctx, s.pub, s.log, events.New(events.PaymentRecorded, code, map[string]any{
		"amount":         bal.Payments[len(bal.Payments)-1].Amount,
		"paid_amount":    bal.PaidAmount,
		"payment_status": bal.PaymentStatus,
	}))
	return bal, nil
}

func (s *Service) Balance(ctx context.Context, code string) (Balance, error) {
	var lines []models.Order
	if err := s.db.WithContext(ctx).Where("order_code = ?", code).Order("id").Find(&lines).Error; err != nil {
		return Balance{}, fmt.Errorf("load order %s: %w", code, err)
	}
	if len(lines) == 0 {
		return Balance{}, ErrOrderNotFound
	}
	var payments []models.Payment
	if err := s.db.WithContext(ctx).Where("order_code = ?", code).Order("paid_at, id").Find(&payments).Error; err != nil {
		return Balance{}, fmt.Errorf("load payments: %w", err)
	}
	return balanceOf(code, lines, payments), nil
}

func IsRejection(err error) bool {
	for _, target := range []error{ErrOrderCancelled, ErrAlreadyPaid, ErrInvalidAmount, ErrOverpayment, ErrInvalidMethod} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
