package reward

import (
	"context"
	"errors"
	"fmt"
	"math"

	"stockhub-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientPoints = errors.New("insufficient reward points")
	ErrInvalidPoints      = errors.New("points must be a non-zero integer")
)

// Balance is the sum of the ledger for userID. db may be a transaction.
func Balance(ctx context.Context, db *gorm.DB, userID uint) (int, error) {
	var balance int
	err := db.WithContext(ctx).Model(&models.RewardTransaction{}).
		Select("COALESCE(SUM(points), 0)").
		Where("user_id = ?", userID).
		Scan(&balance).Error
	if err != nil {
		return 0, fmt.Errorf("reward balance of user %d: %w", userID, err)
	}
	return balance, nil
}

// LockedBalance locks the user row first so concurrent debits of the same user serialize.
func LockedBalance(ctx context.Context, tx *gorm.DB, userID uint) (int, error) {
	var u models.User
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").Take(&u, userID).Error
	if err != nil {
		return 0, fmt.Errorf("lock user %d: %w", userID, err)
	}
	return Balance(ctx, tx, userID)
}

// Append writes one ledger entry.
func Append(ctx context.Context, tx *gorm.DB, entry *models.RewardTransaction) error {
	if entry.Points == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(entry).Error
}

// EarnedPoints is floor(amount * rate); non-positive amounts earn nothing.
func EarnedPoints(amount, rate float64) int {
	if amount <= 0 || rate <= 0 {
		return 0
	}
	// Nudge up before flooring so 19.99*100 style products don't lose a point to float error.
	return int(math.Floor(amount*rate + 1e-9))
}

// PointsValue converts points to currency at pointValue per point.
func PointsValue(points int, pointValue float64) float64 {
	return math.Round(float64(points)*pointValue*100) / 100
}
