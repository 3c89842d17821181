package reward

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

type MyRewardsResponse struct {
	Balance      int                        `json:"balance"`
	BalanceValue float64                    `json:"balance_value"`
	PointValue   float64                    `json:"point_value"`
	Transactions []models.RewardTransaction `json:"transactions"`
}

type UserBalance struct {
	UserID  uint   `json:"user_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Balance int    `json:"balance"`
}

type AdjustRequest struct {
	UserID uint   `json:"user_id"`
	Points int    `json:"points"`
	Note   string `json:"note"`
}

// GET /api/rewards/me
func MyRewardsHandler(db *gorm.DB, pointValue float64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		ctx := c.UserContext()

		balance, err := Balance(ctx, db, id.ID)
		if err != nil {
			return err
		}
		var txs []models.RewardTransaction
		if err := db.WithContext(ctx).Where("user_id = ?", id.ID).
			Order("created_at DESC").Limit(100).Find(&txs).Error; err != nil {
			return fmt.Errorf("reward ledger: %w", err)
		}
		if txs == nil {
			txs = []models.RewardTransaction{}
		}

		return c.JSON(MyRewardsResponse{
			Balance:      balance,
			BalanceValue: PointsValue(balance, pointValue),
			PointValue:   pointValue,
			Transactions: txs,
		})
	}
}

// GET /api/rewards
func ListBalancesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).
			Table("users").
			Select("users.id AS user_id, users.name, users.email, COALESCE(SUM(reward_transactions.points), 0) AS balance").
			Joins("LEFT JOIN reward_transactions ON reward_transactions.user_id = users.id").
			Where("users.role = ?", models.RoleUser).
			Group("users.id, users.name, users.email")
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			q = q.Where("users.name ILIKE ? OR users.email ILIKE ?", "%"+s+"%", "%"+s+"%")
		}

		page, size := web.Page(c)
		var rows []UserBalance
		if err := q.Order("balance DESC, users.id").Scopes(database.Paginate(page, size)).Scan(&rows).Error; err != nil {
			return fmt.Errorf("reward balances: %w", err)
		}
		if rows == nil {
			rows = []UserBalance{}
		}
		return c.JSON(rows)
	}
}

// POST /api/rewards/adjust
func AdjustHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body AdjustRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.UserID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "user_id is required")
		}
		if body.Points == 0 {
			return fiber.NewError(fiber.StatusBadRequest, ErrInvalidPoints.Error())
		}

		var balance int
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			current, err := LockedBalance(c.UserContext(), tx, body.UserID)
			if err != nil {
				return err
			}
			if current+body.Points < 0 {
				return ErrInsufficientPoints
			}
			actorID := actor.ID
			entry := models.RewardTransaction{
				UserID:    body.UserID,
				Type:      models.RewardAdjust,
				Points:    body.Points,
				Note:      strings.TrimSpace(body.Note),
				CreatedBy: &actorID,
			}
			if err := Append(c.UserContext(), tx, &entry); err != nil {
				return err
			}
			balance = current + body.Points
			return nil
		})
		switch {
		case errors.Is(err, ErrInsufficientPoints):
			return fiber.NewError(fiber.StatusBadRequest, "adjustment would make the balance negative")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		case err != nil:
			return fmt.Errorf("adjust rewards: %w", err)
		}

		logs.RecordCtx(c, models.ActivityUpdate, "reward", body.UserID,
			fmt.Sprintf("adjusted reward points by %d", body.Points), body)
		return c.JSON(fiber.Map{"user_id": body.UserID, "balance": balance})
	}
}
