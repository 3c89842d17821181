package audit

import (
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ActivityResponse struct {
	ID          uint                  `json:"id"`
	CreatedAt   string                `json:"created_at"`
	UserID      *uint                 `json:"user_id"`
	UserRole    models.UserRole       `json:"user_role"`
	EntityType  string                `json:"entity_type"`
	EntityID    string                `json:"entity_id"`
	Action      models.ActivityAction `json:"action"`
	Description string                `json:"description"`
	Details     string                `json:"details"`
	IP          string                `json:"ip"`
}

// GET /api/activities?user_id=1&entity_type=order&entity_id=ORD-..&action=create&page=1&size=50
func ListActivitiesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.WithContext(c.UserContext()).Model(&models.ActivityLog{})

		if uid := c.QueryInt("user_id"); uid > 0 {
			dbq = dbq.Where("user_id = ?", uid)
		}
		if v := c.Query("entity_type"); v != "" {
			dbq = dbq.Where("entity_type = ?", v)
		}
		if v := c.Query("entity_id"); v != "" {
			dbq = dbq.Where("entity_id = ?", v)
		}
		if v := c.Query("action"); v != "" {
			dbq = dbq.Where("action = ?", v)
		}

		var logs []models.ActivityLog
		if err := dbq.Order("created_at DESC").
			Scopes(database.Paginate(c.QueryInt("page", 1), c.QueryInt("size", 50))).
			Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list activities")
		}

		resp := make([]ActivityResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, ActivityResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      l.UserID,
				UserRole:    l.UserRole,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				Details:     l.Details,
				IP:          l.IP,
			})
		}
		return c.JSON(resp)
	}
}
