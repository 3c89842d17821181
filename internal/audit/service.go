package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Entry struct {
	UserID      *uint
	UserRole    models.UserRole
	EntityType  string
	EntityID    string
	Action      models.ActivityAction
	Description string
	Details     any
	IP          string
}

// Logger writes the activity trail. Writes are best-effort: failures are logged, never returned.
// A nil *Logger discards entries.
type Logger struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewLogger(db *gorm.DB, log *zap.Logger) *Logger {
	return &Logger{db: db, log: log}
}

func (l *Logger) Record(ctx context.Context, e Entry) {
	if l == nil {
		return
	}

	// jsonb needs "null", not an empty string.
	details := "null"
	if e.Details != nil {
		if b, err := json.Marshal(e.Details); err == nil {
			details = string(b)
		}
	}

	row := models.ActivityLog{
		UserID:      e.UserID,
		UserRole:    e.UserRole,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		Details:     details,
		IP:          e.IP,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		l.log.Warn("activity log write failed",
			zap.String("entity_type", e.EntityType),
			zap.String("entity_id", e.EntityID),
			zap.String("action", string(e.Action)),
			zap.Error(err))
	}
}

// RecordCtx fills the actor and IP from the request.
func (l *Logger) RecordCtx(c *fiber.Ctx, action models.ActivityAction, entityType string, entityID any, description string, details any) {
	if l == nil {
		return
	}
	e := Entry{
		EntityType:  entityType,
		EntityID:    fmt.Sprint(entityID),
		Action:      action,
		Description: description,
		Details:     details,
		IP:          c.IP(),
	}
	if id, err := auth.CurrentUser(c); err == nil {
		uid := id.ID
		e.UserID = &uid
		e.UserRole = id.Role
	}
	l.Record(c.UserContext(), e)
}
