package admin

import (
	"fmt"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GET /api/admin/tenants?status=pending
func ListTenantsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := models.UserStatus(c.Query("status", string(models.UserStatusPending)))
		var tenants []models.User
		err := db.WithContext(c.UserContext()).
			Where("role = ? AND status = ?", models.RoleTenant, status).
			Order("created_at, id").
			Find(&tenants).Error
		if err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}
		res := make([]auth.UserResponse, 0, len(tenants))
		for i := range tenants {
			res = append(res, auth.NewUserResponse(&tenants[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/tenants/:id/approve
func ApproveTenantHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return decideTenant(db, logs, models.UserStatusActive)
}

// POST /api/admin/tenants/:id/reject
func RejectTenantHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return decideTenant(db, logs, models.UserStatusRejected)
}

// decideTenant moves a pending tenant to the given status. Only pending applications can be decided.
func decideTenant(db *gorm.DB, logs *audit.Logger, to models.UserStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := web.ParamID(c, "id")
		if err != nil {
			return err
		}
		var tenant models.User
		if err := db.WithContext(c.UserContext()).Where("role = ?", models.RoleTenant).First(&tenant, id).Error; err != nil {
			if database.IsNotFound(err) {
				return fiber.NewError(fiber.StatusNotFound, "tenant not found")
			}
			return err
		}

		res := db.WithContext(c.UserContext()).Model(&models.User{}).
			Where("id = ? AND status = ?", tenant.ID, models.UserStatusPending).
			Update("status", to)
		if res.Error != nil {
			return fmt.Errorf("update tenant status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("tenant is %s, not pending", tenant.Status))
		}
		tenant.Status = to

		logs.RecordCtx(c, models.ActivityStatus, "user", tenant.ID, fmt.Sprintf("tenant %s %s", tenant.Email, to), nil)
		return c.JSON(auth.NewUserResponse(&tenant))
	}
}
