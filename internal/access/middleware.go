package access

import (
	"fmt"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RequirePermission is the permission gate. Admin always passes; any other role needs the
// action flag set on its (role, module) row. Lookup errors surface as 500.
func RequirePermission(policy Policy, module string, action models.PermissionAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		if id.IsAdmin() {
			return c.Next()
		}

		ok, err := policy.Allowed(c.UserContext(), id.Role, module, action)
		if err != nil {
			return fmt.Errorf("permission gate: %w", err)
		}
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, fmt.Sprintf("missing %s permission on %s", action, module))
		}
		return c.Next()
	}
}
