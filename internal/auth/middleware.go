package auth

import (
	"context"
	"errors"
	"strings"

	"stockhub-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxBranchIDKey = "branch_id"
)

// Identity is the authenticated caller attached by JWTMiddleware.
type Identity struct {
	ID       uint
	Role     models.UserRole
	BranchID *uint
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// BranchScope is the branch that branch staff are confined to; nil for everyone else.
func (i Identity) BranchScope() *uint {
	if i.Role == models.RoleBranchManager || i.Role == models.RoleBranchCashier {
		return i.BranchID
	}
	return nil
}

func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxBranchIDKey, claims.BranchID)

		return c.Next()
	}
}

// AccountLookup loads the stored account behind a token.
type AccountLookup interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// AccountMiddleware runs after JWTMiddleware. It reloads the account so that a
// deactivation, role change or branch move applies to tokens already issued.
func AccountMiddleware(users AccountLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(CtxUserIDKey).(uint)
		if !ok || userID == 0 {
			return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
		}
		user, err := users.FindByID(c.UserContext(), userID)
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "account no longer exists")
		}
		if err != nil {
			return err
		}
		if user.Status != models.UserStatusActive {
			return fiber.NewError(fiber.StatusForbidden, ErrAccountNotActive.Error())
		}

		c.Locals(CtxUserRoleKey, user.Role)
		c.Locals(CtxBranchIDKey, user.BranchID)
		return c.Next()
	}
}

// CurrentUser reads the identity set by JWTMiddleware.
func CurrentUser(c *fiber.Ctx) (Identity, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || userID == 0 {
		return Identity{}, fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return Identity{}, fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}
	branchID, _ := c.Locals(CtxBranchIDKey).(*uint)
	return Identity{ID: userID, Role: role, BranchID: branchID}, nil
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := CurrentUser(c)
		if err != nil {
			return err
		}
		for _, r := range allowedRoles {
			if r == id.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "your role cannot perform this action")
	}
}
