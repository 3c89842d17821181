package auth

import (
	"errors"

	"stockhub-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UserResponse struct {
	ID       uint              `json:"id"`
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Phone    string            `json:"phone"`
	Address  string            `json:"address"`
	Role     models.UserRole   `json:"role"`
	Status   models.UserStatus `json:"status"`
	BranchID *uint             `json:"branch_id"`
	Avatar   string            `json:"avatar_path"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
		Address:  u.Address,
		Role:     u.Role,
		Status:   u.Status,
		BranchID: u.BranchID,
		Avatar:   u.AvatarPath,
	}
}

// toHTTPError maps account errors to status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrWeakPassword), errors.Is(err, ErrEmailTaken), errors.Is(err, ErrWrongPassword):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAccountNotActive), errors.Is(err, ErrAdminExists):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return err
}

func registerHandler(svc *Service, role models.UserRole, status models.UserStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		user, err := svc.Register(c.UserContext(), body, role, status)
		if err != nil {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(NewUserResponse(user))
	}
}

// POST /api/auth/register
func RegisterHandler(svc *Service) fiber.Handler {
	return registerHandler(svc, models.RoleUser, models.UserStatusActive)
}

// POST /api/auth/register-tenant (account stays pending until an admin approves it)
func RegisterTenantHandler(svc *Service) fiber.Handler {
	return registerHandler(svc, models.RoleTenant, models.UserStatusPending)
}

// POST /api/auth/bootstrap-admin
func BootstrapAdminHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		user, err := svc.BootstrapAdmin(c.UserContext(), body)
		if err != nil {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(NewUserResponse(user))
	}
}

// POST /api/auth/login
func LoginHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		token, user, err := svc.Login(c.UserContext(), body.Email, body.Password)
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  NewUserResponse(user),
		})
	}
}

// GET /api/auth/me
func MeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := CurrentUser(c)
		if err != nil {
			return err
		}
		user, err := svc.Me(c.UserContext(), id.ID)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(NewUserResponse(user))
	}
}

// PUT /api/auth/password
func ChangePasswordHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := CurrentUser(c)
		if err != nil {
			return err
		}

		var body ChangePasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.CurrentPassword == "" || body.NewPassword == "" {
			return fiber.NewError(fiber.StatusBadRequest, "current_password and new_password are required")
		}

		if err := svc.ChangePassword(c.UserContext(), id.ID, body.CurrentPassword, body.NewPassword); err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{"message": "password updated"})
	}
}
