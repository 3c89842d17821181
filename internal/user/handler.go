// Package user is account management for admins plus the caller's own profile.
package user

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/config"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/upload"
	"stockhub-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user not found")

type CreateUserRequest struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Phone    string            `json:"phone"`
	Address  string            `json:"address"`
	Role     models.UserRole   `json:"role"`
	Status   models.UserStatus `json:"status"`
	BranchID *uint             `json:"branch_id"`
}

type UpdateUserRequest struct {
	Name     *string            `json:"name"`
	Phone    *string            `json:"phone"`
	Address  *string            `json:"address"`
	Role     *models.UserRole   `json:"role"`
	Status   *models.UserStatus `json:"status"`
	BranchID *uint              `json:"branch_id"`
	NoBranch bool               `json:"no_branch"` // detach from the current branch
}

type ProfileRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func validStatus(s models.UserStatus) bool {
	switch s {
	case models.UserStatusActive, models.UserStatusPending, models.UserStatusRejected, models.UserStatusInactive:
		return true
	}
	return false
}

func needsBranch(r models.UserRole) bool {
	return r == models.RoleBranchManager || r == models.RoleBranchCashier
}

func branchExists(c *fiber.Ctx, db *gorm.DB, id uint) error {
	var n int64
	if err := db.WithContext(c.UserContext()).Model(&models.Branch{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "branch does not exist")
	}
	return nil
}

func loadUser(c *fiber.Ctx, db *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := db.WithContext(c.UserContext()).First(&u, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
		}
		return nil, err
	}
	return &u, nil
}

func responses(users []models.User) []auth.UserResponse {
	res := make([]auth.UserResponse, 0, len(users))
	for i := range users {
		res = append(res, auth.NewUserResponse(&users[i]))
	}
	return res
}

// GET /api/users?role=&status=&branch_id=&search=
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).Model(&models.User{})
		if r := c.Query("role"); r != "" {
			q = q.Where("role = ?", r)
		}
		if s := c.Query("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		if b := c.QueryInt("branch_id"); b > 0 {
			q = q.Where("branch_id = ?", b)
		}
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			like := "%" + s + "%"
			q = q.Where("name ILIKE ? OR email ILIKE ?", like, like)
		}

		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		page, size := web.Page(c)
		var users []models.User
		if err := q.Order("created_at DESC, id DESC").Scopes(database.Paginate(page, size)).Find(&users).Error; err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return c.JSON(web.NewPaged(responses(users), total, page, size))
	}
}

// GET /api/users/:id
func GetUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := web.ParamID(c, "id")
		if err != nil {
			return err
		}
		u, err := loadUser(c, db, id)
		if err != nil {
			return err
		}
		return c.JSON(auth.NewUserResponse(u))
	}
}

// POST /api/users
func CreateUserHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		body.Email = auth.NormalizeEmail(body.Email)
		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, auth.ErrInvalidInput.Error())
		}
		if _, err := mail.ParseAddress(body.Email); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, auth.ErrInvalidEmail.Error())
		}
		if !body.Role.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "unknown role")
		}
		if body.Status == "" {
			body.Status = models.UserStatusActive
		}
		if !validStatus(body.Status) {
			return fiber.NewError(fiber.StatusBadRequest, "unknown status")
		}
		if needsBranch(body.Role) && body.BranchID == nil {
			return fiber.NewError(fiber.StatusBadRequest, "branch_id is required for branch staff")
		}
		if body.BranchID != nil {
			if err := branchExists(c, db, *body.BranchID); err != nil {
				return err
			}
		}
		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrWeakPassword) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}

		u := models.User{
			Name:         body.Name,
			Email:        body.Email,
			Phone:        strings.TrimSpace(body.Phone),
			Address:      strings.TrimSpace(body.Address),
			PasswordHash: hash,
			Role:         body.Role,
			Status:       body.Status,
			BranchID:     body.BranchID,
		}
		if err := db.WithContext(c.UserContext()).Omit("Branch").Create(&u).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "email is already registered")
			}
			return fmt.Errorf("create user: %w", err)
		}

		logs.RecordCtx(c, models.ActivityCreate, "user", u.ID, fmt.Sprintf("created %s account %s", u.Role, u.Email), nil)
		return c.Status(fiber.StatusCreated).JSON(auth.NewUserResponse(&u))
	}
}

// PUT /api/users/:id
func UpdateUserHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := web.ParamID(c, "id")
		if err != nil {
			return err
		}
		u, err := loadUser(c, db, id)
		if err != nil {
			return err
		}
		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name must not be empty")
			}
			u.Name = name
		}
		if body.Phone != nil {
			u.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Address != nil {
			u.Address = strings.TrimSpace(*body.Address)
		}
		if body.Role != nil {
			if !body.Role.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "unknown role")
			}
			u.Role = *body.Role
		}
		if body.Status != nil {
			if !validStatus(*body.Status) {
				return fiber.NewError(fiber.StatusBadRequest, "unknown status")
			}
			u.Status = *body.Status
		}
		switch {
		case body.NoBranch:
			u.BranchID = nil
		case body.BranchID != nil:
			if err := branchExists(c, db, *body.BranchID); err != nil {
				return err
			}
			u.BranchID = body.BranchID
		}
		if needsBranch(u.Role) && u.BranchID == nil {
			return fiber.NewError(fiber.StatusBadRequest, "branch_id is required for branch staff")
		}
		if u.ID == caller.ID && (u.Role != caller.Role || u.Status != models.UserStatusActive) {
			return fiber.NewError(fiber.StatusBadRequest, "you cannot change your own role or status")
		}

		err = db.WithContext(c.UserContext()).Model(u).
			Select("Name", "Phone", "Address", "Role", "Status", "BranchID").
			Updates(u).Error
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		logs.RecordCtx(c, models.ActivityUpdate, "user", u.ID, "updated account "+u.Email, body)
		return c.JSON(auth.NewUserResponse(u))
	}
}

// DELETE /api/users/:id deactivates; accounts are never removed.
func DeactivateUserHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := web.ParamID(c, "id")
		if err != nil {
			return err
		}
		if id == caller.ID {
			return fiber.NewError(fiber.StatusBadRequest, "you cannot deactivate your own account")
		}
		u, err := loadUser(c, db, id)
		if err != nil {
			return err
		}
		if err := db.WithContext(c.UserContext()).Model(u).Update("status", models.UserStatusInactive).Error; err != nil {
			return fmt.Errorf("deactivate user: %w", err)
		}
		u.Status = models.UserStatusInactive

		logs.RecordCtx(c, models.ActivityStatus, "user", u.ID, "deactivated account "+u.Email, nil)
		return c.JSON(auth.NewUserResponse(u))
	}
}

// PUT /api/users/me
func UpdateProfileHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		u, err := loadUser(c, db, caller.ID)
		if err != nil {
			return err
		}
		var body ProfileRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name must not be empty")
			}
			u.Name = name
		}
		if body.Phone != nil {
			u.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Address != nil {
			u.Address = strings.TrimSpace(*body.Address)
		}

		if err := db.WithContext(c.UserContext()).Model(u).Select("Name", "Phone", "Address").Updates(u).Error; err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return c.JSON(auth.NewUserResponse(u))
	}
}

// POST /api/users/me/avatar (multipart field "avatar")
func UploadAvatarHandler(db *gorm.DB, cfg config.UploadConfig, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		u, err := loadUser(c, db, caller.ID)
		if err != nil {
			return err
		}

		rel, err := upload.Save(c, "avatar", cfg.Dir, "avatars", cfg.MaxBytes, upload.ImageExtensions)
		if err != nil {
			return upload.HTTPError(err)
		}
		old := u.AvatarPath
		if err := db.WithContext(c.UserContext()).Model(u).Update("avatar_path", rel).Error; err != nil {
			_ = upload.Remove(cfg.Dir, rel)
			return fmt.Errorf("save avatar: %w", err)
		}
		u.AvatarPath = rel
		if err := upload.Remove(cfg.Dir, old); err != nil {
			log.Warn("old avatar not removed", zap.String("path", old), zap.Error(err))
		}
		return c.JSON(auth.NewUserResponse(u))
	}
}
