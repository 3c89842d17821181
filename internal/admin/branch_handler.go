// Package admin holds branch management and tenant approval.
package admin

import (
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

const timeLayout = "2006-01-02 15:04:05"

type BranchResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

type CreateBranchRequest struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Phone   *string `json:"phone"`
}

type UpdateBranchRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

func toBranchResponse(b models.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		Phone:     b.Phone,
		CreatedAt: b.CreatedAt.Format(timeLayout),
	}
}

func loadBranch(c *fiber.Ctx, db *gorm.DB) (models.Branch, error) {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return models.Branch{}, err
	}
	var branch models.Branch
	if err := db.WithContext(c.UserContext()).First(&branch, id).Error; err != nil {
		if database.IsNotFound(err) {
			return branch, fiber.NewError(fiber.StatusNotFound, "branch not found")
		}
		return branch, err
	}
	return branch, nil
}

// POST /api/admin/branches
func CreateBranchHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "branch name must not be empty")
		}

		branch := models.Branch{
			Name:    body.Name,
			Address: strings.TrimSpace(body.Address),
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}
		if err := db.WithContext(c.UserContext()).Create(&branch).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "branch name already exists")
			}
			return fmt.Errorf("create branch: %w", err)
		}

		logs.RecordCtx(c, models.ActivityCreate, "branch", branch.ID, "created branch "+branch.Name, nil)
		return c.Status(fiber.StatusCreated).JSON(toBranchResponse(branch))
	}
}

// GET /api/admin/branches
func ListBranchesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := db.WithContext(c.UserContext()).Order("name").Find(&branches).Error; err != nil {
			return fmt.Errorf("list branches: %w", err)
		}
		res := make([]BranchResponse, 0, len(branches))
		for _, b := range branches {
			res = append(res, toBranchResponse(b))
		}
		return c.JSON(res)
	}
}

// GET /api/admin/branches/:id
func GetBranchHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := loadBranch(c, db)
		if err != nil {
			return err
		}
		return c.JSON(toBranchResponse(branch))
	}
}

// PUT /api/admin/branches/:id
func UpdateBranchHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := loadBranch(c, db)
		if err != nil {
			return err
		}
		var body UpdateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "branch name must not be empty")
			}
			branch.Name = name
		}
		if body.Address != nil {
			branch.Address = strings.TrimSpace(*body.Address)
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := db.WithContext(c.UserContext()).Save(&branch).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "branch name already exists")
			}
			return fmt.Errorf("update branch: %w", err)
		}

		logs.RecordCtx(c, models.ActivityUpdate, "branch", branch.ID, "updated branch "+branch.Name, body)
		return c.JSON(toBranchResponse(branch))
	}
}

// DELETE /api/admin/branches/:id. Branches that still have staff, orders or sales stay.
func DeleteBranchHandler(db *gorm.DB, logs *audit.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := loadBranch(c, db)
		if err != nil {
			return err
		}
		tx := db.WithContext(c.UserContext())
		for _, ref := range []struct {
			model any
			what  string
		}{
			{&models.User{}, "users"},
			{&models.Order{}, "orders"},
			{&models.Sale{}, "sales"},
		} {
			var n int64
			if err := tx.Model(ref.model).Where("branch_id = ?", branch.ID).Count(&n).Error; err != nil {
				return fmt.Errorf("count branch %s: %w", ref.what, err)
			}
			if n > 0 {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("branch still has %d %s", n, ref.what))
			}
		}

		if err := tx.Delete(&branch).Error; err != nil {
			return fmt.Errorf("delete branch: %w", err)
		}
		logs.RecordCtx(c, models.ActivityDelete, "branch", branch.ID, "deleted branch "+branch.Name, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/admin/branches/:id/staff
func ListBranchStaffHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := loadBranch(c, db)
		if err != nil {
			return err
		}
		var users []models.User
		err = db.WithContext(c.UserContext()).
			Where("branch_id = ? AND role IN ?", branch.ID, []models.UserRole{models.RoleBranchManager, models.RoleBranchCashier}).
			Order("created_at DESC").
			Find(&users).Error
		if err != nil {
			return fmt.Errorf("list branch staff: %w", err)
		}
		res := make([]auth.UserResponse, 0, len(users))
		for i := range users {
			res = append(res, auth.NewUserResponse(&users[i]))
		}
		return c.JSON(res)
	}
}
