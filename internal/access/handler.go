package access

import (
	"fmt"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ModuleFlags struct {
	Module    string `json:"module"`
	CanView   bool   `json:"can_view"`
	CanAdd    bool   `json:"can_add"`
	CanUpdate bool   `json:"can_update"`
	CanDelete bool   `json:"can_delete"`
	CanExport bool   `json:"can_export"`
	CanImport bool   `json:"can_import"`
}

type RoleMatrix struct {
	Role        models.UserRole `json:"role"`
	Permissions []ModuleFlags   `json:"permissions"`
}

type UpdateRolePermissionsRequest struct {
	Permissions []ModuleFlags `json:"permissions"`
}

var roleLabels = map[models.UserRole]string{
	models.RoleAdmin:         "Administrator",
	models.RoleBranchManager: "Branch manager",
	models.RoleBranchCashier: "Branch cashier",
	models.RoleTenant:        "Tenant",
	models.RoleUser:          "Customer",
}

type MenuEntry struct {
	Module string `json:"module"`
	Label  string `json:"label"`
	Path   string `json:"path"`
}

var menuEntries = map[string]MenuEntry{
	models.ModuleDashboard:   {Label: "Dashboard", Path: "/admin/dashboard"},
	models.ModuleProducts:    {Label: "Products", Path: "/admin/products"},
	models.ModuleCategories:  {Label: "Categories", Path: "/admin/categories"},
	models.ModuleInventory:   {Label: "Inventory", Path: "/admin/inventory"},
	models.ModuleOrders:      {Label: "Orders", Path: "/admin/orders"},
	models.ModuleSales:       {Label: "Sales", Path: "/admin/sales"},
	models.ModulePayments:    {Label: "Payments", Path: "/admin/payments"},
	models.ModuleCoupons:     {Label: "Coupons", Path: "/admin/coupons"},
	models.ModuleRewards:     {Label: "Rewards", Path: "/admin/rewards"},
	models.ModuleUsers:       {Label: "Users", Path: "/admin/users"},
	models.ModuleBranches:    {Label: "Branches", Path: "/admin/branches"},
	models.ModulePermissions: {Label: "Permissions", Path: "/admin/permissions"},
	models.ModuleActivities:  {Label: "Activity log", Path: "/admin/activities"},
}

func flagsFrom(p models.RolePermission) ModuleFlags {
	return ModuleFlags{
		Module:    p.Module,
		CanView:   p.CanView,
		CanAdd:    p.CanAdd,
		CanUpdate: p.CanUpdate,
		CanDelete: p.CanDelete,
		CanExport: p.CanExport,
		CanImport: p.CanImport,
	}
}

// buildMatrix lists every module for role; modules without a row come back all false.
func buildMatrix(role models.UserRole, rows []models.RolePermission) RoleMatrix {
	byModule := make(map[string]models.RolePermission, len(rows))
	for _, r := range rows {
		if r.Role == role {
			byModule[r.Module] = r
		}
	}
	m := RoleMatrix{Role: role, Permissions: make([]ModuleFlags, 0, len(models.AllModules))}
	for _, module := range models.AllModules {
		if row, ok := byModule[module]; ok {
			m.Permissions = append(m.Permissions, flagsFrom(row))
		} else {
			m.Permissions = append(m.Permissions, ModuleFlags{Module: module})
		}
	}
	return m
}

func parseRole(c *fiber.Ctx) (models.UserRole, error) {
	role := models.UserRole(c.Params("role"))
	if !role.Valid() {
		return "", fiber.NewError(fiber.StatusNotFound, "unknown role")
	}
	return role, nil
}

// GET /api/permissions
func ListPermissionsHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := store.ListAll(c.UserContext())
		if err != nil {
			return fmt.Errorf("list permissions: %w", err)
		}
		res := make([]RoleMatrix, 0, len(models.AllRoles))
		for _, role := range models.AllRoles {
			if role == models.RoleAdmin {
				continue
			}
			res = append(res, buildMatrix(role, rows))
		}
		return c.JSON(res)
	}
}

// GET /api/permissions/:role
func GetRolePermissionsHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, err := parseRole(c)
		if err != nil {
			return err
		}
		rows, err := store.ListByRole(c.UserContext(), role)
		if err != nil {
			return fmt.Errorf("list permissions of %s: %w", role, err)
		}
		return c.JSON(buildMatrix(role, rows))
	}
}

// PUT /api/permissions/:role
// inv may be nil when no cache sits in front of the store.
func UpdateRolePermissionsHandler(store Store, inv Invalidator, logs *audit.Logger, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, err := parseRole(c)
		if err != nil {
			return err
		}
		if role == models.RoleAdmin {
			return fiber.NewError(fiber.StatusBadRequest, "admin permissions are implicit and cannot be edited")
		}

		var body UpdateRolePermissionsRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if len(body.Permissions) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "permissions must not be empty")
		}

		seen := map[string]bool{}
		perms := make([]models.RolePermission, 0, len(body.Permissions))
		for _, f := range body.Permissions {
			if !models.ValidModule(f.Module) {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown module %q", f.Module))
			}
			if seen[f.Module] {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("module %q listed twice", f.Module))
			}
			seen[f.Module] = true
			perms = append(perms, models.RolePermission{
				Role:      role,
				Module:    f.Module,
				CanView:   f.CanView,
				CanAdd:    f.CanAdd,
				CanUpdate: f.CanUpdate,
				CanDelete: f.CanDelete,
				CanExport: f.CanExport,
				CanImport: f.CanImport,
			})
		}

		if err := store.Upsert(c.UserContext(), perms); err != nil {
			return fmt.Errorf("update permissions of %s: %w", role, err)
		}
		if inv != nil {
			if err := inv.Invalidate(c.UserContext(), role); err != nil {
				log.Warn("permission cache invalidation failed", zap.String("role", string(role)), zap.Error(err))
			}
		}

		logs.RecordCtx(c, models.ActivityUpdate, "role_permission", role,
			fmt.Sprintf("updated %d module permissions of %s", len(perms), role), body.Permissions)

		rows, err := store.ListByRole(c.UserContext(), role)
		if err != nil {
			return fmt.Errorf("list permissions of %s: %w", role, err)
		}
		return c.JSON(buildMatrix(role, rows))
	}
}

// GET /api/roles
func ListRolesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := make([]fiber.Map, 0, len(models.AllRoles))
		for _, r := range models.AllRoles {
			res = append(res, fiber.Map{"role": r, "label": roleLabels[r]})
		}
		return c.JSON(res)
	}
}

// GET /api/menus returns the admin menu entries the caller can view.
func MenusHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		visible := map[string]bool{}
		if id.IsAdmin() {
			for _, m := range models.AllModules {
				visible[m] = true
			}
		} else {
			rows, err := store.ListByRole(c.UserContext(), id.Role)
			if err != nil {
				return fmt.Errorf("menus of %s: %w", id.Role, err)
			}
			for _, r := range rows {
				if r.CanView {
					visible[r.Module] = true
				}
			}
		}

		res := make([]MenuEntry, 0, len(visible))
		for _, m := range models.AllModules {
			if !visible[m] {
				continue
			}
			e := menuEntries[m]
			e.Module = m
			res = append(res, e)
		}
		return c.JSON(res)
	}
}
