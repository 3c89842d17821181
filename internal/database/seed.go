package database

import (
	"fmt"

	"stockhub-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func grant(role models.UserRole, module string, actions ...models.PermissionAction) models.RolePermission {
	p := models.RolePermission{Role: role, Module: module}
	for _, a := range actions {
		switch a {
		case models.ActionView:
			p.CanView = true
		case models.ActionAdd:
			p.CanAdd = true
		case models.ActionUpdate:
			p.CanUpdate = true
		case models.ActionDelete:
			p.CanDelete = true
		case models.ActionExport:
			p.CanExport = true
		case models.ActionImport:
			p.CanImport = true
		}
	}
	return p
}

// DefaultPermissions is the matrix installed on a fresh database. Admin needs no rows.
func DefaultPermissions() []models.RolePermission {
	const (
		view = models.ActionView
		add  = models.ActionAdd
		upd  = models.ActionUpdate
		del  = models.ActionDelete
		exp  = models.ActionExport
		imp  = models.ActionImport
	)
	return []models.RolePermission{
		grant(models.RoleBranchManager, models.ModuleDashboard, view),
		grant(models.RoleBranchManager, models.ModuleProducts, view, add, upd, exp, imp),
		grant(models.RoleBranchManager, models.ModuleCategories, view, add, upd),
		grant(models.RoleBranchManager, models.ModuleInventory, view, upd, exp),
		grant(models.RoleBranchManager, models.ModuleOrders, view, upd, exp),
		grant(models.RoleBranchManager, models.ModuleSales, view, add, exp),
		grant(models.RoleBranchManager, models.ModulePayments, view, add),
		grant(models.RoleBranchManager, models.ModuleCoupons, view),
		grant(models.RoleBranchManager, models.ModuleRewards, view),
		grant(models.RoleBranchManager, models.ModuleUsers, view),

		grant(models.RoleBranchCashier, models.ModuleDashboard, view),
		grant(models.RoleBranchCashier, models.ModuleProducts, view),
		grant(models.RoleBranchCashier, models.ModuleCategories, view),
		grant(models.RoleBranchCashier, models.ModuleInventory, view),
		grant(models.RoleBranchCashier, models.ModuleOrders, view, upd),
		grant(models.RoleBranchCashier, models.ModuleSales, view, add),
		grant(models.RoleBranchCashier, models.ModulePayments, view, add),

		grant(models.RoleTenant, models.ModuleDashboard, view),
		grant(models.RoleTenant, models.ModuleProducts, view, add, upd, del, exp, imp),
		grant(models.RoleTenant, models.ModuleCategories, view),
		grant(models.RoleTenant, models.ModuleInventory, view, upd),
		grant(models.RoleTenant, models.ModuleOrders, view, upd),
		grant(models.RoleTenant, models.ModuleSales, view, exp),
	}
}

// SeedPermissions inserts the default matrix, leaving rows an admin already edited untouched.
func SeedPermissions(db *gorm.DB) (int64, error) {
	perms := DefaultPermissions()
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role"}, {Name: "module"}},
		DoNothing: true,
	}).Create(&perms)
	if res.Error != nil {
		return 0, fmt.Errorf("seed permissions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
