package models

import "time"

// Modules are the units of permission granularity.
const (
	ModuleUsers       = "users"
	ModuleBranches    = "branches"
	ModuleProducts    = "products"
	ModuleCategories  = "categories"
	ModuleInventory   = "inventory"
	ModuleOrders      = "orders"
	ModuleSales       = "sales"
	ModuleCoupons     = "coupons"
	ModuleRewards     = "rewards"
	ModulePayments    = "payments"
	ModuleDashboard   = "dashboard"
	ModulePermissions = "permissions"
	ModuleActivities  = "activities"
)

var AllModules = []string{
	ModuleDashboard, ModuleProducts, ModuleCategories, ModuleInventory, ModuleOrders,
	ModuleSales, ModulePayments, ModuleCoupons, ModuleRewards, ModuleUsers, ModuleBranches,
	ModulePermissions, ModuleActivities,
}

func ValidModule(m string) bool {
	for _, known := range AllModules {
		if m == known {
			return true
		}
	}
	return false
}

type PermissionAction string

const (
	ActionView   PermissionAction = "view"
	ActionAdd    PermissionAction = "add"
	ActionUpdate PermissionAction = "update"
	ActionDelete PermissionAction = "delete"
	ActionExport PermissionAction = "export"
	ActionImport PermissionAction = "import"
)

// RolePermission holds the capability flags of one role on one module.
// At most one row exists per (role, module).
type RolePermission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Role      UserRole  `gorm:"size:20;not null;uniqueIndex:idx_role_module" json:"role"`
	Module    string    `gorm:"size:50;not null;uniqueIndex:idx_role_module" json:"module"`
	CanView   bool      `gorm:"not null" json:"can_view"`
	CanAdd    bool      `gorm:"not null" json:"can_add"`
	CanUpdate bool      `gorm:"not null" json:"can_update"`
	CanDelete bool      `gorm:"not null" json:"can_delete"`
	CanExport bool      `gorm:"not null" json:"can_export"`
	CanImport bool      `gorm:"not null" json:"can_import"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Allows reports the flag for action. Unknown actions are denied.
func (p RolePermission) Allows(action PermissionAction) bool {
	switch action {
	case ActionView:
		return p.CanView
	case ActionAdd:
		return p.CanAdd
	case ActionUpdate:
		return p.CanUpdate
	case ActionDelete:
		return p.CanDelete
	case ActionExport:
		return p.CanExport
	case ActionImport:
		return p.CanImport
	}
	return false
}
