package models

import "time"

type UserRole string

const (
	RoleAdmin         UserRole = "admin"
	RoleBranchManager UserRole = "branch_manager"
	RoleBranchCashier UserRole = "branch_cashier"
	RoleUser          UserRole = "user"
	RoleTenant        UserRole = "tenant"
)

// AllRoles is the fixed role set, in display order.
var AllRoles = []UserRole{RoleAdmin, RoleBranchManager, RoleBranchCashier, RoleTenant, RoleUser}

func (r UserRole) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusPending  UserStatus = "pending"  // tenant waiting for approval
	UserStatusRejected UserStatus = "rejected" // tenant application refused
	UserStatusInactive UserStatus = "inactive" // deactivated by an admin
)

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	BranchID     *uint      `gorm:"index" json:"branch_id"`
	Branch       *Branch    `json:"-"`
	Name         string     `gorm:"size:100;not null" json:"name"`
	Email        string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Phone        string     `gorm:"size:50" json:"phone"`
	Address      string     `gorm:"size:255" json:"address"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         UserRole   `gorm:"size:20;not null;index" json:"role"`
	Status       UserStatus `gorm:"size:20;not null;index" json:"status"`
	AvatarPath   string     `gorm:"size:255" json:"avatar_path"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
