package access

import (
	"context"

	"stockhub-backend/internal/database"
	"stockhub-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the permission table.
type Store interface {
	// Find returns nil, nil when no row exists for (role, module).
	Find(ctx context.Context, role models.UserRole, module string) (*models.RolePermission, error)
	ListAll(ctx context.Context) ([]models.RolePermission, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.RolePermission, error)
	Upsert(ctx context.Context, perms []models.RolePermission) error
}

type TableStore struct {
	db *gorm.DB
}

func NewTableStore(db *gorm.DB) *TableStore {
	return &TableStore{db: db}
}

var _ Store = (*TableStore)(nil)

func (s *TableStore) Find(ctx context.Context, role models.UserRole, module string) (*models.RolePermission, error) {
	var perm models.RolePermission
	err := s.db.WithContext(ctx).
		Where("role = ? AND module = ?", role, module).
		Take(&perm).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &perm, nil
}

func (s *TableStore) ListAll(ctx context.Context) ([]models.RolePermission, error) {
	var perms []models.RolePermission
	err := s.db.WithContext(ctx).Order("role, module").Find(&perms).Error
	return perms, err
}

func (s *TableStore) ListByRole(ctx context.Context, role models.UserRole) ([]models.RolePermission, error) {
	var perms []models.RolePermission
	err := s.db.WithContext(ctx).Where("role = ?", role).Order("module").Find(&perms).Error
	return perms, err
}

func (s *TableStore) Upsert(ctx context.Context, perms []models.RolePermission) error {
	if len(perms) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "role"}, {Name: "module"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"can_view", "can_add", "can_update", "can_delete", "can_export", "can_import", "updated_at",
		}),
	}).Create(&perms).Error
}
