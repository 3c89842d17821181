package admin

import (
	"net/http"
	"testing"
	"time"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret-test-secret-test-secret"

func newApp(t *testing.T, db *gorm.DB) (*fiber.App, map[string]string) {
	t.Helper()
	app := testutil.NewApp()
	api := app.Group("/api/admin", auth.JWTMiddleware(secret))
	api.Post("/branches", CreateBranchHandler(db, nil))
	api.Delete("/branches/:id", DeleteBranchHandler(db, nil))
	api.Get("/branches/:id/staff", ListBranchStaffHandler(db))
	api.Get("/tenants", ListTenantsHandler(db))
	api.Post("/tenants/:id/approve", ApproveTenantHandler(db, nil))
	api.Post("/tenants/:id/reject", RejectTenantHandler(db, nil))

	token, err := auth.GenerateToken(secret, time.Hour, &models.User{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	return app, testutil.Bearer(token)
}

func branchRow(id int, name string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "address", "phone"}).AddRow(id, name, "Main St 1", "")
}

func TestCreateBranch(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		app, h := newApp(t, db)
		mock.ExpectQuery(`INSERT INTO "branches"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		phone := " 555 "
		status, raw := testutil.Do(t, app, http.MethodPost, "/api/admin/branches",
			CreateBranchRequest{Name: " North ", Address: "Hill Rd", Phone: &phone}, h)
		require.Equal(t, http.StatusCreated, status, string(raw))
		got := testutil.Decode[BranchResponse](t, raw)
		assert.Equal(t, uint(3), got.ID)
		assert.Equal(t, "North", got.Name)
		assert.Equal(t, "555", got.Phone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("empty name", func(t *testing.T) {
		db, _ := testutil.NewMockDB(t)
		app, h := newApp(t, db)
		status, _ := testutil.Do(t, app, http.MethodPost, "/api/admin/branches", CreateBranchRequest{Name: "  "}, h)
		assert.Equal(t, http.StatusBadRequest, status)
	})
	t.Run("duplicate name", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		app, h := newApp(t, db)
		mock.ExpectQuery(`INSERT INTO "branches"`).WillReturnError(&pgconn.PgError{Code: "23505"})

		status, raw := testutil.Do(t, app, http.MethodPost, "/api/admin/branches", CreateBranchRequest{Name: "North"}, h)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, `{"error":"branch name already exists"}`, string(raw))
	})
}

func TestDeleteBranch(t *testing.T) {
	t.Run("refused while staff assigned", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		app, h := newApp(t, db)
		mock.ExpectQuery(`SELECT \* FROM "branches" WHERE "branches"."id" = \$1`).
			WithArgs(3, 1).
			WillReturnRows(branchRow(3, "North"))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE branch_id = \$1`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		status, raw := testutil.Do(t, app, http.MethodDelete, "/api/admin/branches/3", nil, h)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, `{"error":"branch still has 2 users"}`, string(raw))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("empty branch", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		app, h := newApp(t, db)
		mock.ExpectQuery(`SELECT \* FROM "branches"`).WillReturnRows(branchRow(3, "North"))
		for _, table := range []string{"users", "orders", "sales"} {
			mock.ExpectQuery(`SELECT count\(\*\) FROM "` + table + `" WHERE branch_id = \$1`).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		}
		mock.ExpectExec(`DELETE FROM "branches" WHERE "branches"."id" = \$1`).
			WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		status, _ := testutil.Do(t, app, http.MethodDelete, "/api/admin/branches/3", nil, h)
		assert.Equal(t, http.StatusNoContent, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("unknown", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		app, h := newApp(t, db)
		mock.ExpectQuery(`SELECT \* FROM "branches"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		status, _ := testutil.Do(t, app, http.MethodDelete, "/api/admin/branches/9", nil, h)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func tenantRow(status models.UserStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "role", "status"}).
		AddRow(5, "Corner Shop", "shop@example.com", "tenant", status)
}

func TestApproveTenant(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app, h := newApp(t, db)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE role = \$1 AND "users"."id" = \$2`).
		WithArgs(models.RoleTenant, 5, 1).
		WillReturnRows(tenantRow(models.UserStatusPending))
	mock.ExpectExec(`UPDATE "users" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND status = \$4`).
		WithArgs(models.UserStatusActive, sqlmock.AnyArg(), 5, models.UserStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/admin/tenants/5/approve", nil, h)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, models.UserStatusActive, testutil.Decode[auth.UserResponse](t, raw).Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectTenant_AlreadyDecided(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app, h := newApp(t, db)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(tenantRow(models.UserStatusActive))
	mock.ExpectExec(`UPDATE "users" SET "status"`).WillReturnResult(sqlmock.NewResult(0, 0))

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/admin/tenants/5/reject", nil, h)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"tenant is active, not pending"}`, string(raw))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTenants_DefaultsToPending(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app, h := newApp(t, db)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE role = \$1 AND status = \$2 ORDER BY created_at, id`).
		WithArgs(models.RoleTenant, models.UserStatusPending).
		WillReturnRows(tenantRow(models.UserStatusPending))

	status, raw := testutil.Do(t, app, http.MethodGet, "/api/admin/tenants", nil, h)
	require.Equal(t, http.StatusOK, status)
	got := testutil.Decode[[]auth.UserResponse](t, raw)
	require.Len(t, got, 1)
	assert.Equal(t, "shop@example.com", got[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
