package user

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

func adminHeader(t *testing.T) map[string]string {
	t.Helper()
	token, err := auth.GenerateToken(secret, time.Hour, &models.User{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	return testutil.Bearer(token)
}

func newApp(db *gorm.DB) *fiber.App {
	app := testutil.NewApp()
	api := app.Group("/api/users", auth.JWTMiddleware(secret))
	api.Get("/", ListUsersHandler(db))
	api.Post("/", CreateUserHandler(db, nil))
	api.Put("/:id", UpdateUserHandler(db, nil))
	api.Delete("/:id", DeactivateUserHandler(db, nil))
	return app
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "role", "status"}).
		AddRow(7, "Kim", "kim@example.com", "user", "active")
}

func TestCreateUser_Validation(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app := newApp(db)
	h := adminHeader(t)

	cases := []struct {
		name string
		body CreateUserRequest
		want string
	}{
		{"bad role", CreateUserRequest{Name: "A", Email: "a@example.com", Password: "longenough", Role: "owner"}, "unknown role"},
		{"branch staff without branch", CreateUserRequest{Name: "A", Email: "a@example.com", Password: "longenough", Role: models.RoleBranchCashier}, "branch_id is required for branch staff"},
		{"bad email", CreateUserRequest{Name: "A", Email: "not-an-email", Password: "longenough", Role: models.RoleUser}, auth.ErrInvalidEmail.Error()},
		{"weak password", CreateUserRequest{Name: "A", Email: "a@example.com", Password: "short", Role: models.RoleUser}, auth.ErrWeakPassword.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := testutil.Do(t, app, http.MethodPost, "/api/users", tc.body, h)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tc.want, testutil.Decode[map[string]string](t, raw)["error"])
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_BranchStaff(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app := newApp(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "branches" WHERE id = \$1`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	branch := uint(2)
	status, raw := testutil.Do(t, app, http.MethodPost, "/api/users", CreateUserRequest{
		Name: " Lee ", Email: "Lee@Example.com", Password: "longenough", Role: models.RoleBranchManager, BranchID: &branch,
	}, adminHeader(t))
	require.Equal(t, http.StatusCreated, status, string(raw))

	got := testutil.Decode[auth.UserResponse](t, raw)
	assert.Equal(t, uint(9), got.ID)
	assert.Equal(t, "Lee", got.Name)
	assert.Equal(t, "lee@example.com", got.Email)
	assert.Equal(t, models.UserStatusActive, got.Status)
	require.NotNil(t, got.BranchID)
	assert.Equal(t, uint(2), *got.BranchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app := newApp(db)

	mock.ExpectQuery(`INSERT INTO "users"`).WillReturnError(&pgconn.PgError{Code: "23505"})

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/users", CreateUserRequest{
		Name: "Kim", Email: "kim@example.com", Password: "longenough", Role: models.RoleUser,
	}, adminHeader(t))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"email is already registered"}`, string(raw))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateUser(t *testing.T) {
	t.Run("self", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		status, _ := testutil.Do(t, newApp(db), http.MethodDelete, "/api/users/1", nil, adminHeader(t))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("other account", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1`).
			WithArgs(7, 1).
			WillReturnRows(userRows())
		mock.ExpectExec(`UPDATE "users" SET "status"=\$1,"updated_at"=\$2 WHERE "id" = \$3`).
			WithArgs(models.UserStatusInactive, sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))

		status, raw := testutil.Do(t, newApp(db), http.MethodDelete, "/api/users/7", nil, adminHeader(t))
		require.Equal(t, http.StatusOK, status, string(raw))
		assert.Equal(t, models.UserStatusInactive, testutil.Decode[auth.UserResponse](t, raw).Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("unknown", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		status, _ := testutil.Do(t, newApp(db), http.MethodDelete, "/api/users/8", nil, adminHeader(t))
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestUpdateUser_CannotDemoteSelf(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "status"}).
			AddRow(1, "Root", "root@example.com", "admin", "active"))

	role := models.RoleUser
	status, raw := testutil.Do(t, newApp(db), http.MethodPut, "/api/users/1", UpdateUserRequest{Role: &role}, adminHeader(t))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"you cannot change your own role or status"}`, string(raw))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUser_StaffNeedsBranch(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows())

	role := models.RoleBranchCashier
	status, _ := testutil.Do(t, newApp(db), http.MethodPut, "/api/users/7", UpdateUserRequest{Role: &role}, adminHeader(t))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers_Filters(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE role = \$1 AND status = \$2`).
		WithArgs("tenant", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE role = \$1 AND status = \$2 ORDER BY created_at DESC, id DESC LIMIT \$3`).
		WithArgs("tenant", "pending", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "status"}).
			AddRow(4, "Shop", "shop@example.com", "tenant", "pending"))

	status, raw := testutil.Do(t, newApp(db), http.MethodGet, "/api/users?role=tenant&status=pending", nil, adminHeader(t))
	require.Equal(t, http.StatusOK, status, string(raw))
	got := testutil.Decode[struct {
		Items []auth.UserResponse `json:"items"`
		Total int64               `json:"total"`
	}](t, raw)
	assert.Equal(t, int64(1), got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "shop@example.com", got.Items[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
