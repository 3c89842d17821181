package inventory

import (
	"net/http"
	"testing"
	"time"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

func tokenFor(t *testing.T, id uint, role models.UserRole) map[string]string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, time.Hour, &models.User{ID: id, Role: role})
	require.NoError(t, err)
	return testutil.Bearer(token)
}

func newApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	db, mock := testutil.NewMockDB(t)
	app := testutil.NewApp()
	api := app.Group("/api", auth.JWTMiddleware(testSecret))
	api.Get("/inventory/low-stock", LowStockHandler(db))
	api.Post("/inventory/:productId/adjust", AdjustStockHandler(db, nil))
	api.Put("/inventory/:productId/reorder-level", SetReorderLevelHandler(db, nil))
	return app, mock
}

func TestAdjust_AppliesDelta(t *testing.T) {
	app, mock := newApp(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "inventory" SET "quantity"=quantity \+ \$1 WHERE product_id = \$2 AND quantity \+ \$3 >= 0`).
		WithArgs(-3, 8, -3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "inventory" WHERE product_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "reorder_level"}).AddRow(1, 8, 7, 2))
	mock.ExpectCommit()

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/inventory/8/adjust", AdjustRequest{Delta: -3}, tokenFor(t, 1, models.RoleAdmin))
	require.Equal(t, http.StatusOK, status, string(raw))
	inv := testutil.Decode[models.Inventory](t, raw)
	assert.Equal(t, 7, inv.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_NeverBelowZero(t *testing.T) {
	app, mock := newApp(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "inventory"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "inventory" WHERE product_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity"}).AddRow(1, 8, 2))
	mock.ExpectRollback()

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/inventory/8/adjust", AdjustRequest{Delta: -5}, tokenFor(t, 1, models.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"stock cannot go below zero"}`, string(raw))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_UnknownProduct(t *testing.T) {
	app, mock := newApp(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "inventory"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "inventory"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	status, _ := testutil.Do(t, app, http.MethodPost, "/api/inventory/8/adjust", AdjustRequest{Delta: 1}, tokenFor(t, 1, models.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdjust_ZeroDelta(t *testing.T) {
	app, _ := newApp(t)
	status, _ := testutil.Do(t, app, http.MethodPost, "/api/inventory/8/adjust", AdjustRequest{}, tokenFor(t, 1, models.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdjust_TenantForeignProduct(t *testing.T) {
	app, mock := newApp(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(8, 4).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	status, _ := testutil.Do(t, app, http.MethodPost, "/api/inventory/8/adjust", AdjustRequest{Delta: 1}, tokenFor(t, 4, models.RoleTenant))
	assert.Equal(t, http.StatusNotFound, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetReorderLevel(t *testing.T) {
	app, mock := newApp(t)
	mock.ExpectExec(`UPDATE "inventory" SET "reorder_level"=\$1,"updated_at"=\$2 WHERE product_id = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	status, raw := testutil.Do(t, app, http.MethodPut, "/api/inventory/8/reorder-level", ReorderRequest{ReorderLevel: 6}, tokenFor(t, 1, models.RoleAdmin))
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.JSONEq(t, `{"product_id":8,"reorder_level":6}`, string(raw))

	status, _ = testutil.Do(t, app, http.MethodPut, "/api/inventory/8/reorder-level", ReorderRequest{ReorderLevel: -1}, tokenFor(t, 1, models.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLowStock_FiltersByReorderLevel(t *testing.T) {
	app, mock := newApp(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "inventory" JOIN products .* WHERE inventory.quantity <= inventory.reorder_level`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT products.id AS product_id.* WHERE inventory.quantity <= inventory.reorder_level ORDER BY inventory.quantity - inventory.reorder_level`).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "product_name", "sku", "quantity", "reorder_level", "is_low"}).
			AddRow(3, "Tea", "TEA", 1, 5, true))

	status, raw := testutil.Do(t, app, http.MethodGet, "/api/inventory/low-stock", nil, tokenFor(t, 1, models.RoleBranchManager))
	require.Equal(t, http.StatusOK, status, string(raw))
	res := testutil.Decode[struct {
		Items []StockRow `json:"items"`
		Total int64      `json:"total"`
	}](t, raw)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].IsLow)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrement_Insufficient(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	mock.ExpectExec(`UPDATE "inventory" SET "quantity"=quantity - \$1 WHERE product_id = \$2 AND quantity >= \$3`).
		WithArgs(5, 2, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, Decrement(db, 2, 5), ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}
