package cart

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

func userToken(t *testing.T) map[string]string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, time.Hour, &models.User{ID: 5, Role: models.RoleUser})
	require.NoError(t, err)
	return testutil.Bearer(token)
}

func TestToResponse_Subtotal(t *testing.T) {
	items := []models.CartItem{
		{ID: 1, ProductID: 1, Quantity: 3, Product: &models.Product{Name: "Tea", Price: 0.1, IsActive: true, Inventory: &models.Inventory{Quantity: 2}}},
		{ID: 2, ProductID: 2, Quantity: 1, Product: &models.Product{Name: "Cup", Price: 0.2, IsActive: true, Inventory: &models.Inventory{Quantity: 9}}},
	}
	res := toResponse(items)
	assert.Equal(t, 0.5, res.Subtotal)
	assert.Equal(t, 4, res.ItemCount)
	assert.False(t, res.Items[0].IsAvailable)
	assert.True(t, res.Items[1].IsAvailable)
	assert.Equal(t, 0.3, res.Items[0].LineTotal)
}

func newApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	db, mock := testutil.NewMockDB(t)
	app := testutil.NewApp()
	api := app.Group("/api", auth.JWTMiddleware(testSecret))
	api.Get("/cart", GetCartHandler(db))
	api.Post("/cart", AddItemHandler(db))
	api.Put("/cart/:productId", SetQuantityHandler(db))
	api.Delete("/cart/:productId", RemoveItemHandler(db))
	return app, mock
}

func TestAddItem_UpsertsQuantity(t *testing.T) {
	app, mock := newApp(t)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 AND is_active = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "is_active"}).AddRow(100, "Tea", 4.5, true))
	mock.ExpectQuery(`SELECT \* FROM "inventory" WHERE "inventory"."product_id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity"}).AddRow(1, 100, 10))
	mock.ExpectQuery(`INSERT INTO "cart_items" .* ON CONFLICT \("user_id","product_id"\) DO UPDATE SET .*cart_items.quantity \+ EXCLUDED.quantity`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "quantity"}).AddRow(1, 5, 100, 3))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE "products"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "is_active"}).AddRow(100, "Tea", 4.5, true))
	mock.ExpectQuery(`SELECT \* FROM "inventory" WHERE "inventory"."product_id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity"}).AddRow(1, 100, 10))

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/cart", AddRequest{ProductID: 100, Quantity: 2}, userToken(t))
	require.Equal(t, http.StatusCreated, status, string(raw))
	res := testutil.Decode[CartResponse](t, raw)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 3, res.Items[0].Quantity)
	assert.Equal(t, 13.5, res.Subtotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_UnknownProduct(t *testing.T) {
	app, mock := newApp(t)
	mock.ExpectQuery(`SELECT \* FROM "products"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	status, _ := testutil.Do(t, app, http.MethodPost, "/api/cart", AddRequest{ProductID: 999}, userToken(t))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSetQuantity_ZeroRemoves(t *testing.T) {
	app, mock := newApp(t)

	mock.ExpectExec(`DELETE FROM "cart_items" WHERE user_id = \$1 AND product_id = \$2`).
		WithArgs(5, 100).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "quantity"}))

	status, raw := testutil.Do(t, app, http.MethodPut, "/api/cart/100", SetQuantityRequest{Quantity: 0}, userToken(t))
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Empty(t, testutil.Decode[CartResponse](t, raw).Items)
	assert.NoError(t, mock.ExpectationsWereMet())

	status, _ = testutil.Do(t, app, http.MethodPut, "/api/cart/100", SetQuantityRequest{Quantity: -1}, userToken(t))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRemoveItem_Missing(t *testing.T) {
	app, mock := newApp(t)
	mock.ExpectExec(`DELETE FROM "cart_items"`).WillReturnResult(sqlmock.NewResult(0, 0))

	status, _ := testutil.Do(t, app, http.MethodDelete, "/api/cart/7", nil, userToken(t))
	assert.Equal(t, http.StatusNotFound, status)
}
