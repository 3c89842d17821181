package wishlist

import (
	"net/http"
	"testing"
	"time"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

func TestAddHandler_Idempotent(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app := testutil.NewApp()
	app.Post("/api/wishlist", auth.JWTMiddleware(testSecret), AddHandler(db))

	token, err := auth.GenerateToken(testSecret, time.Hour, &models.User{ID: 5, Role: models.RoleUser})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT "id" FROM "products"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO "wishlist_items" .* ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	status, _ := testutil.Do(t, app, http.MethodPost, "/api/wishlist", AddRequest{ProductID: 3}, testutil.Bearer(token))
	assert.Equal(t, http.StatusCreated, status)

	mock.ExpectQuery(`SELECT "id" FROM "products"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO "wishlist_items" .* ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/wishlist", AddRequest{ProductID: 3}, testutil.Bearer(token))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `"added":false`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddHandler_UnknownProduct(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app := testutil.NewApp()
	app.Post("/api/wishlist", auth.JWTMiddleware(testSecret), AddHandler(db))
	token, err := auth.GenerateToken(testSecret, time.Hour, &models.User{ID: 5, Role: models.RoleUser})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT "id" FROM "products"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	status, _ := testutil.Do(t, app, http.MethodPost, "/api/wishlist", AddRequest{ProductID: 3}, testutil.Bearer(token))
	assert.Equal(t, http.StatusNotFound, status)
}
