package reward

import (
	"context"
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

func TestEarnedPoints(t *testing.T) {
	assert.Equal(t, 19, EarnedPoints(19.99, 1))
	assert.Equal(t, 1999, EarnedPoints(19.99, 100))
	assert.Equal(t, 0, EarnedPoints(-5, 1))
	assert.Equal(t, 0, EarnedPoints(50, 0))
}

func TestPointsValue(t *testing.T) {
	assert.Equal(t, 2.5, PointsValue(250, 0.01))
	assert.Equal(t, 0.0, PointsValue(0, 0.01))
}

func TestBalance_SumsLedger(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(points\), 0\) FROM "reward_transactions" WHERE user_id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(120))

	balance, err := Balance(context.Background(), db, 7)
	require.NoError(t, err)
	assert.Equal(t, 120, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustHandler_NeverBelowZero(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app := testutil.NewApp()
	app.Post("/api/rewards/adjust", auth.JWTMiddleware(testSecret), AdjustHandler(db, nil))

	token, err := auth.GenerateToken(testSecret, time.Hour, &models.User{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE "users"."id" = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(points\), 0\) FROM "reward_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(30))
	mock.ExpectRollback()

	status, _ := testutil.Do(t, app, http.MethodPost, "/api/rewards/adjust",
		AdjustRequest{UserID: 9, Points: -40, Note: "correction"}, testutil.Bearer(token))
	assert.Equal(t, http.StatusBadRequest, status)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(points\), 0\) FROM "reward_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(30))
	mock.ExpectQuery(`INSERT INTO "reward_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/rewards/adjust",
		AdjustRequest{UserID: 9, Points: -30}, testutil.Bearer(token))
	require.Equal(t, http.StatusOK, status, string(raw))
	res := testutil.Decode[fiber.Map](t, raw)
	assert.EqualValues(t, 0, res["balance"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustHandler_RejectsZero(t *testing.T) {
	db, _ := testutil.NewMockDB(t)
	app := testutil.NewApp()
	app.Post("/api/rewards/adjust", auth.JWTMiddleware(testSecret), AdjustHandler(db, nil))

	token, err := auth.GenerateToken(testSecret, time.Hour, &models.User{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	status, _ := testutil.Do(t, app, http.MethodPost, "/api/rewards/adjust", AdjustRequest{UserID: 9}, testutil.Bearer(token))
	assert.Equal(t, http.StatusBadRequest, status)
}
