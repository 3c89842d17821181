package coupon

import (
	"net/http"
	"testing"
	"time"

	"stockhub-backend/internal/models"
	"stockhub-backend/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	base := func() models.Coupon {
		return models.Coupon{Code: "SAVE10", DiscountType: models.DiscountPercentage, DiscountValue: 10, IsActive: true}
	}

	tests := []struct {
		name     string
		mutate   func(c *models.Coupon)
		subtotal float64
		want     float64
		wantErr  error
	}{
		{name: "percentage", subtotal: 250, want: 25},
		{name: "percentage rounds to cents", subtotal: 33.33, want: 3.33},
		{name: "fixed", mutate: func(c *models.Coupon) { c.DiscountType = models.DiscountFixed; c.DiscountValue = 15 }, subtotal: 40, want: 15},
		{name: "fixed capped at subtotal", mutate: func(c *models.Coupon) { c.DiscountType = models.DiscountFixed; c.DiscountValue = 80 }, subtotal: 40, want: 40},
		{name: "min purchase met exactly", mutate: func(c *models.Coupon) { c.MinPurchaseAmount = 100 }, subtotal: 100, want: 10},
		{name: "min purchase above subtotal", mutate: func(c *models.Coupon) { c.MinPurchaseAmount = 100.01 }, subtotal: 100, wantErr: ErrMinPurchase},
		{name: "inactive", mutate: func(c *models.Coupon) { c.IsActive = false }, subtotal: 100, wantErr: ErrInactive},
		{name: "not started", mutate: func(c *models.Coupon) { c.StartsAt = &future }, subtotal: 100, wantErr: ErrNotStarted},
		{name: "expired", mutate: func(c *models.Coupon) { c.ExpiresAt = &past }, subtotal: 100, wantErr: ErrExpired},
		{name: "in window", mutate: func(c *models.Coupon) { c.StartsAt = &past; c.ExpiresAt = &future }, subtotal: 100, want: 10},
		{name: "exhausted", mutate: func(c *models.Coupon) { c.MaxUses = 3; c.UsedCount = 3 }, subtotal: 100, wantErr: ErrExhausted},
		{name: "unlimited uses", mutate: func(c *models.Coupon) { c.UsedCount = 1000 }, subtotal: 100, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			got, err := Validate(&c, tt.subtotal, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsRejection(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestValidate_NilCoupon(t *testing.T) {
	_, err := Validate(nil, 10, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

var couponColumns = []string{"id", "code", "discount_type", "discount_value", "min_purchase_amount", "max_uses", "used_count", "is_active"}

func TestValidateCouponHandler(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app := testutil.NewApp()
	app.Post("/api/coupons/validate", ValidateCouponHandler(db))

	mock.ExpectQuery(`SELECT \* FROM "coupons" WHERE code = \$1`).
		WithArgs("BIG50", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(couponColumns).AddRow(1, "BIG50", "fixed", 50, 200, 0, 0, true))

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/coupons/validate", ValidateRequest{Code: " big50 ", Subtotal: 150}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(raw), ErrMinPurchase.Error())

	mock.ExpectQuery(`SELECT \* FROM "coupons" WHERE code = \$1`).
		WillReturnRows(sqlmock.NewRows(couponColumns).AddRow(1, "BIG50", "fixed", 50, 200, 0, 0, true))

	status, raw = testutil.Do(t, app, http.MethodPost, "/api/coupons/validate", ValidateRequest{Code: "BIG50", Subtotal: 260}, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	res := testutil.Decode[ValidateResponse](t, raw)
	assert.True(t, res.Valid)
	assert.Equal(t, 50.0, res.DiscountAmount)
	assert.Equal(t, 210.0, res.Total)

	mock.ExpectQuery(`SELECT \* FROM "coupons"`).WillReturnRows(sqlmock.NewRows(couponColumns))
	status, _ = testutil.Do(t, app, http.MethodPost, "/api/coupons/validate", ValidateRequest{Code: "NOPE", Subtotal: 10}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCouponHandler_Validation(t *testing.T) {
	db, _ := testutil.NewMockDB(t)
	app := testutil.NewApp()
	app.Post("/api/coupons", CreateCouponHandler(db, nil))

	bad := []CouponRequest{
		{Code: "", DiscountType: models.DiscountFixed, DiscountValue: 5},
		{Code: "X", DiscountType: "bogus", DiscountValue: 5},
		{Code: "X", DiscountType: models.DiscountPercentage, DiscountValue: 120},
		{Code: "X", DiscountType: models.DiscountFixed, DiscountValue: 5, MinPurchaseAmount: -1},
	}
	for _, body := range bad {
		status, _ := testutil.Do(t, app, http.MethodPost, "/api/coupons", body, nil)
		assert.Equal(t, http.StatusBadRequest, status, "%+v", body)
	}
}
