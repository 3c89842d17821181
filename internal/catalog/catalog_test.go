package catalog

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/export"
	"stockhub-backend/internal/models"
	"stockhub-backend/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const testSecret = "test-secret-test-secret-test-secret"

func tokenFor(t *testing.T, id uint, role models.UserRole) map[string]string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, time.Hour, &models.User{ID: id, Role: role})
	require.NoError(t, err)
	return testutil.Bearer(token)
}

func TestParseImport_CSV(t *testing.T) {
	in := strings.Join([]string{
		"\ufeffSKU,Name,Price,Category,Quantity,Extra",
		"ab-1,Green Tea,4.50,Drinks,10,x",
		"ab-2,,1,Drinks,1,",
		",,,,,",
		"ab-3,Mug,abc,Kitchen,1,",
		"ab-4,Plate,2,Kitchen,-3,",
	}, "\n")

	rows, rowErrs, err := ParseImport(strings.NewReader(in), export.FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ImportRow{Row: 2, Name: "Green Tea", SKU: "AB-1", Category: "Drinks", Price: 4.5, Quantity: 10}, rows[0])

	require.Len(t, rowErrs, 3)
	assert.Equal(t, 3, rowErrs[0].Row)
	assert.Equal(t, 5, rowErrs[1].Row)
	assert.Contains(t, rowErrs[1].Message, "invalid price")
	assert.Equal(t, 6, rowErrs[2].Row)
	assert.Contains(t, rowErrs[2].Message, "invalid quantity")
}

func TestParseImport_MissingColumns(t *testing.T) {
	_, _, err := ParseImport(strings.NewReader("name,sku\nTea,T1\n"), export.FormatCSV)
	require.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "category, price")

	_, _, err = ParseImport(strings.NewReader(""), export.FormatCSV)
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestParseImport_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"name", "sku", "category", "price", "reorder_level"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Rice", "r-5", "Grains", "12.25", "4"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	rows, rowErrs, err := ParseImport(&buf, export.FormatXLSX)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, rows, 1)
	assert.Equal(t, "R-5", rows[0].SKU)
	assert.Equal(t, 12.25, rows[0].Price)
	assert.Equal(t, 4, rows[0].ReorderLevel)
}

func importRequest(t *testing.T, filename, content string, headers map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/products", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestImportProducts_TenantCannotOverwriteForeignSKU(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	app := testutil.NewApp()
	app.Post("/api/import/products", auth.JWTMiddleware(testSecret), ImportProductsHandler(db, nil, zap.NewNop()))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE sku = \$1`).
		WithArgs("T-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "tenant_id"}).AddRow(3, "T-1", 99))
	mock.ExpectRollback()

	csv := "name,sku,category,price\nTea,t-1,Drinks,3\nMug,m-1,Kitchen,oops\n"
	resp, err := app.Test(importRequest(t, "products.csv", csv, tokenFor(t, 7, models.RoleTenant)), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	res := testutil.Decode[ImportResult](t, body.Bytes())
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.Equal(t, RowError{Row: 2, Message: "sku T-1 belongs to another owner"}, res.Errors[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportProducts_RejectsUnknownExtension(t *testing.T) {
	db, _ := testutil.NewMockDB(t)
	app := testutil.NewApp()
	app.Post("/api/import/products", auth.JWTMiddleware(testSecret), ImportProductsHandler(db, nil, zap.NewNop()))

	resp, err := app.Test(importRequest(t, "products.txt", "x", tokenFor(t, 1, models.RoleAdmin)), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func productApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	db, mock := testutil.NewMockDB(t)
	app := testutil.NewApp()
	api := app.Group("/api", auth.JWTMiddleware(testSecret))
	api.Get("/products/manage", ManageProductsHandler(db))
	api.Post("/products", CreateProductHandler(db, nil))
	return app, mock
}

func TestCreateProduct_WritesInventoryInSameTransaction(t *testing.T) {
	app, mock := productApp(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "categories" WHERE id = \$1`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(40))
	mock.ExpectQuery(`INSERT INTO "inventory"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))
	mock.ExpectCommit()

	status, raw := testutil.Do(t, app, http.MethodPost, "/api/products", CreateProductRequest{
		Name: " Tea ", SKU: "tea-01", CategoryID: 2, Price: 3.5, Quantity: 12, ReorderLevel: 2,
	}, tokenFor(t, 7, models.RoleTenant))
	require.Equal(t, http.StatusCreated, status, string(raw))

	p := testutil.Decode[models.Product](t, raw)
	assert.Equal(t, uint(40), p.ID)
	assert.Equal(t, "TEA-01", p.SKU)
	assert.Equal(t, "Tea", p.Name)
	require.NotNil(t, p.TenantID)
	assert.Equal(t, uint(7), *p.TenantID)
	require.NotNil(t, p.Inventory)
	assert.Equal(t, 12, p.Inventory.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProduct_Validation(t *testing.T) {
	app, _ := productApp(t)
	status, _ := testutil.Do(t, app, http.MethodPost, "/api/products", CreateProductRequest{Name: "Tea", SKU: "T", CategoryID: 1, Price: -1},
		tokenFor(t, 1, models.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestManageProducts_TenantSeesOwnOnly(t *testing.T) {
	app, mock := productApp(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE products.tenant_id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE products.tenant_id = \$1 ORDER BY products.name ASC, products.id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	status, raw := testutil.Do(t, app, http.MethodGet, "/api/products/manage", nil, tokenFor(t, 7, models.RoleTenant))
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"page_size":20}`, string(raw))
	assert.NoError(t, mock.ExpectationsWereMet())
}
