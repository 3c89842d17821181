package export

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteCSV_QuotesFields(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []string{"name", "price"}, [][]string{{"Tea, green", "3.50"}})
	require.NoError(t, err)
	assert.Equal(t, "name,price\n\"Tea, green\",3.50\n", buf.String())
}

func TestWriteXLSX_ReadsBack(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, "products", []string{"sku", "qty"}, [][]string{{"A-1", "4"}, {"B-2", "0"}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("products")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"sku", "qty"}, {"A-1", "4"}, {"B-2", "0"}}, rows)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestSend_SetsAttachment(t *testing.T) {
	app := fiber.New()
	app.Get("/export", func(c *fiber.Ctx) error {
		format, err := FormatFromQuery(c)
		if err != nil {
			return err
		}
		return Send(c, format, "orders", []string{"code"}, [][]string{{"ORD-1"}})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/export?format=csv", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "orders-")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	assert.Equal(t, "code\nORD-1\n", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/export?format=doc", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
