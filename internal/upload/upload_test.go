package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func uploadApp(dir string, max int64) *fiber.App {
	app := fiber.New()
	app.Post("/upload", func(c *fiber.Ctx) error {
		rel, err := Save(c, "image", dir, "products", max, ImageExtensions)
		if err != nil {
			return HTTPError(err)
		}
		return c.SendString(rel)
	})
	return app
}

func TestSave_WritesFile(t *testing.T) {
	dir := t.TempDir()
	app := uploadApp(dir, 1024)

	resp, err := app.Test(multipartRequest(t, "image", "Photo.PNG", []byte("png-bytes")), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	rel := body.String()
	assert.True(t, strings.HasPrefix(rel, "products/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, Remove(dir, rel))
	require.NoError(t, Remove(dir, rel))
}

func TestSave_Rejections(t *testing.T) {
	dir := t.TempDir()
	app := uploadApp(dir, 4)

	resp, err := app.Test(multipartRequest(t, "image", "a.png", []byte("too large")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(multipartRequest(t, "image", "a.exe", []byte("x")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(multipartRequest(t, "other", "a.png", []byte("x")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
