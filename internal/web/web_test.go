package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamID(t *testing.T) {
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		return c.JSON(id)
	})

	for path, want := range map[string]int{
		"/items/12":  http.StatusOK,
		"/items/0":   http.StatusBadRequest,
		"/items/abc": http.StatusBadRequest,
		"/items/-3":  http.StatusBadRequest,
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestDateRange(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		from, to, err := DateRange(c)
		if err != nil {
			return err
		}
		if from != nil && to != nil {
			assert.Equal(t, 24*2, int(to.Sub(*from).Hours()))
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	cases := map[string]int{
		"/":                               http.StatusNoContent,
		"/?from=2026-01-01&to=2026-01-02": http.StatusNoContent,
		"/?from=2026-01-03&to=2026-01-01": http.StatusBadRequest,
		"/?from=yesterday":                http.StatusBadRequest,
	}
	for path, want := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestNewPaged_ClampsAndNeverNil(t *testing.T) {
	p := NewPaged[int](nil, 0, 0, 500)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PageSize)
	assert.NotNil(t, p.Items)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.13, Round2(10.125000001))
	assert.Equal(t, -3.33, Round2(-3.334))
}
