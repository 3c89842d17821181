// Package web holds small request helpers shared by the handlers.
package web

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ParamID parses a positive numeric route parameter; bad values are a 400.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(v), nil
}

// Page reads ?page= and ?page_size=.
func Page(c *fiber.Ctx) (page, size int) {
	return c.QueryInt("page", 1), c.QueryInt("page_size", 20)
}

type PagedResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func NewPaged[T any](items []T, total int64, page, size int) PagedResponse[T] {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = 20
	case size > 100:
		size = 100
	}
	if items == nil {
		items = []T{}
	}
	return PagedResponse[T]{Items: items, Total: total, Page: page, PageSize: size}
}

// DateRange reads ?from= and ?to= (YYYY-MM-DD). to is inclusive, so the returned end is the next midnight.
func DateRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	if s := strings.TrimSpace(c.Query("from")); s != "" {
		t, perr := time.ParseInLocation("2006-01-02", s, time.Local)
		if perr != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		from = &t
	}
	if s := strings.TrimSpace(c.Query("to")); s != "" {
		t, perr := time.ParseInLocation("2006-01-02", s, time.Local)
		if perr != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		end := t.AddDate(0, 0, 1)
		to = &end
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "from must not be after to")
	}
	return from, to, nil
}

// Round2 rounds a currency amount to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
