// Package export renders tabular reports as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ParseFormat defaults to CSV when s is empty.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func WriteXLSX(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = excelize.Cell{StyleID: style, Value: h}
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return err
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

// Send writes the report as an attachment named "<name>-<date>.<format>".
func Send(c *fiber.Ctx, format Format, name string, header []string, rows [][]string) error {
	filename := fmt.Sprintf("%s-%s.%s", name, time.Now().Format("20060102"), format)
	c.Attachment(filename)

	switch format {
	case FormatXLSX:
		c.Set(fiber.HeaderContentType, xlsxContentType)
		return WriteXLSX(c.Response().BodyWriter(), name, header, rows)
	default:
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return WriteCSV(c.Response().BodyWriter(), header, rows)
	}
}

// FormatFromQuery reads ?format= and maps bad values to 400.
func FormatFromQuery(c *fiber.Ctx) (Format, error) {
	f, err := ParseFormat(c.Query("format"))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return f, nil
}

func Money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
