package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/export"
	"stockhub-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImportHeader is the column set accepted by the product import and produced by the export.
var ImportHeader = []string{"name", "sku", "category", "price", "quantity", "reorder_level", "description"}

var requiredColumns = []string{"name", "sku", "category", "price"}

var ErrMissingColumns = errors.New("missing required columns")

type ImportRow struct {
	Row          int
	Name         string
	SKU          string
	Category     string
	Price        float64
	Quantity     int
	ReorderLevel int
	Description  string
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Imported int        `json:"imported"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// rowError marks a problem with a single row; the import moves on to the next one.
type rowError struct{ msg string }

func (e rowError) Error() string { return e.msg }

func readRecords(r io.Reader, format export.Format) ([][]string, error) {
	if format == export.FormatXLSX {
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		return f.GetRows(f.GetSheetName(0))
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

// ParseImport maps columns by header name, so column order is free and unknown columns are ignored.
// Rows that fail validation come back as RowErrors; row numbers are 1-based and count the header.
func ParseImport(r io.Reader, format export.Format) ([]ImportRow, []RowError, error) {
	records, err := readRecords(r, format)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: file is empty", ErrMissingColumns)
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var (
		rows    []ImportRow
		rowErrs []RowError
	)
	for i, rec := range records[1:] {
		n := i + 2
		get := func(col string) string {
			idx, ok := cols[col]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}
		if strings.TrimSpace(strings.Join(rec, "")) == "" {
			continue
		}

		row, err := parseRow(n, get)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: n, Message: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}

func parseRow(n int, get func(string) string) (ImportRow, error) {
	row := ImportRow{
		Row:         n,
		Name:        get("name"),
		SKU:         normalizeSKU(get("sku")),
		Category:    get("category"),
		Description: get("description"),
	}
	if row.Name == "" || row.SKU == "" || row.Category == "" {
		return row, errors.New("name, sku and category are required")
	}

	price, err := strconv.ParseFloat(get("price"), 64)
	if err != nil || price < 0 {
		return row, fmt.Errorf("invalid price %q", get("price"))
	}
	row.Price = price

	for col, dst := range map[string]*int{"quantity": &row.Quantity, "reorder_level": &row.ReorderLevel} {
		v := get(col)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			return row, fmt.Errorf("invalid %s %q", col, v)
		}
		*dst = i
	}
	return row, nil
}

// importer applies rows one transaction at a time so a bad row never undoes the good ones.
type importer struct {
	owner      *uint
	categories map[string]uint
}

func (im *importer) category(tx *gorm.DB, name string) (uint, error) {
	key := strings.ToLower(name)
	if id, ok := im.categories[key]; ok {
		return id, nil
	}
	var cat models.Category
	err := tx.Where("LOWER(name) = ?", key).Take(&cat).Error
	if database.IsNotFound(err) {
		cat = models.Category{Name: name}
		err = tx.Create(&cat).Error
	}
	if err != nil {
		return 0, err
	}
	im.categories[key] = cat.ID
	return cat.ID, nil
}

// apply reports whether the row created a new product.
func (im *importer) apply(tx *gorm.DB, row ImportRow) (bool, error) {
	var p models.Product
	err := tx.Where("sku = ?", row.SKU).Take(&p).Error
	found := err == nil
	if err != nil && !database.IsNotFound(err) {
		return false, err
	}
	if found && im.owner != nil && (p.TenantID == nil || *p.TenantID != *im.owner) {
		return false, rowError{fmt.Sprintf("sku %s belongs to another owner", row.SKU)}
	}

	catID, err := im.category(tx, row.Category)
	if err != nil {
		return false, err
	}

	p.CategoryID = catID
	p.Name = row.Name
	p.SKU = row.SKU
	p.Description = row.Description
	p.Price = row.Price
	if found {
		err = tx.Model(&p).Select("CategoryID", "Name", "Description", "Price").Updates(&p).Error
	} else {
		p.TenantID = im.owner
		p.IsActive = true
		err = tx.Omit("Category", "Inventory").Create(&p).Error
	}
	if err != nil {
		return false, err
	}

	inv := models.Inventory{ProductID: p.ID, Quantity: row.Quantity, ReorderLevel: row.ReorderLevel}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "reorder_level", "updated_at"}),
	}).Create(&inv).Error
	return !found, err
}

func importFormat(c *fiber.Ctx, filename string) (export.Format, error) {
	if c.Query("format") != "" {
		return export.FormatFromQuery(c)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return export.FormatCSV, nil
	case ".xlsx":
		return export.FormatXLSX, nil
	}
	return "", fiber.NewError(fiber.StatusBadRequest, "file must be .csv or .xlsx")
}

// POST /api/import/products (multipart field "file")
func ImportProductsHandler(db *gorm.DB, logs *audit.Logger, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		format, err := importFormat(c, fh.Filename)
		if err != nil {
			return err
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()

		rows, rowErrs, err := ParseImport(f, format)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res := ImportResult{Skipped: len(rowErrs), Errors: rowErrs}
		im := &importer{owner: ownerScope(id), categories: map[string]uint{}}
		for _, row := range rows {
			var created bool
			err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
				var err error
				created, err = im.apply(tx, row)
				return err
			})

			if err != nil {
				// a rolled back row may have created a category
				im.categories = map[string]uint{}
			}

			var re rowError
			switch {
			case errors.As(err, &re):
				res.Skipped++
				res.Errors = append(res.Errors, RowError{Row: row.Row, Message: re.msg})
			case database.IsUniqueViolation(err):
				res.Skipped++
				res.Errors = append(res.Errors, RowError{Row: row.Row, Message: "duplicate value"})
			case err != nil:
				log.Error("product import row failed", zap.Int("row", row.Row), zap.String("sku", row.SKU), zap.Error(err))
				return fmt.Errorf("import row %d: %w", row.Row, err)
			case created:
				res.Imported++
			default:
				res.Updated++
			}
		}
		if res.Errors == nil {
			res.Errors = []RowError{}
		}

		logs.RecordCtx(c, models.ActivityImport, "product", fh.Filename,
			fmt.Sprintf("imported %d, updated %d, skipped %d products", res.Imported, res.Updated, res.Skipped), res)
		return c.JSON(res)
	}
}
