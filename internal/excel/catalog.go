// Package excel reads catalog spreadsheets and writes report workbooks.
package excel

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"lafavorita/backend/internal/domain"
)

var headerAliases = map[string]string{
	"name":                 "name",
	"product":              "name",
	"product name":         "name",
	"nombre":               "name",
	"producto":             "name",
	"category":             "category",
	"categoria":            "category",
	"categoría":            "category",
	"cost price":           "cost_price",
	"cost":                 "cost_price",
	"costo":                "cost_price",
	"precio costo":         "cost_price",
	"precio de costo":      "cost_price",
	"price":                "price",
	"sell price":           "price",
	"precio":               "price",
	"precio venta":         "price",
	"precio de venta":      "price",
	"price wholesale":      "price_wholesale",
	"wholesale price":      "price_wholesale",
	"precio mayoreo":       "price_wholesale",
	"precio paquete":       "price_wholesale",
	"unit type":            "unit_type",
	"unit":                 "unit_type",
	"tipo":                 "unit_type",
	"tipo de unidad":       "unit_type",
	"units per package":    "units_per_package",
	"unidades":             "units_per_package",
	"unidades por paquete": "units_per_package",
	"quantity":             "quantity",
	"qty":                  "quantity",
	"stock":                "quantity",
	"cantidad":             "quantity",
	"barcode":              "barcode",
	"codigo":               "barcode",
	"código":               "barcode",
	"codigo de barras":     "barcode",
	"código de barras":     "barcode",
	"expiration date":      "expiration_date",
	"expires":              "expiration_date",
	"caducidad":            "expiration_date",
	"fecha de caducidad":   "expiration_date",
}

var unitAliases = map[string]domain.UnitType{
	"":        domain.UnitTypeUnit,
	"unit":    domain.UnitTypeUnit,
	"unidad":  domain.UnitTypeUnit,
	"pieza":   domain.UnitTypeUnit,
	"package": domain.UnitTypePackage,
	"paquete": domain.UnitTypePackage,
	"box":     domain.UnitTypeBox,
	"caja":    domain.UnitTypeBox,
}

// CatalogRow is one data row of a catalog sheet. Line is the 1-based sheet
// row; Err is set when the row could not be read.
type CatalogRow struct {
	Line  int
	Input domain.ProductInput
	Err   error
}

// ParseCatalog reads the first sheet of an xlsx workbook. The name, category
// and price columns are required; rows with an empty name are ignored.
func ParseCatalog(reader io.Reader) ([]CatalogRow, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}

	colMap := mapColumns(rows[0])
	for _, required := range []string{"name", "category", "price"} {
		if _, ok := colMap[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	result := make([]CatalogRow, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		name := strings.TrimSpace(readCell(cells, colMap, "name"))
		if name == "" {
			continue
		}
		input, err := parseRow(cells, colMap, name)
		if err != nil {
			err = fmt.Errorf("row %d %w", index+1, err)
		}
		result = append(result, CatalogRow{Line: index + 1, Input: input, Err: err})
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("excel file has no valid data rows")
	}
	return result, nil
}

func parseRow(cells []string, colMap map[string]int, name string) (domain.ProductInput, error) {
	input := domain.ProductInput{
		Name:     name,
		Category: strings.TrimSpace(readCell(cells, colMap, "category")),
		Barcode:  strings.TrimSpace(readCell(cells, colMap, "barcode")),
	}

	price, err := parseDecimal(readCell(cells, colMap, "price"))
	if err != nil {
		return input, fmt.Errorf("invalid price: %w", err)
	}
	input.Price = price

	if raw := strings.TrimSpace(readCell(cells, colMap, "cost_price")); raw != "" {
		cost, err := parseDecimal(raw)
		if err != nil {
			return input, fmt.Errorf("invalid cost_price: %w", err)
		}
		input.CostPrice = cost
	}
	if raw := strings.TrimSpace(readCell(cells, colMap, "price_wholesale")); raw != "" {
		wholesale, err := parseDecimal(raw)
		if err != nil {
			return input, fmt.Errorf("invalid price_wholesale: %w", err)
		}
		input.PriceWholesale = &wholesale
	}

	unit, ok := unitAliases[strings.ToLower(strings.TrimSpace(readCell(cells, colMap, "unit_type")))]
	if !ok {
		return input, fmt.Errorf("invalid unit_type: %q", readCell(cells, colMap, "unit_type"))
	}
	input.UnitType = unit

	if raw := strings.TrimSpace(readCell(cells, colMap, "units_per_package")); raw != "" {
		upp, err := parseInt(raw)
		if err != nil {
			return input, fmt.Errorf("invalid units_per_package: %w", err)
		}
		input.UnitsPerPackage = upp
	}
	if raw := strings.TrimSpace(readCell(cells, colMap, "quantity")); raw != "" {
		qty, err := parseInt(raw)
		if err != nil {
			return input, fmt.Errorf("invalid quantity: %w", err)
		}
		input.Quantity = qty
	}
	if raw := strings.TrimSpace(readCell(cells, colMap, "expiration_date")); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			return input, fmt.Errorf("invalid expiration_date: %w", err)
		}
		input.ExpirationDate = date
	}
	return input, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		normalized := normalizeHeader(col)
		if normalized == "" {
			continue
		}
		canonical, ok := headerAliases[normalized]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	value = strings.Join(strings.Fields(value), " ")
	return value
}

func readCell(row []string, colMap map[string]int, column string) string {
	idx, ok := colMap[column]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "$")
	value = strings.ReplaceAll(value, ",", "")
	if value == "" {
		return decimal.Zero, fmt.Errorf("value is empty")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative")
	}
	return d, nil
}

func parseInt(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}

	asFloat, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.Mod(asFloat, 1) != 0 {
		return 0, fmt.Errorf("must be a whole number")
	}
	if asFloat < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return int(asFloat), nil
}

// parseDate accepts ISO dates, day-first slashed dates and spreadsheet
// serial day numbers.
func parseDate(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range []string{time.DateOnly, "02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", value)
}
