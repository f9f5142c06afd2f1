package excel

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"lafavorita/backend/internal/domain"
)

const (
	summarySheet  = "Resumen"
	productsSheet = "Productos"
	hourlySheet   = "Por hora"
)

// WriteSalesReport renders rep as a workbook with summary, per-product and
// per-hour sheets.
func WriteSalesReport(w io.Writer, rep domain.SalesReport, loc *time.Location) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	from := "-"
	if rep.From != nil {
		from = rep.From.In(loc).Format("2006-01-02 15:04")
	}
	summary := [][]any{
		{"Rango", rep.Range},
		{"Desde", from},
		{"Ventas", rep.SaleCount},
		{"Ingresos", rep.TotalRevenue.InexactFloat64()},
		{"Ganancia", rep.TotalProfit.InexactFloat64()},
		{"Venta promedio", rep.AverageSale.InexactFloat64()},
		{"Unidades vendidas", rep.UnitsSold},
	}
	if err := writeRows(file, summarySheet, summary); err != nil {
		return err
	}

	if _, err := file.NewSheet(productsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	products := [][]any{{"Producto", "Categoría", "Cantidad", "Unidades", "Paquetes", "Ingresos", "Ganancia", "Margen"}}
	for _, p := range rep.Products {
		products = append(products, []any{
			p.Name, p.Category, p.Quantity, p.UnitsSold, p.PackagesSold,
			p.Revenue.InexactFloat64(), p.Profit.InexactFloat64(), p.Margin.InexactFloat64(),
		})
	}
	if err := writeRows(file, productsSheet, products); err != nil {
		return err
	}
	_ = file.SetColWidth(productsSheet, "A", "B", 28)

	if _, err := file.NewSheet(hourlySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	hours := [][]any{{"Hora", "Ventas", "Total"}}
	for _, h := range rep.ByHour {
		hours = append(hours, []any{fmt.Sprintf("%02d:00", h.Hour), h.Count, h.Total.InexactFloat64()})
	}
	if err := writeRows(file, hourlySheet, hours); err != nil {
		return err
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(file *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
