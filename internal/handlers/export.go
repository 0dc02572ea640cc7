package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"orders-dashboard/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Заказы"

// exportHeaders возвращает заголовки колонок в порядке отображения и колонку минут
func exportHeaders(columns []string) []string {
	headers := make([]string, 0, len(columns)+1)
	for _, column := range columns {
		headers = append(headers, models.ColumnTitles[column])
	}
	return append(headers, "Минут")
}

func exportRow(row models.TableRow, columns []string) []string {
	cells := make([]string, 0, len(columns)+1)
	for _, column := range columns {
		cells = append(cells, cellValue(row, column))
	}
	return append(cells, strconv.Itoa(row.ProcessingMinutes))
}

func cellValue(row models.TableRow, column string) string {
	switch column {
	case models.ColumnOrderID:
		if row.OrderID != nil {
			return strconv.FormatInt(*row.OrderID, 10)
		}
	case models.ColumnOrderFirstTime:
		return derefString(row.OrderFirstTime)
	case models.ColumnOrderSecondTime:
		return derefString(row.OrderSecondTime)
	case models.ColumnTimeBetweenMessages:
		return derefString(row.TimeBetweenMessages)
	case models.ColumnDepartment:
		return derefString(row.Department)
	case models.ColumnCurrentStatus:
		return row.Status.Current
	}
	return ""
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func exportFileName(ext string) string {
	return fmt.Sprintf("orders_%s.%s", time.Now().Format("2006-01-02"), ext)
}

func writeOrdersCSV(w http.ResponseWriter, columns []string, rows []models.TableRow) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFileName(formatCSV))
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	_ = writer.Write(exportHeaders(columns))
	for _, row := range rows {
		_ = writer.Write(exportRow(row, columns))
	}

	writer.Flush()
	return writer.Error()
}

func writeOrdersXLSX(w http.ResponseWriter, columns []string, rows []models.TableRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := exportHeaders(columns)
	if err := f.SetSheetRow(exportSheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(exportSheet, "A1", last, style)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := exportRow(row, columns)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	lastColumn, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(exportSheet, "A", lastColumn, 22)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFileName(formatXLSX))
	w.WriteHeader(http.StatusOK)
	return f.Write(w)
}
