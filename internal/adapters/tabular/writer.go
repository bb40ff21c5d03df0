package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// Supported file formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// WriteExport renders rows as location_id, location_name, x, y, remarks.
func (c *Codec) WriteExport(format string, rows []domain.LocationExportRow) ([]byte, error) {
	records := make([][]any, len(rows))
	for i, r := range rows {
		records[i] = []any{r.LocationID, r.LocationName, r.X, r.Y, r.Remarks}
	}
	return write(format, exportHeader, records)
}

// WriteTemplate renders the import header followed by one empty row.
func (c *Codec) WriteTemplate(format string) ([]byte, error) {
	return write(format, importHeader, [][]any{{"", "", "", "", ""}})
}

func write(format string, header []string, records [][]any) ([]byte, error) {
	switch format {
	case "", FormatCSV:
		return writeCSV(header, records)
	case FormatXLSX:
		return writeXLSX(header, records)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}

func writeCSV(header []string, records [][]any) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := make([]string, len(rec))
		for i, v := range rec {
			row[i] = cellString(v)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSX(header []string, records [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := rec
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
