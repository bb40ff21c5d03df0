package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// Import sheet columns.
const (
	ColProjectCode  = "project_code"
	ColLocationName = "location_name"
	ColX            = "x"
	ColY            = "y"
	ColRemarks      = "remarks"
	ColLocationID   = "location_id"
)

var (
	importHeader   = []string{ColProjectCode, ColLocationName, ColX, ColY, ColRemarks}
	exportHeader   = []string{ColLocationID, ColLocationName, ColX, ColY, ColRemarks}
	requiredImport = []string{ColProjectCode, ColLocationName, ColX, ColY}
)

const utf8BOM = "\xef\xbb\xbf"

// Codec reads import sheets and writes export and template sheets in csv or xlsx.
type Codec struct{}

// New returns a Codec.
func New() *Codec { return &Codec{} }

// FormatFromFilename maps a file extension to "csv" or "xlsx".
func FormatFromFilename(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadCandidates parses an uploaded sheet. Blank rows are skipped and every
// candidate keeps its 1-based row number (the header is row 1).
func (c *Codec) ReadCandidates(ctx context.Context, filename string, data []byte) ([]domain.ImportCandidate, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return readXLSX(data)
	}
	return readCSV(data)
}

func readCSV(data []byte) ([]domain.ImportCandidate, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(text)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.ErrEmptyBatch
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var out []domain.ImportCandidate
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		out = append(out, toCandidate(line, record, cols))
	}
	return out, nil
}

func readXLSX(data []byte) ([]domain.ImportCandidate, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	cols, err := indexColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var out []domain.ImportCandidate
	for i, record := range rows[1:] {
		if blank(record) {
			continue
		}
		out = append(out, toCandidate(i+2, record, cols))
	}
	return out, nil
}

// decodeText returns data as UTF-8, falling back to Windows-1252 for sheets
// saved by older spreadsheet software.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode csv: %w", err)
	}
	return string(out), nil
}

// sniffDelimiter picks ';' when the header line has semicolons but no commas.
func sniffDelimiter(text string) rune {
	first, _, _ := strings.Cut(text, "\n")
	if !strings.Contains(first, ",") && strings.Contains(first, ";") {
		return ';'
	}
	return ','
}

func indexColumns(header []string) (map[string]int, error) {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimPrefix(col, utf8BOM)
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, req := range requiredImport {
		if _, ok := m[req]; !ok {
			return nil, &domain.ImportError{Row: 1, Field: req, Err: domain.ErrMissingOrMalformedField}
		}
	}
	return m, nil
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func toCandidate(row int, record []string, cols map[string]int) domain.ImportCandidate {
	return domain.ImportCandidate{
		Row:          row,
		ProjectCode:  getField(record, cols, ColProjectCode),
		LocationName: getField(record, cols, ColLocationName),
		X:            getField(record, cols, ColX),
		Y:            getField(record, cols, ColY),
		Remarks:      getField(record, cols, ColRemarks),
	}
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
