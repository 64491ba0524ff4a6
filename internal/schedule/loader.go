package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "attendcalc/internal/errors"
)

// Format identifies a spreadsheet encoding
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatFromName picks a format from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", apperrors.NewFormatError(
			fmt.Sprintf("unsupported schedule file type %q", filepath.Ext(name)), nil).
			WithContext("file", filepath.Base(name))
	}
}

// FromRecords builds a table from raw records. The first record is always
// taken as the header row and discarded; columns are named by position.
// Input without a header therefore loses its first day. If the first kept
// row has "date" or "day" as its date it is dropped as a repeated header.
func FromRecords(records [][]string) (*Table, error) {
	t, err := build(records)
	if err != nil {
		var we *widthError
		if errors.As(err, &we) {
			return nil, apperrors.NewFormatError(we.Error(), nil).WithContext("columns", we.columns)
		}
		return nil, apperrors.NewFormatError("invalid schedule", err)
	}
	return t, nil
}

// Load reads a timetable from r. For workbooks only the first sheet is used.
// The first row is the header, as in FromRecords.
func Load(r io.Reader, format Format) (*Table, error) {
	var (
		records [][]string
		err     error
	)

	switch format {
	case FormatXLSX:
		records, err = readWorkbook(r)
	case FormatCSV:
		records, err = readCSV(r)
	default:
		return nil, apperrors.NewFormatError(fmt.Sprintf("unsupported schedule format %q", format), nil)
	}
	if err != nil {
		return nil, err
	}

	t, err := FromRecords(records)
	if err != nil {
		return nil, err
	}

	slog.Debug("schedule loaded",
		slog.String("format", string(format)),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.columns)))
	return t, nil
}

// LoadFile opens path and loads it with the format implied by its extension.
func LoadFile(path string) (*Table, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("schedule file %s", path))
		}
		return nil, apperrors.NewParsingError("open schedule file", err).WithContext("path", path)
	}
	defer f.Close()

	return Load(f, format)
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewFormatError("workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read csv", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}
