// Package schedule loads class timetables from spreadsheets.
//
// A timetable has a date column followed by at least two session columns.
// The columns are renamed Date, Morning, Afternoon and Extra_0, Extra_1, ...
// regardless of what the sheet calls them.
package schedule

import (
	"fmt"
	"strings"

	"attendcalc/pkg/contracts/domain"
)

// Fixed column names
const (
	ColumnDate      = "Date"
	ColumnMorning   = "Morning"
	ColumnAfternoon = "Afternoon"

	extraPrefix = "Extra_"

	// MinColumns is the narrowest sheet that can be loaded.
	MinColumns = 3
)

// Row is one day of the timetable. Sessions holds one label per session
// column, in column order.
type Row struct {
	Date     string                `json:"date"`
	Sessions []domain.SessionLabel `json:"sessions"`
}

// Table is an in-memory timetable.
type Table struct {
	columns []string
	rows    []Row
}

// Cell is one session slot visited by Table.Cells.
type Cell struct {
	RowIndex int
	Date     string
	Column   string
	Label    domain.SessionLabel
}

// Columns returns all column names, Date first.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// SessionColumns returns the names of the session columns.
func (t *Table) SessionColumns() []string {
	return t.Columns()[1:]
}

// Rows returns the rows in source order.
func (t *Table) Rows() []Row {
	return t.rows
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Cells calls fn for every session cell, row by row and left to right,
// stopping early when fn returns false.
func (t *Table) Cells(fn func(Cell) bool) {
	cols := t.SessionColumns()
	for i, row := range t.rows {
		for j, label := range row.Sessions {
			if !fn(Cell{RowIndex: i, Date: row.Date, Column: cols[j], Label: label}) {
				return
			}
		}
	}
}

// ColumnNames returns the canonical names for a sheet n columns wide.
func ColumnNames(n int) []string {
	names := []string{ColumnDate, ColumnMorning, ColumnAfternoon}
	for i := 0; i < n-MinColumns; i++ {
		names = append(names, fmt.Sprintf("%s%d", extraPrefix, i))
	}
	return names
}

// TimeSlot returns the display name of a session column.
func TimeSlot(column string) string {
	switch {
	case column == ColumnMorning:
		return "Morning"
	case column == ColumnAfternoon:
		return "Afternoon"
	case strings.HasPrefix(column, extraPrefix):
		return "Extra " + strings.TrimPrefix(column, extraPrefix)
	default:
		return column
	}
}

// build turns raw records into a Table. The first record is the sheet's
// header and is discarded, matching how spreadsheet readers treat the first
// row as column names.
func build(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet is empty")
	}

	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	if width < MinColumns {
		return nil, &widthError{columns: width}
	}

	t := &Table{columns: ColumnNames(width)}
	for _, rec := range records[1:] {
		date := strings.TrimSpace(cell(rec, 0))
		if date == "" {
			continue
		}

		row := Row{Date: date, Sessions: make([]domain.SessionLabel, 0, width-1)}
		for j := 1; j < width; j++ {
			v := cell(rec, j)
			if v == "" {
				row.Sessions = append(row.Sessions, domain.MissingLabel())
				continue
			}
			row.Sessions = append(row.Sessions, domain.Label(v))
		}
		t.rows = append(t.rows, row)
	}

	if len(t.rows) > 0 && isHeaderDate(t.rows[0].Date) {
		t.rows = t.rows[1:]
	}
	return t, nil
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func isHeaderDate(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "date" || v == "day"
}

type widthError struct {
	columns int
}

func (e *widthError) Error() string {
	return fmt.Sprintf("schedule must have at least %d columns (Date, Morning, Afternoon), found %d", MinColumns, e.columns)
}
