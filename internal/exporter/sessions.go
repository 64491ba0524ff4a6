package exporter

import (
	"fmt"
	"io"
	"strings"

	"attendcalc/pkg/contracts/domain"
)

// SessionHeaders are the columns of a session export
var SessionHeaders = []string{"Module", "Date", "Time Slot", "Session", "Type"}

// SessionRecords flattens day details into CSV rows in schedule order.
func SessionRecords(module string, days []domain.DayDetail) [][]string {
	var records [][]string
	for _, day := range days {
		for _, s := range day.Sessions {
			records = append(records, []string{
				module,
				day.Date,
				s.TimeSlot,
				strings.TrimSpace(s.Text),
				s.Kind.DisplayName(),
			})
		}
	}
	return records
}

// WriteSessions streams a session export to out.
func WriteSessions(out io.Writer, module string, days []domain.DayDetail) error {
	return write(out, WriteOptions{
		Headers:   SessionHeaders,
		Records:   SessionRecords(module, days),
		BOMPrefix: true,
	})
}

// SessionsFileName is the default export file name for module.
func SessionsFileName(module string) string {
	return fmt.Sprintf("%s_sessions.csv", strings.ToLower(module))
}

// ExportSessions writes the export for module into the exports directory
// and returns the file path.
func (w *CSVWriter) ExportSessions(module string, days []domain.DayDetail) (string, error) {
	return w.WriteCSV(SessionsFileName(module), WriteOptions{
		Headers:   SessionHeaders,
		Records:   SessionRecords(module, days),
		BOMPrefix: true,
	})
}
