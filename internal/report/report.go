// Package report renders attendance information as terminal text.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"attendcalc/pkg/contracts/domain"
)

var (
	blue   = lipgloss.Color("#0043a8")
	grey   = lipgloss.Color("#626262")
	green  = lipgloss.Color("#50FA7B")
	yellow = lipgloss.Color("#F1FA8C")
	red    = lipgloss.Color("#FF5555")
	cyan   = lipgloss.Color("#8BE9FD")
)

// Writer renders report sections to an output stream. Colors are only
// emitted when the stream is a terminal that supports them.
type Writer struct {
	out io.Writer

	title   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	good    lipgloss.Style
	warning lipgloss.Style
	bad     lipgloss.Style
	accent  lipgloss.Style
}

// NewWriter returns a Writer for out.
func NewWriter(out io.Writer) *Writer {
	r := lipgloss.NewRenderer(out)
	return &Writer{
		out:     out,
		title:   r.NewStyle().Bold(true).Foreground(blue),
		heading: r.NewStyle().Bold(true).Foreground(cyan),
		muted:   r.NewStyle().Foreground(grey),
		good:    r.NewStyle().Bold(true).Foreground(green),
		warning: r.NewStyle().Bold(true).Foreground(yellow),
		bad:     r.NewStyle().Bold(true).Foreground(red),
		accent:  r.NewStyle().Foreground(cyan),
	}
}

func (w *Writer) printf(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}

func (w *Writer) section(title string, rule int) {
	w.printf("\n%s\n%s\n", w.heading.Render(title), w.muted.Render(strings.Repeat("-", rule)))
}

// Banner prints the program title.
func (w *Writer) Banner() {
	w.printf("%s\n%s\n", w.title.Render("Academic Attendance Calculator"), strings.Repeat("=", 35))
}

// Success prints a confirmation line.
func (w *Writer) Success(format string, args ...any) {
	w.printf("%s\n", w.good.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (w *Writer) Error(format string, args ...any) {
	w.printf("%s\n", w.bad.Render(fmt.Sprintf(format, args...)))
}

// Info prints a plain informational line.
func (w *Writer) Info(format string, args ...any) {
	w.printf("%s\n", fmt.Sprintf(format, args...))
}

// Mappings lists stored labels grouped by module code. Nothing is printed
// for an empty table.
func (w *Writer) Mappings(grouped map[string][]string) {
	if len(grouped) == 0 {
		return
	}
	w.section("Current Module Mappings", 40)

	codes := make([]string, 0, len(grouped))
	for code := range grouped {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		w.printf("  %s:\n", w.accent.Render(code))
		for _, key := range grouped[code] {
			w.printf("    - %s\n", key)
		}
	}
}

// Columns shows which session columns are processed.
func (w *Writer) Columns(columns []string) {
	w.printf("\nProcessing columns: %s\n", strings.Join(columns, ", "))
}

// ExamSessions lists exam cells, which never count towards attendance.
func (w *Writer) ExamSessions(exams []domain.ClassifiedSession) {
	if len(exams) == 0 {
		return
	}
	w.section("Exam Sessions Found (excluded from attendance)", 50)
	for _, s := range exams {
		w.printf("  %s %s: %s\n", s.Date, slotName(s.Column), strings.TrimSpace(s.Label.Text))
	}
}

// Unmapped announces a label that needs a module code.
func (w *Writer) Unmapped(u domain.UnmappedSession, existing []string) {
	w.printf("\n%s '%s'\n", w.warning.Render("New session found:"), u.Raw)
	w.printf("   Normalized to: '%s'\n", u.Normalized)
	w.printf("What module code should this be mapped to?\n")
	if len(existing) > 0 {
		w.printf("%s %s\n", w.muted.Render("Existing modules:"), strings.Join(existing, ", "))
	}
}

// Modules prints the numbered module menu.
func (w *Writer) Modules(modules []string) {
	w.section("Available Modules", 20)
	for i, m := range modules {
		w.printf("%2d. %s\n", i+1, m)
	}
}

// Sessions lists a module's matched sessions day by day.
func (w *Writer) Sessions(module string, days []domain.DayDetail) {
	w.section(fmt.Sprintf("Sessions found for module '%s':", module), 50)
	for _, day := range days {
		w.printf("%s:\n", w.accent.Render(day.Date))
		for _, s := range day.Sessions {
			w.printf("  %s: %s (%s)\n", s.TimeSlot, strings.TrimSpace(s.Text), s.Kind.DisplayName())
		}
	}
}

// Breakdown prints lecture and tutorial counts.
func (w *Writer) Breakdown(module string, lectures, tutorials int) {
	w.printf("\n%s\n%s\n", w.heading.Render("Session Breakdown for "+module+":"), strings.Repeat("=", 50))
	w.printf("Regular Lectures: %d\n", lectures)
	w.printf("Tutorials/Practicals: %d\n", tutorials)
	w.printf("Total Sessions: %d\n", lectures+tutorials)
}

// Attendance prints the final report with the holiday allowance and the
// status tier.
func (w *Writer) Attendance(r domain.AttendanceResult) {
	w.printf("\n%s\n%s\n", w.title.Render("Attendance Report"), strings.Repeat("=", 35))
	w.printf("Module: %s\n", r.Module)
	w.printf("Total Sessions: %d\n", r.TotalSessions)
	w.printf("Attended: %d\n", r.Attended)
	w.printf("Missed: %d\n", r.Missed)
	w.printf("Attendance: %.2f%%\n", r.Percentage)

	w.printf("\n%s\n", w.heading.Render(fmt.Sprintf("Holiday Allowance (%d%% minimum):", r.MinPercent)))
	w.printf("Minimum sessions needed: %d\n", r.MinSessions)
	if r.HolidayAllowance > 0 {
		w.printf("Sessions you can still miss: %d\n", r.HolidayAllowance)
		w.printf("Maximum total misses allowed: %d\n", r.MaxTotalMissed)
	} else {
		w.printf("%s\n", w.warning.Render(fmt.Sprintf("Already at/over limit! Sessions over: %d", r.SessionsOver)))
	}

	w.printf("\n%s\n", w.statusStyle(r.Status).Render(fmt.Sprintf("Status: %s - %s", r.Status, r.Status.Description())))
	for _, line := range Advice(r) {
		w.printf("   %s\n", line)
	}
}

func (w *Writer) statusStyle(s domain.StatusTier) lipgloss.Style {
	switch s {
	case domain.StatusGood:
		return w.good
	case domain.StatusWarning:
		return w.warning
	default:
		return w.bad
	}
}

// Advice returns the follow-up lines shown under the status headline.
func Advice(r domain.AttendanceResult) []string {
	switch r.Status {
	case domain.StatusGood:
		if r.HolidayAllowance > 0 {
			return []string{fmt.Sprintf("You can miss %d more session(s) and still maintain %d%%", r.HolidayAllowance, r.MinPercent)}
		}
	case domain.StatusWarning:
		if r.HolidayAllowance > 0 {
			return []string{fmt.Sprintf("You can only miss %d more session(s) to maintain %d%%", r.HolidayAllowance, r.MinPercent)}
		}
		return []string{fmt.Sprintf("Cannot miss any more sessions to maintain %d%%", r.MinPercent)}
	default:
		return []string{fmt.Sprintf("You need %d more attended sessions to reach %d%%", r.SessionsNeeded, r.MinPercent)}
	}
	return nil
}

func slotName(column string) string {
	switch column {
	case "Morning", "Afternoon":
		return column
	default:
		return fmt.Sprintf("Extra Column (%s)", column)
	}
}
