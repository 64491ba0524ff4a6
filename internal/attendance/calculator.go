// Package attendance counts a module's sessions in a timetable and works out
// how many more a student can miss while staying above the attendance
// threshold.
package attendance

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"attendcalc/internal/schedule"
	"attendcalc/pkg/contracts/domain"
)

var (
	// ErrNoSessions is returned when evaluating a module with no sessions.
	ErrNoSessions = errors.New("no sessions found for module")
	// ErrMissedOutOfRange is returned when the missed count is negative or
	// exceeds the number of sessions.
	ErrMissedOutOfRange = errors.New("missed sessions out of range")
)

// Policy holds the attendance thresholds
type Policy = domain.AttendancePolicy

// DefaultPolicy returns the 80% / 75% policy.
func DefaultPolicy() Policy {
	return domain.DefaultAttendancePolicy()
}

// Classifier is the classification dependency of the calculator.
type Classifier interface {
	ClassifyCell(date, column string, label domain.SessionLabel) domain.ClassifiedSession
}

// CountSessions classifies every session cell and counts those that resolve
// to moduleCode. Details are grouped per day in table order.
func CountSessions(t *schedule.Table, moduleCode string, c Classifier) (int, []domain.DayDetail) {
	var (
		total   int
		details []domain.DayDetail
		lastRow = -1
	)

	t.Cells(func(cell schedule.Cell) bool {
		if cell.Label.IsBlank() {
			return true
		}
		s := c.ClassifyCell(cell.Date, cell.Column, cell.Label)
		if !s.IsModule(moduleCode) {
			return true
		}

		if cell.RowIndex != lastRow {
			details = append(details, domain.DayDetail{Date: cell.Date})
			lastRow = cell.RowIndex
		}
		day := &details[len(details)-1]
		day.Sessions = append(day.Sessions, domain.SessionDetail{
			Column:   cell.Column,
			TimeSlot: schedule.TimeSlot(cell.Column),
			Text:     cell.Label.Text,
			Kind:     s.Kind,
		})
		total++
		return true
	})

	return total, details
}

// Breakdown splits matched sessions into lectures and tutorials.
func Breakdown(details []domain.DayDetail) (lectures, tutorials int) {
	for _, day := range details {
		for _, s := range day.Sessions {
			if s.Kind == domain.KindTutorial {
				tutorials++
			} else {
				lectures++
			}
		}
	}
	return lectures, tutorials
}

// HolidayAllowance returns how many more sessions can be missed while
// attendance stays at or above minPercent, and the minimum number of
// sessions that must be attended. The minimum is floored, never rounded up.
func HolidayAllowance(total, missed, minPercent int) (allowance, minSessionsNeeded int) {
	minSessionsNeeded = total * minPercent / 100
	maxTotalMissed := total - minSessionsNeeded
	allowance = maxTotalMissed - missed
	if allowance < 0 {
		allowance = 0
	}
	return allowance, minSessionsNeeded
}

// Evaluate derives the full attendance result for a module.
func Evaluate(module string, total, missed int, p Policy) (domain.AttendanceResult, error) {
	if total <= 0 {
		return domain.AttendanceResult{}, fmt.Errorf("%w: %s", ErrNoSessions, module)
	}
	if missed < 0 || missed > total {
		return domain.AttendanceResult{}, fmt.Errorf("%w: %d not in [0, %d]", ErrMissedOutOfRange, missed, total)
	}

	allowance, minNeeded := HolidayAllowance(total, missed, p.MinPercent)
	attended := total - missed
	maxMissed := total - minNeeded
	pct := float64(attended) / float64(total) * 100

	r := domain.AttendanceResult{
		Module:           module,
		TotalSessions:    total,
		Attended:         attended,
		Missed:           missed,
		Percentage:       pct,
		MinPercent:       p.MinPercent,
		MinSessions:      minNeeded,
		MaxTotalMissed:   maxMissed,
		HolidayAllowance: allowance,
		Status:           status(pct, p),
	}
	if missed > maxMissed {
		r.SessionsOver = missed - maxMissed
	}
	if attended < minNeeded {
		r.SessionsNeeded = minNeeded - attended
	}
	return r, nil
}

func status(pct float64, p Policy) domain.StatusTier {
	switch {
	case pct >= float64(p.MinPercent):
		return domain.StatusGood
	case pct >= float64(p.WarnPercent):
		return domain.StatusWarning
	default:
		return domain.StatusCritical
	}
}

// Modules lists the distinct module codes found in the table, sorted.
// Exams and unresolved labels are not modules.
func Modules(t *schedule.Table, c Classifier) []string {
	seen := make(map[string]struct{})
	t.Cells(func(cell schedule.Cell) bool {
		if cell.Label.IsBlank() {
			return true
		}
		s := c.ClassifyCell(cell.Date, cell.Column, cell.Label)
		if s.Category == domain.CategoryModule && s.ModuleCode != domain.ExamCode {
			seen[s.ModuleCode] = struct{}{}
		}
		return true
	})

	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Unmapped lists labels that need a module code, one entry per normalized
// key, in order of first appearance.
func Unmapped(t *schedule.Table, c Classifier) []domain.UnmappedSession {
	seen := make(map[string]struct{})
	var out []domain.UnmappedSession
	t.Cells(func(cell schedule.Cell) bool {
		if cell.Label.IsBlank() {
			return true
		}
		s := c.ClassifyCell(cell.Date, cell.Column, cell.Label)
		if s.Category != domain.CategoryUnmapped {
			return true
		}
		key := strings.ToLower(s.Normalized)
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
		out = append(out, domain.UnmappedSession{Raw: strings.TrimSpace(cell.Label.Text), Normalized: key})
		return true
	})
	return out
}

// ExamSessions lists every exam-related cell in table order.
func ExamSessions(t *schedule.Table, c Classifier) []domain.ClassifiedSession {
	var out []domain.ClassifiedSession
	t.Cells(func(cell schedule.Cell) bool {
		if cell.Label.IsBlank() {
			return true
		}
		s := c.ClassifyCell(cell.Date, cell.Column, cell.Label)
		if s.Category == domain.CategoryExam {
			out = append(out, s)
		}
		return true
	})
	return out
}
