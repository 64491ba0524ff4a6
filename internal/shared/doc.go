// Package shared holds helpers used by more than one package's tests.
//
// testutil captures slog output for assertions and writes timetable
// fixtures in the formats the schedule loader reads. Nothing here is
// imported by production code.
package shared
