package http

import (
	"context"
	"io"

	"attendcalc/internal/config"
	"attendcalc/internal/services"
	"attendcalc/pkg/contracts/domain"
)

// AttendanceService is the service surface used by AttendanceHandler
type AttendanceService interface {
	Sources() []config.Source
	LoadSchedule(ctx context.Context, name string, r io.Reader) (*services.ScheduleSummary, error)
	FetchSource(ctx context.Context, name string) (*services.ScheduleSummary, error)
	Schedule(ctx context.Context, id string) (*services.ScheduleSummary, error)
	Modules(ctx context.Context, id string) ([]string, error)
	Unmapped(ctx context.Context, id string) ([]domain.UnmappedSession, error)
	Exams(ctx context.Context, id string) ([]domain.ClassifiedSession, error)
	Sessions(ctx context.Context, id, module string) (*services.ModuleSessions, error)
	Report(ctx context.Context, id, module string, missed int) (*domain.AttendanceResult, error)
	ExportSessions(ctx context.Context, id, module string, w io.Writer) error
	Mappings(ctx context.Context) []domain.MappingEntry
	RecordMapping(ctx context.Context, label, code string) (*domain.MappingEntry, error)
}

var _ AttendanceService = (*services.AttendanceService)(nil)
