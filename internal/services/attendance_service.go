package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"attendcalc/internal/attendance"
	"attendcalc/internal/classifier"
	"attendcalc/internal/config"
	apperrors "attendcalc/internal/errors"
	"attendcalc/internal/exporter"
	"attendcalc/internal/infrastructure"
	"attendcalc/internal/normalize"
	"attendcalc/internal/schedule"
	"attendcalc/pkg/contracts/domain"
)

// DefaultMaxSchedules bounds the in-memory schedule registry.
const DefaultMaxSchedules = 32

// DefaultFetchTimeout bounds a shared download when Options leaves it unset.
const DefaultFetchTimeout = 2 * time.Minute

// MappingStore is the mapping table used by the service
type MappingStore interface {
	classifier.Mappings
	Record(key, code string) error
	Entries() []domain.MappingEntry
	Codes() []string
	Len() int
}

// Fetcher downloads schedule bytes
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// ScheduleSummary describes a loaded schedule. Module and unmapped counts
// reflect the mapping table at the time of the call.
type ScheduleSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Origin        string    `json:"origin"`
	LoadedAt      time.Time `json:"loaded_at"`
	Rows          int       `json:"rows"`
	Columns       []string  `json:"columns"`
	Modules       []string  `json:"modules"`
	UnmappedCount int       `json:"unmapped_count"`
	ExamCount     int       `json:"exam_count"`
}

// ModuleSessions is a module's matched sessions with their breakdown.
type ModuleSessions struct {
	Module    string             `json:"module"`
	Total     int                `json:"total"`
	Lectures  int                `json:"lectures"`
	Tutorials int                `json:"tutorials"`
	Days      []domain.DayDetail `json:"days"`
}

// Options configures an AttendanceService
type Options struct {
	Store        MappingStore
	Fetcher      Fetcher
	Sources      []config.Source
	Policy       domain.AttendancePolicy
	IgnoreSpaces bool
	Metrics      *infrastructure.AttendanceMetrics
	Tracer       trace.Tracer
	MaxSchedules int
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

type loadedSchedule struct {
	summary ScheduleSummary
	table   *schedule.Table
}

// AttendanceService answers attendance questions over loaded schedules
type AttendanceService struct {
	store      MappingStore
	classifier *classifier.Classifier
	fetcher    Fetcher
	sources    []config.Source
	policy     domain.AttendancePolicy
	metrics    *infrastructure.AttendanceMetrics
	tracer     trace.Tracer
	logger     *slog.Logger

	mu           sync.RWMutex
	schedules    map[string]*loadedSchedule
	order        []string
	maxSchedules int

	fetches      singleflight.Group
	fetchTimeout time.Duration
	now          func() time.Time
}

// NewAttendanceService creates the service. Store is required.
func NewAttendanceService(opts Options) *AttendanceService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(infrastructure.MeterName)
	}
	if opts.MaxSchedules <= 0 {
		opts.MaxSchedules = DefaultMaxSchedules
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	classifierOpts := []classifier.Option{classifier.WithIgnoreSpaces(opts.IgnoreSpaces)}
	if opts.Metrics != nil {
		classifierOpts = append(classifierOpts, classifier.WithObserver(opts.Metrics))
	}

	s := &AttendanceService{
		store:        opts.Store,
		classifier:   classifier.New(opts.Store, classifierOpts...),
		fetcher:      opts.Fetcher,
		sources:      opts.Sources,
		policy:       opts.Policy,
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
		logger:       opts.Logger.With(slog.String("service", "attendance")),
		schedules:    make(map[string]*loadedSchedule),
		maxSchedules: opts.MaxSchedules,
		fetchTimeout: opts.FetchTimeout,
		now:          time.Now,
	}
	s.logger.Info("attendance service initialized",
		slog.Int("mappings", opts.Store.Len()),
		slog.Int("sources", len(opts.Sources)),
		slog.Int("min_percent", opts.Policy.MinPercent))
	return s
}

// Sources returns the configured download sources.
func (s *AttendanceService) Sources() []config.Source {
	out := make([]config.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// Policy returns the attendance policy in force.
func (s *AttendanceService) Policy() domain.AttendancePolicy {
	return s.policy
}

// LoadSchedule parses an uploaded file. The format is taken from name.
func (s *AttendanceService) LoadSchedule(ctx context.Context, name string, r io.Reader) (*ScheduleSummary, error) {
	ctx, span := s.tracer.Start(ctx, "AttendanceService.LoadSchedule",
		trace.WithAttributes(attribute.String("schedule.name", name)))
	defer span.End()

	format, err := schedule.FormatFromName(name)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	return s.register(ctx, name, "upload", format, r)
}

// FetchSource downloads a configured source and loads it. Concurrent
// requests for the same source share one download and one schedule.
// The shared download runs detached from any single caller and is bounded
// by the fetch timeout; a caller whose ctx ends stops waiting without
// failing the others.
func (s *AttendanceService) FetchSource(ctx context.Context, name string) (*ScheduleSummary, error) {
	ctx, span := s.tracer.Start(ctx, "AttendanceService.FetchSource",
		trace.WithAttributes(attribute.String("source.name", name)))
	defer span.End()

	src, ok := s.source(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	if s.fetcher == nil {
		return nil, apperrors.NewConfigError("schedule downloads are not configured", nil)
	}

	results := s.fetches.DoChan(name, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		start := s.now()
		data, err := s.fetcher.Fetch(fctx, src.URL)
		if s.metrics != nil {
			s.metrics.FetchCompleted(fctx, name, s.now().Sub(start), err)
		}
		if err != nil {
			return nil, err
		}
		// Share links carry no extension; downloads are always workbooks.
		return s.register(fctx, name, "download", schedule.FormatXLSX, bytes.NewReader(data))
	})

	select {
	case <-ctx.Done():
		err := ctx.Err()
		infrastructure.RecordError(ctx, err)
		s.logger.InfoContext(ctx, "stopped waiting for schedule fetch",
			slog.String("source", name),
			slog.String("error", err.Error()))
		return nil, err
	case res := <-results:
		if res.Err != nil {
			infrastructure.RecordError(ctx, res.Err)
			s.logger.WarnContext(ctx, "schedule fetch failed",
				slog.String("source", name),
				slog.String("error", res.Err.Error()))
			return nil, res.Err
		}
		span.SetAttributes(attribute.Bool("fetch.shared", res.Shared))
		return res.Val.(*ScheduleSummary), nil
	}
}

func (s *AttendanceService) source(name string) (config.Source, bool) {
	for _, src := range s.sources {
		if src.Name == name {
			return src, true
		}
	}
	return config.Source{}, false
}

func (s *AttendanceService) register(ctx context.Context, name, origin string, format schedule.Format, r io.Reader) (*ScheduleSummary, error) {
	table, err := schedule.Load(r, format)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	entry := &loadedSchedule{
		summary: ScheduleSummary{
			ID:       uuid.New().String(),
			Name:     name,
			Origin:   origin,
			LoadedAt: s.now().UTC(),
			Rows:     table.Len(),
			Columns:  table.Columns(),
		},
		table: table,
	}

	s.mu.Lock()
	s.schedules[entry.summary.ID] = entry
	s.order = append(s.order, entry.summary.ID)
	for len(s.order) > s.maxSchedules {
		delete(s.schedules, s.order[0])
		s.order = s.order[1:]
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ScheduleLoaded(ctx, string(format), origin)
	}
	s.logger.InfoContext(ctx, "schedule registered",
		slog.String("id", entry.summary.ID),
		slog.String("name", name),
		slog.String("origin", origin),
		slog.Int("rows", table.Len()))

	return s.summarize(entry), nil
}

func (s *AttendanceService) lookup(id string) (*loadedSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	return entry, nil
}

func (s *AttendanceService) summarize(entry *loadedSchedule) *ScheduleSummary {
	summary := entry.summary
	summary.Modules = attendance.Modules(entry.table, s.classifier)
	summary.UnmappedCount = len(attendance.Unmapped(entry.table, s.classifier))
	summary.ExamCount = len(attendance.ExamSessions(entry.table, s.classifier))
	return &summary
}

// Schedule returns the current summary of a loaded schedule.
func (s *AttendanceService) Schedule(ctx context.Context, id string) (*ScheduleSummary, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.summarize(entry), nil
}

// Modules lists the module codes present in a schedule.
func (s *AttendanceService) Modules(ctx context.Context, id string) ([]string, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return attendance.Modules(entry.table, s.classifier), nil
}

// Unmapped lists labels in a schedule that still need a module code.
func (s *AttendanceService) Unmapped(ctx context.Context, id string) ([]domain.UnmappedSession, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return attendance.Unmapped(entry.table, s.classifier), nil
}

// Exams lists exam sessions in a schedule.
func (s *AttendanceService) Exams(ctx context.Context, id string) ([]domain.ClassifiedSession, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return attendance.ExamSessions(entry.table, s.classifier), nil
}

// Sessions returns a module's sessions in a schedule.
func (s *AttendanceService) Sessions(ctx context.Context, id, module string) (*ModuleSessions, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	module = strings.ToUpper(strings.TrimSpace(module))
	total, days := attendance.CountSessions(entry.table, module, s.classifier)
	if total == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("sessions for module %s", module)).
			WithContext("module", module)
	}
	lectures, tutorials := attendance.Breakdown(days)
	return &ModuleSessions{
		Module:    module,
		Total:     total,
		Lectures:  lectures,
		Tutorials: tutorials,
		Days:      days,
	}, nil
}

// Report evaluates attendance for a module given the number of missed
// sessions.
func (s *AttendanceService) Report(ctx context.Context, id, module string, missed int) (*domain.AttendanceResult, error) {
	ctx, span := s.tracer.Start(ctx, "AttendanceService.Report",
		trace.WithAttributes(
			attribute.String("schedule.id", id),
			attribute.String("module", module)))
	defer span.End()

	sessions, err := s.Sessions(ctx, id, module)
	if err != nil {
		return nil, err
	}

	result, err := attendance.Evaluate(sessions.Module, sessions.Total, missed, s.policy)
	if err != nil {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("missed must be between 0 and %d", sessions.Total), err).
			WithContext("field", "missed")
	}

	if s.metrics != nil {
		s.metrics.ReportGenerated(ctx, result.Status)
	}
	span.SetAttributes(attribute.String("attendance.status", string(result.Status)))
	return &result, nil
}

// ExportSessions writes a module's sessions as CSV to w.
func (s *AttendanceService) ExportSessions(ctx context.Context, id, module string, w io.Writer) error {
	sessions, err := s.Sessions(ctx, id, module)
	if err != nil {
		return err
	}
	return exporter.WriteSessions(w, sessions.Module, sessions.Days)
}

// Mappings returns the mapping table in insertion order.
func (s *AttendanceService) Mappings(ctx context.Context) []domain.MappingEntry {
	return s.store.Entries()
}

// RecordMapping maps a label to a module code. The label is normalized
// and the code uppercased, as the interactive tool does.
func (s *AttendanceService) RecordMapping(ctx context.Context, label, code string) (*domain.MappingEntry, error) {
	key := normalize.Key(label)
	code = strings.ToUpper(strings.TrimSpace(code))

	if err := s.store.Record(key, code); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.MappingRecorded(ctx)
	}
	return &domain.MappingEntry{Key: key, Code: code}, nil
}
