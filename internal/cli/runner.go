// Package cli implements the interactive attendance calculator.
//
// The runner walks a student through one calculation: it shows the stored
// mappings, obtains a timetable (download first, then a path prompt),
// lists exam sessions, asks for a module code for every unknown label,
// lets the student pick a module and enter the number of missed sessions,
// and prints the attendance report. Every question can be answered up
// front with Options, which is how the non-interactive mode works.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"attendcalc/internal/attendance"
	"attendcalc/internal/classifier"
	"attendcalc/internal/config"
	apperrors "attendcalc/internal/errors"
	"attendcalc/internal/exporter"
	"attendcalc/internal/report"
	"attendcalc/internal/schedule"
	"attendcalc/pkg/contracts/domain"
)

// DownloadFileName is where a fetched timetable is saved.
const DownloadFileName = "schedule.xlsx"

var (
	// ErrNoModules is returned when a timetable has no mapped modules.
	ErrNoModules = errors.New("no modules found in the schedule")
	// ErrNoSchedule is returned when no timetable could be obtained.
	ErrNoSchedule = errors.New("no schedule available")
)

// MappingStore is the mapping table used by the runner
type MappingStore interface {
	classifier.Mappings
	Record(key, code string) error
	Codes() []string
	Grouped() map[string][]string
}

// Downloader saves a remote timetable to a local file
type Downloader interface {
	FetchToFile(ctx context.Context, rawURL, path string) error
}

// Options pre-answers the runner's questions. Missed < 0 means ask.
type Options struct {
	File           string
	Source         string
	Module         string
	Missed         int
	Export         bool
	NonInteractive bool
}

// Config holds the runner's dependencies
type Config struct {
	In           io.Reader
	Out          io.Writer
	Store        MappingStore
	Downloader   Downloader
	Sources      []config.Source
	Paths        *config.Paths
	Policy       domain.AttendancePolicy
	IgnoreSpaces bool
	Observer     classifier.Observer
	Logger       *slog.Logger
}

// Runner drives one interactive calculation
type Runner struct {
	cfg        Config
	out        *report.Writer
	classifier *classifier.Classifier
	exporter   *exporter.CSVWriter
	logger     *slog.Logger
}

// New creates a runner.
func New(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	opts := []classifier.Option{classifier.WithIgnoreSpaces(cfg.IgnoreSpaces)}
	if cfg.Observer != nil {
		opts = append(opts, classifier.WithObserver(cfg.Observer))
	}
	return &Runner{
		cfg:        cfg,
		out:        report.NewWriter(cfg.Out),
		classifier: classifier.New(cfg.Store, opts...),
		exporter:   exporter.NewCSVWriter(cfg.Paths),
		logger:     cfg.Logger.With(slog.String("component", "cli")),
	}
}

// Run performs one calculation and returns the result.
func (r *Runner) Run(ctx context.Context, opts Options) (*domain.AttendanceResult, error) {
	p := newPrompter(r.cfg.In, r.cfg.Out, !opts.NonInteractive)
	defer p.stop()

	r.out.Banner()
	r.out.Mappings(r.cfg.Store.Grouped())

	table, err := r.obtainSchedule(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	r.out.Columns(table.SessionColumns())
	r.out.Info("\nProcessing sessions to build module list...")
	r.out.Info("(Exam sessions will be auto-mapped to EXAM and excluded from attendance)")
	r.out.ExamSessions(attendance.ExamSessions(table, r.classifier))

	if err := r.resolveUnmapped(ctx, p, table); err != nil {
		return nil, err
	}

	modules := attendance.Modules(table, r.classifier)
	if len(modules) == 0 {
		r.out.Error("No modules found in the schedule")
		return nil, ErrNoModules
	}
	r.out.Modules(modules)

	module, err := r.chooseModule(ctx, p, modules, opts.Module)
	if err != nil {
		return nil, err
	}

	total, days := attendance.CountSessions(table, module, r.classifier)
	if total == 0 {
		r.out.Error("No sessions found for module: %s", module)
		return nil, fmt.Errorf("%w: %s", attendance.ErrNoSessions, module)
	}
	r.out.Sessions(module, days)
	lectures, tutorials := attendance.Breakdown(days)
	r.out.Breakdown(module, lectures, tutorials)

	if opts.Export {
		path, err := r.exporter.ExportSessions(module, days)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to export sessions", err)
		}
		r.out.Success("Sessions exported to %s", path)
	}

	missed, err := r.askMissed(ctx, p, total, opts.Missed)
	if err != nil {
		return nil, err
	}

	result, err := attendance.Evaluate(module, total, missed, r.cfg.Policy)
	if err != nil {
		return nil, err
	}
	r.out.Attendance(result)

	r.logger.InfoContext(ctx, "attendance calculated",
		slog.String("module", module),
		slog.Int("total", total),
		slog.Int("missed", missed),
		slog.String("status", string(result.Status)))
	return &result, nil
}

// obtainSchedule loads opts.File when given, otherwise downloads the
// chosen source and falls back to asking for a path.
func (r *Runner) obtainSchedule(ctx context.Context, p *prompter, opts Options) (*schedule.Table, error) {
	if opts.File != "" {
		table, err := r.load(opts.File)
		if err == nil || !p.interactive {
			return table, err
		}
	} else if table, ok := r.download(ctx, opts.Source); ok {
		return table, nil
	}

	for {
		path, err := p.ask(ctx, "Enter Excel file path manually: ")
		if err != nil {
			if errors.Is(err, ErrInputRequired) {
				return nil, ErrNoSchedule
			}
			return nil, err
		}
		path = strings.Trim(path, `"'`)

		if path != "" {
			table, err := r.load(path)
			if err == nil {
				r.out.Success("Using file: %s", path)
				return table, nil
			}
		}

		retry, err := p.confirm(ctx, "Try again? (y/n): ")
		if err != nil {
			return nil, err
		}
		if !retry {
			r.out.Error("Exiting program")
			return nil, ErrNoSchedule
		}
	}
}

func (r *Runner) load(path string) (*schedule.Table, error) {
	table, err := schedule.LoadFile(path)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
			r.out.Error("File not found: %s", path)
		} else {
			r.out.Error("Error loading file: %v", err)
		}
		r.logger.Warn("schedule load failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil, err
	}
	return table, nil
}

func (r *Runner) download(ctx context.Context, name string) (*schedule.Table, bool) {
	if r.cfg.Downloader == nil || len(r.cfg.Sources) == 0 {
		return nil, false
	}

	src := r.cfg.Sources[0]
	if name != "" {
		found := false
		for _, s := range r.cfg.Sources {
			if s.Name == name {
				src, found = s, true
				break
			}
		}
		if !found {
			r.out.Error("Unknown source: %s", name)
			return nil, false
		}
	}

	dest := DownloadFileName
	if r.cfg.Paths != nil {
		dest = r.cfg.Paths.GetDownloadPath(DownloadFileName)
	}

	r.out.Info("Downloading schedule from %s...", src.Name)
	if err := r.cfg.Downloader.FetchToFile(ctx, src.URL, dest); err != nil {
		r.out.Error("Error downloading file: %v", err)
		r.logger.WarnContext(ctx, "schedule download failed",
			slog.String("source", src.Name),
			slog.String("error", err.Error()))
		return nil, false
	}
	r.out.Success("File downloaded successfully as '%s'", dest)

	table, err := r.load(dest)
	if err != nil {
		return nil, false
	}
	return table, true
}

// resolveUnmapped asks for a code for every unknown label. A label that
// an earlier answer already covers through fallback matching is skipped.
func (r *Runner) resolveUnmapped(ctx context.Context, p *prompter, table *schedule.Table) error {
	for _, u := range attendance.Unmapped(table, r.classifier) {
		if r.classifier.ClassifyText(u.Raw).Category != domain.CategoryUnmapped {
			continue
		}
		if !p.interactive {
			r.out.Error("Skipping unmapped session '%s'", u.Raw)
			continue
		}

		r.out.Unmapped(u, r.cfg.Store.Codes())
		for {
			code, err := p.ask(ctx, "Enter module code (e.g., DLO, ECS, DSA, OOP): ")
			if err != nil {
				return err
			}
			code = strings.ToUpper(code)
			if code == "" {
				r.out.Error("Please enter a valid module code")
				continue
			}

			if err := r.cfg.Store.Record(u.Normalized, code); err != nil {
				if apperrors.IsType(err, apperrors.ErrTypeValidation) {
					r.out.Error("Please enter a valid module code")
					continue
				}
				return err
			}
			r.out.Success("Mapped '%s' -> %s", u.Raw, code)
			break
		}
	}
	return nil
}

func (r *Runner) chooseModule(ctx context.Context, p *prompter, modules []string, preset string) (string, error) {
	if preset != "" {
		for _, m := range modules {
			if strings.EqualFold(m, strings.TrimSpace(preset)) {
				return m, nil
			}
		}
		r.out.Error("Module %s is not in this schedule", preset)
		if !p.interactive {
			return "", apperrors.NewNotFoundError("module " + preset)
		}
	}

	for {
		answer, err := p.ask(ctx, fmt.Sprintf("\nChoose module number (1-%d): ", len(modules)))
		if err != nil {
			return "", err
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			r.out.Error("Please enter a valid number")
			continue
		}
		if n < 1 || n > len(modules) {
			r.out.Error("Please enter a number between 1 and %d", len(modules))
			continue
		}
		return modules[n-1], nil
	}
}

func (r *Runner) askMissed(ctx context.Context, p *prompter, total, preset int) (int, error) {
	if preset >= 0 {
		if preset <= total {
			return preset, nil
		}
		r.out.Error("Please enter a number between 0 and %d", total)
		if !p.interactive {
			return 0, apperrors.NewValidationError(
				fmt.Sprintf("missed must be between 0 and %d", total), attendance.ErrMissedOutOfRange)
		}
	}

	for {
		answer, err := p.ask(ctx, fmt.Sprintf("How many sessions did you miss? (0-%d): ", total))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			r.out.Error("Please enter a valid number")
			continue
		}
		if n < 0 || n > total {
			r.out.Error("Please enter a number between 0 and %d", total)
			continue
		}
		return n, nil
	}
}
