package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendcalc/internal/config"
	apperrors "attendcalc/internal/errors"
	"attendcalc/internal/mapping"
	"attendcalc/internal/shared/testutil"
	"attendcalc/pkg/contracts/domain"
)

const timetable = "Date,AM,PM\n" +
	"2024-01-08,Data Structures,Data Structures Tutorial\n" +
	"2024-01-09,Networks,Holiday\n" +
	"2024-01-10,Data Structures,Final Exam\n"

type fakeDownloader struct {
	err   error
	write func(path string) error
	calls []string
}

func (f *fakeDownloader) FetchToFile(ctx context.Context, rawURL, path string) error {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return f.err
	}
	return f.write(path)
}

type harness struct {
	dir    string
	file   string
	store  *mapping.Store
	out    *bytes.Buffer
	logs   *testutil.LogCapture
	runner *Runner
}

func newHarness(t *testing.T, input string, dl Downloader, sources []config.Source) *harness {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "timetable.csv")
	require.NoError(t, os.WriteFile(file, []byte(timetable), 0644))

	logger, logs := testutil.NewLogger(t)
	h := &harness{
		dir:   dir,
		file:  file,
		store: mapping.New(filepath.Join(dir, "mappings.json"), logger),
		out:   &bytes.Buffer{},
		logs:  logs,
	}
	h.runner = New(Config{
		In:         strings.NewReader(input),
		Out:        h.out,
		Store:      h.store,
		Downloader: dl,
		Sources:    sources,
		Paths: &config.Paths{
			DownloadsDir: filepath.Join(dir, "downloads"),
			ExportsDir:   filepath.Join(dir, "exports"),
		},
		Policy: domain.DefaultAttendancePolicy(),
		Logger: logger,
	})
	return h
}

func TestRunInteractive(t *testing.T) {
	input := strings.Join([]string{
		"dsa", // Data Structures
		"",    // rejected
		"net", // Networks
		"x",   // not a number
		"5",   // out of range
		"1",   // DSA
		"4",   // more than total
		"1",
	}, "\n") + "\n"
	h := newHarness(t, input, nil, nil)

	result, err := h.runner.Run(context.Background(), Options{File: h.file, Missed: -1})
	require.NoError(t, err)

	assert.Equal(t, "DSA", result.Module)
	assert.Equal(t, 3, result.TotalSessions)
	assert.Equal(t, 1, result.Missed)
	assert.Equal(t, domain.StatusCritical, result.Status)

	r := testutil.AssertLogged(t, h.logs, slog.LevelInfo, "attendance calculated")
	assert.Equal(t, "cli", r.Attrs["component"])
	assert.Equal(t, "DSA", r.Attrs["module"])
	testutil.AssertLogged(t, h.logs, slog.LevelInfo, "mapping recorded")

	code, ok := h.store.Lookup("data structures")
	assert.True(t, ok)
	assert.Equal(t, "DSA", code)
	code, _ = h.store.Lookup("networks")
	assert.Equal(t, "NET", code)

	out := h.out.String()
	for _, want := range []string{
		"Academic Attendance Calculator",
		"Processing columns: Morning, Afternoon",
		"Exam Sessions Found",
		"Final Exam",
		"New session found: 'Data Structures'",
		"Mapped 'Data Structures' -> DSA",
		"Please enter a valid module code",
		"Please enter a valid number",
		"Please enter a number between 1 and 2",
		"Please enter a number between 0 and 3",
		"Regular Lectures: 2",
		"Tutorials/Practicals: 1",
		"Attendance: 66.67%",
		"Status: CRITICAL",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRunNonInteractive(t *testing.T) {
	h := newHarness(t, "", nil, nil)
	require.NoError(t, h.store.Record("data structures", "DSA"))
	require.NoError(t, h.store.Record("networks", "NET"))

	result, err := h.runner.Run(context.Background(), Options{
		File:           h.file,
		Module:         "net",
		Missed:         0,
		NonInteractive: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "NET", result.Module)
	assert.Equal(t, 1, result.TotalSessions)
	assert.Equal(t, domain.StatusGood, result.Status)
	assert.Contains(t, h.out.String(), "Current Module Mappings")
}

func TestRunNonInteractiveSkipsUnmapped(t *testing.T) {
	h := newHarness(t, "", nil, nil)
	require.NoError(t, h.store.Record("data structures", "DSA"))

	result, err := h.runner.Run(context.Background(), Options{
		File: h.file, Module: "DSA", Missed: 0, NonInteractive: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalSessions)
	assert.Contains(t, h.out.String(), "Skipping unmapped session 'Networks'")
	assert.Equal(t, 1, h.store.Len())
}

func TestRunNonInteractiveErrors(t *testing.T) {
	tests := []struct {
		name  string
		opts  func(h *harness) Options
		check func(t *testing.T, err error)
	}{
		{
			name: "missing file",
			opts: func(h *harness) Options {
				return Options{File: filepath.Join(h.dir, "nope.csv"), NonInteractive: true, Missed: -1}
			},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
			},
		},
		{
			name: "no file and no source",
			opts: func(h *harness) Options { return Options{NonInteractive: true, Missed: -1} },
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoSchedule)
			},
		},
		{
			name: "unknown module",
			opts: func(h *harness) Options {
				return Options{File: h.file, Module: "XYZ", NonInteractive: true, Missed: 0}
			},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
			},
		},
		{
			name: "missed out of range",
			opts: func(h *harness) Options {
				return Options{File: h.file, Module: "DSA", NonInteractive: true, Missed: 9}
			},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
			},
		},
		{
			name: "missed not given",
			opts: func(h *harness) Options {
				return Options{File: h.file, Module: "DSA", NonInteractive: true, Missed: -1}
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInputRequired)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "", nil, nil)
			require.NoError(t, h.store.Record("data structures", "DSA"))

			_, err := h.runner.Run(context.Background(), tt.opts(h))

			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRunNoModules(t *testing.T) {
	h := newHarness(t, "", nil, nil)
	path := filepath.Join(h.dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,AM,PM\n2024-01-08,Holiday,Lunch\n"), 0644))

	_, err := h.runner.Run(context.Background(), Options{File: path, NonInteractive: true, Missed: -1})

	assert.ErrorIs(t, err, ErrNoModules)
	assert.Contains(t, h.out.String(), "No modules found in the schedule")
}

func TestRunDownloadsSource(t *testing.T) {
	dl := &fakeDownloader{write: func(path string) error {
		return testutil.WriteXLSX(path, [][]string{
			{"Date", "Morning", "Afternoon"},
			{"2024-01-08", "Networks", "Networks Lab"},
		})
	}}
	sources := []config.Source{
		{Name: "default", URL: "https://example.com/a.xlsx"},
		{Name: "semester2", URL: "https://example.com/b.xlsx"},
	}
	h := newHarness(t, "", dl, sources)
	require.NoError(t, h.store.Record("networks", "NET"))

	result, err := h.runner.Run(context.Background(), Options{
		Source: "semester2", Module: "NET", Missed: 0, NonInteractive: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/b.xlsx"}, dl.calls)
	assert.Equal(t, 2, result.TotalSessions)
	assert.FileExists(t, filepath.Join(h.dir, "downloads", DownloadFileName))
	assert.Contains(t, h.out.String(), "File downloaded successfully")
}

func TestRunDownloadFailureFallsBackToPath(t *testing.T) {
	dl := &fakeDownloader{err: apperrors.NewNetworkError("download failed with HTTP 403", nil)}
	sources := []config.Source{{Name: "default", URL: "https://example.com/a.xlsx"}}

	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.csv")
	h := newHarness(t, "", dl, sources)
	input := strings.Join([]string{
		missing,
		"y",
		`"` + h.file + `"`,
		"dsa",
		"net",
		"2",
		"0",
	}, "\n") + "\n"
	h.runner.cfg.In = strings.NewReader(input)

	result, err := h.runner.Run(context.Background(), Options{Missed: -1})
	require.NoError(t, err)

	assert.Equal(t, "NET", result.Module)
	out := h.out.String()
	assert.Contains(t, out, "Error downloading file")
	assert.Contains(t, out, "File not found: "+missing)
	assert.Contains(t, out, "Using file: "+h.file)

	r := testutil.AssertLogged(t, h.logs, slog.LevelWarn, "schedule download failed")
	assert.Equal(t, "default", r.Attrs["source"])
}

func TestRunDeclineRetry(t *testing.T) {
	h := newHarness(t, "/does/not/exist.csv\nn\n", nil, nil)

	_, err := h.runner.Run(context.Background(), Options{Missed: -1})

	assert.ErrorIs(t, err, ErrNoSchedule)
	assert.Contains(t, h.out.String(), "Exiting program")
}

func TestRunEOFAborts(t *testing.T) {
	h := newHarness(t, "", nil, nil)

	_, err := h.runner.Run(context.Background(), Options{File: h.file, Missed: -1})

	assert.ErrorIs(t, err, ErrAborted)
}

func TestRunContextCancelAborts(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	h := newHarness(t, "", nil, nil)
	h.runner.cfg.In = pr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.runner.Run(ctx, Options{File: h.file, Missed: -1})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrAborted))
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunExport(t *testing.T) {
	h := newHarness(t, "", nil, nil)
	require.NoError(t, h.store.Record("data structures", "DSA"))

	_, err := h.runner.Run(context.Background(), Options{
		File: h.file, Module: "DSA", Missed: 0, Export: true, NonInteractive: true,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(h.dir, "exports", "dsa_sessions.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "DSA,2024-01-10,Morning,Data Structures,Lecture")
}

func TestRunRejectsReservedCode(t *testing.T) {
	h := newHarness(t, "exam\ndsa\nnet\n1\n0\n", nil, nil)

	result, err := h.runner.Run(context.Background(), Options{File: h.file, Missed: -1})
	require.NoError(t, err)

	assert.Equal(t, "DSA", result.Module)
	code, _ := h.store.Lookup("data structures")
	assert.Equal(t, "DSA", code)
}
