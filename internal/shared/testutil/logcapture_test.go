package testutil

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLogCaptureSharesSink(t *testing.T) {
	logger, capture := NewLogger(t)
	child := logger.With(slog.String("component", "cli"))

	logger.Info("first")
	child.Warn("schedule load failed", slog.String("path", "a.csv"))

	records := capture.Records()
	require.Len(t, records, 2)

	r := AssertLogged(t, capture, slog.LevelWarn, "load failed")
	assert.Equal(t, "cli", r.Attrs["component"])
	assert.Equal(t, "a.csv", r.Attrs["path"])

	_, ok := capture.Find(slog.LevelError, "first")
	assert.False(t, ok)
	AssertNoErrors(t, capture)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "t.xlsx")
	require.NoError(t, WriteXLSX(path, [][]string{{"Date", "AM", "PM"}, {"2024-01-08", "Networks", ""}}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, "Networks", rows[1][1])
}
