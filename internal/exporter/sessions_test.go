package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendcalc/internal/config"
	"attendcalc/pkg/contracts/domain"
)

var days = []domain.DayDetail{
	{
		Date: "2024-01-08",
		Sessions: []domain.SessionDetail{
			{Column: "Morning", TimeSlot: "Morning", Text: "Data Structures", Kind: domain.KindLecture},
			{Column: "Afternoon", TimeSlot: "Afternoon", Text: " Data Structures, Lab ", Kind: domain.KindTutorial},
		},
	},
	{
		Date: "2024-01-09",
		Sessions: []domain.SessionDetail{
			{Column: "Extra_0", TimeSlot: "Extra 0", Text: "Data Structures", Kind: domain.KindLecture},
		},
	},
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, bom), "export starts with a BOM")
	records, err := csv.NewReader(bytes.NewReader(data[len(bom):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteSessions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSessions(&buf, "DSA", days))

	records := readCSV(t, buf.Bytes())
	assert.Equal(t, [][]string{
		SessionHeaders,
		{"DSA", "2024-01-08", "Morning", "Data Structures", "Lecture"},
		{"DSA", "2024-01-08", "Afternoon", "Data Structures, Lab", "Tutorial/Practical"},
		{"DSA", "2024-01-09", "Extra 0", "Data Structures", "Lecture"},
	}, records)
}

func TestWriteSessionsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSessions(&buf, "DSA", nil))
	assert.Equal(t, [][]string{SessionHeaders}, readCSV(t, buf.Bytes()))
}

func TestExportSessions(t *testing.T) {
	exports := filepath.Join(t.TempDir(), "exports")
	w := NewCSVWriter(&config.Paths{ExportsDir: exports})

	path, err := w.ExportSessions("DSA", days)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(exports, "dsa_sessions.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 4)

	// A second export replaces the first.
	_, err = w.ExportSessions("DSA", days[:1])
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 3)
}

func TestWriteCSVAbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	got, err := NewCSVWriter(nil).WriteCSV(path, WriteOptions{Headers: []string{"a"}, Records: [][]string{{"1"}}})
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))
}
