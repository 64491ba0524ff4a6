package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendcalc/internal/mapping"
	"attendcalc/pkg/contracts/domain"
)

func newStore(t *testing.T, pairs ...string) *mapping.Store {
	t.Helper()
	require.True(t, len(pairs)%2 == 0, "pairs must be key/code")
	s := mapping.New("", nil)
	for i := 0; i < len(pairs); i += 2 {
		require.NoError(t, s.Record(pairs[i], pairs[i+1]))
	}
	return s
}

type countingObserver struct {
	counts map[domain.Category]int
}

func (o *countingObserver) SessionClassified(c domain.Category) {
	if o.counts == nil {
		o.counts = make(map[domain.Category]int)
	}
	o.counts[c]++
}

func TestClassify(t *testing.T) {
	store := newStore(t,
		"data structures", "DSA",
		"networks", "NET",
	)

	tests := []struct {
		name     string
		label    domain.SessionLabel
		category domain.Category
		code     string
		kind     domain.SessionKind
	}{
		{"exact match", domain.Label("Data Structures"), domain.CategoryModule, "DSA", domain.KindLecture},
		{"tutorial with instructor", domain.Label("Data Structures - Tutorial - Dr. Perera"), domain.CategoryModule, "DSA", domain.KindTutorial},
		{"lab", domain.Label("Networks Lab"), domain.CategoryModule, "NET", domain.KindTutorial},
		{"exam keyword", domain.Label("Data Structures Exam"), domain.CategoryExam, domain.ExamCode, domain.KindLecture},
		{"coursework", domain.Label("Networks CW submission"), domain.CategoryExam, domain.ExamCode, domain.KindLecture},
		{"viva", domain.Label("Project VIVA"), domain.CategoryExam, domain.ExamCode, domain.KindLecture},
		{"holiday", domain.Label("Holiday"), domain.CategorySkip, "", domain.KindLecture},
		{"lunch with spaces", domain.Label("  LUNCH "), domain.CategorySkip, "", domain.KindLecture},
		{"nan text", domain.Label("nan"), domain.CategorySkip, "", domain.KindLecture},
		{"missing", domain.MissingLabel(), domain.CategorySkip, "", domain.KindLecture},
		{"whitespace only", domain.Label("   "), domain.CategorySkip, "", domain.KindLecture},
		{"unknown", domain.Label("Quantum Basket Weaving"), domain.CategoryUnmapped, "", domain.KindLecture},
	}

	c := New(store)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.label)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.code, got.ModuleCode)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.label, got.Label)
		})
	}
}

func TestExamWinsOverMapping(t *testing.T) {
	store := newStore(t, "data structures exam", "DSA")

	got := New(store).ClassifyText("Data Structures Exam")

	assert.Equal(t, domain.CategoryExam, got.Category)
	assert.Equal(t, domain.ExamCode, got.ModuleCode)
}

func TestRecordThenClassify(t *testing.T) {
	store := newStore(t)
	c := New(store)

	before := c.ClassifyText("Algorithms - Tutorial")
	require.Equal(t, domain.CategoryUnmapped, before.Category)
	assert.Equal(t, "Algorithms", before.Normalized)

	require.NoError(t, store.Record(before.Normalized, "ALG"))

	after := c.ClassifyText("Algorithms - Tutorial")
	assert.Equal(t, domain.CategoryModule, after.Category)
	assert.Equal(t, "ALG", after.ModuleCode)
}

func TestSubstringFallback(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
		label string
		code  string
	}{
		{"stored key inside label", []string{"data structures", "DSA"}, "Advanced Data Structures II", "DSA"},
		{"label inside stored key", []string{"intro to data structures", "DSA"}, "data structures", "DSA"},
		{"first inserted wins", []string{"data", "D1", "data structures", "D2"}, "data structures and algorithms", "D1"},
		{"first inserted wins reversed", []string{"data structures", "D2", "data", "D1"}, "data structures and algorithms", "D2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(newStore(t, tt.pairs...)).ClassifyText(tt.label)
			assert.Equal(t, domain.CategoryModule, got.Category)
			assert.Equal(t, tt.code, got.ModuleCode)
		})
	}
}

type staticMappings []domain.MappingEntry

func (m staticMappings) Lookup(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Code, true
		}
	}
	return "", false
}

func (m staticMappings) Scan(fn func(key, code string) bool) {
	for _, e := range m {
		if !fn(e.Key, e.Code) {
			return
		}
	}
}

func TestHandEditedExamEntries(t *testing.T) {
	m := staticMappings{
		{Key: "finals week", Code: domain.ExamCode},
		{Key: "week", Code: "WK"},
	}
	c := New(m)

	exact := c.ClassifyText("Finals Week")
	assert.Equal(t, domain.CategoryExam, exact.Category)
	assert.Equal(t, domain.ExamCode, exact.ModuleCode)

	fallback := c.ClassifyText("finals week review")
	assert.Equal(t, domain.CategoryModule, fallback.Category)
	assert.Equal(t, "WK", fallback.ModuleCode)
}

func TestIgnoreSpaces(t *testing.T) {
	store := newStore(t, "data structures", "DSA")

	assert.Equal(t, domain.CategoryUnmapped, New(store).ClassifyText("DataStructures").Category)

	got := New(store, WithIgnoreSpaces(true)).ClassifyText("DataStructures")
	assert.Equal(t, domain.CategoryModule, got.Category)
	assert.Equal(t, "DSA", got.ModuleCode)
}

func TestClassifyCellKeepsPosition(t *testing.T) {
	c := New(newStore(t, "networks", "NET"))

	got := c.ClassifyCell("2024-01-08", "Morning", domain.Label("Networks"))

	assert.Equal(t, "2024-01-08", got.Date)
	assert.Equal(t, "Morning", got.Column)
	assert.True(t, got.IsModule("NET"))
}

func TestObserver(t *testing.T) {
	obs := &countingObserver{}
	c := New(newStore(t, "networks", "NET"), WithObserver(obs))

	c.ClassifyText("Networks")
	c.ClassifyText("Networks Lab")
	c.ClassifyText("Holiday")
	c.ClassifyText("Mystery")
	c.ClassifyText("Exam")

	assert.Equal(t, 2, obs.counts[domain.CategoryModule])
	assert.Equal(t, 1, obs.counts[domain.CategorySkip])
	assert.Equal(t, 1, obs.counts[domain.CategoryUnmapped])
	assert.Equal(t, 1, obs.counts[domain.CategoryExam])
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, domain.KindTutorial, KindOf("Physics PRAC"))
	assert.Equal(t, domain.KindTutorial, KindOf("Chem tute"))
	assert.Equal(t, domain.KindLecture, KindOf("Chemistry"))
	assert.Equal(t, "Tutorial/Practical", domain.KindTutorial.DisplayName())
}
