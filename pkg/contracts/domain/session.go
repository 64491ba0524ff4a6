package domain

import "strings"

// SessionLabel is the raw content of one schedule cell.
// A cell that was empty in the source has Present == false.
type SessionLabel struct {
	Text    string `json:"text"`
	Present bool   `json:"present"`
}

// Label wraps a cell value. Blank strings are kept as present labels so that
// whitespace-only cells still flow through normalization.
func Label(text string) SessionLabel {
	return SessionLabel{Text: text, Present: true}
}

// MissingLabel is the label of an empty cell.
func MissingLabel() SessionLabel {
	return SessionLabel{}
}

// String returns the label text, or "" when missing.
func (l SessionLabel) String() string {
	if !l.Present {
		return ""
	}
	return l.Text
}

// IsBlank reports whether the label is missing or contains only whitespace.
func (l SessionLabel) IsBlank() bool {
	return strings.TrimSpace(l.String()) == ""
}

// Category is the outcome of classifying a session label
type Category string

const (
	CategoryExam     Category = "EXAM"
	CategorySkip     Category = "SKIP"
	CategoryModule   Category = "MODULE"
	CategoryUnmapped Category = "UNMAPPED"
)

// ExamCode is the module code reserved for exam sessions.
const ExamCode = "EXAM"

// SessionKind distinguishes regular lectures from tutorials and practicals
type SessionKind string

const (
	KindLecture  SessionKind = "Lecture"
	KindTutorial SessionKind = "Tutorial"
)

// DisplayName returns the wording used in reports.
func (k SessionKind) DisplayName() string {
	if k == KindTutorial {
		return "Tutorial/Practical"
	}
	return "Lecture"
}

// ClassifiedSession is a single schedule cell after classification.
type ClassifiedSession struct {
	Date       string       `json:"date,omitempty"`
	Column     string       `json:"column,omitempty"`
	Label      SessionLabel `json:"label"`
	Normalized string       `json:"normalized"`
	Category   Category     `json:"category"`
	ModuleCode string       `json:"module_code,omitempty"`
	Kind       SessionKind  `json:"kind"`
}

// IsModule reports whether the session resolved to the given module code.
func (s ClassifiedSession) IsModule(code string) bool {
	return s.Category == CategoryModule && s.ModuleCode == code
}

// UnmappedSession is a label that needs a human decision before it can be
// attributed to a module.
type UnmappedSession struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}
