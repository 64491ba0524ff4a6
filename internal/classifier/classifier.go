// Package classifier decides what a schedule cell represents: an exam, a
// non-academic placeholder, a session of a known module, or a label nobody
// has mapped yet.
//
// The classifier never asks for input. Labels it cannot resolve come back
// as CategoryUnmapped and the caller decides how to obtain a module code,
// typically recording it in the mapping store and classifying again.
package classifier

import (
	"strings"

	"attendcalc/internal/normalize"
	"attendcalc/pkg/contracts/domain"
)

var (
	examKeywords = []string{"examination", "exam", "coursework", "viva", "cw", "course work"}

	tutorialKeywords = []string{"tutorial", "practical", "tute", "prac", "lab"}

	placeholders = map[string]struct{}{
		"inauguration": {},
		"holiday":      {},
		"break":        {},
		"lunch":        {},
		"nan":          {},
	}
)

// Mappings is the read side of the mapping store.
type Mappings interface {
	Lookup(key string) (string, bool)
	// Scan visits mappings in insertion order until fn returns false.
	Scan(fn func(key, code string) bool)
}

// Observer is notified of every classification.
type Observer interface {
	SessionClassified(category domain.Category)
}

// Option configures a Classifier
type Option func(*Classifier)

// WithIgnoreSpaces additionally matches a stored key whose space-free form
// equals the label's space-free form, so "datastructures" and
// "data structures" resolve to the same code.
func WithIgnoreSpaces(enabled bool) Option {
	return func(c *Classifier) {
		c.ignoreSpaces = enabled
	}
}

// WithObserver reports each classification result to o.
func WithObserver(o Observer) Option {
	return func(c *Classifier) {
		c.observer = o
	}
}

// Classifier resolves session labels against a mapping table.
type Classifier struct {
	mappings     Mappings
	ignoreSpaces bool
	observer     Observer
}

// New returns a classifier reading from m.
func New(m Mappings, opts ...Option) *Classifier {
	c := &Classifier{mappings: m}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify resolves a single label. Date and Column are left empty; use
// ClassifyCell when the position matters.
func (c *Classifier) Classify(label domain.SessionLabel) domain.ClassifiedSession {
	result := domain.ClassifiedSession{
		Label: label,
		Kind:  KindOf(label.String()),
	}
	result.Category, result.ModuleCode, result.Normalized = c.resolve(label)

	if c.observer != nil {
		c.observer.SessionClassified(result.Category)
	}
	return result
}

// ClassifyCell classifies a label and records where it came from.
func (c *Classifier) ClassifyCell(date, column string, label domain.SessionLabel) domain.ClassifiedSession {
	result := c.Classify(label)
	result.Date = date
	result.Column = column
	return result
}

// ClassifyText is a convenience wrapper for a present label.
func (c *Classifier) ClassifyText(text string) domain.ClassifiedSession {
	return c.Classify(domain.Label(text))
}

func (c *Classifier) resolve(label domain.SessionLabel) (domain.Category, string, string) {
	if IsExam(label.String()) {
		return domain.CategoryExam, domain.ExamCode, normalize.Label(label)
	}

	normalized := normalize.Label(label)
	key := strings.ToLower(normalized)
	if IsPlaceholder(key) {
		return domain.CategorySkip, "", normalized
	}

	if code, ok := c.mappings.Lookup(key); ok {
		if code == domain.ExamCode {
			return domain.CategoryExam, code, normalized
		}
		return domain.CategoryModule, code, normalized
	}

	if code, ok := c.fallback(key); ok {
		return domain.CategoryModule, code, normalized
	}
	return domain.CategoryUnmapped, "", normalized
}

// fallback scans stored keys in insertion order; the first key that contains
// or is contained in the label wins. EXAM entries never match here. The scan
// is linear in the number of mappings.
func (c *Classifier) fallback(key string) (string, bool) {
	var (
		found   string
		matched bool
	)
	compact := strings.ReplaceAll(key, " ", "")

	c.mappings.Scan(func(stored, code string) bool {
		if code == domain.ExamCode {
			return true
		}
		storedLower := strings.ToLower(stored)
		if strings.Contains(key, storedLower) || strings.Contains(storedLower, key) ||
			(c.ignoreSpaces && strings.ReplaceAll(storedLower, " ", "") == compact) {
			found, matched = code, true
			return false
		}
		return true
	})
	return found, matched
}

// IsExam reports whether the raw label names an exam, coursework or viva.
// The check runs on the raw text, before normalization.
func IsExam(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range examKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether a lowercase normalized key is empty or a
// non-academic slot such as a holiday or lunch break.
func IsPlaceholder(key string) bool {
	if key == "" {
		return true
	}
	_, ok := placeholders[key]
	return ok
}

// KindOf returns Tutorial when the label mentions a tutorial, practical or
// lab, and Lecture otherwise.
func KindOf(text string) domain.SessionKind {
	lower := strings.ToLower(text)
	for _, kw := range tutorialKeywords {
		if strings.Contains(lower, kw) {
			return domain.KindTutorial
		}
	}
	return domain.KindLecture
}
