// Package normalize turns free-text schedule cells into stable mapping keys.
//
// A raw label such as "Data Structures - Tutorial - Dr. Perera" is reduced to
// "Data Structures": instructor names, session-type qualifiers, trailing
// dashes and redundant whitespace are removed. The result keeps its natural
// case; lookups use Key, which lowercases it.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"attendcalc/pkg/contracts/domain"
)

var (
	instructorDashed = regexp.MustCompile(`(?i)\s*-\s*(Ms|Mr|Dr|Prof|Professor)\.?\s+[A-Z][a-z]+.*$`)
	instructorSpaced = regexp.MustCompile(`(?i)\s+(Ms|Mr|Dr|Prof|Professor)\.?\s+[A-Z][a-z]+.*$`)

	qualifierDashed = regexp.MustCompile(`(?i)\s*-\s*(tutorial|practical|tute|prac|lab)\s*$`)
	qualifierSpaced = regexp.MustCompile(`(?i)\s+(tutorial|practical|tute|prac|lab)\s*$`)

	trailingDash = regexp.MustCompile(`\s*-\s*$`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Normalize strips instructor names, tutorial/practical qualifiers and
// whitespace noise from a session label.
//
// The stripping pass is repeated until nothing changes, so
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	out := strings.TrimSpace(norm.NFKC.String(text))
	for {
		next := strip(out)
		if next == out {
			return out
		}
		out = next
	}
}

// Label normalizes a schedule cell; missing cells yield "".
func Label(l domain.SessionLabel) string {
	if !l.Present {
		return ""
	}
	return Normalize(l.Text)
}

// Key returns the lowercase lookup key for text.
func Key(text string) string {
	return strings.ToLower(Normalize(text))
}

func strip(s string) string {
	s = instructorDashed.ReplaceAllString(s, "")
	s = instructorSpaced.ReplaceAllString(s, "")
	s = qualifierDashed.ReplaceAllString(s, "")
	s = qualifierSpaced.ReplaceAllString(s, "")
	s = trailingDash.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
