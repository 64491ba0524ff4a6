// Package mapping holds the learned session-label to module-code table.
//
// The table lives in a flat JSON object on disk. Keys are lowercase
// normalized session labels, values are module codes. Entry order is the
// order the mappings were learned and decides ties in fallback matching, so
// the file is read and written without losing that order.
package mapping

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	apperrors "attendcalc/internal/errors"
	"attendcalc/pkg/contracts/domain"
)

var (
	// ErrEmptyKey is returned when recording a mapping without a label.
	ErrEmptyKey = errors.New("mapping key is empty")
	// ErrEmptyCode is returned when recording a mapping without a module code.
	ErrEmptyCode = errors.New("module code is empty")
	// ErrReservedCode is returned when recording the reserved exam code.
	ErrReservedCode = errors.New("module code EXAM is reserved")
)

// Store is an ordered, file-backed mapping table. It is safe for concurrent
// use within one process; separate processes writing the same file race.
type Store struct {
	mu     sync.RWMutex
	path   string
	keys   []string
	codes  map[string]string
	logger *slog.Logger
}

// New returns an empty store that persists to path. An empty path keeps the
// store in memory only.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		codes:  make(map[string]string),
		logger: logger.With(slog.String("component", "mapping_store")),
	}
}

// Load reads the mapping file at path. It never fails: a missing or
// unreadable file yields an empty store and a warning.
func Load(path string, logger *slog.Logger) *Store {
	s := New(path, logger)
	if path == "" {
		return s
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("mapping file unreadable, starting empty",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return s
	}

	entries, err := decode(data)
	if err != nil {
		s.logger.Warn("mapping file corrupt, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return s
	}

	for _, e := range entries {
		if strings.TrimSpace(e.Key) == "" || strings.TrimSpace(e.Code) == "" {
			s.logger.Warn("skipping empty mapping entry",
				slog.String("key", e.Key),
				slog.String("code", e.Code))
			continue
		}
		s.put(e.Key, e.Code)
	}
	s.logger.Info("mappings loaded",
		slog.String("path", path),
		slog.Int("count", len(s.keys)))
	return s
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of mappings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Lookup returns the code stored under key.
func (s *Store) Lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.codes[key]
	return code, ok
}

// Entries returns all mappings in insertion order.
func (s *Store) Entries() []domain.MappingEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MappingEntry, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, domain.MappingEntry{Key: k, Code: s.codes[k]})
	}
	return out
}

// Codes returns the distinct module codes, sorted, without EXAM.
func (s *Store) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, code := range s.codes {
		if code == domain.ExamCode {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Grouped returns the stored keys grouped by module code, each group sorted.
func (s *Store) Grouped() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string)
	for _, k := range s.keys {
		code := s.codes[k]
		out[code] = append(out[code], k)
	}
	for code := range out {
		sort.Strings(out[code])
	}
	return out
}

// Record maps key to code and persists the whole table. Overwriting an
// existing key keeps its original position. If persisting fails the
// in-memory table is left unchanged.
func (s *Store) Record(key, code string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	code = strings.ToUpper(strings.TrimSpace(code))
	switch {
	case key == "":
		return apperrors.NewValidationError("invalid mapping", ErrEmptyKey)
	case code == "":
		return apperrors.NewValidationError("invalid mapping", ErrEmptyCode)
	case strings.EqualFold(code, domain.ExamCode):
		return apperrors.NewValidationError("invalid mapping", ErrReservedCode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.codes[key]
	s.put(key, code)

	if err := s.persist(); err != nil {
		if existed {
			s.codes[key] = prev
		} else {
			delete(s.codes, key)
			s.keys = s.keys[:len(s.keys)-1]
		}
		return err
	}

	s.logger.Info("mapping recorded",
		slog.String("key", key),
		slog.String("code", code),
		slog.Bool("overwrite", existed))
	return nil
}

// Scan calls fn for each mapping in insertion order until fn returns false.
// fn must not call back into the store.
func (s *Store) Scan(fn func(key, code string) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if !fn(k, s.codes[k]) {
			return
		}
	}
}

// put stores the canonical form of a mapping: lowercase key and uppercase
// code, whether it came from Record or from a hand-edited file.
func (s *Store) put(key, code string) {
	key = strings.ToLower(strings.TrimSpace(key))
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := s.codes[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.codes[key] = code
}

func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	entries := make([]domain.MappingEntry, 0, len(s.keys))
	for _, k := range s.keys {
		entries = append(entries, domain.MappingEntry{Key: k, Code: s.codes[k]})
	}
	data, err := encode(entries)
	if err != nil {
		return apperrors.NewStorageError("encode mappings", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write mappings to %s", s.path), err)
	}
	return nil
}
