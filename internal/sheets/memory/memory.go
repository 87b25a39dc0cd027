package memory

import (
	"context"
	"fmt"
	"sync"

	ports "rentdesk/internal/sheets"
)

type tab struct {
	header []string
	ids    []string
	rows   map[string]ports.Row
}

// Store is an in-process RecordMirror. The worker falls back to it when no
// spreadsheet is configured, and tests use it to inspect what was mirrored.
type Store struct {
	mu   sync.Mutex
	tabs map[string]*tab
}

var _ ports.RecordMirror = (*Store)(nil)

func New() *Store {
	return &Store{tabs: map[string]*tab{}}
}

func (s *Store) UpsertRecord(_ context.Context, name, id string, header []string, row ports.Row) (string, error) {
	if id == "" {
		return "", fmt.Errorf("upsert into %s: empty id", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tabs[name]
	if !ok {
		t = &tab{header: append([]string(nil), header...), rows: map[string]ports.Row{}}
		s.tabs[name] = t
	}
	if _, exists := t.rows[id]; !exists {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = append(ports.Row(nil), row...)

	for i, v := range t.ids {
		if v == id {
			// Row 1 holds the header
			return fmt.Sprintf("mem:%s:%d", name, i+2), nil
		}
	}
	return "", fmt.Errorf("upsert into %s: lost row %s", name, id)
}

func (s *Store) DeleteRecord(_ context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tabs[name]
	if !ok {
		return nil
	}
	if _, exists := t.rows[id]; !exists {
		return nil
	}
	delete(t.rows, id)
	for i, v := range t.ids {
		if v == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns a copy of the rows of a tab in insertion order.
func (s *Store) Rows(name string) []ports.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[name]
	if !ok {
		return nil
	}
	out := make([]ports.Row, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, append(ports.Row(nil), t.rows[id]...))
	}
	return out
}

// Header returns the header a tab was created with.
func (s *Store) Header(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tabs[name]; ok {
		return append([]string(nil), t.header...)
	}
	return nil
}
