package client

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// List holds the records of one page. It is refreshed with Load and kept in
// step with the server by applying each successful create, update or delete
// locally. Nothing is persisted.
type List[T any] struct {
	mu    sync.RWMutex
	items []T
	id    func(T) string
}

// NewList creates an empty list keyed by id.
func NewList[T any](id func(T) string) *List[T] {
	return &List[T]{id: id}
}

// Load replaces the items with what fetch returns. On error the current
// items are kept.
func (l *List[T]) Load(ctx context.Context, fetch func(context.Context) ([]T, error)) error {
	items, err := fetch(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	return nil
}

// Create sends item and appends the server's copy.
func (l *List[T]) Create(ctx context.Context, item T, create func(context.Context, T) (T, error)) (T, error) {
	out, err := create(ctx, item)
	if err != nil {
		return out, err
	}
	l.mu.Lock()
	l.items = append(l.items, out)
	l.mu.Unlock()
	return out, nil
}

// Update sends item and replaces the local record with the server's copy.
func (l *List[T]) Update(ctx context.Context, id string, item T, update func(context.Context, string, T) (T, error)) (T, error) {
	out, err := update(ctx, id, item)
	if err != nil {
		return out, err
	}
	l.mu.Lock()
	if i := l.indexOf(id); i >= 0 {
		l.items[i] = out
	} else {
		l.items = append(l.items, out)
	}
	l.mu.Unlock()
	return out, nil
}

// Delete removes the record on the server, then locally.
func (l *List[T]) Delete(ctx context.Context, id string, del func(context.Context, string) (Message, error)) (Message, error) {
	msg, err := del(ctx, id)
	if err != nil {
		return msg, err
	}
	l.mu.Lock()
	if i := l.indexOf(id); i >= 0 {
		l.items = slices.Delete(l.items, i, i+1)
	}
	l.mu.Unlock()
	return msg, nil
}

// indexOf must be called with mu held.
func (l *List[T]) indexOf(id string) int {
	return slices.IndexFunc(l.items, func(item T) bool { return l.id(item) == id })
}

// Items returns a copy of the current records.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Find returns the record with the given id.
func (l *List[T]) Find(id string) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(id); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Filter returns the records for which keep is true.
func (l *List[T]) Filter(keep func(T) bool) []T {
	return Filter(l.Items(), keep)
}

// Search returns the records where any field contains term, ignoring case.
// An empty term matches everything.
func (l *List[T]) Search(term string, fields ...func(T) string) []T {
	return Search(l.Items(), term, fields...)
}

// Filter returns the items for which keep is true.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Search returns the items where any field contains term, ignoring case.
func Search[T any](items []T, term string, fields ...func(T) string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return slices.Clone(items)
	}
	return Filter(items, func(item T) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f(item)), term) {
				return true
			}
		}
		return false
	})
}

// SortBy returns a sorted copy. The sort is stable, so equal items keep
// their order in both directions.
func SortBy[T any](items []T, less func(a, b T) bool, descending bool) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		if descending {
			a, b = b, a
		}
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
	return out
}

// Page returns page n (1-based) of size items and the number of pages. Out
// of range pages are empty.
func Page[T any](items []T, n, size int) ([]T, int) {
	if size <= 0 {
		return slices.Clone(items), 1
	}
	pages := (len(items) + size - 1) / size
	if n < 1 || n > pages {
		return []T{}, pages
	}
	start := (n - 1) * size
	end := min(start+size, len(items))
	return slices.Clone(items[start:end]), pages
}
