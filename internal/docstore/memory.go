package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. Documents are deep-copied on the way in and
// out, so callers never share maps with the store.
type Memory struct {
	mu   sync.RWMutex
	cols map[string]map[string]map[string]any
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{cols: map[string]map[string]map[string]any{}, now: time.Now}
}

// WithClock replaces the time source used for ServerTimestamp.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.cols[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: copyMap(data)}, nil
}

func (m *Memory) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, f := range q.Filters {
		if !validOp(f.Op) {
			return nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
		}
	}
	m.mu.RLock()
	out := make([]Document, 0, len(m.cols[collection]))
	for id, data := range m.cols[collection] {
		ok := true
		for _, f := range q.Filters {
			if !matches(data, f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, Document{ID: id, Data: copyMap(data)})
		}
	}
	m.mu.RUnlock()

	sortDocs(out, q.OrderBy)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.cols[collection]
	if !ok {
		col = map[string]map[string]any{}
		m.cols[collection] = col
	}
	col[id] = m.stamp(data)
	return nil
}

func (m *Memory) Create(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.cols[collection]
	if !ok {
		col = map[string]map[string]any{}
		m.cols[collection] = col
	}
	if _, taken := col[id]; taken {
		return ErrAlreadyExists
	}
	col[id] = m.stamp(data)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.cols[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range m.stamp(fields) {
		cur[k] = v
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.cols[collection], id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

// stamp copies data and resolves ServerTimestamp values.
func (m *Memory) stamp(data map[string]any) map[string]any {
	out := copyMap(data)
	for k, v := range out {
		if v == ServerTimestamp {
			out[k] = m.now().UTC()
		}
	}
	return out
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return copyMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	}
	return v
}
