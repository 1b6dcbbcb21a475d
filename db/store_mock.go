package db

import (
	"bookingmaint/model"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu         sync.Mutex
	tables     map[string][]Row
	selectErrs map[string]error // table -> error
	updateErrs map[string]error // row id -> error

	// Capture calls for verification
	selects []Query
	updates []UpdateCall
}

// UpdateCall records one Update invocation, successful or not.
type UpdateCall struct {
	Table  string
	ID     string
	Values map[string]any
}

func NewMockStore() *MockStore {
	return &MockStore{
		tables:     make(map[string][]Row),
		selectErrs: make(map[string]error),
		updateErrs: make(map[string]error),
	}
}

func (m *MockStore) Select(_ context.Context, q Query) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.selects = append(m.selects, q)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := m.selectErrs[q.Table]; err != nil {
		return nil, err
	}

	var out []Row
	for _, row := range m.tables[q.Table] {
		if !matchesAll(row, q.Filters) {
			continue
		}
		out = append(out, project(row, q.Columns))
	}
	return out, nil
}

func (m *MockStore) Update(_ context.Context, table, id string, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	m.updates = append(m.updates, UpdateCall{Table: table, ID: id, Values: copied})

	if err := validUpdate(table, id, values); err != nil {
		return err
	}
	if err := m.updateErrs[id]; err != nil {
		return err
	}
	for _, row := range m.tables[table] {
		if fmt.Sprint(row["id"]) != id {
			continue
		}
		for k, v := range values {
			row[k] = v
		}
		return nil
	}
	return fmt.Errorf("update %s %s: %w", table, id, ErrNotFound)
}

// Test helper methods

// Insert appends rows to table. Rows are stored as given, not copied.
func (m *MockStore) Insert(table string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], rows...)
}

// Rows returns copies of every row in table.
func (m *MockStore) Rows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, 0, len(m.tables[table]))
	for _, r := range m.tables[table] {
		out = append(out, project(r, nil))
	}
	return out
}

// FailSelect makes every Select on table return err.
func (m *MockStore) FailSelect(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectErrs[table] = err
}

// FailUpdate makes every Update of the row with id return err.
func (m *MockStore) FailUpdate(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateErrs[id] = err
}

func (m *MockStore) GetSelects() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query{}, m.selects...)
}

func (m *MockStore) GetUpdates() []UpdateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpdateCall{}, m.updates...)
}

// Reset clears all state
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = make(map[string][]Row)
	m.selectErrs = make(map[string]error)
	m.updateErrs = make(map[string]error)
	m.selects = nil
	m.updates = nil
}

func project(row Row, columns []string) Row {
	out := make(Row, len(row))
	if len(columns) == 0 {
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func matchesAll(row Row, filters []Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok || v == nil {
			return false
		}
		cmp, comparable := compareValues(v, f.Value)
		if !comparable {
			return false
		}
		switch f.Op {
		case OpEq:
			if cmp != 0 {
				return false
			}
		case OpGte:
			if cmp < 0 {
				return false
			}
		}
	}
	return true
}

// compareValues orders a and b as timestamps, then booleans, then numbers,
// falling back to their string forms.
func compareValues(a, b any) (int, bool) {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb), true
		}
	}
	if ba, ok := asBool(a); ok {
		if bb, ok := asBool(b); ok {
			switch {
			case ba == bb:
				return 0, true
			case !ba:
				return -1, true
			default:
				return 1, true
			}
		}
		return 0, false
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)), true
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		ts, err := model.ParseTimestamp(t)
		return ts, err == nil
	}
	return time.Time{}, false
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(t) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}
