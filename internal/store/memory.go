package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/estudorank/estudorank/internal/errors"
)

// ErrRelationNotFound is returned for tables that were never created.
var ErrRelationNotFound = stderrors.New("relation does not exist")

// MemoryStore is an in-process Store. Tables have no schema; a selected
// column that a row lacks reads as nil. Ordering matches the SQL that
// PostgresStore renders: NULLs sort last in either direction.
type MemoryStore struct {
	mu       sync.RWMutex
	tables   map[string][]Row
	failures map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:   make(map[string][]Row),
		failures: make(map[string]error),
	}
}

// CreateTable creates (or replaces) a table holding rows.
func (m *MemoryStore) CreateTable(name string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]Row, len(rows))
	for i, r := range rows {
		copied[i] = copyRow(r)
	}
	m.tables[name] = copied
}

func (m *MemoryStore) DropTable(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, name)
}

// Fail makes every later operation on table return err. A nil err clears it.
func (m *MemoryStore) Fail(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, table)
		return
	}
	m.failures[table] = err
}

// Rows returns a copy of the table contents.
func (m *MemoryStore) Rows(table string) []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Row, len(m.tables[table]))
	for i, r := range m.tables[table] {
		out[i] = copyRow(r)
	}
	return out
}

func (m *MemoryStore) table(op, name string) ([]Row, error) {
	if err, ok := m.failures[name]; ok {
		return nil, &errors.DatabaseError{Operation: op + " " + name, Err: err}
	}
	rows, ok := m.tables[name]
	if !ok {
		return nil, &errors.DatabaseError{Operation: op + " " + name, Err: ErrRelationNotFound}
	}
	return rows, nil
}

func (m *MemoryStore) Select(ctx context.Context, q Query) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.table("select", q.Table)
	if err != nil {
		return nil, err
	}

	matched := make([]Row, 0, len(rows))
	for _, r := range rows {
		if matches(r, q.Filters) {
			matched = append(matched, r)
		}
	}

	if len(q.Orders) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Orders {
				a, b := matched[i][o.Column], matched[j][o.Column]
				if (a == nil) != (b == nil) {
					// NULLS LAST in both directions, as PostgresStore renders it
					return b == nil
				}
				c := compareValues(a, b)
				if c == 0 {
					continue
				}
				if o.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	result := &Result{Rows: []Row{}}
	if q.Count {
		n := int64(len(matched))
		result.Count = &n
	}

	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit >= 0 && q.Limit < end-start {
		end = start + q.Limit
	}

	for _, r := range matched[start:end] {
		result.Rows = append(result.Rows, project(r, q.Columns))
	}
	return result, nil
}

func (m *MemoryStore) Insert(ctx context.Context, table string, values Row, returning ...string) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table("insert", table)
	if err != nil {
		return nil, err
	}
	row := copyRow(values)
	m.tables[table] = append(rows, row)

	if len(returning) == 0 {
		return copyRow(row), nil
	}
	return project(row, returning), nil
}

func (m *MemoryStore) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, &errors.ValidationError{Field: "filters", Message: "refusing to delete without a filter"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table("delete", table)
	if err != nil {
		return 0, err
	}
	kept := rows[:0:0]
	var deleted int64
	for _, r := range rows {
		if matches(r, filters) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept
	return deleted, nil
}

func copyRow(r Row) Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func project(r Row, columns []string) Row {
	if len(columns) == 0 {
		return copyRow(r)
	}
	out := make(Row, len(columns))
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}

func matches(r Row, filters []Filter) bool {
	for _, f := range filters {
		v := r[f.Column]
		switch f.Op {
		case OpEq:
			if v == nil || f.Value == nil || compareValues(v, f.Value) != 0 {
				return false
			}
		case OpIn:
			vals, _ := f.Value.([]string)
			if v == nil {
				return false
			}
			found := false
			for _, candidate := range vals {
				if fmt.Sprint(v) == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compareValues orders nil after everything, numbers numerically (NaN above
// other numbers, as in Postgres) and anything else by its string form.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		nanA, nanB := math.IsNaN(fa), math.IsNaN(fb)
		switch {
		case nanA && nanB:
			return 0
		case nanA:
			return 1
		case nanB:
			return -1
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
