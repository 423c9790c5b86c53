// Package store is the tabular data store client: projected selects with
// equality/IN filters, ordering, offset+limit ranges and exact counts over
// named tables or views.
package store

import (
	"context"
)

// Row is one record keyed by column name. Values are whatever the backend
// decoded: int64, float64, string, bool, time.Time or nil.
type Row map[string]interface{}

type Operator string

const (
	OpEq Operator = "eq"
	OpIn Operator = "in"
)

type Filter struct {
	Column string
	Op     Operator
	Value  interface{}
}

// Eq is a convenience constructor for Delete filters.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

type Order struct {
	Column     string
	Descending bool
}

// Query describes one select. Builder methods return modified copies so a
// base query can be shared.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Orders  []Order
	Offset  int
	Limit   int // negative means unlimited
	Count   bool
}

func From(table string) Query {
	return Query{Table: table, Limit: -1}
}

func (q Query) clone() Query {
	c := q
	c.Columns = append([]string(nil), q.Columns...)
	c.Filters = append([]Filter(nil), q.Filters...)
	c.Orders = append([]Order(nil), q.Orders...)
	return c
}

func (q Query) Select(columns ...string) Query {
	c := q.clone()
	c.Columns = append(c.Columns, columns...)
	return c
}

func (q Query) Eq(column string, value interface{}) Query {
	c := q.clone()
	c.Filters = append(c.Filters, Filter{Column: column, Op: OpEq, Value: value})
	return c
}

func (q Query) In(column string, values []string) Query {
	c := q.clone()
	c.Filters = append(c.Filters, Filter{Column: column, Op: OpIn, Value: append([]string(nil), values...)})
	return c
}

func (q Query) Order(column string, descending bool) Query {
	c := q.clone()
	c.Orders = append(c.Orders, Order{Column: column, Descending: descending})
	return c
}

// Range selects rows from..to inclusive, zero based.
func (q Query) Range(from, to int) Query {
	c := q.clone()
	if from < 0 {
		from = 0
	}
	c.Offset = from
	c.Limit = to - from + 1
	if c.Limit < 0 {
		c.Limit = 0
	}
	return c
}

func (q Query) WithLimit(n int) Query {
	c := q.clone()
	c.Limit = n
	return c
}

func (q Query) WithCount() Query {
	c := q.clone()
	c.Count = true
	return c
}

// emptyIn reports whether an IN filter has no candidates, which can never
// match.
func (q Query) emptyIn() bool {
	for _, f := range q.Filters {
		if f.Op == OpIn {
			if vals, ok := f.Value.([]string); ok && len(vals) == 0 {
				return true
			}
		}
	}
	return false
}

type Result struct {
	Rows  []Row
	Count *int64
}

type Store interface {
	Select(ctx context.Context, q Query) (*Result, error)
	Insert(ctx context.Context, table string, values Row, returning ...string) (Row, error)
	Delete(ctx context.Context, table string, filters ...Filter) (int64, error)
}
