package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var ErrNotFound = errors.New("row not found")

// Row is a single record as returned by a backend, keyed by column name.
type Row map[string]any

// Store is the data store collaborator shared by the maintenance tools.
// Implementations must not hold the handle in package state; callers pass it.
type Store interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	Update(ctx context.Context, table, id string, values map[string]any) error
}

type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
)

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter  { return Filter{Column: column, Op: OpEq, Value: value} }
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }

// Query selects Columns from Table where every Filter holds.
// An empty Columns list selects every column.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate rejects table and column names that could not be spliced safely
// into a SQL statement or a PostgREST URL.
func (q Query) Validate() error {
	if err := validIdentifier(q.Table); err != nil {
		return err
	}
	for _, c := range q.Columns {
		if err := validIdentifier(c); err != nil {
			return err
		}
	}
	for _, f := range q.Filters {
		if err := validIdentifier(f.Column); err != nil {
			return err
		}
		switch f.Op {
		case OpEq, OpGte:
		default:
			return fmt.Errorf("unsupported filter operator %q on %s", f.Op, f.Column)
		}
	}
	return nil
}

func validIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

func validUpdate(table, id string, values map[string]any) error {
	if err := validIdentifier(table); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("update %s: empty id", table)
	}
	if len(values) == 0 {
		return fmt.Errorf("update %s: no values", table)
	}
	for col := range values {
		if err := validIdentifier(col); err != nil {
			return err
		}
	}
	return nil
}
