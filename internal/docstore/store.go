// Package docstore is a small document-database abstraction: collections of
// schemaless documents addressed by id, with filtered/ordered queries.
// Three backends implement Store: Firestore, MySQL (JSON column) and memory.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Update when the document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrAlreadyExists is returned by Create when the id is taken.
var ErrAlreadyExists = errors.New("document already exists")

// ErrInvalidQuery is returned when a filter or order cannot be compiled.
var ErrInvalidQuery = errors.New("invalid query")

// Document is a stored record with its id.
type Document struct {
	ID   string
	Data map[string]any
}

// Op is a filter operator.
type Op string

const (
	OpEq               Op = "=="
	OpNe               Op = "!="
	OpLt               Op = "<"
	OpLte              Op = "<="
	OpGt               Op = ">"
	OpGte              Op = ">="
	OpIn               Op = "in"
	OpArrayContains    Op = "array-contains"
	OpArrayContainsAny Op = "array-contains-any"
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Order struct {
	Field string
	Dir   Direction
}

// Query describes a collection query. A zero Query scans the whole collection.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
}

// Where returns a copy of q with one more filter.
func (q Query) Where(field string, op Op, v any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: v})
	return q
}

// Order returns a copy of q with one more ordering.
func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = append(append([]Order(nil), q.OrderBy...), Order{Field: field, Dir: dir})
	return q
}

// Take returns a copy of q limited to n documents.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

type serverTimestamp struct{}

// ServerTimestamp may be used as a field value on writes; the backend replaces
// it with its own current time.
var ServerTimestamp any = serverTimestamp{}

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Add inserts data under a generated id and returns it.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Create inserts data under id, failing with ErrAlreadyExists if the
	// document exists. The check and the write are atomic.
	Create(ctx context.Context, collection, id string, data map[string]any) error
	// Set creates or fully replaces the document.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

func validOp(op Op) bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpArrayContains, OpArrayContainsAny:
		return true
	}
	return false
}
