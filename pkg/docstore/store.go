// Package docstore is the narrow document persistence layer shared by the user
// and post services. Documents are addressed by collection name and matched with
// simple equality filters; every backend treats the field "id" as the document
// identifier.
package docstore

import (
	"context"
	"errors"
)

// Collection names used by the services.
const (
	Users = "users"
	Posts = "posts"
)

// FieldID is the logical identifier field in every backend.
const FieldID = "id"

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Record is a document that carries its own identifier. InsertOne assigns the
// identifier through SetID before the document is written.
type Record interface {
	GetID() string
	SetID(id string)
}

// Cond matches documents whose Field equals Value.
type Cond struct {
	Field string
	Value any
}

// Filter selects documents matching every condition in All and, when Any is
// non-empty, at least one condition in Any. The zero Filter matches everything.
type Filter struct {
	All []Cond
	Any []Cond
}

// Where returns a filter with a single equality condition.
func Where(field string, value any) Filter {
	return Filter{All: []Cond{{Field: field, Value: value}}}
}

// ByID matches the document with the given identifier.
func ByID(id string) Filter {
	return Where(FieldID, id)
}

// Either matches documents satisfying at least one of conds.
func Either(conds ...Cond) Filter {
	return Filter{Any: conds}
}

// And returns a copy of f with an extra required condition.
func (f Filter) And(field string, value any) Filter {
	all := make([]Cond, 0, len(f.All)+1)
	all = append(all, f.All...)
	all = append(all, Cond{Field: field, Value: value})
	return Filter{All: all, Any: f.Any}
}

// SortKind tells backends without native typing how to compare a field.
type SortKind int

const (
	SortText SortKind = iota
	SortNumber
	SortTime
)

// Sort orders FindMany results by a single field.
type Sort struct {
	Field string
	Desc  bool
	Kind  SortKind
}

// Store is implemented by the Postgres, Mongo and in-memory backends.
type Store interface {
	// FindOne decodes the first matching document into out or returns ErrNotFound.
	FindOne(ctx context.Context, coll string, f Filter, out any) error
	// FindMany decodes all matching documents into out, which must point to a slice.
	FindMany(ctx context.Context, coll string, f Filter, sort *Sort, out any) error
	// InsertOne assigns a fresh identifier to rec and stores it.
	InsertOne(ctx context.Context, coll string, rec Record) error
	// ReplaceOne overwrites the first document matching f and reports how many matched.
	ReplaceOne(ctx context.Context, coll string, f Filter, doc any) (int64, error)
	// DeleteOne removes the first document matching f and reports how many were removed.
	DeleteOne(ctx context.Context, coll string, f Filter) (int64, error)
	// EnsureIndexes creates the collection if needed plus one unique index per field.
	EnsureIndexes(ctx context.Context, coll string, unique ...string) error
	Close(ctx context.Context) error
}
