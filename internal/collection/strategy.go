package collection

import (
	"context"

	"github.com/roach88/mirror/internal/value"
)

// Strategy performs the remote half of every CRUD operation. The entity
// name is passed through unchanged so one implementation can serve many
// stores. Implementations report failures by returning an error; each DTO
// they return must carry the identifier field.
type Strategy interface {
	// Fetch returns the record with the given id, restricted to fields
	// when fields is non-empty.
	Fetch(ctx context.Context, id string, fields []string, entity string) (value.Object, error)

	// FetchList returns the records matching where (a where-query object).
	FetchList(ctx context.Context, where value.Object, fields []string, entity string) ([]value.Object, error)

	// Upsert creates or updates a record and returns its server-canonical
	// form, which may add fields such as a server-assigned identifier.
	Upsert(ctx context.Context, dto value.Object, entity string) (value.Object, error)

	// Destroy removes one record.
	Destroy(ctx context.Context, id string, entity string) error

	// DestroyMultiple removes several records.
	DestroyMultiple(ctx context.Context, ids []string, entity string) error
}

// Result is the outcome of a single-record remote operation.
// Success is false only when a backend failure was swallowed.
type Result struct {
	Success bool         `json:"success"`
	Data    value.Object `json:"data,omitzero"`
}

// ListResult is the outcome of FetchList.
type ListResult struct {
	Success bool           `json:"success"`
	Data    []value.Object `json:"data,omitempty"`
}

// ListQuery selects records for FetchList.
type ListQuery struct {
	// Where is a where-query object. The zero Object selects everything.
	Where value.Object

	// Fields restricts the returned fields. The id field is always included.
	Fields []string
}
