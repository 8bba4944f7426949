package collection

import (
	"log/slog"

	"github.com/roach88/mirror/internal/clock"
	"github.com/roach88/mirror/internal/sorter"
)

// DefaultIDField is the identifier field used unless WithIDField is given.
const DefaultIDField = "id"

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithThrowOnCrudFailure selects the CRUD failure policy.
//
// Default: true, backend failures are returned as BACKEND_FAILURE errors.
// With false they are logged and reported as Result{Success: false}.
func WithThrowOnCrudFailure(throw bool) StoreOption {
	return func(s *Store) {
		s.throwOnCrudFailure = throw
	}
}

// WithIDField sets the identifier field name.
func WithIDField(field string) StoreOption {
	return func(s *Store) {
		s.idField = field
	}
}

// WithUUIDIdentifiers requires every identifier to be a UUID.
func WithUUIDIdentifiers() StoreOption {
	return func(s *Store) {
		s.uuidIDs = true
	}
}

// WithLogger sets the logger. Default discards all output.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator sets the generator CreateLocal uses for records that
// arrive without an identifier. Default: UUIDv7.
func WithIDGenerator(gen clock.IDGenerator) StoreOption {
	return func(s *Store) {
		if gen != nil {
			s.idGen = gen
		}
	}
}

// WithDefaultSort sets the criteria Sort uses when called without any.
func WithDefaultSort(criteria ...sorter.Criterion) StoreOption {
	return func(s *Store) {
		s.defaultSort = criteria
	}
}

// WhereOption configures Where and FindWhere.
type WhereOption func(*whereConfig)

type whereConfig struct {
	ignoreMissingFields bool
}

// IgnoreMissingFields treats a record lacking a queried field as a
// non-match instead of failing with MISSING_FIELD.
func IgnoreMissingFields() WhereOption {
	return func(c *whereConfig) {
		c.ignoreMissingFields = true
	}
}
