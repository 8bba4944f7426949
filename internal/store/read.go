package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mirror/internal/queryir"
	"github.com/roach88/mirror/internal/value"
)

// Fetch implements collection.Strategy.
func (s *Store) Fetch(ctx context.Context, id string, fields []string, entity string) (value.Object, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM records WHERE entity = ? AND id = ?",
		entity, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return value.Object{}, fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
	}
	if err != nil {
		return value.Object{}, fmt.Errorf("fetch %s %s: %w", entity, id, err)
	}

	rec, err := unmarshalBody(body)
	if err != nil {
		return value.Object{}, fmt.Errorf("fetch %s %s: %w", entity, id, err)
	}
	return project(rec, fields), nil
}

// FetchList implements collection.Strategy.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) FetchList(ctx context.Context, where value.Object, fields []string, entity string) ([]value.Object, error) {
	query, params, err := s.compiler.Compile(queryir.FromWhere(entity, where))
	if err != nil {
		return nil, fmt.Errorf("fetch list %s: %w", entity, err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := []value.Object{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := unmarshalBody(body)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		// SQL pushdown is loose (e.g. true = 1); the exact rule decides.
		if !value.MatchesWhere(rec, where) {
			continue
		}
		out = append(out, project(rec, fields))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return out, nil
}
