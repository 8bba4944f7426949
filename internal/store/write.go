package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/mirror/internal/value"
)

// Upsert implements collection.Strategy.
//
// A DTO without an id is created under a server-assigned id. A DTO with an
// id is overlaid onto the stored record, or created when no record exists.
// The stored canonical form is returned.
func (s *Store) Upsert(ctx context.Context, dto value.Object, entity string) (value.Object, error) {
	raw, ok := dto.Get(s.idField)
	if !ok {
		raw = value.String(s.idGen.Generate())
		dto = dto.Set(s.idField, raw)
	}
	id, ok := raw.(value.String)
	if !ok || id == "" {
		return value.Object{}, fmt.Errorf("upsert %s: field %q must be a non-empty string", entity, s.idField)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return value.Object{}, fmt.Errorf("upsert %s: begin tx: %w", entity, err)
	}
	defer tx.Rollback() // No-op if committed

	rec := dto
	seq := int64(0)
	var oldBody string
	err = tx.QueryRowContext(ctx,
		"SELECT body, seq FROM records WHERE entity = ? AND id = ?",
		entity, string(id),
	).Scan(&oldBody, &seq)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		seq = s.clock.Next()
	case err != nil:
		return value.Object{}, fmt.Errorf("upsert %s %s: %w", entity, id, err)
	default:
		old, err := unmarshalBody(oldBody)
		if err != nil {
			return value.Object{}, fmt.Errorf("upsert %s %s: %w", entity, id, err)
		}
		rec = old.Merge(dto)
	}

	body, hash, err := marshalBody(rec)
	if err != nil {
		return value.Object{}, fmt.Errorf("upsert %s %s: %w", entity, id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (entity, id, body, body_hash, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity, id) DO UPDATE SET body = excluded.body, body_hash = excluded.body_hash
	`, entity, string(id), body, hash, seq)
	if err != nil {
		return value.Object{}, fmt.Errorf("upsert %s %s: %w", entity, id, err)
	}

	if err := tx.Commit(); err != nil {
		return value.Object{}, fmt.Errorf("upsert %s %s: commit: %w", entity, id, err)
	}
	return rec, nil
}

// Destroy implements collection.Strategy.
func (s *Store) Destroy(ctx context.Context, id string, entity string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE entity = ? AND id = ?", entity, id)
	if err != nil {
		return fmt.Errorf("destroy %s %s: %w", entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("destroy %s %s: %w", entity, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
	}
	return nil
}

// DestroyMultiple implements collection.Strategy. Either every id is
// removed or, when one is unknown, none is.
func (s *Store) DestroyMultiple(ctx context.Context, ids []string, entity string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("destroy multiple %s: begin tx: %w", entity, err)
	}
	defer tx.Rollback() // No-op if committed

	var missing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		res, err := tx.ExecContext(ctx, "DELETE FROM records WHERE entity = ? AND id = ?", entity, id)
		if err != nil {
			return fmt.Errorf("destroy multiple %s %s: %w", entity, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("destroy multiple %s %s: %w", entity, id, err)
		}
		if n == 0 {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, entity, strings.Join(missing, ", "))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("destroy multiple %s: commit: %w", entity, err)
	}
	return nil
}
