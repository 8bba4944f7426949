package collection

import (
	"context"
	"slices"

	"github.com/roach88/mirror/internal/value"
)

// crudFailure applies the failure policy to a strategy error.
// It returns nil when the failure is swallowed.
func (s *Store) crudFailure(op, id string, err error) error {
	if s.throwOnCrudFailure {
		return newBackendError(s.entity, op, id, err)
	}
	s.logger.Warn("crud failure",
		"entity", s.entity,
		"op", op,
		"id", id,
		"error", err)
	return nil
}

// withIDField returns fields with the identifier field first and
// duplicates removed. An empty list stays empty (all fields).
func (s *Store) withIDField(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(fields)+1)
	out = append(out, s.idField)
	for _, f := range fields {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// Fetch retrieves a record from the backend and upserts it locally.
func (s *Store) Fetch(ctx context.Context, id string, fields ...string) (Result, error) {
	if err := s.checkID(id); err != nil {
		return Result{}, err
	}

	dto, err := s.strategy.Fetch(ctx, id, s.withIDField(fields), s.entity)
	if err != nil {
		return Result{}, s.crudFailure("fetch", id, err)
	}

	got, err := s.identify(dto)
	if err != nil {
		return Result{}, err
	}
	if got != id {
		return Result{}, newInvalidArgumentError(s.entity, id, "backend returned record %q", got)
	}
	if err := s.UpsertLocal(dto); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Data: dto}, nil
}

// FetchList retrieves the records matching q from the backend and merges
// them locally.
func (s *Store) FetchList(ctx context.Context, q ListQuery) (ListResult, error) {
	dtos, err := s.strategy.FetchList(ctx, q.Where, s.withIDField(q.Fields), s.entity)
	if err != nil {
		return ListResult{}, s.crudFailure("fetchList", "", err)
	}
	if err := s.Merge(dtos); err != nil {
		return ListResult{}, err
	}
	if dtos == nil {
		dtos = []value.Object{}
	}
	return ListResult{Success: true, Data: dtos}, nil
}

// Upsert sends dto to the backend and upserts the server's canonical
// record locally. dto may omit the identifier when the backend assigns one.
func (s *Store) Upsert(ctx context.Context, dto value.Object) (Result, error) {
	var id string
	if dto.Has(s.idField) {
		var err error
		if id, err = s.identify(dto); err != nil {
			return Result{}, err
		}
	}

	saved, err := s.strategy.Upsert(ctx, dto, s.entity)
	if err != nil {
		return Result{}, s.crudFailure("upsert", id, err)
	}
	if err := s.UpsertLocal(saved); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Data: saved}, nil
}

// Destroy removes a record from the backend and then locally.
func (s *Store) Destroy(ctx context.Context, id string) (Result, error) {
	if err := s.checkID(id); err != nil {
		return Result{}, err
	}

	if err := s.strategy.Destroy(ctx, id, s.entity); err != nil {
		return Result{}, s.crudFailure("destroy", id, err)
	}
	if err := s.DestroyLocal(id); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

// DestroyMultiple removes several records from the backend and then locally.
func (s *Store) DestroyMultiple(ctx context.Context, ids []string) (Result, error) {
	for _, id := range ids {
		if err := s.checkID(id); err != nil {
			return Result{}, err
		}
	}

	if err := s.strategy.DestroyMultiple(ctx, slices.Clone(ids), s.entity); err != nil {
		return Result{}, s.crudFailure("destroyMultiple", "", err)
	}
	for _, id := range ids {
		if err := s.DestroyLocal(id); err != nil {
			return Result{}, err
		}
	}
	return Result{Success: true}, nil
}
