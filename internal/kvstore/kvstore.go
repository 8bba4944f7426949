// Package kvstore provides a BadgerDB-backed record server implementing
// collection.Strategy.
//
// Records are stored one key per (entity, id):
//
//	r/<entity>\x00<id> -> {"seq": <creation seq>, "body": <canonical JSON>}
//
// Lists are produced by a prefix scan over the entity and ordered by seq,
// so creation order survives restarts.
package kvstore

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/mirror/internal/clock"
	"github.com/roach88/mirror/internal/value"
)

// ErrNotFound is returned for operations on unknown records.
var ErrNotFound = errors.New("record not found")

const recordPrefix = "r/"

// Config configures the database.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory keeps everything in memory. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives badger's internal logging. Nil disables it.
	Logger *slog.Logger
}

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store is a durable record server backed by BadgerDB.
type Store struct {
	db      *badger.DB
	idField string
	idGen   clock.IDGenerator
	clock   *clock.Clock

	// writeMu serializes read-modify-write transactions so they never
	// fail with badger.ErrConflict.
	writeMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the generator for server-assigned identifiers.
func WithIDGenerator(gen clock.IDGenerator) Option {
	return func(s *Store) {
		s.idGen = gen
	}
}

// WithIDField sets the identifier field name. Default "id".
func WithIDField(field string) Option {
	return func(s *Store) {
		s.idField = field
	}
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config, opts ...Option) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var bopts badger.Options
	if cfg.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		bopts = badger.DefaultOptions(cfg.Path)
	}
	bopts = bopts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{
		db:      db,
		idField: "id",
		idGen:   clock.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}

	maxSeq, err := s.maxSeq()
	if err != nil {
		db.Close()
		return nil, err
	}
	s.clock = clock.NewAt(maxSeq)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type row struct {
	Seq  int64           `json:"seq"`
	Body json.RawMessage `json:"body"`
}

func entityPrefix(entity string) []byte {
	return []byte(recordPrefix + entity + "\x00")
}

func recordKey(entity, id string) []byte {
	return append(entityPrefix(entity), id...)
}

func checkEntity(entity string) error {
	if entity == "" || strings.ContainsRune(entity, 0) {
		return fmt.Errorf("invalid entity name %q", entity)
	}
	return nil
}

func decodeRow(item *badger.Item) (row, value.Object, error) {
	var r row
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	})
	if err != nil {
		return row{}, value.Object{}, fmt.Errorf("decode %q: %w", item.Key(), err)
	}
	rec, err := value.UnmarshalObject(r.Body)
	if err != nil {
		return row{}, value.Object{}, fmt.Errorf("decode %q: %w", item.Key(), err)
	}
	return r, rec, nil
}

func encodeRow(seq int64, rec value.Object) ([]byte, error) {
	body, err := value.MarshalCanonical(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(row{Seq: seq, Body: body})
}

// maxSeq scans every record for the highest creation seq.
func (s *Store) maxSeq() (int64, error) {
	var maxSeq int64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(recordPrefix), PrefetchValues: true})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var r row
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &r) }); err != nil {
				return fmt.Errorf("decode %q: %w", it.Item().Key(), err)
			}
			maxSeq = max(maxSeq, r.Seq)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan sequence: %w", err)
	}
	return maxSeq, nil
}

func project(rec value.Object, fields []string) value.Object {
	if len(fields) == 0 {
		return rec
	}
	return rec.Pick(fields...)
}

// Fetch implements collection.Strategy.
func (s *Store) Fetch(ctx context.Context, id string, fields []string, entity string) (value.Object, error) {
	if err := ctx.Err(); err != nil {
		return value.Object{}, err
	}
	if err := checkEntity(entity); err != nil {
		return value.Object{}, err
	}

	var rec value.Object
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(entity, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
		}
		if err != nil {
			return err
		}
		_, rec, err = decodeRow(item)
		return err
	})
	if err != nil {
		return value.Object{}, err
	}
	return project(rec, fields), nil
}

// FetchList implements collection.Strategy. Results are in creation order.
func (s *Store) FetchList(ctx context.Context, where value.Object, fields []string, entity string) ([]value.Object, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}

	type hit struct {
		seq int64
		rec value.Object
	}
	var hits []hit
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := entityPrefix(entity)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, rec, err := decodeRow(it.Item())
			if err != nil {
				return err
			}
			if value.MatchesWhere(rec, where) {
				hits = append(hits, hit{seq: r.Seq, rec: rec})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch list %s: %w", entity, err)
	}

	slices.SortFunc(hits, func(a, b hit) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]value.Object, len(hits))
	for i, h := range hits {
		out[i] = project(h.rec, fields)
	}
	return out, nil
}

// Upsert implements collection.Strategy.
func (s *Store) Upsert(ctx context.Context, dto value.Object, entity string) (value.Object, error) {
	if err := ctx.Err(); err != nil {
		return value.Object{}, err
	}
	if err := checkEntity(entity); err != nil {
		return value.Object{}, err
	}

	raw, ok := dto.Get(s.idField)
	if !ok {
		raw = value.String(s.idGen.Generate())
		dto = dto.Set(s.idField, raw)
	}
	id, ok := raw.(value.String)
	if !ok || id == "" {
		return value.Object{}, fmt.Errorf("upsert %s: field %q must be a non-empty string", entity, s.idField)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec := dto
	key := recordKey(entity, string(id))
	err := s.db.Update(func(txn *badger.Txn) error {
		var seq int64
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			seq = s.clock.Next()
		case err != nil:
			return err
		default:
			r, old, err := decodeRow(item)
			if err != nil {
				return err
			}
			seq = r.Seq
			rec = old.Merge(dto)
		}

		data, err := encodeRow(seq, rec)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return value.Object{}, fmt.Errorf("upsert %s %s: %w", entity, id, err)
	}
	return rec, nil
}

// Destroy implements collection.Strategy.
func (s *Store) Destroy(ctx context.Context, id string, entity string) error {
	return s.DestroyMultiple(ctx, []string{id}, entity)
}

// DestroyMultiple implements collection.Strategy. Either every id is
// removed or, when one is unknown, none is.
func (s *Store) DestroyMultiple(ctx context.Context, ids []string, entity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkEntity(entity); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		var missing []string
		for _, id := range ids {
			if _, err := txn.Get(recordKey(entity, id)); errors.Is(err, badger.ErrKeyNotFound) {
				missing = append(missing, id)
			} else if err != nil {
				return err
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s %s", ErrNotFound, entity, strings.Join(missing, ", "))
		}
		for _, id := range ids {
			if err := txn.Delete(recordKey(entity, id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of records stored for entity.
func (s *Store) Count(entity string) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entityPrefix(entity)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
