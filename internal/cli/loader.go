package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/kvstore"
	"github.com/roach88/mirror/internal/manifest"
	"github.com/roach88/mirror/internal/memstore"
	"github.com/roach88/mirror/internal/metrics"
	"github.com/roach88/mirror/internal/store"
	"github.com/roach88/mirror/internal/value"
)

// Session is an opened backend and a store for one entity.
type Session struct {
	Store    *collection.Store
	Entity   manifest.Entity
	Registry *prometheus.Registry

	closer io.Closer
	logger *slog.Logger
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewLogger builds the CLI logger: text on w, Debug level under --verbose.
func NewLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// LoadEntity resolves the configuration for entity from --manifest.
// Without a manifest, or when the manifest does not list the entity,
// defaults apply.
func LoadEntity(opts *RootOptions, entity string) (manifest.Entity, error) {
	cfg := manifest.Default(entity)
	if opts.Manifest == "" {
		return cfg, nil
	}
	m, err := manifest.Load(opts.Manifest)
	if err != nil {
		return manifest.Entity{}, err
	}
	if e, ok := m.Lookup(entity); ok {
		return e, nil
	}
	return cfg, nil
}

// OpenStrategy opens the backend named by --backend.
func OpenStrategy(opts *RootOptions, cfg manifest.Entity, logger *slog.Logger) (collection.Strategy, io.Closer, error) {
	switch opts.Backend {
	case BackendSQLite:
		st, err := store.Open(opts.Database, store.WithIDField(cfg.IDField))
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case BackendBadger:
		st, err := kvstore.Open(kvstore.Config{Path: opts.Database, Logger: logger}, kvstore.WithIDField(cfg.IDField))
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case BackendMemory:
		// Nothing outlives the process; each invocation gets a fresh server.
		return memstore.New(memstore.WithIDField(cfg.IDField)), closerFunc(func() error { return nil }), nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}

// OpenSession loads the entity configuration, opens the backend and
// builds an instrumented store over it. Errors are ExitErrors with
// ExitCommandError.
func OpenSession(opts *RootOptions, entity string, logger *slog.Logger) (*Session, error) {
	cfg, err := LoadEntity(opts, entity)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load manifest", err)
	}

	strategy, closer, err := OpenStrategy(opts, cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open backend", err)
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		_ = closer.Close()
		return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	storeOpts := append(cfg.StoreOptions(), collection.WithLogger(logger))
	st, err := collection.New(entity, metrics.Instrument(strategy, collector), storeOpts...)
	if err != nil {
		_ = closer.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create store", err)
	}

	logger.Debug("session opened",
		"entity", entity,
		"backend", opts.Backend,
		"db", opts.Database,
		"id_field", cfg.IDField)

	return &Session{
		Store:    st,
		Entity:   cfg,
		Registry: reg,
		closer:   closer,
		logger:   logger,
	}, nil
}

// Close logs the CRUD counters at Debug and closes the backend.
func (s *Session) Close() error {
	s.logMetrics()
	return s.closer.Close()
}

func (s *Session) logMetrics() {
	families, err := s.Registry.Gather()
	if err != nil {
		s.logger.Warn("failed to gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), metrics.MetricCrudRequests) {
			continue
		}
		for _, m := range mf.GetMetric() {
			attrs := make([]any, 0, 2*len(m.GetLabel())+2)
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			attrs = append(attrs, "count", m.GetCounter().GetValue())
			s.logger.Debug("crud requests", attrs...)
		}
	}
}

// parseObject decodes a JSON object argument.
func parseObject(flag, raw string) (value.Object, error) {
	if raw == "" {
		return value.Object{}, nil
	}
	obj, err := value.UnmarshalObject([]byte(raw))
	if err != nil {
		return value.Object{}, fmt.Errorf("invalid %s JSON: %w", flag, err)
	}
	return obj, nil
}

// parseJSON decodes any JSON argument. An empty string yields nil.
func parseJSON(flag, raw string) (value.Value, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := value.Unmarshal([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid %s JSON: %w", flag, err)
	}
	return v, nil
}
