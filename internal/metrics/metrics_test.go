package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/memstore"
	"github.com/roach88/mirror/internal/value"
)

var _ collection.Strategy = (*Strategy)(nil)

func TestInstrument_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	backend := memstore.New()
	require.NoError(t, backend.Seed("person", value.NewObject(value.F("id", value.String("1")))))
	s := Instrument(backend, c)
	ctx := context.Background()

	_, err = s.Fetch(ctx, "1", nil, "person")
	require.NoError(t, err)
	_, err = s.Fetch(ctx, "9", nil, "person")
	require.Error(t, err)
	_, err = s.FetchList(ctx, value.NewObject(), nil, "person")
	require.NoError(t, err)
	_, err = s.Upsert(ctx, value.NewObject(value.F("id", value.String("2"))), "person")
	require.NoError(t, err)
	require.NoError(t, s.Destroy(ctx, "2", "person"))
	require.Error(t, s.DestroyMultiple(ctx, []string{"9"}, "person"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("person", "fetch", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("person", "fetch", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("person", "fetchList", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("person", "upsert", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("person", "destroy", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("person", "destroyMultiple", OutcomeError)))

	assert.Equal(t, 5, testutil.CollectAndCount(c.duration), "one histogram per (entity, op)")
}

func TestInstrument_ThroughCollection(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	st, err := collection.New("person", Instrument(memstore.New(), c))
	require.NoError(t, err)

	_, err = st.Upsert(context.Background(), value.NewObject(value.F("name", value.String("Ann"))))
	require.NoError(t, err)

	expected := `
# HELP mirror_crud_requests_total CRUD strategy calls by entity, operation and outcome.
# TYPE mirror_crud_requests_total counter
mirror_crud_requests_total{entity="person",op="upsert",outcome="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "mirror_crud_requests_total"))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}
