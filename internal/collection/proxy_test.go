package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/testutil"
	"github.com/roach88/mirror/internal/value"
)

func TestCreateProxyRequiresRecord(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateProxy("nope")
	assert.True(t, IsNotFound(err))
}

func TestProxyBindsID(t *testing.T) {
	s, srv := newRemoteStore(t)
	ctx := context.Background()
	_, err := s.Fetch(ctx, "2")
	require.NoError(t, err)

	p, err := s.CreateProxy("2")
	require.NoError(t, err)
	assert.Equal(t, "2", p.ID())

	name, err := p.Get("name")
	require.NoError(t, err)
	assert.Equal(t, value.String("Bo"), name)
	assert.True(t, p.IsPresent("name", "age"))

	res, err := p.Upsert(ctx, testutil.Record(t, `{"age":26}`))
	require.NoError(t, err)
	assert.True(t, res.Success)
	age, err := p.Get("age")
	require.NoError(t, err)
	assert.Equal(t, value.Int(26), age)

	_, err = p.Fetch(ctx, "name")
	require.NoError(t, err)

	_, err = p.Destroy(ctx)
	require.NoError(t, err)
	assert.False(t, p.IsPresent())
	assert.Equal(t, 2, srv.Len("person"))
}

func TestProxyGetForms(t *testing.T) {
	s := newTestStore(t)
	seedPeople(t, s)

	p, err := s.CreateProxy("1")
	require.NoError(t, err)

	fields, err := p.GetFields("name", "age")
	require.NoError(t, err)
	assert.True(t, value.Equal(testutil.Record(t, `{"name":"Ann","age":30}`), fields))

	_, err = p.GetFields("email")
	assert.True(t, IsMissingField(err))

	clone, err := p.Clone("name")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ann"}, clone)

	clone, err = p.Clone()
	require.NoError(t, err)
	clone["name"] = "Changed"
	name, err := p.Get("name")
	require.NoError(t, err)
	assert.Equal(t, value.String("Ann"), name)
}

func TestSetActive(t *testing.T) {
	s := newTestStore(t)
	seedPeople(t, s)

	assert.Nil(t, s.Active())
	require.NoError(t, s.SetActive("1"))
	require.NotNil(t, s.Active())
	assert.Equal(t, "1", s.Active().ID())

	assert.True(t, IsNotFound(s.SetActive("nope")))
	assert.Equal(t, "1", s.Active().ID(), "failed SetActive keeps the previous proxy")

	require.NoError(t, s.SetActive(""))
	assert.Nil(t, s.Active())
}

func TestDestroyLocalClearsActive(t *testing.T) {
	s := newTestStore(t)
	seedPeople(t, s)
	require.NoError(t, s.SetActive("1"))

	require.NoError(t, s.DestroyLocal("1"))
	assert.Nil(t, s.Active())
}

func TestErrorString(t *testing.T) {
	err := &Error{Code: ErrCodeBackendFailure, Entity: "person", ID: "1", Message: "fetch failed", Err: testutil.ErrBackendDown}
	assert.Equal(t, "BACKEND_FAILURE: fetch failed (entity=person, id=1): backend unavailable", err.Error())
	assert.False(t, IsNotFound(err))
	assert.False(t, IsNotFound(nil))
}
