package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/model"
)

type fakeSource struct {
	hashes map[string]map[string]struct{} // key: user|source
	err    error
	calls  int
}

func (f *fakeSource) ImportedHashes(_ context.Context, userID string, source model.Source) (map[string]struct{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.hashes[userID+"|"+string(source)], nil
}

func TestLoad_ScopedByUserAndSource(t *testing.T) {
	src := &fakeSource{hashes: map[string]map[string]struct{}{
		"u1|monobank": {"a": {}, "b": {}},
		"u1|privat":   {"c": {}},
		"u2|monobank": {"d": {}},
	}}

	g, err := Load(context.Background(), src, "u1", model.SourceMonobank)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 2, g.Len())
	assert.True(t, g.IsDuplicate("a"))
	assert.True(t, g.IsDuplicate("b"))
	assert.False(t, g.IsDuplicate("c"))
	assert.False(t, g.IsDuplicate("d"))
}

func TestLoad_Error(t *testing.T) {
	boom := errors.New("db down")
	_, err := Load(context.Background(), &fakeSource{err: boom}, "u1", model.SourcePrivat)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestLoad_NilSetIsEmpty(t *testing.T) {
	g, err := Load(context.Background(), &fakeSource{}, "u1", model.SourceTrustee)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}

func TestRecord_CatchesIntraBatchDuplicates(t *testing.T) {
	g := New()
	assert.False(t, g.IsDuplicate("x"))
	g.Record("x")
	assert.True(t, g.IsDuplicate("x"))
	g.Record("x")
	assert.Equal(t, 1, g.Len())
}

func TestNew_Seeded(t *testing.T) {
	g := New("a", "b")
	assert.True(t, g.IsDuplicate("a"))
	assert.False(t, g.IsDuplicate("z"))
}
