package conditions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
	"github.com/roach88/procfg/internal/store"
)

type brokenAliases struct{}

func (brokenAliases) Alias(context.Context, string) (store.TagAlias, error) {
	return store.TagAlias{}, errors.New("database is locked")
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "procfg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResolveBuiltin(t *testing.T) {
	r := NewResolver(nil)
	res, err := r.Resolve(context.Background(), "auto:upgradePLS3")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Requested: "auto:upgradePLS3", Tag: "POSTLS261_V3::All", Source: SourceBuiltin}, res)
}

func TestResolveLiteral(t *testing.T) {
	r := NewResolver(nil)
	res, err := r.Resolve(context.Background(), "MYTAG_V1")
	require.NoError(t, err)
	assert.Equal(t, "MYTAG_V1::All", res.Tag)
	assert.Equal(t, SourceLiteral, res.Source)

	res, err = r.Resolve(context.Background(), "MYTAG_V1::All")
	require.NoError(t, err)
	assert.Equal(t, "MYTAG_V1::All", res.Tag)
}

func TestResolveStoreOverridesBuiltin(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetAlias(ctx, store.TagAlias{Alias: "auto:upgradePLS3", Tag: "POSTLS261_V9"}))

	res, err := NewResolver(s).Resolve(ctx, "auto:upgradePLS3")
	require.NoError(t, err)
	assert.Equal(t, "POSTLS261_V9::All", res.Tag)
	assert.Equal(t, SourceStore, res.Source)

	res, err = NewResolver(s).Resolve(ctx, "auto:mc")
	require.NoError(t, err)
	assert.Equal(t, SourceBuiltin, res.Source, "absent from the store falls back to builtin")
}

func TestResolveErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewResolver(nil).Resolve(ctx, "auto:nonsense")
	assert.True(t, process.IsNotFound(err))

	_, err = NewResolver(nil).Resolve(ctx, "")
	assert.True(t, process.IsNotFound(err))

	_, err = NewResolver(brokenAliases{}).Resolve(ctx, "auto:mc")
	require.Error(t, err)
	assert.False(t, process.IsNotFound(err))
	assert.Contains(t, err.Error(), "database is locked")
}

func TestApplyWritesGlobalTagUnit(t *testing.T) {
	p := process.New("RAW")
	_, err := p.Register(GlobalTagUnit, ir.UnitESSource, "PoolDBESSource", ir.PSetOf(ir.P(GlobalTagField, ir.String(""))))
	require.NoError(t, err)

	res, err := NewResolver(nil).Apply(context.Background(), p, "auto:upgradePLS3")
	require.NoError(t, err)
	assert.Equal(t, "POSTLS261_V3::All", res.Tag)
	assert.Equal(t, res.Tag, p.GlobalTag())

	u, _ := p.Unit(GlobalTagUnit)
	v, _ := u.Params.Get(GlobalTagField)
	assert.Equal(t, ir.String("POSTLS261_V3::All"), v)
}

func TestApplyWithoutGlobalTagUnit(t *testing.T) {
	p := process.New("RAW")
	_, err := NewResolver(nil).Apply(context.Background(), p, "auto:mc")
	require.Error(t, err)
	assert.True(t, process.IsNotFound(err))
	assert.Empty(t, p.GlobalTag())
}

func TestBuiltinSorted(t *testing.T) {
	aliases := Builtin()
	require.NotEmpty(t, aliases)
	for i := 1; i < len(aliases); i++ {
		assert.Less(t, aliases[i-1].Alias, aliases[i].Alias)
	}
	for _, a := range aliases {
		assert.Contains(t, a.Tag, "::All")
	}
}
