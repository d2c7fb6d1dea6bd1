package process

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/procfg/internal/ir"
)

// mapLoader applies bundles defined as Go functions.
type mapLoader struct {
	bundles map[string]func(*Process) error
	calls   map[string]int
}

func newMapLoader() *mapLoader {
	return &mapLoader{bundles: make(map[string]func(*Process) error), calls: make(map[string]int)}
}

func (l *mapLoader) LoadBundle(p *Process, name string) error {
	l.calls[name]++
	fn, ok := l.bundles[name]
	if !ok {
		return NewNotFoundError(name, "bundles")
	}
	return fn(p)
}

func mustRegister(t *testing.T, p *Process, name string, kind ir.UnitKind) {
	t.Helper()
	_, err := p.Register(name, kind, "Test"+string(kind), nil)
	require.NoError(t, err)
}

func producers(t *testing.T, p *Process, names ...string) {
	t.Helper()
	for _, n := range names {
		mustRegister(t, p, n, ir.UnitProducer)
	}
}

func entryNames(entries []ir.EntrySpec) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func mustFinalize(t *testing.T, p *Process) *ir.ProcessSnapshot {
	t.Helper()
	snap, err := p.Finalize(FinalizeOptions{})
	require.NoError(t, err)
	return snap
}

func modulesOf(t *testing.T, snap *ir.ProcessSnapshot, path string) []string {
	t.Helper()
	pa, ok := snap.Path(path)
	require.True(t, ok, fmt.Sprintf("path %s missing from snapshot", path))
	return pa.Modules
}
