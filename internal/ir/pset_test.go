package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterSetKeepsInsertionOrder(t *testing.T) {
	ps := PSetOf(P("MinPt", Double(1)), P("MaxPt", Double(50)), P("PartID", Ints(-13)))
	assert.Equal(t, []string{"MinPt", "MaxPt", "PartID"}, ps.Names())

	ps.Set("MinPt", Double(2))
	assert.Equal(t, []string{"MinPt", "MaxPt", "PartID"}, ps.Names(), "overwrite keeps position")
	v, ok := ps.Get("MinPt")
	require.True(t, ok)
	assert.Equal(t, Double(2), v)
}

func TestParameterSetSetKeepsTrackedFlag(t *testing.T) {
	ps := PSetOf(U("Verbosity", Int(0)))
	ps.Set("Verbosity", Int(2))
	p, ok := ps.Param("Verbosity")
	require.True(t, ok)
	assert.True(t, p.Untracked)
	assert.Equal(t, Int(2), p.Value)
}

func TestParameterSetDelete(t *testing.T) {
	ps := PSetOf(P("a", Int(1)), P("b", Int(2)), P("c", Int(3)))
	assert.True(t, ps.Delete("b"))
	assert.False(t, ps.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, ps.Names())
	v, ok := ps.Get("c")
	require.True(t, ok)
	assert.Equal(t, Int(3), v)
}

func TestMergeLastWriteWinsPerField(t *testing.T) {
	base := PSetOf(
		P("MissCalibrate", Bool(true)),
		P("NumPixelBarrel", Int(4)),
		P("AddPixelInefficiency", Int(0)),
	)
	base.Merge(PSetOf(P("MissCalibrate", Bool(false)), P("NumPixelBarrel", Int(10))))
	base.Merge(PSetOf(P("NumPixelBarrel", Int(12))))

	assert.Equal(t, []string{"MissCalibrate", "NumPixelBarrel", "AddPixelInefficiency"}, base.Names())
	v, _ := base.Get("MissCalibrate")
	assert.Equal(t, Bool(false), v)
	v, _ = base.Get("NumPixelBarrel")
	assert.Equal(t, Int(12), v)
	v, _ = base.Get("AddPixelInefficiency")
	assert.Equal(t, Int(0), v)
}

func TestMergeRecursesIntoNestedSets(t *testing.T) {
	base := PSetOf(
		P("generator", PSetOf(P("initialSeed", Int(123456789)), P("engineName", String("HepJamesRandom")))),
	)
	base.Merge(PSetOf(P("generator", PSetOf(P("initialSeed", Int(1))))))

	seed, ok := base.Lookup("generator.initialSeed")
	require.True(t, ok)
	assert.Equal(t, Int(1), seed)
	engine, ok := base.Lookup("generator.engineName")
	require.True(t, ok)
	assert.Equal(t, String("HepJamesRandom"), engine)
}

func TestMergeDoesNotAliasOverrides(t *testing.T) {
	base := NewParameterSet()
	over := PSetOf(P("digitizers", PSetOf(P("pixel", Bool(true)))))
	base.Merge(over)

	over.SetPath("digitizers.pixel", Bool(false))
	v, _ := base.Lookup("digitizers.pixel")
	assert.Equal(t, Bool(true), v)
}

func TestSetPathCreatesIntermediates(t *testing.T) {
	ps := NewParameterSet()
	require.NoError(t, ps.SetPath("VtxSmeared.initialSeed", Int(2)))
	v, ok := ps.Lookup("VtxSmeared.initialSeed")
	require.True(t, ok)
	assert.Equal(t, Int(2), v)
}

func TestSetPathThroughScalarFails(t *testing.T) {
	ps := PSetOf(P("mix", Int(4)))
	err := ps.SetPath("mix.initialSeed", Int(4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestCloneIsDeep(t *testing.T) {
	ps := PSetOf(P("outputCommands", Strings("drop *")), P("dataset", PSetOf(P("dataTier", String("GEN-SIM")))))
	cp := ps.Clone()
	require.NoError(t, cp.SetPath("dataset.dataTier", String("RAW")))
	v, _ := ps.Lookup("dataset.dataTier")
	assert.Equal(t, String("GEN-SIM"), v)
	assert.True(t, ps.Equal(ps.Clone()))
}
