package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *ProcessSnapshot {
	return &ProcessSnapshot{
		Name:      "RAW",
		MaxEvents: 100,
		Units: []UnitSpec{
			{Name: "generator", Kind: UnitProducer, Type: "FlatRandomPtGunProducer", Params: PSetOf(P("AddAntiParticle", Bool(false))), Seq: 1},
		},
		Paths: []PathSpec{
			{Name: "generation_step", Entries: []EntrySpec{{Kind: RefUnit, Name: "generator"}}, Modules: []string{"generator"}, Seq: 2},
		},
		Schedule: []string{"generation_step"},
		Plan:     []string{"generation_step"},
	}
}

func TestProcessHashDeterministic(t *testing.T) {
	a, err := ProcessHash(sampleSnapshot())
	require.NoError(t, err)
	b, err := ProcessHash(sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestProcessHashIgnoresDeclarationStamps(t *testing.T) {
	s1 := sampleSnapshot()
	s2 := sampleSnapshot()
	s2.Units[0].Seq = 40
	s2.Paths[0].Seq = 41
	s2.Warnings = []string{"something"}
	s2.Customizations = []string{"x"}
	assert.Equal(t, mustHash(t, s1), mustHash(t, s2))
}

func TestProcessHashSeesParameterChanges(t *testing.T) {
	s1 := sampleSnapshot()
	s2 := sampleSnapshot()
	s2.Units[0].Params = PSetOf(P("AddAntiParticle", Bool(true)))
	assert.NotEqual(t, mustHash(t, s1), mustHash(t, s2))
}

func TestProcessHashIgnoresUntracked(t *testing.T) {
	s1 := sampleSnapshot()
	s2 := sampleSnapshot()
	s2.Units[0].Params.SetParam(U("Verbosity", Int(3)))
	assert.Equal(t, mustHash(t, s1), mustHash(t, s2))
}

func TestUnitHashDomainSeparated(t *testing.T) {
	u := sampleSnapshot().Units[0]
	assert.NotEqual(t, MustUnitHash(u), mustHash(t, sampleSnapshot()))
}

func mustHash(t *testing.T, s *ProcessSnapshot) string {
	t.Helper()
	h, err := ProcessHash(s)
	require.NoError(t, err)
	return h
}
