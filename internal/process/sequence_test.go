package process

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procfg/internal/ir"
)

func TestSequenceResolvesReferences(t *testing.T) {
	p := New("RAW")
	producers(t, p, "trDigi", "trackingParticles")
	_, err := p.Sequence("doAllDigi", Ref("trDigi"))
	require.NoError(t, err)

	_, err = p.SequenceExpr("pdigi", "@mix * doAllDigi + trackingParticles")
	require.NoError(t, err)

	entries, ok := p.Entries("pdigi")
	require.True(t, ok)
	want := []ir.EntrySpec{
		{Kind: ir.RefPlaceholder, Name: "mix"},
		{Op: ir.OpSequential, Kind: ir.RefSequence, Name: "doAllDigi"},
		{Op: ir.OpAlongside, Kind: ir.RefUnit, Name: "trackingParticles"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"mix"}, p.Pending())
}

func TestSequenceRejectsUnknownAndUnschedulable(t *testing.T) {
	p := New("RAW")
	_, err := p.Sequence("s", Ref("ghost"))
	assert.True(t, IsNotFound(err))
	assert.False(t, p.Has("s"), "failed declaration must not claim the name")

	_, err = p.Register("MessageLogger", ir.UnitService, "MessageLogger", nil)
	require.NoError(t, err)
	_, err = p.Sequence("s", Ref("MessageLogger"))
	assert.Equal(t, ErrCodeInvalid, CodeOf(err))

	producers(t, p, "a")
	_, err = p.Path("step", Ref("a"))
	require.NoError(t, err)
	_, err = p.Sequence("s", Ref("step"))
	assert.Equal(t, ErrCodeInvalid, CodeOf(err))
}

func TestRemovePreservesOrder(t *testing.T) {
	p := New("RAW")
	producers(t, p, "a", "b", "c", "d")
	_, err := p.SequenceExpr("s", "a * b + c * d")
	require.NoError(t, err)

	require.NoError(t, p.Remove("s", "c"))
	entries, _ := p.Entries("s")
	assert.Equal(t, []string{"a", "b", "d"}, entryNames(entries))
}

func TestRemoveFirstOccurrenceOnly(t *testing.T) {
	p := New("RAW")
	producers(t, p, "g", "a")
	_, err := p.Sequence("s", Ref("g"), Ref("a"), Ref("g"))
	require.NoError(t, err)

	require.NoError(t, p.Remove("s", "g"))
	entries, _ := p.Entries("s")
	assert.Equal(t, []string{"a", "g"}, entryNames(entries))
	assert.Equal(t, ir.Op(""), entries[0].Op, "new head carries no operator")
}

func TestRemoveAbsentUnit(t *testing.T) {
	p := New("RAW")
	producers(t, p, "a", "simCastorDigis")
	_, err := p.Sequence("pdigi", Ref("a"))
	require.NoError(t, err)

	err = p.Remove("pdigi", "simCastorDigis")
	assert.True(t, IsNotFound(err))
	err = p.Remove("nope", "a")
	assert.True(t, IsNotFound(err))

	entries, _ := p.Entries("pdigi")
	assert.Equal(t, []string{"a"}, entryNames(entries))
}

func TestRemoveIsDirectOnly(t *testing.T) {
	p := New("RAW")
	producers(t, p, "a", "b")
	_, err := p.Sequence("inner", Ref("a"))
	require.NoError(t, err)
	_, err = p.Sequence("outer", Ref("inner"), Ref("b"))
	require.NoError(t, err)

	assert.True(t, IsNotFound(p.Remove("outer", "a")))
}

func TestPrefixCompounds(t *testing.T) {
	p := New("RAW")
	producers(t, p, "G", "A", "B")
	_, err := p.Sequence("S", Ref("A"), Ref("B"))
	require.NoError(t, err)

	require.NoError(t, p.Prefix("S", Ref("G")))
	require.NoError(t, p.Prefix("S", Ref("G")))

	entries, _ := p.Entries("S")
	assert.Equal(t, []string{"G", "G", "A", "B"}, entryNames(entries))
	assert.Equal(t, ir.Op(""), entries[0].Op)
	for _, e := range entries[1:] {
		assert.Equal(t, ir.OpSequential, e.Op)
	}
}

func TestPrefixWithSequence(t *testing.T) {
	p := New("RAW")
	producers(t, p, "a", "b")
	_, err := p.Sequence("gate", Ref("a"))
	require.NoError(t, err)
	_, err = p.Sequence("S", Ref("b"))
	require.NoError(t, err)

	require.NoError(t, p.Prefix("S", Ref("gate")))
	snap := mustFinalize(t, p)
	require.Len(t, snap.Sequences, 2)
	assert.Equal(t, []string{"gate", "b"}, entryNames(snap.Sequences[1].Entries))
}

func TestPrefixCycle(t *testing.T) {
	p := New("RAW")
	producers(t, p, "a")
	_, err := p.Sequence("inner", Ref("a"))
	require.NoError(t, err)
	_, err = p.Sequence("outer", Ref("inner"))
	require.NoError(t, err)

	err = p.Prefix("inner", Ref("outer"))
	require.Error(t, err)
	assert.True(t, IsCycle(err))

	err = p.Prefix("inner", Ref("inner"))
	assert.True(t, IsCycle(err))

	entries, _ := p.Entries("inner")
	assert.Equal(t, []string{"a"}, entryNames(entries), "failed prefix leaves the sequence unchanged")
}
