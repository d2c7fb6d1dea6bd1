package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	ps := PSetOf(P("zeta", Int(1)), P("alpha", Int(2)))
	out, err := MarshalCanonical(ps)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"zeta":1}`, string(out))
}

func TestMarshalCanonicalDoubleNeverLooksLikeInt(t *testing.T) {
	out, err := MarshalCanonical(PSetOf(P("d", Double(1)), P("i", Int(1)), P("e", Double(6.28))))
	require.NoError(t, err)
	assert.Equal(t, `{"d":1.0,"e":6.28,"i":1}`, string(out))
}

func TestMarshalCanonicalSkipsUntracked(t *testing.T) {
	ps := PSetOf(P("MinPt", Double(1)), U("Verbosity", Int(0)))
	out, err := MarshalCanonical(ps)
	require.NoError(t, err)
	assert.Equal(t, `{"MinPt":1.0}`, string(out))
}

func TestMarshalCanonicalInputTag(t *testing.T) {
	out, err := MarshalCanonical(PSetOf(P("src", InputTag{Label: "mix", Instance: "MergedTrackTruth"})))
	require.NoError(t, err)
	assert.Equal(t, `{"src":{"$tag":"mix:MergedTrackTruth"}}`, string(out))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	out, err := MarshalCanonical(String("a<b>&c"))
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(out))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	out, err := MarshalCanonical(String("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(out))

	out, err = MarshalCanonical(String(`a\u2028b`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(out))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	a, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	b, err := MarshalCanonical(String("\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)
	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)
	_, err = MarshalCanonical(Double(posInf()))
	assert.Error(t, err)
}

func TestSortedKeysRFC8785(t *testing.T) {
	keys := SortedKeys(map[string]int{"a": 1, "A": 2, "aa": 3, "Aa": 4})
	assert.Equal(t, []string{"A", "Aa", "a", "aa"}, keys)
}

func posInf() float64 {
	var zero float64
	return 1 / zero
}
