package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Bool(true)
	var _ Value = Int(42)
	var _ Value = Double(1.5)
	var _ Value = String("x")
	var _ Value = InputTag{Label: "mix"}
	var _ Value = List{}
	var _ Value = NewParameterSet()
}

func TestNewListRejectsMixedKinds(t *testing.T) {
	_, err := NewList(Int(1), Double(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestNewListRejectsNesting(t *testing.T) {
	_, err := NewList(Strings("a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestListAppendKeepsElemKind(t *testing.T) {
	l := Strings("drop *")
	out, err := l.Append(String("keep *_*_MergedTrackTruth_*"))
	require.NoError(t, err)
	assert.Equal(t, Strings("drop *", "keep *_*_MergedTrackTruth_*"), out)
	assert.Len(t, l, 1, "Append must not alias the receiver")

	_, err = l.Append(Int(3))
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestEmptyListAcceptsAnyKind(t *testing.T) {
	out, err := List{}.Append(Int(-13))
	require.NoError(t, err)
	assert.Equal(t, KindInt, out.Elem())
}

func TestParseInputTag(t *testing.T) {
	tests := []struct {
		in   string
		want InputTag
	}{
		{"mix", InputTag{Label: "mix"}},
		{"mix:MergedTrackTruth", InputTag{Label: "mix", Instance: "MergedTrackTruth"}},
		{"mix::HLT", InputTag{Label: "mix", Process: "HLT"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInputTag(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}

	_, err := ParseInputTag(":x")
	assert.Error(t, err)
	_, err = ParseInputTag("a:b:c:d")
	assert.Error(t, err)
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("simSiPixelDigis"))
	assert.True(t, ValidName("_x1"))
	assert.False(t, ValidName("$tag"))
	assert.False(t, ValidName("1abc"))
	assert.False(t, ValidName("a.b"))
}

func TestEqualValues(t *testing.T) {
	assert.True(t, EqualValues(Ints(1, 2), Ints(1, 2)))
	assert.False(t, EqualValues(Ints(1, 2), Ints(2, 1)))
	assert.False(t, EqualValues(Int(1), Double(1)))
	assert.True(t, EqualValues(
		PSetOf(P("a", Int(1)), P("b", PSetOf(P("c", Bool(true))))),
		PSetOf(P("a", Int(1)), P("b", PSetOf(P("c", Bool(true))))),
	))
	assert.False(t, EqualValues(PSetOf(P("a", Int(1))), PSetOf(U("a", Int(1)))))
}
