package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeUnion(t *testing.T) {
	t.Parallel()
	a, b := NewStore(), NewStore()
	a.Pures["a"] = &PureAnnotation{Meta: Meta{Target: "a"}}
	b.Pures["b"] = &PureAnnotation{Meta: Meta{Target: "b"}}

	out := Merge(a, b)

	assert.Len(t, out.Pures, 2)
	assert.Contains(t, out.Pures, "a")
	assert.Contains(t, out.Pures, "b")
	assert.Len(t, a.Pures, 1, "inputs untouched")
	assert.Len(t, b.Pures, 1, "inputs untouched")
}

func TestMergeMineWins(t *testing.T) {
	t.Parallel()
	mine, theirs := NewStore(), NewStore()
	mine.Renames["f"] = &RenameAnnotation{Meta: Meta{Target: "f"}, NewName: "mine"}
	theirs.Renames["f"] = &RenameAnnotation{Meta: Meta{Target: "f"}, NewName: "theirs"}
	theirs.Renames["g"] = &RenameAnnotation{Meta: Meta{Target: "g"}, NewName: "other"}
	mine.Groups["f"] = map[string]*GroupAnnotation{"x": {Meta: Meta{Target: "f"}, GroupName: "x"}}
	theirs.Groups["f"] = map[string]*GroupAnnotation{
		"x": {Meta: Meta{Target: "f"}, GroupName: "x", Parameters: []string{"p"}},
		"y": {Meta: Meta{Target: "f"}, GroupName: "y"},
	}

	out := Merge(mine, theirs)

	assert.Equal(t, "mine", out.Renames["f"].NewName)
	assert.Equal(t, "other", out.Renames["g"].NewName)
	require.Len(t, out.Groups["f"], 2)
	assert.Empty(t, out.Groups["f"]["x"].Parameters)
}

func TestMergeSharesNothing(t *testing.T) {
	t.Parallel()
	mine, theirs := NewStore(), NewStore()
	mine.Enums["p"] = &EnumAnnotation{Meta: Meta{Target: "p"}, EnumName: "E", Pairs: []EnumPair{{"a", "A"}}}

	out := Merge(mine, theirs)
	out.Enums["p"].Pairs[0].StringValue = "z"
	out.Enums["p"].EnumName = "F"

	assert.Equal(t, "a", mine.Enums["p"].Pairs[0].StringValue)
	assert.Equal(t, "E", mine.Enums["p"].EnumName)
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()
	s := NewStore()
	_, err := UpsertJSON(s, KindTodo, "f", []byte(`{"newTodo":"x"}`), "alice")
	require.NoError(t, err)

	out := Merge(s, s)
	assert.Equal(t, s, out)
}

func TestDiff(t *testing.T) {
	t.Parallel()
	a := NewStore()
	b := a.Clone()
	_, err := UpsertJSON(b, KindRename, "f", []byte(`{"newName":"g"}`), "alice")
	require.NoError(t, err)

	same, err := Diff("a.json", "a.json", a, a.Clone())
	require.NoError(t, err)
	assert.Empty(t, same)

	d, err := Diff("a.json", "b.json", a, b)
	require.NoError(t, err)
	assert.Contains(t, d, "--- a.json")
	assert.Contains(t, d, "+++ b.json")
	assert.Contains(t, d, `+      "newName": "g"`)
}
