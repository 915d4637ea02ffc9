package annotation

import (
	"fmt"

	difflib "github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog/log"
)

// Merge combines two stores kind by kind. The result holds every key of
// either side; where both sides annotate the same key the record from mine
// is kept. Neither input is modified and the result shares no records with
// them.
func Merge(mine, theirs *Store) *Store {
	out := NewStore()
	for _, t := range tables {
		t.merge(out, mine, theirs)
	}
	log.Debug().
		Int("mine", total(mine)).
		Int("theirs", total(theirs)).
		Int("merged", total(out)).
		Msg("merged annotation stores")
	return out
}

func total(s *Store) int {
	n := 0
	for _, c := range s.Counts() {
		n += c
	}
	return n
}

// Diff returns a unified diff between the exports of a and b, or "" when
// they are identical.
func Diff(aName, bName string, a, b *Store) (string, error) {
	aData, err := Export(a)
	if err != nil {
		return "", err
	}
	bData, err := Export(b)
	if err != nil {
		return "", err
	}
	u := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(aData)),
		B:        difflib.SplitLines(string(bData)),
		FromFile: aName,
		ToFile:   bName,
		Context:  3,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("diffing annotations: %w", err)
	}
	return s, nil
}
