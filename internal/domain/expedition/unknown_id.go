package expedition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
)

var ErrUnknownID = errors.New("unknown id")

// UnknownIDError names a catalog id that a caller referenced but does not exist.
type UnknownIDError struct {
	Kind       string
	ID         string
	Suggestion string
}

func (e *UnknownIDError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown %s id %q (did you mean %q?)", e.Kind, e.ID, e.Suggestion)
	}
	return fmt.Sprintf("unknown %s id %q", e.Kind, e.ID)
}

func (e *UnknownIDError) Unwrap() error {
	return ErrUnknownID
}

func NewUnknownIDError(kind, id string, known []string) *UnknownIDError {
	return &UnknownIDError{Kind: kind, ID: id, Suggestion: ClosestID(id, known)}
}

// ClosestID returns the known id nearest to id within an edit distance that
// scales with the candidate's length, or "" when nothing is close enough.
func ClosestID(id string, known []string) string {
	if len(id) < 3 {
		return ""
	}
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)
	best, bestDist := "", -1
	for _, cand := range sorted {
		dist := levenshtein.ComputeDistance(id, cand)
		if dist > suggestionLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = cand, dist
		}
	}
	return best
}

func suggestionLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
