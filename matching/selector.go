package matching

import (
	"cmp"
	"slices"

	"github.com/crazybass81/GovChat/core"
)

// Selection is the selector's verdict for one turn.
type Selection struct {
	Field     core.ProfileField
	Coverage  float64
	Value     float64
	Exhausted bool // no remaining field is worth asking
}

// Selector picks the profile field whose answer best partitions the leading
// candidates, weighted by how readily users answer it.
type Selector struct {
	topN    int
	epsilon float64
	weights map[core.ProfileField]float64
}

// NewSelector creates a selector from the TopN, Epsilon and Weights of cfg.
func NewSelector(cfg Config) *Selector {
	return &Selector{topN: cfg.TopN, epsilon: cfg.Epsilon, weights: cfg.Weights}
}

// Rank scores every field that is neither known nor already asked, best first.
// Equal values order by field name.
func (s *Selector) Rank(set *core.CandidateSet, profile *core.UserProfile) []Selection {
	top := set.Candidates[:min(s.topN, len(set.Candidates))]

	var ranked []Selection
	for _, field := range core.ProfileFields {
		weight, ok := s.weights[field]
		if !ok || profile.Known(field) || profile.WasAsked(field) {
			continue
		}
		coverage := Coverage(top, field)
		ranked = append(ranked, Selection{Field: field, Coverage: coverage, Value: coverage * weight})
	}
	slices.SortStableFunc(ranked, func(a, b Selection) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Field, b.Field)
	})
	return ranked
}

// Select returns the most valuable field, or an exhausted selection when
// no field remains or the best value is below epsilon.
func (s *Selector) Select(set *core.CandidateSet, profile *core.UserProfile) Selection {
	ranked := s.Rank(set, profile)
	if len(ranked) == 0 {
		return Selection{Exhausted: true}
	}
	best := ranked[0]
	if best.Value < s.epsilon {
		best.Exhausted = true
	}
	return best
}

// Coverage is 1 - largest/N where largest is the biggest group of candidates
// sharing the same predicates for field. Unconstrained candidates form one
// group. Zero when there are no candidates.
func Coverage(candidates []core.Candidate, field core.ProfileField) float64 {
	if len(candidates) == 0 {
		return 0
	}
	groups := make(map[string]int, len(candidates))
	largest := 0
	for _, c := range candidates {
		sig := core.FieldSignature(c.Record.Predicates, field)
		groups[sig]++
		largest = max(largest, groups[sig])
	}
	return 1 - float64(largest)/float64(len(candidates))
}
