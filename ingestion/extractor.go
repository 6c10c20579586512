// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/crazybass81/GovChat/core"
)

var (
	ageRangePattern = regexp.MustCompile(`(?:만\s*)?(\d{1,3})\s*세?\s*(?:~|∼|-|부터)\s*(?:만\s*)?(\d{1,3})\s*세`)
	ageMaxPattern   = regexp.MustCompile(`(?:만\s*)?(\d{1,3})\s*세\s*(이하|미만)`)
	ageMinPattern   = regexp.MustCompile(`(?:만\s*)?(\d{1,3})\s*세\s*(이상|초과)`)
	ageBarePattern  = regexp.MustCompile(`만\s*(\d{1,3})\s*세`)
	agePlainPattern = regexp.MustCompile(`(?:^|\D)(\d{1,3})\s*(?:세|살)`)
	incomePattern   = regexp.MustCompile(`중위\s*소득\s*(\d{1,3})\s*%`)
)

// Ambiguity records conflicting evidence for one predicate field.
type Ambiguity struct {
	Field      core.PredicateField
	Candidates []string
	Chosen     string // empty when no predicate was emitted
}

func (a Ambiguity) Error() string {
	return fmt.Sprintf("%v: %s candidates %v chose %q", ErrExtractionAmbiguity, a.Field, a.Candidates, a.Chosen)
}

func (a Ambiguity) Unwrap() error {
	return ErrExtractionAmbiguity
}

// Extractor derives eligibility predicates from free text with an ordered
// rule table per predicate field. It prefers precision: vague terms such as
// 청년 without a number never produce an age bound.
type Extractor struct {
	vocab  *Vocabulary
	logger *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor) error

// WithVocabulary replaces the built-in vocabulary.
func WithVocabulary(v *Vocabulary) ExtractorOption {
	return func(e *Extractor) error {
		if v == nil {
			return fmt.Errorf("%w: nil vocabulary", ErrInvalidConfig)
		}
		if err := v.validate(); err != nil {
			return err
		}
		e.vocab = v
		return nil
	}
}

// WithExtractorLogger sets a custom logger.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExtractor creates an Extractor using the default vocabulary unless overridden.
func NewExtractor(opts ...ExtractorOption) (*Extractor, error) {
	e := &Extractor{
		vocab:  DefaultVocabulary(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "extractor")
	return e, nil
}

// Vocabulary returns the active vocabulary.
func (e *Extractor) Vocabulary() *Vocabulary {
	return e.vocab
}

// Extract returns the predicates found in text in canonical field order, plus
// any ambiguities met on the way. Ambiguities are also logged at warn level.
func (e *Extractor) Extract(text string) ([]core.ConditionPredicate, []Ambiguity) {
	var (
		preds []core.ConditionPredicate
		notes []Ambiguity
	)

	ageMin, ageMax, ageNotes := e.extractAge(text)
	notes = append(notes, ageNotes...)
	if ageMin != nil {
		preds = append(preds, core.NumericPredicate(core.PredicateAgeMin, core.OpGte, *ageMin))
	}
	if ageMax != nil {
		preds = append(preds, core.NumericPredicate(core.PredicateAgeMax, core.OpLte, *ageMax))
	}

	if regions, note := e.extractRegions(text); len(regions) > 0 {
		preds = append(preds, core.SetPredicate(core.PredicateRegion, core.OpIn, regions...))
	} else if note != nil {
		notes = append(notes, *note)
	}

	if income, note := e.extractIncome(text); income != nil {
		preds = append(preds, core.NumericPredicate(core.PredicateIncomeMax, core.OpLte, *income))
		if note != nil {
			notes = append(notes, *note)
		}
	}

	if types := matchTerms(e.vocab.BusinessTypes, text); len(types) > 0 {
		preds = append(preds, core.SetPredicate(core.PredicateBusinessType, core.OpIn, types...))
	}
	if statuses := matchTerms(e.vocab.EmploymentStatuses, text); len(statuses) > 0 {
		preds = append(preds, core.SetPredicate(core.PredicateEmploymentStatus, core.OpIn, statuses...))
	}
	if support := e.classifySupport(text); support != "" {
		preds = append(preds, core.SetPredicate(core.PredicateSupportType, core.OpEq, support))
	}

	for _, n := range notes {
		e.logger.Warn("ambiguous predicate evidence", "field", n.Field, "candidates", n.Candidates, "chosen", n.Chosen)
	}
	return preds, notes
}

// extractAge applies the age rules in order: explicit ranges, bounded
// maxima/minima, then a bare 만 N세 as a maximum when nothing else matched.
//
// Every bound found by any rule competes on equal terms and the most
// specific one is kept: the lowest maximum and the highest minimum. Each
// conflict is reported as an Ambiguity carrying the chosen value. Bounds
// that still cross (minimum above maximum) leave no age predicate at all.
func (e *Extractor) extractAge(text string) (minAge, maxAge *int, notes []Ambiguity) {
	var maxCands, minCands []int

	for _, m := range ageRangePattern.FindAllStringSubmatch(text, -1) {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo > hi {
			lo, hi = hi, lo
		}
		minCands = append(minCands, lo)
		maxCands = append(maxCands, hi)
	}
	rest := ageRangePattern.ReplaceAllString(text, " ")

	for _, m := range ageMaxPattern.FindAllStringSubmatch(rest, -1) {
		n, _ := strconv.Atoi(m[1])
		if m[2] == "미만" {
			n--
		}
		maxCands = append(maxCands, n)
	}
	for _, m := range ageMinPattern.FindAllStringSubmatch(rest, -1) {
		n, _ := strconv.Atoi(m[1])
		if m[2] == "초과" {
			n++
		}
		minCands = append(minCands, n)
	}
	rest = ageMaxPattern.ReplaceAllString(rest, " ")
	rest = ageMinPattern.ReplaceAllString(rest, " ")

	if len(maxCands) == 0 && len(minCands) == 0 {
		for _, m := range ageBarePattern.FindAllStringSubmatch(rest, -1) {
			n, _ := strconv.Atoi(m[1])
			maxCands = append(maxCands, n)
		}
	}

	if v, note := narrowest(core.PredicateAgeMax, maxCands, slices.Min[[]int]); v != nil {
		maxAge = v
		if note != nil {
			notes = append(notes, *note)
		}
	}
	if v, note := narrowest(core.PredicateAgeMin, minCands, slices.Max[[]int]); v != nil {
		minAge = v
		if note != nil {
			notes = append(notes, *note)
		}
	}
	if minAge != nil && maxAge != nil && *minAge > *maxAge {
		notes = append(notes, Ambiguity{Field: core.PredicateAgeMin, Candidates: itoaAll([]int{*minAge, *maxAge})})
		minAge, maxAge = nil, nil
	}
	return minAge, maxAge, notes
}

// extractRegions returns the canonical regions named in text. A nationwide
// marker means no regional constraint.
func (e *Extractor) extractRegions(text string) ([]string, *Ambiguity) {
	regions := matchTerms(e.vocab.Regions, text)
	for _, term := range e.vocab.NationwideTerms {
		if strings.Contains(text, term) {
			if len(regions) > 0 {
				return nil, &Ambiguity{Field: core.PredicateRegion, Candidates: append([]string{term}, regions...)}
			}
			return nil, nil
		}
	}
	return regions, nil
}

// extractIncome takes the percentage rule first, then welfare categories.
// Conflicting bounds resolve to the narrowest.
func (e *Extractor) extractIncome(text string) (*int, *Ambiguity) {
	var cands []int
	for _, m := range incomePattern.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		cands = appendUnique(cands, n)
	}
	for _, c := range e.vocab.IncomeCategories {
		if (Term{Name: c.Name, Aliases: c.Aliases}).matches(text) {
			cands = appendUnique(cands, c.Percent)
		}
	}
	return narrowest(core.PredicateIncomeMax, cands, slices.Min[[]int])
}

// classifySupport returns the first support category whose keywords occur.
func (e *Extractor) classifySupport(text string) string {
	for _, t := range e.vocab.SupportTypes {
		if t.matches(text) {
			return t.Name
		}
	}
	return ""
}

// ProfileValues reads the profile fields a user message states outright.
// Set-valued fields are only reported when exactly one value is named.
func (e *Extractor) ProfileValues(text string) map[core.ProfileField]string {
	values := map[core.ProfileField]string{}

	if m := agePlainPattern.FindStringSubmatch(text); m != nil {
		values[core.FieldAge] = m[1]
	}
	if regions := matchTerms(e.vocab.Regions, text); len(regions) == 1 {
		values[core.FieldRegion] = regions[0]
	}
	if m := incomePattern.FindStringSubmatch(text); m != nil {
		values[core.FieldIncome] = m[1]
	} else if percent, ok := e.IncomeCategory(text); ok {
		values[core.FieldIncome] = strconv.Itoa(percent)
	}
	if types := matchTerms(e.vocab.BusinessTypes, text); len(types) == 1 {
		values[core.FieldBusinessType] = types[0]
	}
	if statuses := matchTerms(e.vocab.EmploymentStatuses, text); len(statuses) == 1 {
		values[core.FieldEmploymentStatus] = statuses[0]
	}
	if support := e.classifySupport(text); support != "" {
		values[core.FieldSupportType] = support
	}
	return values
}

// IncomeCategory maps a welfare status named in text to its income bound.
func (e *Extractor) IncomeCategory(text string) (int, bool) {
	for _, c := range e.vocab.IncomeCategories {
		if (Term{Name: c.Name, Aliases: c.Aliases}).matches(text) {
			return c.Percent, true
		}
	}
	return 0, false
}

// narrowest picks a single bound. More than one distinct candidate yields
// the one selected by pick and an ambiguity.
func narrowest(field core.PredicateField, cands []int, pick func([]int) int) (*int, *Ambiguity) {
	if len(cands) == 0 {
		return nil, nil
	}
	v := pick(cands)
	distinct := slices.Compact(slices.Sorted(slices.Values(cands)))
	if len(distinct) == 1 {
		return &v, nil
	}
	return &v, &Ambiguity{Field: field, Candidates: itoaAll(distinct), Chosen: strconv.Itoa(v)}
}

func appendUnique(xs []int, n int) []int {
	if slices.Contains(xs, n) {
		return xs
	}
	return append(xs, n)
}

func itoaAll(xs []int) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = strconv.Itoa(x)
	}
	return out
}

