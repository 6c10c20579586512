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

package core

import (
	"slices"
	"strconv"
	"strings"
)

// PredicateField is the closed set of eligibility dimensions a program can constrain.
type PredicateField string

const (
	PredicateAgeMin           PredicateField = "age_min"
	PredicateAgeMax           PredicateField = "age_max"
	PredicateRegion           PredicateField = "region"
	PredicateIncomeMax        PredicateField = "income_max"
	PredicateBusinessType     PredicateField = "business_type"
	PredicateEmploymentStatus PredicateField = "employment_status"
	PredicateSupportType      PredicateField = "support_type"
)

// PredicateFields lists every predicate field in canonical order.
var PredicateFields = []PredicateField{
	PredicateAgeMin,
	PredicateAgeMax,
	PredicateRegion,
	PredicateIncomeMax,
	PredicateBusinessType,
	PredicateEmploymentStatus,
	PredicateSupportType,
}

// Operator is the comparison a predicate applies to a profile value.
type Operator string

const (
	OpEq  Operator = "eq"
	OpLte Operator = "lte"
	OpGte Operator = "gte"
	OpIn  Operator = "in"
)

// ConditionPredicate is one eligibility condition of a program.
// Numeric operators use Number; eq and in use Values.
type ConditionPredicate struct {
	Field    PredicateField `json:"field"`
	Operator Operator       `json:"op"`
	Number   int            `json:"number,omitempty"`
	Values   []string       `json:"values,omitempty"`
}

// NumericPredicate builds a lte/gte predicate.
func NumericPredicate(field PredicateField, op Operator, n int) ConditionPredicate {
	return ConditionPredicate{Field: field, Operator: op, Number: n}
}

// SetPredicate builds an in/eq predicate. Values are sorted and deduplicated.
func SetPredicate(field PredicateField, op Operator, values ...string) ConditionPredicate {
	vs := slices.Clone(values)
	slices.Sort(vs)
	return ConditionPredicate{Field: field, Operator: op, Values: slices.Compact(vs)}
}

// Signature is a canonical string form used to group records by predicate value.
func (p ConditionPredicate) Signature() string {
	switch p.Operator {
	case OpLte:
		return string(p.Field) + "<=" + strconv.Itoa(p.Number)
	case OpGte:
		return string(p.Field) + ">=" + strconv.Itoa(p.Number)
	default:
		return string(p.Field) + "=" + strings.Join(p.Values, "|")
	}
}

// Accepts reports whether a profile value satisfies the predicate.
// Unparseable numeric values never satisfy a numeric predicate.
func (p ConditionPredicate) Accepts(value string) bool {
	switch p.Operator {
	case OpLte, OpGte:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return false
		}
		if p.Operator == OpLte {
			return n <= p.Number
		}
		return n >= p.Number
	case OpEq:
		return len(p.Values) > 0 && p.Values[0] == value
	case OpIn:
		return slices.Contains(p.Values, value)
	}
	return false
}

// ProfileField is a piece of information a user can tell the engine about themselves.
type ProfileField string

const (
	FieldAge              ProfileField = "age"
	FieldRegion           ProfileField = "region"
	FieldIncome           ProfileField = "income" // percent of median income
	FieldBusinessType     ProfileField = "business_type"
	FieldEmploymentStatus ProfileField = "employment_status"
	FieldSupportType      ProfileField = "support_type"
)

// ProfileFields lists every profile field in lexical order.
var ProfileFields = []ProfileField{
	FieldAge,
	FieldBusinessType,
	FieldEmploymentStatus,
	FieldIncome,
	FieldRegion,
	FieldSupportType,
}

var profilePredicates = map[ProfileField][]PredicateField{
	FieldAge:              {PredicateAgeMin, PredicateAgeMax},
	FieldRegion:           {PredicateRegion},
	FieldIncome:           {PredicateIncomeMax},
	FieldBusinessType:     {PredicateBusinessType},
	FieldEmploymentStatus: {PredicateEmploymentStatus},
	FieldSupportType:      {PredicateSupportType},
}

// PredicatesFor returns the predicate fields a profile field is checked against.
func PredicatesFor(field ProfileField) []PredicateField {
	return profilePredicates[field]
}

// IsNumeric reports whether the profile field holds an integer.
func (f ProfileField) IsNumeric() bool {
	return f == FieldAge || f == FieldIncome
}

// Filter holds the known profile values a retrieval must respect.
type Filter map[ProfileField]string

// Evaluation summarizes how a record's predicates relate to a Filter.
type Evaluation struct {
	Known     int // usable profile fields in the filter
	Satisfied int // known fields the record constrains and satisfies
	Violated  int // known fields the record constrains and rejects
}

// Admits reports whether no known field is violated.
func (e Evaluation) Admits() bool {
	return e.Violated == 0
}

// MatchRatio is the share of known fields the record explicitly satisfies.
func (e Evaluation) MatchRatio() float64 {
	if e.Known == 0 {
		return 0
	}
	return float64(e.Satisfied) / float64(e.Known)
}

// PartialRatio is the share of known fields the record does not reject.
// Used to rank records when nothing satisfies the whole filter.
func (e Evaluation) PartialRatio() float64 {
	if e.Known == 0 {
		return 0
	}
	return float64(e.Known-e.Violated) / float64(e.Known)
}

// Evaluate checks predicates against the filter. Absent predicates are unconstrained.
func (f Filter) Evaluate(preds []ConditionPredicate) Evaluation {
	var ev Evaluation
	for field, value := range f {
		if value == "" {
			continue
		}
		if field.IsNumeric() {
			if _, err := strconv.Atoi(value); err != nil {
				continue
			}
		}
		ev.Known++

		constrained, ok := false, true
		for _, pf := range profilePredicates[field] {
			for _, p := range preds {
				if p.Field != pf {
					continue
				}
				constrained = true
				if !p.Accepts(value) {
					ok = false
				}
			}
		}
		switch {
		case !constrained:
		case ok:
			ev.Satisfied++
		default:
			ev.Violated++
		}
	}
	return ev
}

// Admits reports whether the predicates are consistent with every known field.
func (f Filter) Admits(preds []ConditionPredicate) bool {
	return f.Evaluate(preds).Admits()
}

// FieldSignature groups a record by the predicates it holds for a profile field.
// Records without any related predicate share the empty signature.
func FieldSignature(preds []ConditionPredicate, field ProfileField) string {
	var parts []string
	for _, pf := range profilePredicates[field] {
		for _, p := range preds {
			if p.Field == pf {
				parts = append(parts, p.Signature())
			}
		}
	}
	return strings.Join(parts, ";")
}
