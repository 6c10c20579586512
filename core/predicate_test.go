package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionPredicate_Accepts(t *testing.T) {
	tests := []struct {
		name  string
		pred  ConditionPredicate
		value string
		want  bool
	}{
		{"age max inside", NumericPredicate(PredicateAgeMax, OpLte, 39), "30", true},
		{"age max boundary", NumericPredicate(PredicateAgeMax, OpLte, 39), "39", true},
		{"age max outside", NumericPredicate(PredicateAgeMax, OpLte, 39), "45", false},
		{"age min outside", NumericPredicate(PredicateAgeMin, OpGte, 19), "18", false},
		{"non numeric", NumericPredicate(PredicateAgeMax, OpLte, 39), "서른", false},
		{"region in set", SetPredicate(PredicateRegion, OpIn, "서울", "경기"), "경기", true},
		{"region outside set", SetPredicate(PredicateRegion, OpIn, "서울", "경기"), "부산", false},
		{"support eq", SetPredicate(PredicateSupportType, OpEq, "창업지원"), "창업지원", true},
		{"support mismatch", SetPredicate(PredicateSupportType, OpEq, "창업지원"), "주거지원", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred.Accepts(tt.value))
		})
	}
}

func TestSetPredicate_Canonical(t *testing.T) {
	p := SetPredicate(PredicateRegion, OpIn, "서울", "경기", "서울")
	assert.Equal(t, []string{"경기", "서울"}, p.Values)
	assert.Equal(t, "region=경기|서울", p.Signature())
}

func TestFilter_Evaluate(t *testing.T) {
	youthStartup := []ConditionPredicate{
		NumericPredicate(PredicateAgeMax, OpLte, 39),
		SetPredicate(PredicateSupportType, OpEq, "창업지원"),
	}

	t.Run("absent bounds are unconstrained", func(t *testing.T) {
		ev := Filter{FieldRegion: "부산"}.Evaluate(youthStartup)
		assert.Equal(t, 1, ev.Known)
		assert.Equal(t, 0, ev.Satisfied)
		assert.True(t, ev.Admits())
		assert.Equal(t, 0.0, ev.MatchRatio())
	})

	t.Run("satisfied fields count toward ratio", func(t *testing.T) {
		ev := Filter{FieldAge: "30", FieldSupportType: "창업지원"}.Evaluate(youthStartup)
		assert.Equal(t, 2, ev.Satisfied)
		assert.Equal(t, 1.0, ev.MatchRatio())
	})

	t.Run("violation rejects", func(t *testing.T) {
		f := Filter{FieldAge: "45"}
		assert.False(t, f.Admits(youthStartup))
		assert.Equal(t, 0.0, f.Evaluate(youthStartup).PartialRatio())
	})

	t.Run("age range checks both bounds", func(t *testing.T) {
		preds := []ConditionPredicate{
			NumericPredicate(PredicateAgeMin, OpGte, 19),
			NumericPredicate(PredicateAgeMax, OpLte, 34),
		}
		assert.True(t, Filter{FieldAge: "25"}.Admits(preds))
		assert.False(t, Filter{FieldAge: "17"}.Admits(preds))
		assert.False(t, Filter{FieldAge: "35"}.Admits(preds))
	})

	t.Run("unparseable numeric value is ignored", func(t *testing.T) {
		ev := Filter{FieldAge: "모름"}.Evaluate(youthStartup)
		assert.Equal(t, 0, ev.Known)
		assert.True(t, ev.Admits())
	})
}

func TestFieldSignature(t *testing.T) {
	preds := []ConditionPredicate{
		NumericPredicate(PredicateAgeMin, OpGte, 19),
		NumericPredicate(PredicateAgeMax, OpLte, 34),
	}
	assert.Equal(t, "age_min>=19;age_max<=34", FieldSignature(preds, FieldAge))
	assert.Equal(t, "", FieldSignature(preds, FieldRegion))
}

func TestPredicatesFor(t *testing.T) {
	assert.Equal(t, []PredicateField{PredicateAgeMin, PredicateAgeMax}, PredicatesFor(FieldAge))
	assert.Equal(t, []PredicateField{PredicateIncomeMax}, PredicatesFor(FieldIncome))
	assert.Empty(t, PredicatesFor(ProfileField("hobby")))

	t.Run("every predicate field is reachable", func(t *testing.T) {
		var covered []PredicateField
		for _, f := range ProfileFields {
			covered = append(covered, PredicatesFor(f)...)
		}
		assert.ElementsMatch(t, PredicateFields, covered)
	})
}
