package ingestion

import (
	"errors"
	"testing"

	"github.com/crazybass81/GovChat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func predicateMap(preds []core.ConditionPredicate) map[core.PredicateField]core.ConditionPredicate {
	out := make(map[core.PredicateField]core.ConditionPredicate, len(preds))
	for _, p := range preds {
		out[p.Field] = p
	}
	return out
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor()
	require.NoError(t, err)
	return e
}

func TestExtractor_Age(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name    string
		text    string
		wantMin int // 0 means absent
		wantMax int
	}{
		{"youth startup", "청년창업 지원사업 (만 39세 이하 예비창업자)", 0, 39},
		{"range", "만 19세~34세 청년 대상", 19, 34},
		{"range with 부터", "18세부터 39세 청년", 18, 39},
		{"below is exclusive", "40세 미만 구직자", 0, 39},
		{"minimum", "65세 이상 어르신", 65, 0},
		{"above is exclusive", "60세 초과", 61, 0},
		{"bare 만 N세", "신청일 기준 만 34세 청년", 0, 34},
		{"vague youth has no bound", "청년 누구나 신청 가능", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preds, _ := e.Extract(tt.text)
			m := predicateMap(preds)

			if tt.wantMin == 0 {
				assert.NotContains(t, m, core.PredicateAgeMin)
			} else {
				require.Contains(t, m, core.PredicateAgeMin)
				assert.Equal(t, core.OpGte, m[core.PredicateAgeMin].Operator)
				assert.Equal(t, tt.wantMin, m[core.PredicateAgeMin].Number)
			}
			if tt.wantMax == 0 {
				assert.NotContains(t, m, core.PredicateAgeMax)
			} else {
				require.Contains(t, m, core.PredicateAgeMax)
				assert.Equal(t, core.OpLte, m[core.PredicateAgeMax].Operator)
				assert.Equal(t, tt.wantMax, m[core.PredicateAgeMax].Number)
			}
		})
	}
}

func TestExtractor_ConflictingAgeBounds(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("two maxima keep the lower", func(t *testing.T) {
		preds, notes := e.Extract("만 34세 이하 또는 만 39세 이하")

		m := predicateMap(preds)
		require.Contains(t, m, core.PredicateAgeMax)
		assert.Equal(t, 34, m[core.PredicateAgeMax].Number)
		require.Len(t, notes, 1)
		assert.Equal(t, core.PredicateAgeMax, notes[0].Field)
		assert.Equal(t, []string{"34", "39"}, notes[0].Candidates)
		assert.Equal(t, "34", notes[0].Chosen)
		assert.True(t, errors.Is(notes[0], ErrExtractionAmbiguity))
	})

	t.Run("range and maximum resolve the same way", func(t *testing.T) {
		preds, notes := e.Extract("만 19세~39세 청년, 단 창업자는 34세 이하")

		m := predicateMap(preds)
		require.Contains(t, m, core.PredicateAgeMax)
		assert.Equal(t, 34, m[core.PredicateAgeMax].Number)
		assert.Equal(t, 19, m[core.PredicateAgeMin].Number)
		require.Len(t, notes, 1)
		assert.Equal(t, "34", notes[0].Chosen)
	})

	t.Run("crossed bounds drop both", func(t *testing.T) {
		preds, notes := e.Extract("40세 이상, 34세 이하")

		m := predicateMap(preds)
		assert.NotContains(t, m, core.PredicateAgeMax)
		assert.NotContains(t, m, core.PredicateAgeMin)
		require.NotEmpty(t, notes)
		assert.Empty(t, notes[len(notes)-1].Chosen)
	})
}

func TestExtractor_Region(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("single region", func(t *testing.T) {
		preds, _ := e.Extract("서울특별시 거주 청년")
		m := predicateMap(preds)
		require.Contains(t, m, core.PredicateRegion)
		assert.Equal(t, []string{"서울"}, m[core.PredicateRegion].Values)
	})

	t.Run("several regions", func(t *testing.T) {
		preds, _ := e.Extract("부산, 울산, 경상남도 소재 기업")
		m := predicateMap(preds)
		require.Contains(t, m, core.PredicateRegion)
		assert.Equal(t, []string{"경남", "부산", "울산"}, m[core.PredicateRegion].Values)
	})

	t.Run("economic sense of 경기 is not a region", func(t *testing.T) {
		preds, _ := e.Extract("지역경기 침체로 힘든 소상공인 지원")
		assert.NotContains(t, predicateMap(preds), core.PredicateRegion)

		preds, _ = e.Extract("경기 소재 소상공인 지원")
		assert.Equal(t, []string{"경기"}, predicateMap(preds)[core.PredicateRegion].Values)
	})

	t.Run("nationwide is unconstrained", func(t *testing.T) {
		preds, _ := e.Extract("전국 중소기업 대상")
		assert.NotContains(t, predicateMap(preds), core.PredicateRegion)
	})

	t.Run("nationwide with a region is ambiguous", func(t *testing.T) {
		preds, notes := e.Extract("전국 (단, 서울 제외)")
		assert.NotContains(t, predicateMap(preds), core.PredicateRegion)
		require.Len(t, notes, 1)
		assert.Equal(t, core.PredicateRegion, notes[0].Field)
	})
}

func TestExtractor_Income(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("percentage", func(t *testing.T) {
		preds, _ := e.Extract("기준 중위소득 120% 이하 가구")
		m := predicateMap(preds)
		require.Contains(t, m, core.PredicateIncomeMax)
		assert.Equal(t, 120, m[core.PredicateIncomeMax].Number)
	})

	t.Run("welfare category", func(t *testing.T) {
		preds, _ := e.Extract("차상위계층 가구 지원")
		m := predicateMap(preds)
		require.Contains(t, m, core.PredicateIncomeMax)
		assert.Equal(t, 50, m[core.PredicateIncomeMax].Number)
	})

	t.Run("narrowest wins", func(t *testing.T) {
		preds, notes := e.Extract("기초생활수급자 또는 중위소득 50% 이하")
		m := predicateMap(preds)
		require.Contains(t, m, core.PredicateIncomeMax)
		assert.Equal(t, 30, m[core.PredicateIncomeMax].Number)
		require.Len(t, notes, 1)
		assert.Equal(t, "30", notes[0].Chosen)
	})
}

func TestExtractor_SetFields(t *testing.T) {
	e := newTestExtractor(t)

	preds, _ := e.Extract("소상공인 및 예비창업자 대상 창업 자금 지원, 미취업 청년 우대")
	m := predicateMap(preds)

	require.Contains(t, m, core.PredicateBusinessType)
	assert.Equal(t, []string{"소상공인", "예비창업자"}, m[core.PredicateBusinessType].Values)
	require.Contains(t, m, core.PredicateEmploymentStatus)
	assert.Equal(t, []string{"미취업자"}, m[core.PredicateEmploymentStatus].Values)
	require.Contains(t, m, core.PredicateSupportType)
	assert.Equal(t, core.OpEq, m[core.PredicateSupportType].Operator)
	assert.Equal(t, []string{"창업지원"}, m[core.PredicateSupportType].Values)
}

func TestExtractor_SupportTypeOrder(t *testing.T) {
	e := newTestExtractor(t)

	// startup keywords outrank housing when both appear
	preds, _ := e.Extract("창업 청년 주거 공간 임대")
	m := predicateMap(preds)
	assert.Equal(t, []string{"창업지원"}, m[core.PredicateSupportType].Values)
}

func TestExtractor_ProfileValues(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("complete statement", func(t *testing.T) {
		got := e.ProfileValues("저는 29살이고 서울에 사는 구직자예요. 취업 지원을 찾고 있어요")
		assert.Equal(t, "29", got[core.FieldAge])
		assert.Equal(t, "서울", got[core.FieldRegion])
		assert.Equal(t, "구직자", got[core.FieldEmploymentStatus])
		assert.Equal(t, "취업지원", got[core.FieldSupportType])
	})

	t.Run("income category", func(t *testing.T) {
		got := e.ProfileValues("기초생활수급자입니다")
		assert.Equal(t, "30", got[core.FieldIncome])
	})

	t.Run("two regions are not an answer", func(t *testing.T) {
		got := e.ProfileValues("서울이나 경기")
		assert.NotContains(t, got, core.FieldRegion)
	})

	t.Run("nothing stated", func(t *testing.T) {
		assert.Empty(t, e.ProfileValues("잘 모르겠어요"))
	})
}

func TestNewExtractor_RejectsInvalidVocabulary(t *testing.T) {
	vocab := DefaultVocabulary()
	vocab.IncomeCategories = append(vocab.IncomeCategories, IncomeCategory{Name: "기타"})

	_, err := NewExtractor(WithVocabulary(vocab))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewExtractor(WithVocabulary(nil))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
