package ingestion

import (
	"strings"
	"testing"

	"github.com/crazybass81/GovChat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVocabulary(t *testing.T) {
	doc := `
regions:
  - name: 판교
    aliases: [판교테크노밸리]
income_categories:
  - name: 한부모가족
    aliases: [한부모]
    percent: 60
`
	vocab, err := LoadVocabulary(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, vocab.Regions, 1)
	assert.Equal(t, "판교", vocab.Regions[0].Name)
	require.Len(t, vocab.IncomeCategories, 1)
	assert.Equal(t, 60, vocab.IncomeCategories[0].Percent)
	// sections absent from the document keep their defaults
	assert.Equal(t, DefaultVocabulary().SupportTypes, vocab.SupportTypes)

	e, err := NewExtractor(WithVocabulary(vocab))
	require.NoError(t, err)
	preds, _ := e.Extract("판교테크노밸리 입주 한부모 가정")
	m := predicateMap(preds)
	assert.Equal(t, []string{"판교"}, m[core.PredicateRegion].Values)
	assert.Equal(t, 60, m[core.PredicateIncomeMax].Number)
}

func TestLoadVocabulary_Invalid(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadVocabulary(strings.NewReader("regions: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("nameless term", func(t *testing.T) {
		_, err := LoadVocabulary(strings.NewReader("support_types:\n  - aliases: [x]\n"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestTerm_Matches(t *testing.T) {
	term := Term{Name: "경기", Aliases: []string{"경기도", ""}}

	assert.True(t, term.matches("경기도 소재"))
	assert.True(t, term.matches("경기 지역"))
	assert.False(t, term.matches("서울"))

	t.Run("exclusions hide other senses", func(t *testing.T) {
		term := Term{Name: "경기", Aliases: []string{"경기도"}, Exclusions: []string{"지역경기", "경기 침체"}}
		assert.False(t, term.matches("지역경기 침체로 힘든 소상공인"))
		assert.False(t, term.matches("경기 침체 극복 지원"))
		assert.True(t, term.matches("경기 침체 속 경기도 소재 기업"))
		assert.True(t, term.matches("경기 소재 중소기업"))
	})
}
