package ingestion

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Term is a canonical vocabulary entry and the surface forms that denote it.
// Exclusions are phrases in which the name means something else, such as
// 경기 in 경기 침체; they never count as a match.
type Term struct {
	Name       string   `yaml:"name"`
	Aliases    []string `yaml:"aliases"`
	Exclusions []string `yaml:"exclusions,omitempty"`
}

// matches reports whether text contains the canonical name or any alias
// outside the excluded phrases.
func (t Term) matches(text string) bool {
	for _, x := range t.Exclusions {
		if x != "" {
			text = strings.ReplaceAll(text, x, " ")
		}
	}
	if strings.Contains(text, t.Name) {
		return true
	}
	for _, a := range t.Aliases {
		if a != "" && strings.Contains(text, a) {
			return true
		}
	}
	return false
}

// Vocabulary drives the set-valued predicate rules. Order within each list is
// significant for support types only: the first matching category wins.
type Vocabulary struct {
	Regions            []Term            `yaml:"regions"`
	NationwideTerms    []string          `yaml:"nationwide"`
	BusinessTypes      []Term            `yaml:"business_types"`
	EmploymentStatuses []Term            `yaml:"employment_statuses"`
	SupportTypes       []Term            `yaml:"support_types"`
	IncomeCategories   []IncomeCategory  `yaml:"income_categories"`
	AdminTerms         map[string]string `yaml:"admin_terms"`
}

// IncomeCategory maps a welfare status to an income bound in percent of median income.
type IncomeCategory struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	Percent int      `yaml:"percent"`
}

// DefaultVocabulary returns the built-in Korean vocabulary.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Regions: []Term{
			{Name: "서울", Aliases: []string{"서울특별시", "서울시"}},
			{Name: "부산", Aliases: []string{"부산광역시", "부산시"}},
			{Name: "대구", Aliases: []string{"대구광역시", "대구시"}},
			{Name: "인천", Aliases: []string{"인천광역시", "인천시"}},
			{Name: "광주", Aliases: []string{"광주광역시", "광주시"}},
			{Name: "대전", Aliases: []string{"대전광역시", "대전시"}, Exclusions: []string{"대전환"}},
			{Name: "울산", Aliases: []string{"울산광역시", "울산시"}},
			{Name: "세종", Aliases: []string{"세종특별자치시", "세종시"}},
			{Name: "경기", Aliases: []string{"경기도"}, Exclusions: []string{
				"지역경기", "경기침체", "경기 침체", "경기불황", "경기 불황", "경기회복", "경기 회복",
				"경기부양", "경기 부양", "경기변동", "경기 변동", "경기둔화", "경기 둔화", "경기악화", "경기 악화",
				"경기장", "경기대회", "체육경기", "스포츠 경기",
			}},
			{Name: "강원", Aliases: []string{"강원도", "강원특별자치도"}},
			{Name: "충북", Aliases: []string{"충청북도"}},
			{Name: "충남", Aliases: []string{"충청남도"}},
			{Name: "전북", Aliases: []string{"전라북도", "전북특별자치도"}},
			{Name: "전남", Aliases: []string{"전라남도"}},
			{Name: "경북", Aliases: []string{"경상북도"}},
			{Name: "경남", Aliases: []string{"경상남도"}},
			{Name: "제주", Aliases: []string{"제주특별자치도", "제주도"}},
		},
		NationwideTerms: []string{"전국"},
		BusinessTypes: []Term{
			{Name: "예비창업자", Aliases: []string{"예비 창업자", "창업준비자"}},
			{Name: "창업기업", Aliases: []string{"스타트업", "초기창업기업"}},
			{Name: "소상공인"},
			{Name: "중소기업"},
			{Name: "사회적기업", Aliases: []string{"사회적 기업"}},
			{Name: "농업인", Aliases: []string{"농어업인", "농민"}},
			{Name: "자영업자", Aliases: []string{"개인사업자"}},
		},
		EmploymentStatuses: []Term{
			{Name: "재직자", Aliases: []string{"근로자", "직장인"}},
			{Name: "구직자", Aliases: []string{"구직 중"}},
			{Name: "미취업자", Aliases: []string{"미취업", "실업자"}},
			{Name: "학생", Aliases: []string{"대학생", "재학생"}},
		},
		SupportTypes: []Term{
			{Name: "창업지원", Aliases: []string{"창업"}},
			{Name: "취업지원", Aliases: []string{"취업", "일자리"}},
			{Name: "주거지원", Aliases: []string{"주거", "주택", "임대", "전세"}},
			{Name: "교육지원", Aliases: []string{"교육", "훈련", "연수"}},
		},
		IncomeCategories: []IncomeCategory{
			{Name: "기초생활수급자", Aliases: []string{"기초수급자", "수급자"}, Percent: 30},
			{Name: "차상위계층", Aliases: []string{"차상위"}, Percent: 50},
		},
		AdminTerms: map[string]string{
			"만 39세 이하": "청년",
			"예비창업자":    "창업준비자",
			"소상공인":     "중소기업",
			"기초생활수급자":  "저소득층",
			"차상위계층":    "저소득층",
		},
	}
}

// LoadVocabulary reads a YAML vocabulary. Sections missing from the document
// keep their built-in defaults.
func LoadVocabulary(r io.Reader) (*Vocabulary, error) {
	var doc Vocabulary
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding vocabulary: %w", err)
	}

	v := DefaultVocabulary()
	if len(doc.Regions) > 0 {
		v.Regions = doc.Regions
	}
	if len(doc.NationwideTerms) > 0 {
		v.NationwideTerms = doc.NationwideTerms
	}
	if len(doc.BusinessTypes) > 0 {
		v.BusinessTypes = doc.BusinessTypes
	}
	if len(doc.EmploymentStatuses) > 0 {
		v.EmploymentStatuses = doc.EmploymentStatuses
	}
	if len(doc.SupportTypes) > 0 {
		v.SupportTypes = doc.SupportTypes
	}
	if len(doc.IncomeCategories) > 0 {
		v.IncomeCategories = doc.IncomeCategories
	}
	if len(doc.AdminTerms) > 0 {
		v.AdminTerms = doc.AdminTerms
	}
	return v, v.validate()
}

func (v *Vocabulary) validate() error {
	for _, group := range [][]Term{v.Regions, v.BusinessTypes, v.EmploymentStatuses, v.SupportTypes} {
		for _, t := range group {
			if strings.TrimSpace(t.Name) == "" {
				return fmt.Errorf("%w: vocabulary term without a name", ErrInvalidConfig)
			}
		}
	}
	for _, c := range v.IncomeCategories {
		if c.Name == "" || c.Percent <= 0 {
			return fmt.Errorf("%w: income category %q needs a name and a positive percent", ErrInvalidConfig, c.Name)
		}
	}
	return nil
}

// matchTerms returns the sorted canonical names of every term found in text.
func matchTerms(terms []Term, text string) []string {
	var found []string
	for _, t := range terms {
		if t.matches(text) {
			found = append(found, t.Name)
		}
	}
	slices.Sort(found)
	return slices.Compact(found)
}
