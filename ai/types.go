package ai

// questionTemplates are the fixed phrasings used when no generator is available.
var questionTemplates = map[string]string{
	"age":               "연령대를 알려주시면 더 정확한 매칭이 가능합니다. 몇 세이신가요?",
	"region":            "거주하고 계신 지역을 알려주세요.",
	"business_type":     "현재 사업자 유형은 어떻게 되시나요? (예: 예비창업자, 소상공인)",
	"income":            "소득 수준을 알려주시면 맞춤 지원을 찾아드릴 수 있어요.",
	"employment_status": "현재 취업 상태는 어떻게 되시나요?",
	"support_type":      "어떤 종류의 지원을 원하시나요?",
}

// TemplateQuestion returns the fixed question for a profile field.
func TemplateQuestion(field string) string {
	if q, ok := questionTemplates[field]; ok {
		return q
	}
	return field + "에 대해 알려주세요."
}

// FieldOptions are the suggested answers for each profile field.
var FieldOptions = map[string][]string{
	"region":            {"서울", "경기", "인천", "부산", "대구", "기타"},
	"business_type":     {"예비창업자", "창업기업", "소상공인", "중소기업"},
	"income":            {"기초생활수급자", "차상위계층", "일반"},
	"employment_status": {"재직자", "구직자", "학생", "기타"},
	"support_type":      {"창업지원", "취업지원", "주거지원", "교육지원", "기타"},
}
