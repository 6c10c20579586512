package openai

import (
	"fmt"
	"strings"

	"github.com/crazybass81/GovChat/ai"
)

const systemPrompt = `당신은 정부 지원사업 매칭 상담원입니다.
사용자에게 꼭 필요한 정보 하나만 묻는 짧고 정중한 질문을 한국어로 한 문장 작성하세요.
설명, 인사말, 따옴표, 번호 없이 질문 문장만 출력하세요.`

const userPromptTemplate = `질문할 항목: %s
기본 질문: %s
선택지: %s
현재 후보 지원사업: %s`

func buildUserPrompt(req ai.QuestionRequest) string {
	options := "없음"
	if len(req.Options) > 0 {
		options = strings.Join(req.Options, ", ")
	}
	titles := "없음"
	if len(req.CandidateTitles) > 0 {
		n := min(len(req.CandidateTitles), 5)
		titles = strings.Join(req.CandidateTitles[:n], ", ")
	}
	return fmt.Sprintf(userPromptTemplate, req.Field, ai.TemplateQuestion(req.Field), options, titles)
}
