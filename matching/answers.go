package matching

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/ingestion"
)

var (
	// a standalone number: digits of a longer number never count
	numberPattern    = regexp.MustCompile(`(?:^|\D)(\d{1,3})(?:\D|$)`)
	ageDecadePattern = regexp.MustCompile(`([1-9])0\s*대`)
	birthYearPattern = regexp.MustCompile(`(?:^|\D)((?:19|20)\d{2}|\d{2})\s*년\s*생`)
	// money is never an income percentage
	moneyPattern = regexp.MustCompile(`\d[\d,]*\s*(?:(?:억|천만|백만|만|천)\s*원?|원)`)
)

// "일반" stands for an ordinary household, i.e. median income
const generalIncomePercent = 100

// yes/no replies to the business question, checked in order
var businessReplies = []struct {
	words []string
	value string // empty means the reply carries no business type
}{
	{[]string{"준비"}, "예비창업자"},
	{[]string{"아니", "없"}, ""},
	{[]string{"예", "네", "있", "응"}, "창업기업"},
}

// AnswerParser turns a user message into profile field values.
type AnswerParser struct {
	extractor *ingestion.Extractor
	now       func() time.Time
}

// NewAnswerParser creates a parser reading field values with extractor.
func NewAnswerParser(extractor *ingestion.Extractor) *AnswerParser {
	return &AnswerParser{extractor: extractor, now: time.Now}
}

// Parse reads every field the message states. The field last asked about
// also accepts short replies such as a bare number or yes/no; an explicit
// statement in the message wins over that reading.
func (p *AnswerParser) Parse(pending core.ProfileField, message string) map[core.ProfileField]string {
	values := p.extractor.ProfileValues(message)
	if pending == "" {
		return values
	}
	if _, stated := values[pending]; stated {
		return values
	}
	if v, ok := p.parsePending(pending, message); ok {
		values[pending] = v
	}
	return values
}

func (p *AnswerParser) parsePending(field core.ProfileField, message string) (string, bool) {
	message = strings.TrimSpace(message)
	switch field {
	case core.FieldAge:
		if age, ok := p.ageFromBirthYear(message); ok {
			return strconv.Itoa(age), true
		}
		if m := ageDecadePattern.FindStringSubmatch(message); m != nil {
			// middle of the decade
			decade, _ := strconv.Atoi(m[1])
			return strconv.Itoa(decade*10 + 5), true
		}
		if m := numberPattern.FindStringSubmatch(message); m != nil {
			return m[1], true
		}
	case core.FieldIncome:
		rest := moneyPattern.ReplaceAllString(message, " ")
		if m := numberPattern.FindStringSubmatch(rest); m != nil {
			return m[1], true
		}
		if strings.Contains(rest, "일반") {
			return strconv.Itoa(generalIncomePercent), true
		}
	case core.FieldBusinessType:
		for _, reply := range businessReplies {
			for _, w := range reply.words {
				if strings.Contains(message, w) {
					return reply.value, reply.value != ""
				}
			}
		}
	}
	return "", false
}

// ageFromBirthYear reads "1990년생" or "90년생". Two-digit years resolve to
// the latest past century.
func (p *AnswerParser) ageFromBirthYear(message string) (int, bool) {
	m := birthYearPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	year, _ := strconv.Atoi(m[1])
	current := p.now().Year()
	if len(m[1]) == 2 {
		year += 2000
		if year > current {
			year -= 100
		}
	}
	if year > current {
		return 0, false
	}
	return current - year, true
}
