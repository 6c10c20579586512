package ingestion

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/crazybass81/GovChat/core"
)

// RawItem is one flattened listing as delivered by a feed.
type RawItem map[string]string

var (
	externalIDAliases = []string{"policyId", "id", "svcId", "pblancId", "bizId"}
	titleAliases      = []string{"policyName", "title", "svcNm", "pblancNm", "bizNm"}
	contentAliases    = []string{"policyContent", "description", "content", "svcPurpsCn", "pblancCn"}
	targetAliases     = []string{"target", "targetAudience", "sprtTrgtCn", "trgterIndvdlArray"}
	supportAliases    = []string{"supportContent", "sprtCn", "support"}
	agencyAliases     = []string{"organName", "agency", "jrsdInsttNm", "excInsttNm"}

	metadataAliases = map[string][]string{
		"apply_period":  {"applyPeriod", "rqutPrdCn", "reqstBeginEndDe"},
		"apply_method":  {"applyMethod", "applyMthdCn", "aplyMtdCn"},
		"contact":       {"contactInfo", "telno", "inqplCtadrList"},
		"reference_url": {"referenceUrl", "url", "detailUrl", "pblancUrl"},
	}
)

// amounts are tried largest unit first; the first hit is recorded.
var supportAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d[\d,]*\s*억\s*원?`),
	regexp.MustCompile(`\d[\d,]*\s*천만\s*원?`),
	regexp.MustCompile(`\d[\d,]*\s*백만\s*원?`),
	regexp.MustCompile(`\d[\d,]*\s*만\s*원`),
}

// Normalizer maps heterogeneous listings onto ProgramRecord.
type Normalizer struct {
	vocab *Vocabulary
}

// NewNormalizer creates a Normalizer. A nil vocabulary selects the default.
func NewNormalizer(vocab *Vocabulary) *Normalizer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Normalizer{vocab: vocab}
}

// Normalize turns a raw item into a record without predicates or vector.
// A missing external id or title is an ErrIngestion.
func (n *Normalizer) Normalize(item RawItem, source core.SourceType) (*core.ProgramRecord, error) {
	if err := core.ValidateSourceType(source); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIngestion, err)
	}
	externalID := firstOf(item, externalIDAliases)
	if externalID == "" {
		return nil, fmt.Errorf("%w: %w", ErrIngestion, core.ErrEmptyExternalID)
	}
	title := firstOf(item, titleAliases)
	if title == "" {
		return nil, fmt.Errorf("%w: %w: item %s", ErrIngestion, core.ErrEmptyTitle, externalID)
	}

	var parts []string
	for _, aliases := range [][]string{contentAliases, targetAliases, supportAliases} {
		if v := firstOf(item, aliases); v != "" {
			parts = append(parts, v)
		}
	}
	description := strings.Join(parts, "\n")

	metadata := map[string]string{}
	for key, aliases := range metadataAliases {
		if v := firstOf(item, aliases); v != "" {
			metadata[key] = v
		}
	}
	text := title + " " + description
	if amount := SupportAmount(text); amount != "" {
		metadata["support_amount"] = amount
	}
	if keywords := n.adminKeywords(text); len(keywords) > 0 {
		metadata["keywords"] = strings.Join(keywords, ",")
	}

	return &core.ProgramRecord{
		Id:          core.IDFromSource(source, externalID),
		SourceType:  source,
		ExternalId:  externalID,
		Title:       title,
		Description: description,
		Agency:      firstOf(item, agencyAliases),
		Active:      true,
		Metadata:    metadata,
	}, nil
}

// adminKeywords returns the normalized administrative terms found in text.
func (n *Normalizer) adminKeywords(text string) []string {
	var out []string
	for _, term := range slices.Sorted(maps.Keys(n.vocab.AdminTerms)) {
		if strings.Contains(text, term) {
			out = append(out, n.vocab.AdminTerms[term])
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SupportAmount returns the first support amount phrase in text, or "".
func SupportAmount(text string) string {
	for _, p := range supportAmountPatterns {
		if m := p.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func firstOf(item RawItem, aliases []string) string {
	for _, a := range aliases {
		if v := strings.TrimSpace(item[a]); v != "" {
			return v
		}
	}
	return ""
}

// Page is one decoded feed response.
type Page struct {
	Items      []RawItem
	Rejected   []error // malformed items, already skipped
	ResultCode string
	ResultMsg  string
}

// ParsePage decodes a page in either format; markup is recognized by its
// leading '<'.
func ParsePage(data []byte) (*Page, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return ParseXMLPage(trimmed)
	}
	return ParseJSONPage(trimmed)
}

// ParseJSONPage decodes a JSON feed page. Items are looked up under
// response.body.items.item, response.body.items, items or data, and each
// location may hold a list or a single object.
func ParseJSONPage(data []byte) (*Page, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding json page: %w", ErrFeed, err)
	}

	page := &Page{}
	if header, ok := lookup(doc, "response", "header").(map[string]any); ok {
		page.ResultCode = scalarString(header["resultCode"])
		page.ResultMsg = scalarString(header["resultMsg"])
	}

	var raw any
	for _, path := range [][]string{
		{"response", "body", "items", "item"},
		{"response", "body", "items"},
		{"items"},
		{"data"},
	} {
		if v := lookup(doc, path...); v != nil {
			raw = v
			break
		}
	}
	if raw == nil {
		if list, ok := doc.([]any); ok {
			raw = list
		}
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		if len(v) > 0 {
			items = []any{v}
		}
	case string, nil:
		// an empty page is encoded as "" by some providers
	default:
		return nil, fmt.Errorf("%w: unexpected items type %T", ErrFeed, raw)
	}

	for i, it := range items {
		if err := validateItem(it); err != nil {
			page.Rejected = append(page.Rejected, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		page.Items = append(page.Items, flatten(it.(map[string]any)))
	}
	return page, nil
}

// ParseXMLPage decodes a tagged-markup feed page. Every <item> element at
// any depth becomes one RawItem built from its child elements' text.
func ParseXMLPage(data []byte) (*Page, error) {
	page := &Page{}
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		stack   []string
		current RawItem
		field   string
		text    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: decoding xml page: %w", ErrFeed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			stack = append(stack, name)
			if name == "item" {
				current, field = RawItem{}, ""
			} else if current != nil && field == "" {
				field = name
				text.Reset()
			}
		case xml.CharData:
			switch {
			case field != "":
				text.Write(t)
			case current == nil && len(stack) > 0 && stack[len(stack)-1] == "resultCode":
				page.ResultCode += strings.TrimSpace(string(t))
			case current == nil && len(stack) > 0 && stack[len(stack)-1] == "resultMsg":
				page.ResultMsg += strings.TrimSpace(string(t))
			}
		case xml.EndElement:
			name := t.Name.Local
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch {
			case name == "item" && current != nil:
				if firstOf(current, externalIDAliases) == "" || firstOf(current, titleAliases) == "" {
					page.Rejected = append(page.Rejected, fmt.Errorf("%w: item %d has no id or title", ErrIngestion, len(page.Items)+len(page.Rejected)))
				} else {
					page.Items = append(page.Items, current)
				}
				current = nil
			case current != nil && name == field:
				current[field] = strings.TrimSpace(text.String())
				field = ""
			}
		}
	}
	return page, nil
}

func lookup(v any, path ...string) any {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

func flatten(obj map[string]any) RawItem {
	item := make(RawItem, len(obj))
	for k, v := range obj {
		item[k] = scalarString(v)
	}
	return item
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := scalarString(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
