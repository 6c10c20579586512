package ingestion

import (
	"testing"

	"github.com/crazybass81/GovChat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("youth center listing", func(t *testing.T) {
		item := RawItem{
			"policyId":       "R2024010100001",
			"policyName":     "청년 창업 지원금",
			"policyContent":  "예비창업자에게 최대 1,000만원 지원",
			"target":         "만 39세 이하",
			"organName":      "중소벤처기업부",
			"applyPeriod":    "2024.01.01 ~ 2024.12.31",
			"referenceUrl":   "https://example.go.kr/p/1",
			"unrelatedField": "ignored",
		}

		record, err := n.Normalize(item, core.SourceTypeAPI)
		require.NoError(t, err)

		assert.Equal(t, core.IDFromSource(core.SourceTypeAPI, "R2024010100001"), record.Id)
		assert.Equal(t, "R2024010100001", record.ExternalId)
		assert.Equal(t, "청년 창업 지원금", record.Title)
		assert.Equal(t, "예비창업자에게 최대 1,000만원 지원\n만 39세 이하", record.Description)
		assert.Equal(t, "중소벤처기업부", record.Agency)
		assert.True(t, record.Active)
		assert.Equal(t, "2024.01.01 ~ 2024.12.31", record.Metadata["apply_period"])
		assert.Equal(t, "https://example.go.kr/p/1", record.Metadata["reference_url"])
		assert.Equal(t, "1,000만원", record.Metadata["support_amount"])
		assert.Equal(t, "창업준비자,청년", record.Metadata["keywords"])
		assert.Empty(t, record.Predicates)
		assert.Empty(t, record.Vector)
	})

	t.Run("public data portal aliases", func(t *testing.T) {
		item := RawItem{"svcId": "SVC-9", "svcNm": "주거 안정 지원", "jrsdInsttNm": "국토교통부"}

		record, err := n.Normalize(item, core.SourceTypeAPI)
		require.NoError(t, err)
		assert.Equal(t, "SVC-9", record.ExternalId)
		assert.Equal(t, "주거 안정 지원", record.Title)
		assert.Equal(t, "국토교통부", record.Agency)
	})

	t.Run("same source item yields same id", func(t *testing.T) {
		a, err := n.Normalize(RawItem{"id": "7", "title": "A"}, core.SourceTypeManual)
		require.NoError(t, err)
		b, err := n.Normalize(RawItem{"id": "7", "title": "B"}, core.SourceTypeManual)
		require.NoError(t, err)
		c, err := n.Normalize(RawItem{"id": "7", "title": "A"}, core.SourceTypeDocument)
		require.NoError(t, err)

		assert.Equal(t, a.Id, b.Id)
		assert.NotEqual(t, a.Id, c.Id)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := n.Normalize(RawItem{"title": "무명"}, core.SourceTypeAPI)
		assert.ErrorIs(t, err, ErrIngestion)
		assert.ErrorIs(t, err, core.ErrEmptyExternalID)
	})

	t.Run("blank title", func(t *testing.T) {
		_, err := n.Normalize(RawItem{"id": "1", "title": "   "}, core.SourceTypeAPI)
		assert.ErrorIs(t, err, ErrIngestion)
		assert.ErrorIs(t, err, core.ErrEmptyTitle)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := n.Normalize(RawItem{"id": "1", "title": "x"}, core.SourceType("ftp"))
		assert.ErrorIs(t, err, ErrIngestion)
	})
}

func TestSupportAmount(t *testing.T) {
	tests := map[string]string{
		"최대 3억원 융자":        "3억원",
		"1인당 500만원 지원":     "500만원",
		"월 30만원, 연간 2천만 원": "2천만 원",
		"금액 미정":            "",
	}
	for text, want := range tests {
		t.Run(text, func(t *testing.T) {
			assert.Equal(t, want, SupportAmount(text))
		})
	}
}

func TestParseJSONPage(t *testing.T) {
	t.Run("portal envelope", func(t *testing.T) {
		data := []byte(`{"response":{"header":{"resultCode":"00","resultMsg":"NORMAL SERVICE."},
			"body":{"items":{"item":[
				{"svcId":"A1","svcNm":"첫번째","sprtTrgtCn":"만 34세 이하"},
				{"svcId":12345,"svcNm":"두번째","tags":["청년","창업"]},
				{"svcNm":"아이디 없음"}
			]},"totalCount":3}}}`)

		page, err := ParseJSONPage(data)
		require.NoError(t, err)
		assert.Equal(t, "00", page.ResultCode)
		assert.Equal(t, "NORMAL SERVICE.", page.ResultMsg)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "A1", page.Items[0]["svcId"])
		assert.Equal(t, "12345", page.Items[1]["svcId"])
		assert.Equal(t, "청년, 창업", page.Items[1]["tags"])
		require.Len(t, page.Rejected, 1)
		assert.ErrorIs(t, page.Rejected[0], ErrIngestion)
	})

	t.Run("single item object", func(t *testing.T) {
		page, err := ParseJSONPage([]byte(`{"response":{"body":{"items":{"item":{"id":"x","title":"t"}}}}}`))
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
	})

	t.Run("flat items list", func(t *testing.T) {
		page, err := ParseJSONPage([]byte(`{"items":[{"policyId":"p","policyName":"n"}]}`))
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
	})

	t.Run("top level array", func(t *testing.T) {
		page, err := ParseJSONPage([]byte(`[{"id":"1","title":"a"},{"id":"2","title":"b"}]`))
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
	})

	t.Run("empty page", func(t *testing.T) {
		page, err := ParseJSONPage([]byte(`{"response":{"header":{"resultCode":"00"},"body":{"items":""}}}`))
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Empty(t, page.Rejected)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseJSONPage([]byte(`{"items": [`))
		assert.ErrorIs(t, err, ErrFeed)
	})

	t.Run("unexpected items type", func(t *testing.T) {
		_, err := ParseJSONPage([]byte(`{"items": 42}`))
		assert.ErrorIs(t, err, ErrFeed)
	})
}

func TestParseXMLPage(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<response>
  <header><resultCode>00</resultCode><resultMsg>NORMAL SERVICE.</resultMsg></header>
  <body>
    <items>
      <item><svcId>X1</svcId><svcNm>주거 지원</svcNm><sprtTrgtCn>무주택 청년</sprtTrgtCn></item>
      <item><svcId>X2</svcId><svcNm> 교육 바우처 </svcNm></item>
      <item><svcNm>아이디 없음</svcNm></item>
    </items>
  </body>
</response>`)

	page, err := ParseXMLPage(data)
	require.NoError(t, err)

	assert.Equal(t, "00", page.ResultCode)
	assert.Equal(t, "NORMAL SERVICE.", page.ResultMsg)
	require.Len(t, page.Items, 2)
	assert.Equal(t, RawItem{"svcId": "X1", "svcNm": "주거 지원", "sprtTrgtCn": "무주택 청년"}, page.Items[0])
	assert.Equal(t, "교육 바우처", page.Items[1]["svcNm"])
	require.Len(t, page.Rejected, 1)
	assert.ErrorIs(t, page.Rejected[0], ErrIngestion)

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseXMLPage([]byte(`<response><items><item>`))
		assert.ErrorIs(t, err, ErrFeed)
	})
}

func TestParsePage(t *testing.T) {
	t.Run("markup", func(t *testing.T) {
		page, err := ParsePage([]byte("\n  <response><body><items><item><svcId>X1</svcId><svcNm>주거</svcNm></item></items></body></response>"))
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "X1", page.Items[0]["svcId"])
	})

	t.Run("json", func(t *testing.T) {
		page, err := ParsePage([]byte(` {"items":[{"id":"J1","title":"창업"}]}`))
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "J1", page.Items[0]["id"])
	})
}
