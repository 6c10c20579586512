package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/matching"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTurner struct {
	mu       sync.Mutex
	requests []matching.Request
	turn     func(matching.Request) (*matching.Response, error)
}

func (f *fakeTurner) Turn(_ context.Context, req matching.Request) (*matching.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.turn != nil {
		return f.turn(req)
	}
	return &matching.Response{SessionId: req.SessionId, State: core.StateCollecting}, nil
}

func post(t *testing.T, s *Server, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/conversation", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrTurnerRequired)
}

func TestConversation(t *testing.T) {
	t.Run("collecting turn", func(t *testing.T) {
		turner := &fakeTurner{turn: func(req matching.Request) (*matching.Response, error) {
			return &matching.Response{
				SessionId:    req.SessionId,
				State:        core.StateCollecting,
				NextQuestion: "어느 지역에 거주하시나요?",
				Field:        core.FieldRegion,
				Options:      []string{"서울", "부산"},
				Candidates: []core.Candidate{{
					Record: &core.ProgramRecord{Id: 42, Title: "청년창업지원사업", Agency: "중소벤처기업부"},
					Score:  0.75,
				}},
				Total: 7,
			}, nil
		}}
		s, err := New(turner)
		require.NoError(t, err)

		resp, data := post(t, s, `{"sessionId":"s1","userMessage":"창업 지원 알려줘"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body ConversationResponse
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, "s1", body.SessionId)
		assert.Equal(t, "COLLECTING", body.State)
		assert.Equal(t, "region", body.Field)
		assert.Equal(t, []string{"서울", "부산"}, body.Options)
		assert.Equal(t, 7, body.Total)
		require.Len(t, body.Candidates, 1)
		assert.Equal(t, core.ID(42).String(), body.Candidates[0].Id)
		assert.InDelta(t, 0.75, body.Candidates[0].Score, 1e-9)
		assert.False(t, body.Caveat)

		require.Len(t, turner.requests, 1)
		assert.Equal(t, "창업 지원 알려줘", turner.requests[0].Message)
	})

	t.Run("missing session id is generated", func(t *testing.T) {
		turner := &fakeTurner{}
		s, err := New(turner)
		require.NoError(t, err)

		resp, data := post(t, s, `{"userMessage":"안녕하세요"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body ConversationResponse
		require.NoError(t, json.Unmarshal(data, &body))
		_, err = uuid.Parse(body.SessionId)
		assert.NoError(t, err)
		assert.Equal(t, body.SessionId, turner.requests[0].SessionId)
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		turner := &fakeTurner{}
		s, err := New(turner)
		require.NoError(t, err)

		resp, data := post(t, s, `{"sessionId":"s1","userMessage":"   "}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(data), "empty")
		assert.Empty(t, turner.requests)
	})

	t.Run("malformed body", func(t *testing.T) {
		s, err := New(&fakeTurner{})
		require.NoError(t, err)

		resp, _ := post(t, s, `{"sessionId":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("store failure is a server error", func(t *testing.T) {
		s, err := New(&fakeTurner{turn: func(matching.Request) (*matching.Response, error) {
			return nil, errors.New("disk full")
		}})
		require.NoError(t, err)

		resp, data := post(t, s, `{"sessionId":"s1","userMessage":"서울"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotContains(t, string(data), "disk full")
	})

	t.Run("exhausted turn carries caveat", func(t *testing.T) {
		s, err := New(&fakeTurner{turn: func(req matching.Request) (*matching.Response, error) {
			return &matching.Response{
				SessionId: req.SessionId,
				State:     core.StateExhausted,
				Caveat:    true,
				Notice:    matching.NoticeNoExactMatch,
				Degraded:  true,
			}, nil
		}})
		require.NoError(t, err)

		_, data := post(t, s, `{"sessionId":"s1","userMessage":"서울"}`)
		var body ConversationResponse
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, "EXHAUSTED", body.State)
		assert.True(t, body.Caveat)
		assert.True(t, body.Degraded)
		assert.Equal(t, string(matching.NoticeNoExactMatch), body.Notice)
		assert.Empty(t, body.NextQuestion)
	})

	t.Run("candidates are capped", func(t *testing.T) {
		candidates := make([]core.Candidate, 5)
		for i := range candidates {
			candidates[i] = core.Candidate{Record: &core.ProgramRecord{Id: core.ID(i + 1)}}
		}
		s, err := New(&fakeTurner{turn: func(req matching.Request) (*matching.Response, error) {
			return &matching.Response{SessionId: req.SessionId, State: core.StateConverged, Candidates: candidates}, nil
		}}, WithMaxCandidates(2))
		require.NoError(t, err)

		_, data := post(t, s, `{"sessionId":"s1","userMessage":"서울"}`)
		var body ConversationResponse
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Len(t, body.Candidates, 2)
	})
}

func TestOperationalRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "govchat_test_total", Help: "test"}).Inc()

	s, err := New(&fakeTurner{}, WithGatherer(reg))
	require.NoError(t, err)

	t.Run("healthz", func(t *testing.T) {
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(data), "govchat_test_total 1")
	})
}
