package api

import (
	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/matching"
)

// ConversationRequest is the body of POST /v1/conversation.
type ConversationRequest struct {
	SessionId   string `json:"sessionId"`
	UserMessage string `json:"userMessage"`
}

// CandidateView is one ranked program as shown to clients.
type CandidateView struct {
	Id          string  `json:"id"`
	Title       string  `json:"title"`
	Agency      string  `json:"agency,omitempty"`
	SupportType string  `json:"supportType,omitempty"`
	Score       float64 `json:"score"`
}

// ConversationResponse is the body returned for every accepted turn.
type ConversationResponse struct {
	SessionId    string          `json:"sessionId"`
	State        string          `json:"state"`
	NextQuestion string          `json:"nextQuestion,omitempty"`
	Field        string          `json:"field,omitempty"`
	Options      []string        `json:"options,omitempty"`
	Candidates   []CandidateView `json:"candidates,omitempty"`
	Total        int             `json:"total"`
	Caveat       bool            `json:"caveat"`
	Notice       string          `json:"notice,omitempty"`
	Degraded     bool            `json:"degraded"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newConversationResponse(resp *matching.Response, maxCandidates int) ConversationResponse {
	out := ConversationResponse{
		SessionId:    resp.SessionId,
		State:        string(resp.State),
		NextQuestion: resp.NextQuestion,
		Field:        string(resp.Field),
		Options:      resp.Options,
		Total:        resp.Total,
		Caveat:       resp.Caveat,
		Notice:       string(resp.Notice),
		Degraded:     resp.Degraded,
	}
	candidates := resp.Candidates
	if maxCandidates > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	for _, c := range candidates {
		out.Candidates = append(out.Candidates, candidateView(c))
	}
	return out
}

func candidateView(c core.Candidate) CandidateView {
	return CandidateView{
		Id:          c.Record.Id.String(),
		Title:       c.Record.Title,
		Agency:      c.Record.Agency,
		SupportType: c.Record.SupportType(),
		Score:       c.Score,
	}
}
