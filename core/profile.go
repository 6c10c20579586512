package core

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// ConversationState is the finite state of a matching conversation.
type ConversationState string

const (
	// StateCollecting means more questions are expected to narrow the candidates.
	StateCollecting ConversationState = "COLLECTING"
	// StateConverged means the candidates are small or confident enough to present.
	StateConverged ConversationState = "CONVERGED"
	// StateExhausted means no further question can help; results are best-effort.
	StateExhausted ConversationState = "EXHAUSTED"
)

// Terminal reports whether the state ends a turn sequence.
func (s ConversationState) Terminal() bool {
	return s == StateConverged || s == StateExhausted
}

// UserProfile accumulates what a user has told the engine during one session.
type UserProfile struct {
	SessionId string                  `json:"session_id"`
	Fields    map[ProfileField]string `json:"fields,omitempty"`
	FreeText  string                  `json:"free_text,omitempty"`
	TurnCount int                     `json:"turn_count"`
	Asked     []ProfileField          `json:"asked,omitempty"`
	Pending   ProfileField            `json:"pending,omitempty"`
	State     ConversationState       `json:"state,omitempty"`
	Version   uint64                  `json:"version"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// NewUserProfile creates an empty profile for a session.
func NewUserProfile(sessionID string) *UserProfile {
	return &UserProfile{
		SessionId: sessionID,
		Fields:    map[ProfileField]string{},
		State:     StateCollecting,
	}
}

// Set records a field value. Last write wins.
func (p *UserProfile) Set(field ProfileField, value string) {
	if p.Fields == nil {
		p.Fields = map[ProfileField]string{}
	}
	p.Fields[field] = value
}

// Known reports whether the field has a value.
func (p *UserProfile) Known(field ProfileField) bool {
	return p.Fields[field] != ""
}

// Int returns a numeric field value.
func (p *UserProfile) Int(field ProfileField) (int, bool) {
	v, ok := p.Fields[field]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// AppendText adds a raw utterance to the free-text history.
func (p *UserProfile) AppendText(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if p.FreeText == "" {
		p.FreeText = text
		return
	}
	p.FreeText += " " + text
}

// MarkAsked records that a question about field was posed.
func (p *UserProfile) MarkAsked(field ProfileField) {
	if !slices.Contains(p.Asked, field) {
		p.Asked = append(p.Asked, field)
	}
	p.Pending = field
}

// WasAsked reports whether a question about field was already posed.
func (p *UserProfile) WasAsked(field ProfileField) bool {
	return slices.Contains(p.Asked, field)
}

// Filter returns the known fields as a retrieval filter.
func (p *UserProfile) Filter() Filter {
	f := make(Filter, len(p.Fields))
	for k, v := range p.Fields {
		if v != "" {
			f[k] = v
		}
	}
	return f
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	c := *p
	c.Fields = make(map[ProfileField]string, len(p.Fields))
	for k, v := range p.Fields {
		c.Fields[k] = v
	}
	c.Asked = slices.Clone(p.Asked)
	return &c
}
