// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crazybass81/GovChat/ai"
	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/ingestion"
	"github.com/crazybass81/GovChat/search"
	"github.com/crazybass81/GovChat/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// maxQuestionContext bounds the candidate titles handed to the phraser.
const maxQuestionContext = 5

// Retriever ranks programs for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query search.Query) (*core.CandidateSet, error)
}

var _ Retriever = (*search.Retriever)(nil)

// Request is one user turn.
type Request struct {
	SessionId string
	Message   string
}

// Response is the outcome of one turn. It is always well formed, even when
// a provider or the index failed.
type Response struct {
	SessionId    string
	State        core.ConversationState
	NextQuestion string
	Field        core.ProfileField // field the question asks about
	Options      []string
	Candidates   []core.Candidate
	Total        int
	Caveat       bool
	Notice       ExhaustionNotice
	Degraded     bool
	Profile      *core.UserProfile
}

// Controller runs conversation turns. It keeps no session state in memory;
// everything lives in the profile store.
type Controller struct {
	retriever Retriever
	profiles  storage.ProfileStore
	phraser   ai.QuestionPhraser
	parser    *AnswerParser
	selector  *Selector
	config    Config
	metrics   *Metrics
	logger    *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller) error

// WithConfig replaces the default thresholds.
func WithConfig(cfg Config) Option {
	return func(c *Controller) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.config = cfg.clone()
		return nil
	}
}

// WithExtractor sets the extractor used to read answers.
func WithExtractor(e *ingestion.Extractor) Option {
	return func(c *Controller) error {
		if e == nil {
			return fmt.Errorf("%w: nil extractor", ErrInvalidConfig)
		}
		c.parser = NewAnswerParser(e)
		return nil
	}
}

// WithMetrics registers the conversation counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Controller) error {
		c.metrics = NewMetrics(reg)
		return nil
	}
}

// WithSharedMetrics reuses counters already registered, so several
// controllers can report into one registry.
func WithSharedMetrics(m *Metrics) Option {
	return func(c *Controller) error {
		if m == nil {
			return fmt.Errorf("%w: nil metrics", ErrInvalidConfig)
		}
		c.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewController creates a conversation controller.
func NewController(retriever Retriever, profiles storage.ProfileStore, provider ai.AIProvider, opts ...Option) (*Controller, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if profiles == nil {
		return nil, ErrProfileStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	c := &Controller{
		retriever: retriever,
		profiles:  profiles,
		phraser:   provider.QuestionPhraser(),
		config:    DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.parser == nil {
		extractor, err := ingestion.NewExtractor(ingestion.WithExtractorLogger(c.logger))
		if err != nil {
			return nil, err
		}
		c.parser = NewAnswerParser(extractor)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(prometheus.NewRegistry())
	}
	c.selector = NewSelector(c.config)
	c.logger = c.logger.With("component", "controller")
	return c, nil
}

// Turn merges the user's message into the session profile and decides what
// happens next. Errors are returned only for invalid requests and profile
// store failures; provider and index failures yield a degraded response.
func (c *Controller) Turn(ctx context.Context, req Request) (*Response, error) {
	if req.SessionId == "" {
		return nil, core.ErrEmptySessionID
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	turnCtx := ctx
	if c.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(ctx, c.config.TurnTimeout)
		defer cancel()
	}

	profile, err := c.merge(ctx, req.SessionId, message)
	if err != nil {
		return nil, fmt.Errorf("merging answer: %w", err)
	}

	resp := &Response{SessionId: req.SessionId}
	set, err := c.retriever.Retrieve(turnCtx, search.QueryFromProfile(profile))
	if err != nil {
		c.logger.Error("retrieval failed, answering without candidates", "session", req.SessionId, "err", err)
		resp.State, resp.Notice, resp.Caveat, resp.Degraded = core.StateExhausted, NoticeUnavailable, true, true
		return c.finish(ctx, resp, profile, "")
	}
	resp.Candidates, resp.Total, resp.Degraded = set.Candidates, set.Total, set.Degraded

	sel := c.selector.Select(set, profile)
	resp.State, resp.Notice = decide(set, profile, sel, c.config)
	resp.Caveat = resp.State == core.StateExhausted

	var asked core.ProfileField
	if resp.State == core.StateCollecting {
		asked = sel.Field
		resp.Field = asked
		resp.Options = ai.FieldOptions[string(asked)]
		resp.NextQuestion = c.phrase(turnCtx, asked, resp.Options, set)
	}
	c.logger.Debug("turn decided",
		"session", req.SessionId,
		"state", resp.State,
		"notice", resp.Notice,
		"total", set.Total,
		"field", sel.Field,
		"value", sel.Value,
	)
	return c.finish(ctx, resp, profile, asked)
}

// merge applies the parsed answer atomically. fn may run more than once
// when the store retries a conflict, so it only depends on its argument.
func (c *Controller) merge(ctx context.Context, sessionID, message string) (*core.UserProfile, error) {
	return c.profiles.UpdateProfile(ctx, sessionID, func(p *core.UserProfile) error {
		for field, value := range c.parser.Parse(p.Pending, message) {
			p.Set(field, value)
		}
		p.AppendText(message)
		p.Pending = ""
		return nil
	})
}

// finish records the decided state, and the question asked if any, on the
// stored profile.
func (c *Controller) finish(ctx context.Context, resp *Response, profile *core.UserProfile, asked core.ProfileField) (*Response, error) {
	updated, err := c.profiles.UpdateProfile(ctx, profile.SessionId, func(p *core.UserProfile) error {
		p.State = resp.State
		if asked != "" {
			p.MarkAsked(asked)
			p.TurnCount++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording turn: %w", err)
	}
	resp.Profile = updated

	c.metrics.Turns.WithLabelValues(string(resp.State)).Inc()
	if asked != "" {
		c.metrics.Questions.WithLabelValues(string(asked)).Inc()
	}
	if resp.Degraded {
		c.metrics.Degraded.Inc()
	}
	return resp, nil
}

// phrase asks the phraser for a question, falling back to the template.
func (c *Controller) phrase(ctx context.Context, field core.ProfileField, options []string, set *core.CandidateSet) string {
	titles := make([]string, 0, maxQuestionContext)
	for _, cand := range set.Candidates[:min(maxQuestionContext, len(set.Candidates))] {
		titles = append(titles, cand.Record.Title)
	}
	question, err := c.phraser.PhraseQuestion(ctx, ai.QuestionRequest{
		Field:           string(field),
		Options:         options,
		CandidateTitles: titles,
	})
	if err != nil || strings.TrimSpace(question) == "" {
		c.logger.Warn("question generation failed, using template", "field", field, "err", err)
		return ai.TemplateQuestion(string(field))
	}
	return strings.TrimSpace(question)
}
