package matching

import (
	"github.com/crazybass81/GovChat/core"
)

// decide maps one turn's evidence onto the next conversation state.
//
// A fallback set never converges: no program satisfies what the user said,
// so the best-effort ranking is shown with a caveat instead.
func decide(set *core.CandidateSet, profile *core.UserProfile, sel Selection, cfg Config) (core.ConversationState, ExhaustionNotice) {
	top, ok := set.Top()
	switch {
	case !ok:
		return core.StateExhausted, NoticeNoPrograms
	case set.Fallback:
		return core.StateExhausted, NoticeNoExactMatch
	case top.Score >= cfg.ConfidenceThreshold || set.Total <= cfg.SmallResultThreshold:
		return core.StateConverged, NoticeNone
	case profile.TurnCount >= cfg.MaxTurns:
		return core.StateExhausted, NoticeTurnLimit
	case sel.Exhausted:
		return core.StateExhausted, NoticeNoInformativeField
	}
	return core.StateCollecting, NoticeNone
}
