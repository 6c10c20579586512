package matching

import "errors"

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrProfileStoreRequired is returned when a profile store is not provided.
	ErrProfileStoreRequired = errors.New("profile store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrEmptyMessage is returned for a turn without a user message.
	ErrEmptyMessage = errors.New("user message is empty")

	// ErrInvalidConfig is returned for out-of-range thresholds or weights.
	ErrInvalidConfig = errors.New("invalid matching configuration")
)

// ExhaustionNotice tells the caller why a conversation ended without
// converging. It accompanies the EXHAUSTED state and is not an error.
type ExhaustionNotice string

const (
	NoticeNone               ExhaustionNotice = ""
	NoticeTurnLimit          ExhaustionNotice = "turn_limit"
	NoticeNoInformativeField ExhaustionNotice = "no_informative_field"
	NoticeNoExactMatch       ExhaustionNotice = "no_exact_match"
	NoticeNoPrograms         ExhaustionNotice = "no_programs"
	NoticeUnavailable        ExhaustionNotice = "index_unavailable"
)
