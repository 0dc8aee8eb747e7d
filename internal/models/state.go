// Package models defines state management structures for dialogue sessions.
package models

import "time"

// DialogueMode selects which turn-control variant a session runs.
type DialogueMode string

const (
	// ModeFreeform refines a single idea until accepted, rejected, or exhausted.
	ModeFreeform DialogueMode = "freeform"
	// ModeSections walks the idea through the fixed section list one at a time.
	ModeSections DialogueMode = "sections"
	// ModeBrief is the freeform loop with a compressed budget and brevity prompts.
	ModeBrief DialogueMode = "brief"
)

// IsValidDialogueMode checks if the given dialogue mode is supported.
func IsValidDialogueMode(m DialogueMode) bool {
	switch m {
	case ModeFreeform, ModeSections, ModeBrief:
		return true
	default:
		return false
	}
}

// Outcome is the terminal classification of a dialogue run.
type Outcome string

const (
	// OutcomePending means the dialogue has not reached a terminal state yet.
	OutcomePending Outcome = "pending"
	// OutcomeAccepted means the customer explicitly accepted the idea.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected means the customer explicitly rejected the idea.
	OutcomeRejected Outcome = "rejected"
	// OutcomeExhausted means the turn budget ran out without a terminal match.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeFailed means a generation call failed before a terminal state.
	OutcomeFailed Outcome = "failed"
)

// Terminal reports whether the outcome ends the dialogue loop.
func (o Outcome) Terminal() bool {
	return o != OutcomePending && o != ""
}

// DialogueState is the transient controller state for one session. It is a
// value object passed into and returned out of each controller step; hosting
// layers persist it between invocations, the core never keeps it in globals.
type DialogueState struct {
	Mode         DialogueMode `json:"mode"`
	TurnPairs    int          `json:"turn_pairs"`    // completed consultant/customer pairs
	SectionIndex int          `json:"section_index"` // current section in sections mode
	Outcome      Outcome      `json:"outcome"`
	LastReply    string       `json:"last_reply,omitempty"`   // latest customer text, feeds the next prompt
	LastVerdict  string       `json:"last_verdict,omitempty"` // classification of LastReply
}

// NewDialogueState returns the initial state for a session in the given mode.
func NewDialogueState(mode DialogueMode) DialogueState {
	return DialogueState{Mode: mode, Outcome: OutcomePending}
}

// Session describes one dialogue run as persisted by the store.
type Session struct {
	ID              string       `json:"id"`
	Mode            DialogueMode `json:"mode"`
	Outcome         Outcome      `json:"outcome"`
	ConsultantModel string       `json:"consultant_model"`
	CustomerModel   string       `json:"customer_model"`
	TurnPairs       int          `json:"turn_pairs"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
