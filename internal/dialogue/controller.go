package dialogue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/elashya/multi-agent/internal/classify"
	"github.com/elashya/multi-agent/internal/models"
)

// Generator defines how a dialogue turn is produced from role prompts.
// The controller issues one call at a time and blocks until it returns.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, sampling models.SamplingConfig) (string, error)
}

// Opts holds configuration options for the controller.
type Opts struct {
	classifier   classify.Classifier
	haltOnReject *bool
	transcript   *Transcript
}

// Option configures the controller.
type Option func(*Opts)

// WithClassifier replaces the default regex classifier.
func WithClassifier(cl classify.Classifier) Option {
	return func(o *Opts) { o.classifier = cl }
}

// WithHaltOnReject overrides the per-mode default for whether a rejection
// ends the run instead of prompting a replacement idea.
func WithHaltOnReject(halt bool) Option {
	return func(o *Opts) { o.haltOnReject = &halt }
}

// WithTranscript resumes an existing transcript, e.g. when a hosting layer
// replays a persisted session one step at a time.
func WithTranscript(t *Transcript) Option {
	return func(o *Opts) { o.transcript = t }
}

// Controller owns the turn loop for one dialogue session. It alternates
// consultant and customer turns, classifies each customer reply, and advances
// or halts based on the verdict and the turn budget.
type Controller struct {
	gen          Generator
	classifier   classify.Classifier
	req          models.RunRequest
	haltOnReject bool
	transcript   *Transcript
}

// NewController validates the run request and builds a controller.
//
// Rejection handling follows the observed variants: in sections mode a
// rejection ends the run, in freeform and brief modes it prompts a new idea
// and keeps going. WithHaltOnReject overrides either default.
func NewController(gen Generator, req models.RunRequest, opts ...Option) (*Controller, error) {
	if gen == nil {
		return nil, fmt.Errorf("dialogue controller requires a generator")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run request: %w", err)
	}

	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.classifier == nil {
		cfg.classifier = classify.NewDefaultClassifier()
	}
	if cfg.transcript == nil {
		cfg.transcript = NewTranscript()
	}
	haltOnReject := req.Mode == models.ModeSections
	if cfg.haltOnReject != nil {
		haltOnReject = *cfg.haltOnReject
	}

	return &Controller{
		gen:          gen,
		classifier:   cfg.classifier,
		req:          req,
		haltOnReject: haltOnReject,
		transcript:   cfg.transcript,
	}, nil
}

// Transcript returns the transcript accumulated so far. It is valid to export
// regardless of how the run ended.
func (c *Controller) Transcript() *Transcript {
	return c.transcript
}

// Step executes exactly one consultant/customer pair against the given state
// and returns the updated state. The first consultant proposal is part of
// pair 1, so a budget of N pairs yields at most 2N turns. A generation
// failure marks the state failed and keeps the transcript built so far.
func (c *Controller) Step(ctx context.Context, state models.DialogueState) (models.DialogueState, error) {
	if state.Outcome.Terminal() {
		slog.Debug("Controller step on terminal state", "outcome", state.Outcome)
		return state, nil
	}
	// Budget is checked before a new pair begins so a step-wise caller can
	// never start a pair past the configured maximum.
	if state.TurnPairs >= c.req.MaxTurns {
		state.Outcome = models.OutcomeExhausted
		slog.Info("Controller budget exhausted before new pair", "turn_pairs", state.TurnPairs, "max_turns", c.req.MaxTurns)
		return state, nil
	}

	sysConsultant, sysCustomer := SystemPrompts(state.Mode)

	consultantReply, err := c.gen.Generate(ctx, sysConsultant, c.consultantPrompt(state), c.req.Consultant)
	if err != nil {
		state.Outcome = models.OutcomeFailed
		slog.Error("Controller consultant turn failed", "pair", state.TurnPairs+1, "error", err)
		return state, fmt.Errorf("consultant turn failed: %w", err)
	}
	c.transcript.Append(models.RoleConsultant, consultantReply)
	slog.Debug("Controller consultant turn recorded", "pair", state.TurnPairs+1, "section_index", state.SectionIndex)

	customerReply, err := c.gen.Generate(ctx, sysCustomer, c.customerPrompt(state, consultantReply), c.req.Customer)
	if err != nil {
		state.Outcome = models.OutcomeFailed
		slog.Error("Controller customer turn failed", "pair", state.TurnPairs+1, "error", err)
		return state, fmt.Errorf("customer turn failed: %w", err)
	}
	c.transcript.Append(models.RoleCustomer, customerReply)

	state.TurnPairs++
	state.LastReply = customerReply
	verdict := c.classifier.Classify(customerReply)
	state.LastVerdict = string(verdict)
	slog.Debug("Controller customer turn classified", "pair", state.TurnPairs, "verdict", verdict)

	switch verdict {
	case classify.VerdictAccepted:
		state.Outcome = models.OutcomeAccepted
	case classify.VerdictRejected:
		if c.haltOnReject {
			state.Outcome = models.OutcomeRejected
		} else if state.Mode == models.ModeSections {
			// A replacement idea starts over from the first section.
			state.SectionIndex = 0
		}
	case classify.VerdictSectionApproved:
		if state.Mode == models.ModeSections {
			state.SectionIndex++
			slog.Debug("Controller section approved", "section_index", state.SectionIndex, "sections", len(Sections))
		}
	}

	// The in-flight pair always completes; exhaustion is reported instead of
	// pretending the last state was an acceptance.
	if !state.Outcome.Terminal() && state.TurnPairs >= c.req.MaxTurns {
		state.Outcome = models.OutcomeExhausted
	}
	return state, nil
}

// Run executes the dialogue loop from a fresh state until a terminal outcome.
func (c *Controller) Run(ctx context.Context) (models.DialogueState, error) {
	state := models.NewDialogueState(c.req.Mode)
	slog.Info("Dialogue run starting", "mode", state.Mode, "max_turns", c.req.MaxTurns,
		"consultant_model", c.req.Consultant.Model, "customer_model", c.req.Customer.Model)

	for !state.Outcome.Terminal() {
		var err error
		state, err = c.Step(ctx, state)
		if err != nil {
			return state, err
		}
	}

	slog.Info("Dialogue run finished", "outcome", state.Outcome, "turn_pairs", state.TurnPairs, "turns", c.transcript.Len())
	return state, nil
}

// consultantPrompt builds the next consultant user prompt from the state.
func (c *Controller) consultantPrompt(state models.DialogueState) string {
	if state.Mode == models.ModeSections {
		if state.SectionIndex >= len(Sections) {
			return summaryPrompt()
		}
		title := Sections[state.SectionIndex]
		switch {
		case state.TurnPairs == 0:
			return presentSectionPrompt(title)
		case state.LastVerdict == string(classify.VerdictSectionApproved):
			return continueSectionPrompt(title)
		case state.LastVerdict == string(classify.VerdictRejected):
			return newIdeaSectionPrompt(state.LastReply, Sections[0])
		default:
			return reviseSectionPrompt(title, state.LastReply)
		}
	}

	switch {
	case state.TurnPairs == 0:
		return initialProposalPrompt()
	case state.LastVerdict == string(classify.VerdictRejected):
		return newIdeaPrompt(state.LastReply)
	default:
		return refineIdeaPrompt(state.LastReply)
	}
}

// customerPrompt builds the customer user prompt for the consultant's reply.
func (c *Controller) customerPrompt(state models.DialogueState, consultantReply string) string {
	if state.Mode == models.ModeSections {
		if state.SectionIndex >= len(Sections) {
			return finalVerdictPrompt(consultantReply)
		}
		return evaluateSectionPrompt(Sections[state.SectionIndex], consultantReply)
	}
	return challengeProposalPrompt(consultantReply)
}
