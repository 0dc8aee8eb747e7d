package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/elashya/multi-agent/internal/models"
)

// mockGenerator implements Generator with scripted per-role replies. Replies
// are consumed in order; the last one repeats once a script runs out.
type mockGenerator struct {
	consultantReplies []string
	customerReplies   []string
	consultantPrompts []string
	customerPrompts   []string
	failRole          models.Role
	failErr           error
}

func (m *mockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, sampling models.SamplingConfig) (string, error) {
	switch sampling.Model {
	case "consultant-model":
		if m.failRole == models.RoleConsultant {
			return "", m.failErr
		}
		m.consultantPrompts = append(m.consultantPrompts, userPrompt)
		return scriptedReply(m.consultantReplies, len(m.consultantPrompts)-1), nil
	case "customer-model":
		if m.failRole == models.RoleCustomer {
			return "", m.failErr
		}
		m.customerPrompts = append(m.customerPrompts, userPrompt)
		return scriptedReply(m.customerReplies, len(m.customerPrompts)-1), nil
	default:
		return "", errors.New("unexpected model in test: " + sampling.Model)
	}
}

func scriptedReply(script []string, i int) string {
	if len(script) == 0 {
		return "scripted reply"
	}
	if i >= len(script) {
		return script[len(script)-1]
	}
	return script[i]
}

func testRequest(mode models.DialogueMode, maxTurns int) models.RunRequest {
	return models.RunRequest{
		Mode:       mode,
		Consultant: models.SamplingConfig{Model: "consultant-model", Temperature: 0.7, TopP: 1.0},
		Customer:   models.SamplingConfig{Model: "customer-model", Temperature: 0.45, TopP: 1.0},
		MaxTurns:   maxTurns,
	}
}

func TestRunFreeformAcceptStopsImmediately(t *testing.T) {
	gen := &mockGenerator{
		consultantReplies: []string{"Here is my best idea."},
		customerReplies:   []string{"This is feasible and profitable, let's move forward."},
	}
	ctrl, err := NewController(gen, testRequest(models.ModeFreeform, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Outcome != models.OutcomeAccepted {
		t.Errorf("expected accepted outcome, got %v", state.Outcome)
	}
	if len(gen.consultantPrompts) != 1 {
		t.Errorf("expected no consultant call after acceptance, got %d calls", len(gen.consultantPrompts))
	}
	if ctrl.Transcript().Len() != 2 {
		t.Errorf("expected 2 turns, got %d", ctrl.Transcript().Len())
	}
}

func TestRunFreeformRejectionStartsNewIdea(t *testing.T) {
	rejection := "I reject this idea because it's too expensive."
	gen := &mockGenerator{
		consultantReplies: []string{"First idea.", "Second, cheaper idea."},
		customerReplies:   []string{rejection, "I accept this idea."},
	}
	ctrl, err := NewController(gen, testRequest(models.ModeFreeform, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := ctrl.Step(context.Background(), models.NewDialogueState(models.ModeFreeform))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A rejection in freeform mode continues with a replacement idea.
	if state.Outcome != models.OutcomePending {
		t.Errorf("expected pending outcome after rejection, got %v", state.Outcome)
	}

	state, err = ctrl.Step(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Outcome != models.OutcomeAccepted {
		t.Errorf("expected accepted outcome, got %v", state.Outcome)
	}

	secondPrompt := gen.consultantPrompts[1]
	if !strings.Contains(secondPrompt, "different, single idea") {
		t.Errorf("expected new-idea prompt, got %q", secondPrompt)
	}
	if !strings.Contains(secondPrompt, rejection) {
		t.Errorf("expected rejection text carried into prompt, got %q", secondPrompt)
	}
}

func TestRunFreeformChallengeRefinesSameIdea(t *testing.T) {
	challenge := "What evidence supports your revenue numbers?"
	gen := &mockGenerator{
		consultantReplies: []string{"First idea.", "Refined idea with numbers."},
		customerReplies:   []string{challenge, "I am convinced."},
	}
	ctrl, err := NewController(gen, testRequest(models.ModeFreeform, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Outcome != models.OutcomeAccepted {
		t.Errorf("expected accepted outcome, got %v", state.Outcome)
	}
	refinePrompt := gen.consultantPrompts[1]
	if !strings.Contains(refinePrompt, "Refine the SAME idea") {
		t.Errorf("expected refine prompt, got %q", refinePrompt)
	}
	if !strings.Contains(refinePrompt, challenge) {
		t.Errorf("expected challenge text carried verbatim, got %q", refinePrompt)
	}
}

func TestRunExhaustsBudgetAfterCompletePairs(t *testing.T) {
	gen := &mockGenerator{
		consultantReplies: []string{"An idea."},
		customerReplies:   []string{"Tell me more about costs."},
	}
	ctrl, err := NewController(gen, testRequest(models.ModeFreeform, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Outcome != models.OutcomeExhausted {
		t.Errorf("expected exhausted outcome, got %v", state.Outcome)
	}
	if state.TurnPairs != 1 {
		t.Errorf("expected exactly 1 pair, got %d", state.TurnPairs)
	}
	if ctrl.Transcript().Len() != 2 {
		t.Errorf("expected exactly 2 turns, got %d", ctrl.Transcript().Len())
	}
}

func TestSectionApprovalAdvancesIndex(t *testing.T) {
	gen := &mockGenerator{
		consultantReplies: []string{"Section content.", "Next section content."},
		customerReplies:   []string{"Approved, go on.", "Why is this profitable?"},
	}
	ctrl, err := NewController(gen, testRequest(models.ModeSections, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := models.NewDialogueState(models.ModeSections)
	state.SectionIndex = 2
	state.TurnPairs = 2 // mid-session
	state.LastVerdict = "section_approved"

	state, err = ctrl.Step(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.SectionIndex != 3 {
		t.Errorf("expected section index 3, got %d", state.SectionIndex)
	}

	// The next consultant prompt must request only section 4.
	if _, err = ctrl.Step(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nextPrompt := gen.consultantPrompts[1]
	if !strings.Contains(nextPrompt, Sections[3]) {
		t.Errorf("expected prompt for section %q, got %q", Sections[3], nextPrompt)
	}
	if !strings.Contains(nextPrompt, "ONLY section") {
		t.Errorf("expected single-section constraint in prompt, got %q", nextPrompt)
	}
}

func TestSectionsRejectionHaltsByDefault(t *testing.T) {
	gen := &mockGenerator{
		consultantReplies: []string{"Section content."},
		customerReplies:   []string{"I reject this idea because it is generic."},
	}
	ctrl, err := NewController(gen, testRequest(models.ModeSections, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Outcome != models.OutcomeRejected {
		t.Errorf("expected rejected outcome, got %v", state.Outcome)
	}
}

func TestSectionsRejectionRestartsWhenNotHalting(t *testing.T) {
	gen := &mockGenerator{
		consultantReplies: []string{"Section content.", "New idea, section one."},
		customerReplies:   []string{"I reject this idea because it is generic.", "Approved, go on."},
	}
	ctrl, err := NewController(gen, testRequest(models.ModeSections, 12), WithHaltOnReject(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := models.NewDialogueState(models.ModeSections)
	state.SectionIndex = 4
	state.TurnPairs = 4
	state.LastVerdict = "section_approved"

	state, err = ctrl.Step(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Outcome != models.OutcomePending {
		t.Errorf("expected pending outcome, got %v", state.Outcome)
	}
	if state.SectionIndex != 0 {
		t.Errorf("expected section index reset to 0, got %d", state.SectionIndex)
	}

	if _, err = ctrl.Step(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nextPrompt := gen.consultantPrompts[1]
	if !strings.Contains(nextPrompt, "different, single idea") || !strings.Contains(nextPrompt, Sections[0]) {
		t.Errorf("expected replacement idea restarting at %q, got %q", Sections[0], nextPrompt)
	}
}

func TestSectionsWalkThroughToFinalVerdict(t *testing.T) {
	approvals := make([]string, len(Sections))
	for i := range approvals {
		approvals[i] = "Approved, go on."
	}
	gen := &mockGenerator{
		consultantReplies: []string{"Section content."},
		customerReplies:   append(approvals, "I accept this idea."),
	}
	ctrl, err := NewController(gen, testRequest(models.ModeSections, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Outcome != models.OutcomeAccepted {
		t.Errorf("expected accepted outcome, got %v", state.Outcome)
	}
	if state.TurnPairs != len(Sections)+1 {
		t.Errorf("expected %d pairs, got %d", len(Sections)+1, state.TurnPairs)
	}
	// After the last approval the consultant is asked for a full summary and
	// the customer for a final verdict.
	lastConsultantPrompt := gen.consultantPrompts[len(gen.consultantPrompts)-1]
	if !strings.Contains(lastConsultantPrompt, "complete idea") {
		t.Errorf("expected summary prompt, got %q", lastConsultantPrompt)
	}
	lastCustomerPrompt := gen.customerPrompts[len(gen.customerPrompts)-1]
	if !strings.Contains(lastCustomerPrompt, "final verdict") {
		t.Errorf("expected final verdict prompt, got %q", lastCustomerPrompt)
	}
}

func TestBriefModeConstrainsPrompts(t *testing.T) {
	consultantSys, customerSys := SystemPrompts(models.ModeBrief)
	if !strings.Contains(consultantSys, "two short sentences") {
		t.Error("expected brevity constraint in consultant system prompt")
	}
	if !strings.Contains(customerSys, "two short sentences") {
		t.Error("expected brevity constraint in customer system prompt")
	}
}

func TestConsultantFailureAbortsRun(t *testing.T) {
	genErr := errors.New("quota exceeded")
	gen := &mockGenerator{failRole: models.RoleConsultant, failErr: genErr}
	ctrl, err := NewController(gen, testRequest(models.ModeFreeform, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := ctrl.Run(context.Background())
	if err == nil || !errors.Is(err, genErr) {
		t.Fatalf("expected wrapped generator error, got %v", err)
	}
	if state.Outcome != models.OutcomeFailed {
		t.Errorf("expected failed outcome, got %v", state.Outcome)
	}
	if ctrl.Transcript().Len() != 0 {
		t.Errorf("expected no turns, got %d", ctrl.Transcript().Len())
	}
}

func TestCustomerFailureKeepsConsultantTurn(t *testing.T) {
	genErr := errors.New("network down")
	gen := &mockGenerator{
		consultantReplies: []string{"An idea."},
		failRole:          models.RoleCustomer,
		failErr:           genErr,
	}
	ctrl, err := NewController(gen, testRequest(models.ModeFreeform, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := ctrl.Run(context.Background())
	if err == nil || !errors.Is(err, genErr) {
		t.Fatalf("expected wrapped generator error, got %v", err)
	}
	if state.Outcome != models.OutcomeFailed {
		t.Errorf("expected failed outcome, got %v", state.Outcome)
	}
	// The transcript-so-far stays inspectable, including the one-sided turn.
	if ctrl.Transcript().Len() != 1 {
		t.Errorf("expected 1 turn, got %d", ctrl.Transcript().Len())
	}
}

func TestNewControllerValidatesRequest(t *testing.T) {
	gen := &mockGenerator{}
	req := testRequest(models.ModeFreeform, 0)
	if _, err := NewController(gen, req); !errors.Is(err, models.ErrInvalidMaxTurns) {
		t.Errorf("expected ErrInvalidMaxTurns, got %v", err)
	}
	if _, err := NewController(nil, testRequest(models.ModeFreeform, 5)); err == nil {
		t.Error("expected error for nil generator")
	}
}

func TestStepOnTerminalStateIsNoOp(t *testing.T) {
	gen := &mockGenerator{}
	ctrl, err := NewController(gen, testRequest(models.ModeFreeform, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state := models.NewDialogueState(models.ModeFreeform)
	state.Outcome = models.OutcomeAccepted
	state, err = ctrl.Step(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.consultantPrompts) != 0 {
		t.Errorf("expected no generator calls, got %d", len(gen.consultantPrompts))
	}
	if state.Outcome != models.OutcomeAccepted {
		t.Errorf("outcome changed unexpectedly to %v", state.Outcome)
	}
}
