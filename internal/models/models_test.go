package models

import (
	"errors"
	"testing"
)

func TestSamplingConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  SamplingConfig
		want error
	}{
		{"valid", SamplingConfig{Model: "gpt-4o", Temperature: 0.7, TopP: 1.0}, nil},
		{"missing model", SamplingConfig{Temperature: 0.7, TopP: 1.0}, ErrEmptyModel},
		{"temperature too high", SamplingConfig{Model: "gpt-4o", Temperature: 1.5, TopP: 1.0}, ErrInvalidTemperature},
		{"temperature negative", SamplingConfig{Model: "gpt-4o", Temperature: -0.1, TopP: 1.0}, ErrInvalidTemperature},
		{"top_p zero", SamplingConfig{Model: "gpt-4o", Temperature: 0.7, TopP: 0}, ErrInvalidTopP},
		{"top_p too high", SamplingConfig{Model: "gpt-4o", Temperature: 0.7, TopP: 1.2}, ErrInvalidTopP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRunRequestValidateDefaultsMode(t *testing.T) {
	req := RunRequest{
		Consultant: SamplingConfig{Model: "gpt-4o", Temperature: 0.7, TopP: 1.0},
		Customer:   SamplingConfig{Model: "gpt-4o", Temperature: 0.45, TopP: 1.0},
		MaxTurns:   12,
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Mode != ModeFreeform {
		t.Errorf("expected mode to default to %q, got %q", ModeFreeform, req.Mode)
	}
}

func TestRunRequestValidateRejectsBadBudget(t *testing.T) {
	req := RunRequest{
		Consultant: SamplingConfig{Model: "gpt-4o", Temperature: 0.7, TopP: 1.0},
		Customer:   SamplingConfig{Model: "gpt-4o", Temperature: 0.45, TopP: 1.0},
	}
	if err := req.Validate(); !errors.Is(err, ErrInvalidMaxTurns) {
		t.Errorf("expected ErrInvalidMaxTurns, got %v", err)
	}
	req.MaxTurns = MaxTurnPairs + 1
	if err := req.Validate(); !errors.Is(err, ErrTooManyTurns) {
		t.Errorf("expected ErrTooManyTurns, got %v", err)
	}
}

func TestRunRequestValidateRejectsUnknownMode(t *testing.T) {
	req := RunRequest{
		Mode:       DialogueMode("debate"),
		Consultant: SamplingConfig{Model: "gpt-4o", Temperature: 0.7, TopP: 1.0},
		Customer:   SamplingConfig{Model: "gpt-4o", Temperature: 0.45, TopP: 1.0},
		MaxTurns:   5,
	}
	if err := req.Validate(); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func TestOutcomeTerminal(t *testing.T) {
	if OutcomePending.Terminal() {
		t.Error("pending outcome should not be terminal")
	}
	for _, o := range []Outcome{OutcomeAccepted, OutcomeRejected, OutcomeExhausted, OutcomeFailed} {
		if !o.Terminal() {
			t.Errorf("outcome %q should be terminal", o)
		}
	}
}

func TestRoleDisplayName(t *testing.T) {
	if RoleConsultant.DisplayName() != "Consultant" {
		t.Errorf("unexpected display name %q", RoleConsultant.DisplayName())
	}
	if RoleCustomer.DisplayName() != "Customer" {
		t.Errorf("unexpected display name %q", RoleCustomer.DisplayName())
	}
}
