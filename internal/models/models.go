// Package models defines the core data structures for the two-assistant mediator.
//
// It includes types for dialogue turns, sampling configuration, and run requests,
// which are shared across modules.
package models

import "errors"

// Role identifies which persona produced a turn.
type Role string

const (
	// RoleConsultant is the persona proposing and defending a business idea.
	RoleConsultant Role = "consultant"
	// RoleCustomer is the skeptical persona evaluating the idea.
	RoleCustomer Role = "customer"
)

// Validation constants for input validation
const (
	// MinTemperature and MaxTemperature bound per-role sampling temperature
	MinTemperature = 0.0
	MaxTemperature = 1.0
	// MinTopP is the lowest accepted top-p value; top-p of 0 disables sampling entirely
	MinTopP = 0.1
	// MaxTopP is the highest accepted top-p value
	MaxTopP = 1.0
	// MaxTurnPairs caps the configurable turn budget
	MaxTurnPairs = 50
)

// Error variables for better error handling and testability
var (
	ErrMissingAPIKey      = errors.New("OpenAI API key is not configured")
	ErrInvalidRole        = errors.New("invalid dialogue role")
	ErrEmptyModel         = errors.New("model identifier cannot be empty")
	ErrInvalidTemperature = errors.New("temperature must be between 0.0 and 1.0")
	ErrInvalidTopP        = errors.New("top_p must be between 0.1 and 1.0")
	ErrInvalidMaxTurns    = errors.New("max turns must be a positive integer")
	ErrTooManyTurns       = errors.New("max turns exceeds supported maximum")
	ErrInvalidMode        = errors.New("invalid dialogue mode")
	ErrSessionNotFound    = errors.New("session not found")
)

// IsValidRole checks if the given role is supported.
func IsValidRole(r Role) bool {
	switch r {
	case RoleConsultant, RoleCustomer:
		return true
	default:
		return false
	}
}

// DisplayName returns the role name capitalized for transcript headings.
func (r Role) DisplayName() string {
	switch r {
	case RoleConsultant:
		return "Consultant"
	case RoleCustomer:
		return "Customer"
	default:
		return string(r)
	}
}

// Turn is a single generated utterance by one role. Turns are immutable once
// created; the ordinal matches the turn's position in its transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Ordinal int    `json:"ordinal"`
}

// SamplingConfig holds per-role chat-completion sampling parameters.
// It is supplied before a run starts and is read-only for its duration.
type SamplingConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// Validate checks the sampling configuration against the supported ranges.
func (c SamplingConfig) Validate() error {
	if c.Model == "" {
		return ErrEmptyModel
	}
	if c.Temperature < MinTemperature || c.Temperature > MaxTemperature {
		return ErrInvalidTemperature
	}
	if c.TopP < MinTopP || c.TopP > MaxTopP {
		return ErrInvalidTopP
	}
	return nil
}

// RunRequest describes one dialogue run as accepted by the API and CLI.
type RunRequest struct {
	Mode       DialogueMode   `json:"mode,omitempty"`
	Consultant SamplingConfig `json:"consultant"`
	Customer   SamplingConfig `json:"customer"`
	MaxTurns   int            `json:"max_turns"`
}

// Validate performs comprehensive validation on a RunRequest structure.
func (r *RunRequest) Validate() error {
	if r.Mode == "" {
		r.Mode = ModeFreeform
	}
	if !IsValidDialogueMode(r.Mode) {
		return ErrInvalidMode
	}
	if err := r.Consultant.Validate(); err != nil {
		return err
	}
	if err := r.Customer.Validate(); err != nil {
		return err
	}
	if r.MaxTurns <= 0 {
		return ErrInvalidMaxTurns
	}
	if r.MaxTurns > MaxTurnPairs {
		return ErrTooManyTurns
	}
	return nil
}

// API Response types for consistent JSON responses

// APIStatus represents the status field of an API response.
type APIStatus string

const (
	// APIStatusOK indicates a successful request.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates a failed request.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
