// Package classify turns free-text customer replies into dialogue verdicts.
//
// Classification is surface pattern matching over ordered regular expression
// sets. The Classifier interface exists so a different implementation can be
// swapped in without touching the controller.
package classify

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Verdict is the tri-state classification of a customer reply.
type Verdict string

const (
	// VerdictNone means no pattern matched; the dialogue keeps refining.
	VerdictNone Verdict = "none"
	// VerdictAccepted means an acceptance phrase matched.
	VerdictAccepted Verdict = "accepted"
	// VerdictRejected means a rejection phrase matched.
	VerdictRejected Verdict = "rejected"
	// VerdictSectionApproved means the current section was approved verbatim.
	VerdictSectionApproved Verdict = "section_approved"
)

// Default pattern expressions. Word-boundary anchors keep the phrases from
// matching inside unrelated words.
var (
	defaultAcceptExprs = []string{
		`\bI am convinced\b`,
		`\bI accept this idea\b`,
		`\bThis is (feasible|profitable)\b`,
		`\bI agree to proceed\b`,
	}
	defaultRejectExprs = []string{
		`\bI reject this idea\b`,
		`\bThis won't work\b`,
		`\bNot acceptable\b`,
		`\bI am not convinced\b`,
	}
	defaultSectionApprovedExprs = []string{
		`\bApproved, go on\b`,
	}
)

// PatternSet is a named ordered list of case-insensitive regular expressions.
type PatternSet struct {
	Name     string
	patterns []*regexp.Regexp
}

// NewPatternSet compiles the given expressions case-insensitively.
func NewPatternSet(name string, exprs ...string) (*PatternSet, error) {
	ps := &PatternSet{Name: name}
	for _, expr := range exprs {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q in set %s: %w", expr, name, err)
		}
		ps.patterns = append(ps.patterns, re)
	}
	return ps, nil
}

// MustPatternSet is NewPatternSet for static sets; it panics on a bad expression.
func MustPatternSet(name string, exprs ...string) *PatternSet {
	ps, err := NewPatternSet(name, exprs...)
	if err != nil {
		panic(err)
	}
	return ps
}

// Matches reports whether any pattern in the set matches anywhere in text.
// Empty or whitespace-only text never matches.
func (ps *PatternSet) Matches(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, re := range ps.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Classifier maps a customer reply to a Verdict.
type Classifier interface {
	Classify(text string) Verdict
}

// RegexClassifier classifies replies against three pattern sets. Priority is
// fixed: SectionApproved, then Accept, then Reject, so a reply that somehow
// matches both Accept and Reject classifies as accepted.
type RegexClassifier struct {
	Accept          *PatternSet
	Reject          *PatternSet
	SectionApproved *PatternSet
}

// NewDefaultClassifier returns a classifier with the stock phrase sets.
func NewDefaultClassifier() *RegexClassifier {
	return &RegexClassifier{
		Accept:          MustPatternSet("accept", defaultAcceptExprs...),
		Reject:          MustPatternSet("reject", defaultRejectExprs...),
		SectionApproved: MustPatternSet("section_approved", defaultSectionApprovedExprs...),
	}
}

// Classify returns the verdict for a customer reply.
func (c *RegexClassifier) Classify(text string) Verdict {
	switch {
	case c.SectionApproved != nil && c.SectionApproved.Matches(text):
		slog.Debug("Classifier matched section approval")
		return VerdictSectionApproved
	case c.Accept != nil && c.Accept.Matches(text):
		slog.Debug("Classifier matched acceptance")
		return VerdictAccepted
	case c.Reject != nil && c.Reject.Matches(text):
		slog.Debug("Classifier matched rejection")
		return VerdictRejected
	default:
		return VerdictNone
	}
}
