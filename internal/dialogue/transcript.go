// Package dialogue implements the consultant/customer turn-control loop.
package dialogue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/elashya/multi-agent/internal/models"
)

// exportEntry is the wire form of one turn in the JSON export.
type exportEntry struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// Transcript is the ordered, append-only record of a dialogue session.
// It is exclusively owned and mutated by one controller run.
type Transcript struct {
	turns []models.Turn
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records a new turn and returns it. Ordinals start at 0 and always
// match the turn's position.
func (t *Transcript) Append(role models.Role, content string) models.Turn {
	turn := models.Turn{Role: role, Content: content, Ordinal: len(t.turns)}
	t.turns = append(t.turns, turn)
	return turn
}

// Len returns the number of recorded turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// All returns a read-only snapshot of the recorded turns.
func (t *Transcript) All() []models.Turn {
	out := make([]models.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// ExportMarkdown renders the transcript as a Markdown document with one
// heading per turn labeled by role.
func (t *Transcript) ExportMarkdown() string {
	var b strings.Builder
	b.WriteString("# Two-Assistant Dialogue Transcript\n\n")
	for _, turn := range t.turns {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n---\n\n", turn.Role.DisplayName(), turn.Content)
	}
	return b.String()
}

// ExportJSON serializes the transcript as an indented UTF-8 array of
// {role, content} objects. Non-ASCII text is preserved as-is.
func (t *Transcript) ExportJSON() (string, error) {
	entries := make([]exportEntry, 0, len(t.turns))
	for _, turn := range t.turns {
		entries = append(entries, exportEntry{Role: turn.Role, Content: turn.Content})
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// ParseExport decodes a JSON export back into turns, assigning ordinals by
// position. Decoding an export and re-encoding it reproduces an equal sequence.
func ParseExport(data []byte) ([]models.Turn, error) {
	var entries []exportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode transcript export: %w", err)
	}
	turns := make([]models.Turn, 0, len(entries))
	for i, e := range entries {
		turns = append(turns, models.Turn{Role: e.Role, Content: e.Content, Ordinal: i})
	}
	return turns, nil
}

// FromTurns rebuilds a transcript from stored turns, preserving order.
func FromTurns(turns []models.Turn) *Transcript {
	t := NewTranscript()
	for _, turn := range turns {
		t.Append(turn.Role, turn.Content)
	}
	return t
}

// ExportFiles writes the Markdown and JSON artifacts for a completed session
// into dir, named by the current timestamp. It returns the two file paths.
func (t *Transcript) ExportFiles(dir string) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create export directory: %w", err)
	}
	base := filepath.Join(dir, "two_assistants_dialog_"+time.Now().Format("20060102_150405"))

	jsonText, err := t.ExportJSON()
	if err != nil {
		return "", "", err
	}
	jsonPath := base + ".json"
	if err := os.WriteFile(jsonPath, []byte(jsonText), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write JSON transcript: %w", err)
	}

	mdPath := base + ".md"
	if err := os.WriteFile(mdPath, []byte(t.ExportMarkdown()), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write Markdown transcript: %w", err)
	}

	slog.Info("Transcript exported", "markdown", mdPath, "json", jsonPath, "turns", len(t.turns))
	return mdPath, jsonPath, nil
}
