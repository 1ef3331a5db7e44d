// Package state persists the local submission history. Every run the tool
// submits gets a record here, so monitoring and remediation can find the
// most recent run without asking the operator for IDs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/petloan/dspactl/internal/core"
)

// Record is one submitted pipeline run.
type Record struct {
	RunID       string    `json:"run_id"`
	RunName     string    `json:"run_name"`
	Workflow    string    `json:"workflow,omitempty"`
	Profile     string    `json:"profile"`
	Namespace   string    `json:"namespace"`
	API         string    `json:"api"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// historyEnvelope wraps records with a format version.
type historyEnvelope struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Records   []Record  `json:"records"`
}

// History is a JSON file of submission records, newest last.
type History struct {
	path string
	// keep bounds how many records are retained.
	keep int

	now func() time.Time
}

// DefaultHistoryPath returns ~/.config/dspactl/history.json.
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "history.json"
	}
	return filepath.Join(home, ".config", "dspactl", "history.json")
}

// NewHistory creates a history store at path.
func NewHistory(path string) *History {
	if path == "" {
		path = DefaultHistoryPath()
	}
	return &History{
		path: path,
		keep: 100,
		now:  time.Now,
	}
}

// load reads the file, returning an empty envelope when it doesn't exist.
func (h *History) load() (*historyEnvelope, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &historyEnvelope{Version: 1}, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var envelope historyEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, core.ErrValidation(core.CodeParseFailed,
			fmt.Sprintf("history file %s is corrupt", h.path)).WithCause(err)
	}
	return &envelope, nil
}

// Append adds a record and persists the file atomically.
func (h *History) Append(record Record) error {
	envelope, err := h.load()
	if err != nil {
		return err
	}

	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = h.now()
	}
	envelope.Records = append(envelope.Records, record)
	if len(envelope.Records) > h.keep {
		envelope.Records = envelope.Records[len(envelope.Records)-h.keep:]
	}
	envelope.Version = 1
	envelope.UpdatedAt = h.now()

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	if err := atomicWriteFile(h.path, data, 0o644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// List returns all records, oldest first.
func (h *History) List() ([]Record, error) {
	envelope, err := h.load()
	if err != nil {
		return nil, err
	}
	return envelope.Records, nil
}

// Latest returns the most recently appended record.
func (h *History) Latest() (*Record, error) {
	records, err := h.List()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, core.ErrNotFound("submission history", h.path)
	}
	return &records[len(records)-1], nil
}

// SetWorkflow fills in the workflow name on the record for a run, once the
// orchestrator has materialized it.
func (h *History) SetWorkflow(runID, workflow string) error {
	envelope, err := h.load()
	if err != nil {
		return err
	}

	found := false
	for i := range envelope.Records {
		if envelope.Records[i].RunID == runID {
			envelope.Records[i].Workflow = workflow
			found = true
		}
	}
	if !found {
		return core.ErrNotFound("history record for run", runID)
	}

	envelope.UpdatedAt = h.now()
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	if err := atomicWriteFile(h.path, data, 0o644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}
