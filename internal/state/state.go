// Package state persists the per-run workflow document that connects the
// planning and building phases. One JSON file per run id, merge-only
// within a run, single-owner: exactly one worker drives a run at a time.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/burilovmikhail/hermes-claude-bot/pkg/storage"
)

// TaskClass is the classification label for a run, expressed as the slash
// command handed to the coding agent.
type TaskClass string

const (
	ClassChore   TaskClass = "/chore"
	ClassBug     TaskClass = "/bug"
	ClassFeature TaskClass = "/feature"
)

// ValidClass reports whether c is one of the three known labels.
func ValidClass(c TaskClass) bool {
	return c == ClassChore || c == ClassBug || c == ClassFeature
}

// Document is the persistent run state. All fields except RunID are
// optional after creation; steps add or overwrite fields, never remove
// them.
type Document struct {
	RunID           string    `json:"run_id"`
	TaskID          string    `json:"task_id,omitempty"`
	Ticket          string    `json:"ticket,omitempty"`
	TaskTitle       string    `json:"task_title,omitempty"`
	TaskDescription string    `json:"task_description,omitempty"`
	TaskClass       TaskClass `json:"task_class,omitempty"`
	BranchName      string    `json:"branch_name,omitempty"`
	PlanFile        string    `json:"plan_file,omitempty"`
	ReportingLevel  string    `json:"reporting_level,omitempty"`
}

// Merge overlays the non-empty fields of patch onto d. Existing fields are
// only ever overwritten, never cleared.
func (d *Document) Merge(patch *Document) {
	if patch.TaskID != "" {
		d.TaskID = patch.TaskID
	}
	if patch.Ticket != "" {
		d.Ticket = patch.Ticket
	}
	if patch.TaskTitle != "" {
		d.TaskTitle = patch.TaskTitle
	}
	if patch.TaskDescription != "" {
		d.TaskDescription = patch.TaskDescription
	}
	if patch.TaskClass != "" {
		d.TaskClass = patch.TaskClass
	}
	if patch.BranchName != "" {
		d.BranchName = patch.BranchName
	}
	if patch.PlanFile != "" {
		d.PlanFile = patch.PlanFile
	}
	if patch.ReportingLevel != "" {
		d.ReportingLevel = patch.ReportingLevel
	}
}

// NewRunID generates the short identifier for one workflow run. Collisions
// are theoretically possible at this length and accepted.
func NewRunID() string {
	return uuid.NewString()[:8]
}

// Store reads and writes run documents through a storage backend.
type Store struct {
	storage storage.Storage
}

func NewStore(s storage.Storage) *Store {
	return &Store{storage: s}
}

func path(runID string) string {
	return fmt.Sprintf("runs/%s/adw_state.json", runID)
}

// Load returns the document for runID. A missing document is not an
// error: found is false so the caller can branch into create-fresh logic.
func (s *Store) Load(ctx context.Context, runID string) (*Document, bool, error) {
	data, err := s.storage.Read(ctx, path(runID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load run state %s: %w", runID, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to decode run state %s: %w", runID, err)
	}
	return &doc, true, nil
}

// CreateOrGet loads an existing document or initializes an empty one.
func (s *Store) CreateOrGet(ctx context.Context, runID string) (*Document, error) {
	doc, found, err := s.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if found {
		return doc, nil
	}
	doc = &Document{RunID: runID}
	if err := s.Save(ctx, doc, "create"); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save persists the document. Saving unchanged content is a no-op: the
// stored bytes are compared first so repeated saves after idempotent
// steps do not touch the backend.
func (s *Store) Save(ctx context.Context, doc *Document, stepLabel string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run state %s: %w", doc.RunID, err)
	}
	data = append(data, '\n')

	if existing, rerr := s.storage.Read(ctx, path(doc.RunID)); rerr == nil && bytes.Equal(existing, data) {
		return nil
	}

	if err := s.storage.Write(ctx, path(doc.RunID), data); err != nil {
		return fmt.Errorf("failed to save run state %s: %w", doc.RunID, err)
	}
	slog.Debug("saved run state", "run_id", doc.RunID, "step", stepLabel)
	return nil
}
