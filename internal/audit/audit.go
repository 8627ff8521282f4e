// Package audit keeps the raw evidence of every model run: one append-only
// JSONL file per job. Entries are never rewritten, so the trail stays usable
// for debugging bad verdicts and for building fine-tuning datasets later.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one line of a job's evaluation trail: the raw model output plus
// whatever the parser extracted from it.
type Entry struct {
	EvaluationID              string    `json:"evaluation_id"`
	JobID                     string    `json:"job_id"`
	Provider                  string    `json:"provider,omitempty"`
	Model                     string    `json:"model,omitempty"`
	Run                       int       `json:"run"`
	Runs                      int       `json:"runs"`
	Attempts                  int       `json:"attempts"`
	ParseFailed               bool      `json:"parse_failed"`
	MatchLevel                string    `json:"match_level"`
	DomainKnowledgeAssessment string    `json:"domain_knowledge_assessment,omitempty"`
	NoGoRationale             string    `json:"no_go_rationale,omitempty"`
	ApplicationNarrative      string    `json:"application_narrative,omitempty"`
	LeftoverText              string    `json:"leftover_text,omitempty"`
	SectionsMalformed         bool      `json:"sections_malformed,omitempty"`
	Error                     string    `json:"error,omitempty"`
	RawResponse               string    `json:"raw_response"`
	CreatedAt                 time.Time `json:"created_at"`
}

// Writer appends entries under one directory, one file per job.
type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("audit directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) Write(entry *Entry) error {
	if entry == nil {
		return errors.New("audit entry is nil")
	}

	id := strings.TrimSpace(entry.JobID)
	if id == "" {
		return errors.New("audit entry needs a job id")
	}
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("job id %q must not contain path separators", id)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	data = append(data, '\n')

	file, err := os.OpenFile(filepath.Join(w.dir, id+".jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("append audit entry: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close audit file: %w", err)
	}

	return nil
}
