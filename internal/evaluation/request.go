package evaluation

import (
	"errors"
	"strings"
)

// Request carries everything one job evaluation needs. Build it once per job;
// the engine treats it as read-only.
type Request struct {
	JobID          string
	JobDescription string
	CV             string
	// Runs overrides the engine's configured run count when positive.
	Runs int
	// Model is stamped into audit entries. When empty the generator's own
	// model identifier is used.
	Model string
	// DomainRequirements are extra criteria the prompt asks the model to
	// weigh, usually produced by an upstream skill-decomposition step.
	DomainRequirements []string
}

// Validate rejects requests that would waste model calls. An empty CV or job
// description can only produce a meaningless judgment.
func (r *Request) Validate() error {
	if r == nil {
		return errors.New("evaluation request is nil")
	}
	if strings.TrimSpace(r.JobID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(r.CV) == "" {
		return errors.New("cv text is empty")
	}
	if strings.TrimSpace(r.JobDescription) == "" {
		return errors.New("job description is empty")
	}
	return nil
}
