package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/fit-judge/internal/jobstore"
	"github.com/spigell/fit-judge/internal/logger"
)

const reEvaluateFlagMsg = "re-evaluate flag is set"

type evaluatedFilter struct {
	keep bool
}

// NewEvaluated creates a filter that removes records already carrying a
// verdict, so reruns pick up where the last batch stopped.
func NewEvaluated(cmd *cobra.Command) Filter {
	keep := false
	if cmd != nil {
		flag := cmd.Flag("re-evaluate")
		if flag != nil && strings.EqualFold(flag.Value.String(), "true") {
			keep = true
		}
	}
	return &evaluatedFilter{keep: keep}
}

func (f *evaluatedFilter) Name() string { return "evaluated" }

func (f *evaluatedFilter) Disable(string) {}

func (f *evaluatedFilter) IsEnabled() bool { return true }

func (f *evaluatedFilter) Validate(*Config) error { return nil }

func (f *evaluatedFilter) Apply(_ context.Context, deps Deps, jobs *jobstore.Jobs) (*jobstore.Jobs, Step, error) {
	initial := jobs.Len()
	if f.keep {
		if deps.Logger != nil {
			deps.Logger.Info("keeping already evaluated jobs", zap.String("reason", reEvaluateFlagMsg))
		}
		return jobs, Step{Initial: initial, Dropped: 0, Left: jobs.Len()}, nil
	}

	excluded := jobs.ExcludeByID(jobs.EvaluatedIDs())
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding already evaluated jobs",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *evaluatedFilter) Status() Status {
	details := map[string]string{
		"exclude_evaluated": strconv.FormatBool(!f.keep),
	}
	reason := ""
	if f.keep {
		reason = "re-evaluation requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}

type requestedIDsFilter struct {
	ids []string
}

// NewRequestedIDs creates a filter that keeps only the records requested in
// the config. With no ids configured the worklist passes through untouched.
func NewRequestedIDs() Filter {
	return &requestedIDsFilter{}
}

func (f *requestedIDsFilter) Name() string { return "requested_ids" }

func (f *requestedIDsFilter) Disable(string) {}

func (f *requestedIDsFilter) IsEnabled() bool { return true }

func (f *requestedIDsFilter) Validate(cfg *Config) error {
	f.ids = nil
	if cfg != nil {
		f.ids = append(f.ids, cfg.IDs...)
	}
	return nil
}

func (f *requestedIDsFilter) Apply(_ context.Context, deps Deps, jobs *jobstore.Jobs) (*jobstore.Jobs, Step, error) {
	initial := jobs.Len()
	if len(f.ids) == 0 {
		return jobs, Step{Initial: initial, Dropped: 0, Left: jobs.Len()}, nil
	}

	kept := make([]*jobstore.JobRecord, 0, len(f.ids))
	seen := make(map[string]bool, len(f.ids))
	for _, id := range f.ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		record := jobs.FindByID(id)
		if record == nil {
			if deps.Logger != nil {
				deps.Logger.Warn("requested job not found in the store", zap.String(logger.FieldJobID, id))
			}
			continue
		}
		kept = append(kept, record)
	}

	jobs = &jobstore.Jobs{Items: kept}
	return jobs, Step{Initial: initial, Dropped: initial - jobs.Len(), Left: jobs.Len()}, nil
}

func (f *requestedIDsFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		details["ids"] = strings.Join(f.ids, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type emptyDescriptionFilter struct{}

// NewEmptyDescription creates a filter that removes records without a job
// description. There is nothing to evaluate a fit against in them.
func NewEmptyDescription() Filter {
	return &emptyDescriptionFilter{}
}

func (f *emptyDescriptionFilter) Name() string { return "empty_description" }

func (f *emptyDescriptionFilter) Disable(string) {}

func (f *emptyDescriptionFilter) IsEnabled() bool { return true }

func (f *emptyDescriptionFilter) Validate(*Config) error { return nil }

func (f *emptyDescriptionFilter) Apply(_ context.Context, deps Deps, jobs *jobstore.Jobs) (*jobstore.Jobs, Step, error) {
	initial := jobs.Len()
	excluded := jobs.ExcludeEmptyDescription()
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding jobs without a description",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *emptyDescriptionFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true}
}
