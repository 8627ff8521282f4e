package evaluation

import "time"

// RunResult captures one model run after parsing. A run that produced no
// usable judgment carries MatchUnknown plus either ParseFailed or Err.
type RunResult struct {
	Run        int
	Level      MatchLevel
	Assessment string
	Rationale  string
	Narrative  string
	// Leftover is response text no labeled section claimed. It never feeds
	// the verdict; it is kept for the audit trail.
	Leftover string
	// Malformed flags structural oddities: duplicated sections, or a
	// rationale and a narrative in the same response.
	Malformed   bool
	Attempts    int
	ParseFailed bool
	Err         string
	Raw         string
}

func (r *RunResult) hasText() bool {
	return r.Assessment != "" || r.Rationale != "" || r.Narrative != ""
}

// Verdict is the consensus outcome for one job.
type Verdict struct {
	Level      MatchLevel
	Assessment string
	Rationale  string
	Narrative  string
	ParsedRuns int
	FailedRuns int
	// DecidingRun is the run whose text the verdict carries, 0 when no run
	// was usable.
	DecidingRun int
	// Override is set when a no-go rationale forced the level to Low.
	Override    bool
	EvaluatedAt time.Time
}
