package evaluation

import "time"

// Reduce reconciles the runs of one evaluation into a single verdict. The
// policy is deliberately pessimistic: one negative signal outweighs any number
// of positive ones, because a wrong "apply" costs more than a missed maybe.
//
// In order:
//  1. A no-go rationale extracted from any run forces the level to Low and is
//     attached to the verdict, whatever the numeric levels said.
//  2. Otherwise the worst parsed level wins; Unknown runs do not vote.
//  3. When no run parsed, the verdict is Unknown and carries no text.
//
// The verdict's text comes from the deciding run; ties at the worst level
// prefer a run that produced secondary text over one that did not.
func Reduce(runs []*RunResult) *Verdict {
	verdict := &Verdict{Level: MatchUnknown, EvaluatedAt: time.Now().UTC()}

	for _, run := range runs {
		if run.Level.Parsed() {
			verdict.ParsedRuns++
		} else {
			verdict.FailedRuns++
		}
	}

	worst := worstParsedRun(runs)
	rationale := rationaleRun(runs)

	switch {
	case rationale != nil:
		verdict.Level = MatchLow
		verdict.Override = worst == nil || worst.Level != MatchLow
		takeText(verdict, rationale)
	case worst != nil:
		verdict.Level = worst.Level
		takeText(verdict, worst)
	default:
		return verdict
	}

	backfillAssessment(verdict, runs)
	if verdict.Level != MatchGood {
		// A narrative argues for applying; it only makes sense on a verdict
		// that recommends it.
		verdict.Narrative = ""
	}

	return verdict
}

// worstParsedRun picks the run with the lowest parsed level. Ties prefer the
// earliest run carrying secondary text.
func worstParsedRun(runs []*RunResult) *RunResult {
	var worst *RunResult
	for _, run := range runs {
		if !run.Level.Parsed() {
			continue
		}
		switch {
		case worst == nil:
			worst = run
		case run.Level.rank() < worst.Level.rank():
			worst = run
		case run.Level.rank() == worst.Level.rank() && !worst.hasText() && run.hasText():
			worst = run
		}
	}
	return worst
}

// rationaleRun picks the run whose no-go rationale decides the verdict: the
// lowest-level run among those carrying one, earliest on a tie.
func rationaleRun(runs []*RunResult) *RunResult {
	var chosen *RunResult
	for _, run := range runs {
		if run.Rationale == "" {
			continue
		}
		if chosen == nil || run.Level.rank() < chosen.Level.rank() {
			chosen = run
		}
	}
	return chosen
}

func takeText(verdict *Verdict, run *RunResult) {
	verdict.Assessment = run.Assessment
	verdict.Rationale = run.Rationale
	verdict.Narrative = run.Narrative
	verdict.DecidingRun = run.Run
}

// backfillAssessment keeps the verdict informative when the deciding run
// skipped the assessment section but another run produced one.
func backfillAssessment(verdict *Verdict, runs []*RunResult) {
	if verdict.Assessment != "" {
		return
	}
	for _, run := range runs {
		if run.Assessment != "" {
			verdict.Assessment = run.Assessment
			return
		}
	}
}
