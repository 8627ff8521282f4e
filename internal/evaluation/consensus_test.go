package evaluation

import "testing"

func parsedRun(run int, level MatchLevel) *RunResult {
	return &RunResult{Run: run, Level: level, Attempts: 1}
}

func failedRun(run int) *RunResult {
	return &RunResult{Run: run, Level: MatchUnknown, Attempts: 1, ParseFailed: true}
}

func TestReduceWorstLevelWins(t *testing.T) {
	t.Parallel()

	verdict := Reduce([]*RunResult{
		parsedRun(1, MatchGood),
		parsedRun(2, MatchModerate),
		parsedRun(3, MatchGood),
	})

	if verdict.Level != MatchModerate {
		t.Fatalf("expected Moderate, got %s", verdict.Level)
	}
	if verdict.DecidingRun != 2 {
		t.Fatalf("expected run 2 to decide, got %d", verdict.DecidingRun)
	}
	if verdict.Override {
		t.Fatal("no rationale was involved, override must be unset")
	}
	if verdict.ParsedRuns != 3 || verdict.FailedRuns != 0 {
		t.Fatalf("unexpected run counts: %d parsed, %d failed", verdict.ParsedRuns, verdict.FailedRuns)
	}
	if verdict.EvaluatedAt.IsZero() {
		t.Fatal("expected an evaluation timestamp")
	}
}

func TestReduceSingleLowOutweighsGoodMajority(t *testing.T) {
	t.Parallel()

	verdict := Reduce([]*RunResult{
		parsedRun(1, MatchGood),
		parsedRun(2, MatchLow),
		parsedRun(3, MatchGood),
	})

	if verdict.Level != MatchLow {
		t.Fatalf("expected Low, got %s", verdict.Level)
	}
	if verdict.DecidingRun != 2 {
		t.Fatalf("expected run 2 to decide, got %d", verdict.DecidingRun)
	}
}

func TestReduceRationaleForcesLow(t *testing.T) {
	t.Parallel()

	flagged := parsedRun(2, MatchModerate)
	flagged.Rationale = "Relocation is mandatory and the CV states remote only."
	flagged.Narrative = "should never survive"

	verdict := Reduce([]*RunResult{
		parsedRun(1, MatchGood),
		flagged,
		parsedRun(3, MatchGood),
	})

	if verdict.Level != MatchLow {
		t.Fatalf("expected Low, got %s", verdict.Level)
	}
	if !verdict.Override {
		t.Fatal("expected the override flag when a rationale demotes the level")
	}
	if verdict.Rationale != flagged.Rationale {
		t.Fatalf("expected the rationale carried verbatim, got %q", verdict.Rationale)
	}
	if verdict.Narrative != "" {
		t.Fatalf("narrative must be cleared on a non-Good verdict, got %q", verdict.Narrative)
	}
	if verdict.DecidingRun != 2 {
		t.Fatalf("expected run 2 to decide, got %d", verdict.DecidingRun)
	}
}

func TestReduceRationaleOnLowRunIsNoOverride(t *testing.T) {
	t.Parallel()

	flagged := parsedRun(2, MatchLow)
	flagged.Rationale = "Hard requirement for on-call in another timezone."

	verdict := Reduce([]*RunResult{
		parsedRun(1, MatchModerate),
		flagged,
		parsedRun(3, MatchModerate),
	})

	if verdict.Level != MatchLow {
		t.Fatalf("expected Low, got %s", verdict.Level)
	}
	if verdict.Override {
		t.Fatal("the worst run was already Low, no override happened")
	}
	if verdict.Rationale != flagged.Rationale {
		t.Fatalf("expected the rationale from run 2, got %q", verdict.Rationale)
	}
}

func TestReduceLowestRationaleBearerDecides(t *testing.T) {
	t.Parallel()

	first := parsedRun(1, MatchGood)
	first.Rationale = "rationale from the good run"
	second := parsedRun(2, MatchModerate)
	second.Rationale = "rationale from the moderate run"

	verdict := Reduce([]*RunResult{first, second})

	if verdict.Level != MatchLow {
		t.Fatalf("expected Low, got %s", verdict.Level)
	}
	if verdict.Rationale != second.Rationale {
		t.Fatalf("expected the lower run's rationale, got %q", verdict.Rationale)
	}
	if verdict.DecidingRun != 2 {
		t.Fatalf("expected run 2 to decide, got %d", verdict.DecidingRun)
	}
}

func TestReduceAllRunsFailed(t *testing.T) {
	t.Parallel()

	verdict := Reduce([]*RunResult{failedRun(1), failedRun(2), failedRun(3)})

	if verdict.Level != MatchUnknown {
		t.Fatalf("expected Unknown, got %s", verdict.Level)
	}
	if verdict.ParsedRuns != 0 || verdict.FailedRuns != 3 {
		t.Fatalf("unexpected run counts: %d parsed, %d failed", verdict.ParsedRuns, verdict.FailedRuns)
	}
	if verdict.DecidingRun != 0 {
		t.Fatalf("no run should decide an Unknown verdict, got %d", verdict.DecidingRun)
	}
	if verdict.Assessment != "" || verdict.Rationale != "" || verdict.Narrative != "" {
		t.Fatalf("an Unknown verdict must carry no text, got %+v", verdict)
	}
}

func TestReduceFailedRunsDoNotVote(t *testing.T) {
	t.Parallel()

	verdict := Reduce([]*RunResult{
		failedRun(1),
		parsedRun(2, MatchGood),
		failedRun(3),
	})

	if verdict.Level != MatchGood {
		t.Fatalf("expected Good from the single parsed run, got %s", verdict.Level)
	}
	if verdict.ParsedRuns != 1 || verdict.FailedRuns != 2 {
		t.Fatalf("unexpected run counts: %d parsed, %d failed", verdict.ParsedRuns, verdict.FailedRuns)
	}
}

func TestReduceTiePrefersRunWithText(t *testing.T) {
	t.Parallel()

	bare := parsedRun(1, MatchModerate)
	rich := parsedRun(2, MatchModerate)
	rich.Assessment = "Knows the stack, lacks the domain."

	verdict := Reduce([]*RunResult{bare, rich})

	if verdict.DecidingRun != 2 {
		t.Fatalf("expected the text-bearing run to decide, got %d", verdict.DecidingRun)
	}
	if verdict.Assessment != rich.Assessment {
		t.Fatalf("unexpected assessment: %q", verdict.Assessment)
	}
}

func TestReduceBackfillsAssessmentFromOtherRuns(t *testing.T) {
	t.Parallel()

	low := parsedRun(1, MatchLow)
	good := parsedRun(2, MatchGood)
	good.Assessment = "Deep Kafka experience, no Flink."

	verdict := Reduce([]*RunResult{low, good})

	if verdict.Level != MatchLow {
		t.Fatalf("expected Low, got %s", verdict.Level)
	}
	if verdict.DecidingRun != 1 {
		t.Fatalf("expected run 1 to decide, got %d", verdict.DecidingRun)
	}
	if verdict.Assessment != good.Assessment {
		t.Fatalf("expected the assessment backfilled from run 2, got %q", verdict.Assessment)
	}
}

func TestReduceNarrativeSurvivesOnlyOnGood(t *testing.T) {
	t.Parallel()

	good := parsedRun(1, MatchGood)
	good.Narrative = "I would bring ten years of Go to this team."

	verdict := Reduce([]*RunResult{good})
	if verdict.Narrative != good.Narrative {
		t.Fatalf("expected the narrative on a Good verdict, got %q", verdict.Narrative)
	}

	sloppy := parsedRun(1, MatchModerate)
	sloppy.Narrative = "narrative on a moderate run"

	verdict = Reduce([]*RunResult{sloppy})
	if verdict.Level != MatchModerate {
		t.Fatalf("expected Moderate, got %s", verdict.Level)
	}
	if verdict.Narrative != "" {
		t.Fatalf("narrative must be cleared below Good, got %q", verdict.Narrative)
	}
}

func TestReduceNoRuns(t *testing.T) {
	t.Parallel()

	verdict := Reduce(nil)
	if verdict.Level != MatchUnknown {
		t.Fatalf("expected Unknown, got %s", verdict.Level)
	}
}

func TestReduceMixedScenario(t *testing.T) {
	t.Parallel()

	second := parsedRun(2, MatchLow)
	second.Rationale = "The position requires an active security clearance."

	verdict := Reduce([]*RunResult{
		parsedRun(1, MatchModerate),
		second,
		parsedRun(3, MatchModerate),
	})

	if verdict.Level != MatchLow {
		t.Fatalf("expected Low, got %s", verdict.Level)
	}
	if verdict.Override {
		t.Fatal("run 2 was already Low, no override happened")
	}
	if verdict.Rationale != second.Rationale {
		t.Fatalf("expected the rationale from run 2, got %q", verdict.Rationale)
	}
	if verdict.ParsedRuns != 3 {
		t.Fatalf("expected 3 parsed runs, got %d", verdict.ParsedRuns)
	}
}
