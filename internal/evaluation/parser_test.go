package evaluation

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRunResultSectionedResponse(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"CV-to-role match: Moderate",
		"Domain knowledge assessment: Solid platform background, no payments exposure.",
		"No-go rationale: The role is built around card acquiring.",
		"",
	}, "\n")

	result, err := ParseRunResult(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Level != MatchModerate {
		t.Fatalf("expected Moderate, got %s", result.Level)
	}
	if result.Assessment != "Solid platform background, no payments exposure." {
		t.Fatalf("unexpected assessment: %q", result.Assessment)
	}
	if result.Rationale != "The role is built around card acquiring." {
		t.Fatalf("unexpected rationale: %q", result.Rationale)
	}
	if result.Narrative != "" {
		t.Fatalf("unexpected narrative: %q", result.Narrative)
	}
	if result.Leftover != "" {
		t.Fatalf("unexpected leftover: %q", result.Leftover)
	}
	if result.Malformed {
		t.Fatal("response should not be flagged malformed")
	}
	if result.Raw != raw {
		t.Fatal("raw response not preserved")
	}
}

func TestParseRunResultLabelDrift(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "bold label", input: "**CV-to-role match:** Good"},
		{name: "bold label colon outside", input: "**CV-to-role match**: Good"},
		{name: "underscore emphasis", input: "__CV-to-role match__: Good"},
		{name: "markdown heading", input: "### CV-to-role match\nGood"},
		{name: "lowercase spaced", input: "cv to role match - good"},
		{name: "dotted separator", input: "CV.to.role.match: Good"},
		{name: "full width colon", input: "CV-to-role match： Good"},
		{name: "bold value", input: "CV-to-role match: **Good**"},
		{name: "indented label", input: "   CV-to-role match: Good"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, err := ParseRunResult(tt.input)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Level != MatchGood {
				t.Fatalf("expected Good, got %s", result.Level)
			}
		})
	}
}

func TestParseRunResultMissingSecondarySections(t *testing.T) {
	t.Parallel()

	result, err := ParseRunResult("CV-to-role match: Good\n")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Level != MatchGood {
		t.Fatalf("expected Good, got %s", result.Level)
	}
	if result.Assessment != "" || result.Rationale != "" || result.Narrative != "" {
		t.Fatalf("expected empty secondary sections, got %+v", result)
	}
	if result.Malformed {
		t.Fatal("missing sections are absence, not malformation")
	}
}

func TestParseRunResultWrappedLevelValue(t *testing.T) {
	t.Parallel()

	raw := "CV-to-role match:\nThe match here is Good.\nDomain knowledge assessment: fine."

	result, err := ParseRunResult(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Level != MatchGood {
		t.Fatalf("expected Good, got %s", result.Level)
	}
	if result.Assessment != "fine." {
		t.Fatalf("unexpected assessment: %q", result.Assessment)
	}
}

func TestParseRunResultMultilineSectionContent(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"CV-to-role match: Low",
		"No-go rationale:",
		"Relocation to Berlin is mandatory.",
		"No visa sponsorship is offered.",
	}, "\n")

	result, err := ParseRunResult(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := "Relocation to Berlin is mandatory.\nNo visa sponsorship is offered."
	if result.Rationale != want {
		t.Fatalf("expected %q, got %q", want, result.Rationale)
	}
}

func TestParseRunResultInlineLevelRescue(t *testing.T) {
	t.Parallel()

	raw := "Overall the CV-to-role match is Moderate given the limited exposure.\n" +
		"Domain knowledge assessment: Solid basics, shallow depth."

	result, err := ParseRunResult(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Level != MatchModerate {
		t.Fatalf("expected Moderate, got %s", result.Level)
	}
	if result.Assessment != "Solid basics, shallow depth." {
		t.Fatalf("unexpected assessment: %q", result.Assessment)
	}
	if !strings.Contains(result.Leftover, "Overall the CV-to-role match") {
		t.Fatalf("expected the drifted line in leftover, got %q", result.Leftover)
	}
}

func TestParseRunResultListItemLabelsRescueOnlyTheLevel(t *testing.T) {
	t.Parallel()

	raw := "- CV-to-role match: Low\n- Domain knowledge assessment: thin"

	result, err := ParseRunResult(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Level != MatchLow {
		t.Fatalf("expected Low, got %s", result.Level)
	}
	if result.Assessment != "" {
		t.Fatalf("list items must not open sections, got assessment %q", result.Assessment)
	}
	if result.Leftover != raw {
		t.Fatalf("expected the whole response in leftover, got %q", result.Leftover)
	}
}

func TestParseRunResultRejectsEchoedInstructions(t *testing.T) {
	t.Parallel()

	raw := "I will answer using these sections:\n" +
		"- `CV-to-role match:` followed by exactly one of Good, Moderate or Low.\n" +
		"- `Domain knowledge assessment:` a short assessment."

	if _, err := ParseRunResult(raw); !errors.Is(err, ErrMatchLevelNotFound) {
		t.Fatalf("expected ErrMatchLevelNotFound, got %v", err)
	}
}

func TestParseRunResultNoReadableLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "no label at all", input: "The candidate is a strong fit for this position."},
		{name: "label without value", input: "CV-to-role match:\nDomain knowledge assessment: fine"},
		{name: "unrecognized value", input: "CV-to-role match: Excellent"},
		{name: "empty response", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseRunResult(tt.input); !errors.Is(err, ErrMatchLevelNotFound) {
				t.Fatalf("expected ErrMatchLevelNotFound, got %v", err)
			}
		})
	}
}

func TestParseRunResultDuplicateSections(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"CV-to-role match: Good",
		"Domain knowledge assessment: first take",
		"Domain knowledge assessment: second take",
	}, "\n")

	result, err := ParseRunResult(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Assessment != "first take" {
		t.Fatalf("expected the first occurrence to win, got %q", result.Assessment)
	}
	if !result.Malformed {
		t.Fatal("duplicated sections must flag the response")
	}
}

func TestParseRunResultConflictingOutcomeSections(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"CV-to-role match: Moderate",
		"No-go rationale: Not worth pursuing.",
		"Application narrative: I am excited to apply.",
	}, "\n")

	result, err := ParseRunResult(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Malformed {
		t.Fatal("a rationale next to a narrative must flag the response")
	}
	if result.Rationale == "" || result.Narrative == "" {
		t.Fatalf("both sections should still be extracted, got %+v", result)
	}
}

func TestParseRunResultPreambleKeptAsLeftover(t *testing.T) {
	t.Parallel()

	raw := "Sure, here is my evaluation of the candidate.\n\nCV-to-role match: Good"

	result, err := ParseRunResult(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Leftover != "Sure, here is my evaluation of the candidate." {
		t.Fatalf("unexpected leftover: %q", result.Leftover)
	}
	if result.Level != MatchGood {
		t.Fatalf("expected Good, got %s", result.Level)
	}
}
