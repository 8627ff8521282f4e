package evaluation

import "testing"

func TestParseMatchLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect MatchLevel
		ok     bool
	}{
		{name: "plain", input: "Good", expect: MatchGood, ok: true},
		{name: "lowercase", input: "moderate", expect: MatchModerate, ok: true},
		{name: "uppercase", input: "LOW", expect: MatchLow, ok: true},
		{name: "bold", input: "**Good**", expect: MatchGood, ok: true},
		{name: "code span", input: "`Low`", expect: MatchLow, ok: true},
		{name: "trailing period", input: "Moderate.", expect: MatchModerate, ok: true},
		{name: "padded", input: "  Good  ", expect: MatchGood, ok: true},
		{name: "quoted", input: `"Low"`, expect: MatchLow, ok: true},
		{name: "empty", input: "", expect: MatchUnknown, ok: false},
		{name: "unknown word", input: "High", expect: MatchUnknown, ok: false},
		{name: "level inside sentence", input: "Good match overall", expect: MatchUnknown, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			level, ok := ParseMatchLevel(tt.input)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if level != tt.expect {
				t.Fatalf("expected %s, got %s", tt.expect, level)
			}
		})
	}
}

func TestMatchLevelParsed(t *testing.T) {
	t.Parallel()

	for _, level := range []MatchLevel{MatchGood, MatchModerate, MatchLow} {
		if !level.Parsed() {
			t.Fatalf("expected %s to be a parsed level", level)
		}
	}
	if MatchUnknown.Parsed() {
		t.Fatal("expected Unknown to not be a parsed level")
	}
	if MatchLevel("Excellent").Parsed() {
		t.Fatal("expected an unrecognized level to not be parsed")
	}
}

func TestMatchLevelRankOrdersWorstFirst(t *testing.T) {
	t.Parallel()

	if !(MatchLow.rank() < MatchModerate.rank() && MatchModerate.rank() < MatchGood.rank()) {
		t.Fatalf("expected Low < Moderate < Good, got %d, %d, %d",
			MatchLow.rank(), MatchModerate.rank(), MatchGood.rank())
	}
	if MatchUnknown.rank() >= 0 {
		t.Fatalf("expected Unknown to rank below voting levels, got %d", MatchUnknown.rank())
	}
}
