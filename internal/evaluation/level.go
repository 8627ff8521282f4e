// Package evaluation implements consensus-based fit evaluation: one job is
// judged by several model runs whose parsed results reduce to a single
// conservative verdict.
package evaluation

import "strings"

// MatchLevel is the model's judgment of how well the CV fits a role.
type MatchLevel string

const (
	MatchGood     MatchLevel = "Good"
	MatchModerate MatchLevel = "Moderate"
	MatchLow      MatchLevel = "Low"
	// MatchUnknown records a run or verdict that produced no usable judgment.
	MatchUnknown MatchLevel = "Unknown"
)

// rank orders parseable levels for worst-wins reduction. Lower is worse.
func (l MatchLevel) rank() int {
	switch l {
	case MatchLow:
		return 0
	case MatchModerate:
		return 1
	case MatchGood:
		return 2
	default:
		return -1
	}
}

// Parsed reports whether the level is a usable judgment.
func (l MatchLevel) Parsed() bool {
	return l.rank() >= 0
}

// ParseMatchLevel reads a level token, tolerant of case and surrounding
// markdown decoration or punctuation.
func ParseMatchLevel(s string) (MatchLevel, bool) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), "*_`#.,:;!\"'()")) {
	case "good":
		return MatchGood, true
	case "moderate":
		return MatchModerate, true
	case "low":
		return MatchLow, true
	}
	return MatchUnknown, false
}
