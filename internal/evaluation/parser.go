package evaluation

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMatchLevelNotFound reports a response from which no match level could be
// read. Callers treat the response as a bad sample and request a fresh
// completion instead of failing the run outright.
var ErrMatchLevelNotFound = errors.New("no match level found in response")

type sectionKind int

const (
	sectionUnknown sectionKind = iota
	sectionMatch
	sectionAssessment
	sectionRationale
	sectionNarrative
)

// sectionRe anchors labels to line starts so instruction text quoted
// mid-sentence cannot open a section. Labels tolerate markdown bold, heading
// markers, case drift and loose separators.
var sectionRe = regexp.MustCompile(`(?im)^[ \t]*(?:\*\*|__|#{1,4}[ \t]*)?` +
	`(cv[ \t._\-–—]*to[ \t._\-–—]*role[ \t._\-–—]*match` +
	`|domain[ \t._\-–—]*knowledge[ \t._\-–—]*assessment` +
	`|no[ \t._\-–—]*go[ \t._\-–—]*rationale` +
	`|application[ \t._\-–—]*narrative)` +
	`(?:\*\*|__)?[ \t]*[:：\-–—]?[ \t]*(?:\*\*|__)?[ \t]*`)

var (
	inlineMatchRe = regexp.MustCompile(`(?i)cv[ \t._\-–—]*to[ \t._\-–—]*role[ \t._\-–—]*match[^\n]*`)
	levelTokenRe  = regexp.MustCompile(`(?i)\b(good|moderate|low)\b`)
)

// ParseRunResult extracts the labeled sections from one model response.
// Missing secondary sections are recorded as absent, not errors; only a
// response without a readable match level fails. Text that belongs to no
// section is kept in Leftover, and structural oddities set Malformed, so the
// audit trail shows exactly what the model produced.
func ParseRunResult(raw string) (*RunResult, error) {
	sections, preamble, duplicated := splitSections(raw)

	level, ok := MatchUnknown, false
	if content, found := sections[sectionMatch]; found {
		level, ok = levelFromSection(content)
	}
	if !ok {
		// The label never reached its own line (mid-sentence or list-item
		// drift). Accept it only when the rest of the line names exactly one
		// level; echoed instructions enumerate all three and stay rejected.
		for _, line := range inlineMatchRe.FindAllString(raw, -1) {
			if level, ok = levelToken(line); ok {
				break
			}
		}
	}
	if !ok {
		return nil, ErrMatchLevelNotFound
	}

	result := &RunResult{
		Level:      level,
		Assessment: sections[sectionAssessment],
		Rationale:  sections[sectionRationale],
		Narrative:  sections[sectionNarrative],
		Leftover:   preamble,
		Raw:        raw,
	}
	result.Malformed = duplicated || (result.Rationale != "" && result.Narrative != "")

	return result, nil
}

// splitSections maps each labeled section to its content. Content runs until
// the next label or the end of the response. On duplicated labels the first
// occurrence wins and the response is flagged.
func splitSections(raw string) (map[sectionKind]string, string, bool) {
	locs := sectionRe.FindAllStringSubmatchIndex(raw, -1)

	sections := make(map[sectionKind]string, len(locs))
	duplicated := false

	preambleEnd := len(raw)
	if len(locs) > 0 {
		preambleEnd = locs[0][0]
	}
	preamble := strings.TrimSpace(raw[:preambleEnd])

	for i, loc := range locs {
		kind := sectionKindOf(raw[loc[2]:loc[3]])
		if kind == sectionUnknown {
			continue
		}

		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		content := strings.TrimSpace(raw[loc[1]:end])

		if _, exists := sections[kind]; exists {
			duplicated = true
			continue
		}
		sections[kind] = content
	}

	return sections, preamble, duplicated
}

func sectionKindOf(label string) sectionKind {
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, label)

	switch normalized {
	case "cvtorolematch":
		return sectionMatch
	case "domainknowledgeassessment":
		return sectionAssessment
	case "nogorationale":
		return sectionRationale
	case "applicationnarrative":
		return sectionNarrative
	}
	return sectionUnknown
}

// levelFromSection reads the level from the match section: first from the
// value line, then from the whole section when the model wrapped the value.
func levelFromSection(content string) (MatchLevel, bool) {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	if level, ok := levelToken(firstLine); ok {
		return level, true
	}
	return levelToken(content)
}

// levelToken accepts text naming exactly one distinct level. Text naming
// several levels is ambiguous and rejected.
func levelToken(text string) (MatchLevel, bool) {
	matches := levelTokenRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return MatchUnknown, false
	}

	first := strings.ToLower(matches[0])
	for _, match := range matches[1:] {
		if strings.ToLower(match) != first {
			return MatchUnknown, false
		}
	}

	return ParseMatchLevel(first)
}
