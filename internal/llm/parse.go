package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/distillkit/distill/internal/domain"
)

// Confidence assigned to candidates recovered by the permissive line parser,
// which carries no structured confidence signal.
const lineParseConfidence = 0.3

// parseCandidatesJSON parses the structured extraction response: a JSON array
// of candidate objects, possibly wrapped in markdown fences.
func parseCandidatesJSON(raw string) ([]domain.RawCandidate, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var candidates []domain.RawCandidate
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		return nil, fmt.Errorf("parse extraction result: %w", err)
	}

	for i := range candidates {
		candidates[i].Text = strings.TrimSpace(candidates[i].Text)
		if !domain.ValidAttribution(string(candidates[i].Attribution)) {
			candidates[i].Attribution = domain.AttributionAmbiguous
		}
		if candidates[i].TypeHint != "" && !domain.ValidEntityType(string(candidates[i].TypeHint)) {
			candidates[i].TypeHint = ""
		}
		if candidates[i].Confidence < 0 {
			candidates[i].Confidence = 0
		}
		if candidates[i].Confidence > 1 {
			candidates[i].Confidence = 1
		}
	}
	return candidates, nil
}

var bulletPrefixes = []string{"- ", "* ", "• ", "+ "}

// ParseCandidateLines is the permissive floor of the response-tolerance
// ladder: one candidate per non-empty line of at least 5 characters, with
// bullet and numeral prefixes stripped and structural punctuation lines
// skipped. An empty result is legitimate.
func ParseCandidateLines(raw string) []domain.RawCandidate {
	var candidates []domain.RawCandidate
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = stripListPrefix(line)
		if len(line) < 5 {
			continue
		}
		if isStructural(line) {
			continue
		}
		candidates = append(candidates, domain.RawCandidate{
			Text:        line,
			Attribution: domain.AttributionAmbiguous,
			Confidence:  lineParseConfidence,
		})
	}
	return candidates
}

func stripListPrefix(line string) string {
	for _, p := range bulletPrefixes {
		if strings.HasPrefix(line, p) {
			return strings.TrimSpace(line[len(p):])
		}
	}
	// Numeral prefixes like "1. " or "12) ".
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

// isStructural reports whether a line is punctuation scaffolding (fences,
// braces, separators) rather than content.
func isStructural(line string) bool {
	for _, r := range line {
		switch r {
		case '{', '}', '[', ']', '`', '"', ',', ':', '-', '=', '_', '#', ' ', '\t':
		default:
			return false
		}
	}
	return true
}
