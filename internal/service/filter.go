package service

import (
	"strings"
	"unicode/utf8"

	"github.com/distillkit/distill/internal/domain"
	"go.uber.org/zap"
)

const (
	MinCandidateWords = 3
	MaxCandidateWords = 15

	// Confidence ceiling applied to candidates that cannot be grounded in
	// their source chunk. Verification failure demotes, never drops.
	UnverifiedConfidenceCap = 0.1

	// Cross-chunk duplicate threshold on normalized Levenshtein similarity.
	DedupSimilarityThreshold = 0.70
)

var stopWords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true,
	"from": true, "have": true, "they": true, "their": true, "about": true,
	"would": true, "could": true, "should": true, "there": true, "which": true,
	"been": true, "were": true, "when": true, "what": true, "your": true,
}

// FilteredCandidate is a candidate that survived filtering, annotated with
// its grounding result and source chunk.
type FilteredCandidate struct {
	domain.RawCandidate
	SourceChunkID string
	Verified      bool
}

// FilterService rejects malformed candidates, grounds each against its source
// chunk, and deduplicates candidates that overlap across chunk boundaries.
type FilterService struct {
	logger *zap.Logger
}

func NewFilterService(logger *zap.Logger) *FilterService {
	return &FilterService{logger: logger}
}

// Filter applies the length gate and grounding to the candidates of one
// chunk. Grounding failure caps confidence instead of discarding.
func (s *FilterService) Filter(candidates []domain.RawCandidate, chunk domain.Chunk) []FilteredCandidate {
	var out []FilteredCandidate
	for _, c := range candidates {
		words := len(strings.Fields(c.Text))
		if words < MinCandidateWords || words > MaxCandidateWords {
			s.logger.Debug("dropping candidate outside word bounds",
				zap.Int("words", words), zap.String("text", c.Text))
			continue
		}

		fc := FilteredCandidate{RawCandidate: c, SourceChunkID: chunk.ID}
		fc.Verified = Grounded(c.Text, chunk.Text)
		if !fc.Verified && fc.Confidence > UnverifiedConfidenceCap {
			fc.Confidence = UnverifiedConfidenceCap
		}
		out = append(out, fc)
	}
	return out
}

// Grounded reports whether at least one significant word of the candidate
// appears in the source chunk. A candidate with no significant words cannot
// be grounded.
func Grounded(candidate, chunkText string) bool {
	lowerChunk := strings.ToLower(chunkText)

	for _, w := range strings.Fields(candidate) {
		w = strings.ToLower(strings.Trim(w, ".,!?;:\"'()"))
		if len(w) <= 3 || stopWords[w] {
			continue
		}
		if strings.Contains(lowerChunk, w) {
			return true
		}
	}
	// Either no significant words remained or none appeared in the chunk.
	return false
}

// Dedup collapses near-duplicate candidates emitted from adjacent overlapping
// chunks. Every pair is compared; above the similarity threshold the
// higher-confidence candidate wins and ties keep the first encountered.
// Quadratic, but candidate counts per conversation are small.
func (s *FilterService) Dedup(candidates []FilteredCandidate) []FilteredCandidate {
	dropped := make([]bool, len(candidates))
	for i := 0; i < len(candidates); i++ {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if dropped[j] {
				continue
			}
			if TextSimilarity(candidates[i].Text, candidates[j].Text) <= DedupSimilarityThreshold {
				continue
			}
			if candidates[j].Confidence > candidates[i].Confidence {
				dropped[i] = true
			} else {
				dropped[j] = true
			}
			if dropped[i] {
				break
			}
		}
	}

	var out []FilteredCandidate
	for i, c := range candidates {
		if !dropped[i] {
			out = append(out, c)
		}
	}
	if n := len(candidates) - len(out); n > 0 {
		s.logger.Debug("deduplicated cross-chunk candidates", zap.Int("removed", n))
	}
	return out
}

// TextSimilarity is 1 - editDistance/maxLen over the lowercased inputs.
func TextSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes edit distance over runes with a two-row rolling
// buffer, so multi-byte text costs the same per character as ASCII.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
