package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultChunkSize   = 8000
	DefaultOverlapSize = 2000

	// Date estimation only scans the head of the text.
	dateScanWindow = 2000
)

// platformMarker pairs a platform with the substrings that identify its
// transcript format. Checked in order; first match wins.
type platformMarker struct {
	platform domain.Platform
	markers  []string
}

var platformMarkers = []platformMarker{
	{domain.PlatformChatGPT, []string{"You said:", "ChatGPT said:", "ChatGPT:"}},
	{domain.PlatformClaude, []string{"Human:", "Assistant:", "Claude:"}},
	{domain.PlatformGemini, []string{"Gemini:", "You:\n", "Gemini said:"}},
	{domain.PlatformGrok, []string{"Grok:", "Grok said:"}},
}

// turnMarkers maps each two-role platform to its user/assistant turn markers,
// matched anchored at line start.
var turnMarkers = map[domain.Platform]struct {
	user      *regexp.Regexp
	assistant *regexp.Regexp
}{
	domain.PlatformChatGPT: {
		user:      regexp.MustCompile(`(?m)^You said:`),
		assistant: regexp.MustCompile(`(?m)^ChatGPT( said)?:`),
	},
	domain.PlatformClaude: {
		user:      regexp.MustCompile(`(?m)^Human:`),
		assistant: regexp.MustCompile(`(?m)^(Assistant|Claude):`),
	},
	domain.PlatformGemini: {
		user:      regexp.MustCompile(`(?m)^You:`),
		assistant: regexp.MustCompile(`(?m)^Gemini( said)?:`),
	},
	domain.PlatformGrok: {
		user:      regexp.MustCompile(`(?m)^You:`),
		assistant: regexp.MustCompile(`(?m)^Grok( said)?:`),
	},
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
	regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\b`),
	regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\.?\s+(\d{1,2}),?\s+(\d{4})\b`),
	regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
}

var monthIndex = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ChunkerService normalizes raw imported text into a Conversation: platform
// detection, speaker tagging, priming topics, content-date estimation and
// overlapping chunk windows.
type ChunkerService struct {
	logger *zap.Logger

	ChunkSize   int
	OverlapSize int

	now func() time.Time
}

func NewChunkerService(logger *zap.Logger) *ChunkerService {
	return &ChunkerService{
		logger:      logger,
		ChunkSize:   DefaultChunkSize,
		OverlapSize: DefaultOverlapSize,
		now:         time.Now,
	}
}

// SetClock overrides the wall clock, for deterministic tests.
func (s *ChunkerService) SetClock(now func() time.Time) {
	s.now = now
}

// Process runs the full chunker stage over one raw import. platformHint, when
// non-empty, bypasses detection.
func (s *ChunkerService) Process(text string, platformHint domain.Platform) *domain.Conversation {
	platform := platformHint
	if platform == "" {
		platform = DetectPlatform(text)
	}

	conv := &domain.Conversation{
		ID:            uuid.New(),
		Platform:      platform,
		Turns:         TagSpeakers(text, platform),
		PrimingTopics: PrimingTopics(text),
		ContentDate:   EstimateContentDate(text),
		ImportedAt:    s.now(),
	}
	conv.Chunks = s.chunk(conv.ID, text)

	s.logger.Debug("chunked conversation",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("platform", string(platform)),
		zap.Int("turns", len(conv.Turns)),
		zap.Int("chunks", len(conv.Chunks)),
		zap.Int("priming_topics", len(conv.PrimingTopics)))

	return conv
}

// DetectPlatform checks marker substrings in fixed priority order. The
// default is the single-speaker manual classification.
func DetectPlatform(text string) domain.Platform {
	for _, pm := range platformMarkers {
		for _, marker := range pm.markers {
			if strings.Contains(text, marker) {
				return pm.platform
			}
		}
	}
	return domain.PlatformManual
}

// TagSpeakers splits two-role transcripts on turn markers and attributes the
// content between consecutive markers to the marker's role. Single-speaker
// sources, and two-role sources without any markers, become one user turn.
func TagSpeakers(text string, platform domain.Platform) []domain.Turn {
	if !platform.TwoRole() {
		return singleTurn(text)
	}

	tm, ok := turnMarkers[platform]
	if !ok {
		return singleTurn(text)
	}

	type markerHit struct {
		start, end int
		role       domain.SpeakerRole
	}
	var hits []markerHit
	for _, loc := range tm.user.FindAllStringIndex(text, -1) {
		hits = append(hits, markerHit{loc[0], loc[1], domain.RoleUser})
	}
	for _, loc := range tm.assistant.FindAllStringIndex(text, -1) {
		hits = append(hits, markerHit{loc[0], loc[1], domain.RoleAssistant})
	}
	if len(hits) == 0 {
		return singleTurn(text)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	var turns []domain.Turn
	for i, h := range hits {
		end := len(text)
		if i+1 < len(hits) {
			end = hits[i+1].start
		}
		content := strings.TrimSpace(text[h.end:end])
		if content == "" {
			continue
		}
		turns = append(turns, domain.Turn{Role: h.role, Text: content})
	}
	if len(turns) == 0 {
		return singleTurn(text)
	}
	return turns
}

func singleTurn(text string) []domain.Turn {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return []domain.Turn{{Role: domain.RoleUser, Text: trimmed}}
}

var (
	honorifics = map[string]bool{
		"Mr.": true, "Mrs.": true, "Ms.": true, "Dr.": true, "Prof.": true,
	}
	orgSuffixes = map[string]bool{
		"Inc": true, "Inc.": true, "Corp": true, "Corp.": true, "LLC": true,
		"Ltd": true, "Ltd.": true, "Labs": true, "Co.": true, "Group": true,
	}
	placePrepositions = map[string]bool{
		"in": true, "at": true, "from": true, "near": true,
	}
	sentenceEnd = regexp.MustCompile(`[.!?]\s*$`)
	wordRe      = regexp.MustCompile(`[A-Za-z][A-Za-z.'-]*`)
)

// PrimingTopics runs a rule-based named-entity pass limited to person, place
// and organization shapes: capitalized token runs that are not sentence
// starts, or that carry honorific, organization-suffix or place-preposition
// cues. Results are deduplicated case-sensitively, sorted, and entities
// shorter than 2 characters are discarded.
func PrimingTopics(text string) []string {
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		words := wordRe.FindAllStringIndex(line, -1)
		tokens := make([]string, len(words))
		for i, loc := range words {
			tokens[i] = line[loc[0]:loc[1]]
		}

		i := 0
		for i < len(tokens) {
			if !isCapitalized(tokens[i]) || honorifics[tokens[i]] {
				i++
				continue
			}

			// Collect the run of capitalized tokens.
			j := i
			for j < len(tokens) && isCapitalized(tokens[j]) {
				j++
			}
			run := tokens[i:j]

			cueBefore := i > 0 && (honorifics[tokens[i-1]] || placePrepositions[strings.ToLower(tokens[i-1])])
			cueSuffix := orgSuffixes[run[len(run)-1]]
			midSentence := i > 0 && !sentenceEndsBefore(line, words[i][0])

			if cueBefore || cueSuffix || (midSentence && len(run) >= 1) || len(run) >= 2 {
				entity := strings.Join(run, " ")
				if len(entity) >= 2 && !commonWord(entity) {
					seen[entity] = true
				}
			}
			i = j
		}
	}

	topics := make([]string, 0, len(seen))
	for t := range seen {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

func isCapitalized(w string) bool {
	if len(w) == 0 {
		return false
	}
	c := w[0]
	return c >= 'A' && c <= 'Z'
}

func sentenceEndsBefore(line string, pos int) bool {
	prefix := strings.TrimRight(line[:pos], " ")
	return prefix == "" || sentenceEnd.MatchString(prefix)
}

// commonWord filters sentence-leading words and pronouns that the
// capitalization heuristic would otherwise treat as names.
func commonWord(w string) bool {
	switch w {
	case "I", "The", "A", "An", "It", "This", "That", "My", "We", "You", "He", "She", "They":
		return true
	}
	return false
}

// chunk splits text into overlapping windows. Text that fits in one chunk is
// returned verbatim; otherwise the window start advances by
// ChunkSize-OverlapSize per iteration, with the final chunk running to the
// true end.
func (s *ChunkerService) chunk(conversationID uuid.UUID, text string) []domain.Chunk {
	size := s.ChunkSize
	overlap := s.OverlapSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlapSize
	}

	makeChunk := func(idx int, body string) domain.Chunk {
		return domain.Chunk{
			ID:    fmt.Sprintf("%s-%d", conversationID, idx),
			Index: idx,
			Text:  body,
		}
	}

	if len(text) <= size {
		return []domain.Chunk{makeChunk(0, text)}
	}

	var chunks []domain.Chunk
	step := size - overlap
	for start, idx := 0, 0; start < len(text); start, idx = start+step, idx+1 {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, makeChunk(idx, text[start:]))
			break
		}
		chunks = append(chunks, makeChunk(idx, text[start:end]))
	}
	return chunks
}

// EstimateContentDate scans the head of the text for the first
// natural-language date reference and returns it, or nil when none is found.
func EstimateContentDate(text string) *time.Time {
	head := text
	if len(head) > dateScanWindow {
		head = head[:dateScanWindow]
	}

	best := -1
	var bestTime time.Time
	for _, re := range datePatterns {
		loc := re.FindStringSubmatchIndex(head)
		if loc == nil {
			continue
		}
		if best != -1 && loc[0] >= best {
			continue
		}
		m := re.FindStringSubmatch(head)
		if t, ok := parseDateMatch(re, m); ok {
			best = loc[0]
			bestTime = t
		}
	}
	if best == -1 {
		return nil
	}
	return &bestTime
}

func parseDateMatch(re *regexp.Regexp, m []string) (time.Time, bool) {
	switch re {
	case datePatterns[0]: // yyyy-mm-dd
		t, err := time.Parse("2006-01-02", m[0])
		return t, err == nil
	case datePatterns[1], datePatterns[2]: // Month d, yyyy
		month, ok := monthIndex[strings.ToLower(strings.TrimSuffix(m[1], "."))]
		if !ok {
			return time.Time{}, false
		}
		day := atoiSafe(m[2])
		year := atoiSafe(m[3])
		if day < 1 || day > 31 || year < 1900 {
			return time.Time{}, false
		}
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	case datePatterns[3]: // mm/dd/yyyy
		month := atoiSafe(m[1])
		day := atoiSafe(m[2])
		year := atoiSafe(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
