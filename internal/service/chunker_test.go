package service

import (
	"strings"
	"testing"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"go.uber.org/zap"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Platform
	}{
		{"chatgpt export", "You said:\nhello\nChatGPT said:\nhi there", domain.PlatformChatGPT},
		{"claude transcript", "Human: hello\nAssistant: hi there", domain.PlatformClaude},
		{"gemini transcript", "Gemini: here is the answer", domain.PlatformGemini},
		{"grok transcript", "Grok: here is the answer", domain.PlatformGrok},
		{"plain notes", "just some notes I pasted in", domain.PlatformManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectPlatform(tt.text); got != tt.want {
				t.Errorf("DetectPlatform() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectPlatformPriorityOrder(t *testing.T) {
	// Contains markers for both chatgpt and claude; chatgpt is checked first.
	text := "You said:\nsomething\nAssistant: reply"
	if got := DetectPlatform(text); got != domain.PlatformChatGPT {
		t.Errorf("DetectPlatform() = %s, want chatgpt", got)
	}
}

func TestTagSpeakers(t *testing.T) {
	text := "Human: I work as a backend engineer\nAssistant: That sounds interesting\nHuman: Yes it is"
	turns := TagSpeakers(text, domain.PlatformClaude)

	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Role != domain.RoleUser || turns[1].Role != domain.RoleAssistant || turns[2].Role != domain.RoleUser {
		t.Errorf("unexpected role sequence: %v %v %v", turns[0].Role, turns[1].Role, turns[2].Role)
	}
	if turns[0].Text != "I work as a backend engineer" {
		t.Errorf("unexpected first turn text: %q", turns[0].Text)
	}
}

func TestTagSpeakersNoMarkersFallsBack(t *testing.T) {
	text := "a pasted transcript without any role markers at all"
	turns := TagSpeakers(text, domain.PlatformClaude)

	if len(turns) != 1 {
		t.Fatalf("expected single fallback turn, got %d", len(turns))
	}
	if turns[0].Role != domain.RoleUser {
		t.Errorf("fallback turn role = %s, want user", turns[0].Role)
	}
}

func TestTagSpeakersManualSingleTurn(t *testing.T) {
	turns := TagSpeakers("my own notes", domain.PlatformManual)
	if len(turns) != 1 || turns[0].Role != domain.RoleUser {
		t.Fatalf("manual text should become one user turn, got %v", turns)
	}
}

func TestPrimingTopics(t *testing.T) {
	text := "I had a chat with Dr. Smith about working at Acme Corp in Berlin yesterday."
	topics := PrimingTopics(text)

	want := map[string]bool{}
	for _, topic := range topics {
		want[topic] = true
	}
	for _, expected := range []string{"Smith", "Acme Corp", "Berlin"} {
		if !want[expected] {
			t.Errorf("expected topic %q in %v", expected, topics)
		}
	}
	for _, banned := range []string{"I", "The"} {
		if want[banned] {
			t.Errorf("common word %q should be filtered, got %v", banned, topics)
		}
	}
}

func TestPrimingTopicsSortedAndDeduplicated(t *testing.T) {
	text := "Acme Corp shipped. Then Acme Corp shipped again with Zed Labs."
	topics := PrimingTopics(text)

	count := 0
	for _, topic := range topics {
		if topic == "Acme Corp" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected Acme Corp exactly once, got %d in %v", count, topics)
	}
	for i := 1; i < len(topics); i++ {
		if topics[i-1] > topics[i] {
			t.Errorf("topics not sorted: %v", topics)
		}
	}
}

func TestChunkOverlapInvariant(t *testing.T) {
	svc := NewChunkerService(zap.NewNop())
	svc.ChunkSize = 100
	svc.OverlapSize = 25

	text := strings.Repeat("abcdefghij", 100)
	conv := svc.Process(text, domain.PlatformManual)

	if len(conv.Chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(conv.Chunks))
	}
	for i := 0; i < len(conv.Chunks)-1; i++ {
		a := conv.Chunks[i].Text
		b := conv.Chunks[i+1].Text
		tail := a[len(a)-svc.OverlapSize:]
		head := b[:svc.OverlapSize]
		if tail != head {
			t.Errorf("overlap mismatch between chunk %d and %d", i, i+1)
		}
	}
}

func TestChunkShortTextVerbatim(t *testing.T) {
	svc := NewChunkerService(zap.NewNop())
	text := "short text that fits in one chunk"
	conv := svc.Process(text, domain.PlatformManual)

	if len(conv.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(conv.Chunks))
	}
	if conv.Chunks[0].Text != text {
		t.Errorf("single chunk should be verbatim")
	}
}

func TestChunkFinalChunkReachesEnd(t *testing.T) {
	svc := NewChunkerService(zap.NewNop())
	svc.ChunkSize = 100
	svc.OverlapSize = 25

	text := strings.Repeat("x", 260)
	conv := svc.Process(text, domain.PlatformManual)

	last := conv.Chunks[len(conv.Chunks)-1]
	if !strings.HasSuffix(text, last.Text) {
		t.Errorf("final chunk does not run to the true end")
	}
	total := 0
	for _, c := range conv.Chunks {
		total += len(c.Text)
	}
	if total < len(text) {
		t.Errorf("chunks lost content: %d covered of %d", total, len(text))
	}
}

func TestEstimateContentDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *time.Time
	}{
		{"iso date", "exported on 2025-03-14 from the app", timePtr(2025, time.March, 14)},
		{"long month", "Conversation from March 14, 2025 with someone", timePtr(2025, time.March, 14)},
		{"short month", "Jan 2, 2024 chat log", timePtr(2024, time.January, 2)},
		{"slash date", "saved 3/14/2025 locally", timePtr(2025, time.March, 14)},
		{"no date", "there is no date reference here", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateContentDate(tt.text)
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
				return
			}
			if got == nil || !got.Equal(*tt.want) {
				t.Errorf("EstimateContentDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateContentDateOnlyScansHead(t *testing.T) {
	text := strings.Repeat("padding ", 300) + "2025-03-14"
	if got := EstimateContentDate(text); got != nil {
		t.Errorf("date beyond the scan window should be ignored, got %v", got)
	}
}

func timePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
