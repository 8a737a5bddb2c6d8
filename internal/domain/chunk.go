package domain

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the originating tool of a pasted or imported
// conversation.
type Platform string

const (
	PlatformChatGPT Platform = "chatgpt"
	PlatformClaude  Platform = "claude"
	PlatformGemini  Platform = "gemini"
	PlatformGrok    Platform = "grok"
	PlatformManual  Platform = "manual"
)

// TwoRole reports whether transcripts from the platform carry user and
// assistant turn markers.
func (p Platform) TwoRole() bool {
	switch p {
	case PlatformChatGPT, PlatformClaude, PlatformGemini, PlatformGrok:
		return true
	}
	return false
}

type SpeakerRole string

const (
	RoleUser      SpeakerRole = "user"
	RoleAssistant SpeakerRole = "assistant"
)

// Turn is a contiguous span of conversation text attributed to one speaker.
type Turn struct {
	Role SpeakerRole `json:"role"`
	Text string      `json:"text"`
}

// Chunk is one overlapping window over the normalized conversation text.
type Chunk struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Conversation is the chunker's output for one import: the detected platform,
// tagged turns, priming topics, estimated content date and the overlapping
// chunk windows.
type Conversation struct {
	ID            uuid.UUID  `json:"id"`
	Platform      Platform   `json:"platform"`
	Turns         []Turn     `json:"turns"`
	PrimingTopics []string   `json:"priming_topics,omitempty"`
	ContentDate   *time.Time `json:"content_date,omitempty"`
	Chunks        []Chunk    `json:"chunks"`
	ImportedAt    time.Time  `json:"imported_at"`
}
