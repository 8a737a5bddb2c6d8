package domain

import (
	"time"
)

// Scoring bounds shared by the scorer and the stores.
const (
	MaxExternalCorroboration = 0.3
	MaxFeedbackContribution  = 0.3
	StabilityFloor           = 0.4
	StabilityFloorSupport    = 3

	// Visibility thresholds. Entities the user has never touched stay
	// reviewable at a low bar; once interacted, the full bar applies.
	VisibilityThresholdNew        = 0.1
	VisibilityThresholdInteracted = 0.45
)

// BeliefScore carries the epistemic state of one canonical entity. Exactly one
// exists per entity.
type BeliefScore struct {
	CurrentScore          float64   `json:"current_score"`
	SupportCount          int       `json:"support_count"`
	LastCorroborated      time.Time `json:"last_corroborated"`
	AttributionWeight     float64   `json:"attribution_weight"`
	ExternalCorroboration float64   `json:"external_corroboration"`
	UserFeedbackDelta     float64   `json:"user_feedback_delta"`
	HalfLifeDays          float64   `json:"half_life_days"`
	StabilityFloorActive  bool      `json:"stability_floor_active"`
	Interacted            bool      `json:"interacted"`
	LastCalculated        time.Time `json:"last_calculated"`
}

// VisibilityThreshold returns the score an entity must reach to surface to
// consumers.
func (b *BeliefScore) VisibilityThreshold() float64 {
	if b.Interacted {
		return VisibilityThresholdInteracted
	}
	return VisibilityThresholdNew
}

// FeedbackSignal names a user interaction that adjusts belief in an entity.
type FeedbackSignal string

const (
	SignalCopiedFact     FeedbackSignal = "copied_fact"
	SignalLongPressed    FeedbackSignal = "long_pressed_card"
	SignalUsedInOutput   FeedbackSignal = "used_in_output"
	SignalCardCopied     FeedbackSignal = "card_copied"
	SignalViewedRepeated FeedbackSignal = "viewed_repeatedly"
	SignalConfirmed      FeedbackSignal = "confirmed"
	SignalDismissed      FeedbackSignal = "dismissed"
)

func ValidFeedbackSignal(s FeedbackSignal) bool {
	switch s {
	case SignalCopiedFact, SignalLongPressed, SignalUsedInOutput, SignalCardCopied,
		SignalViewedRepeated, SignalConfirmed, SignalDismissed:
		return true
	}
	return false
}

// Delta returns the signed adjustment the signal applies to the feedback
// accumulator.
func (s FeedbackSignal) Delta() float64 {
	switch s {
	case SignalCopiedFact:
		return 0.15
	case SignalLongPressed:
		return 0.15
	case SignalUsedInOutput:
		return 0.20
	case SignalCardCopied:
		return 0.10
	case SignalViewedRepeated:
		return 0.05
	case SignalConfirmed:
		return 0.25
	case SignalDismissed:
		return -0.40
	default:
		return 0
	}
}
