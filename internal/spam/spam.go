// Package spam scores user-generated text and account behaviour for signs of
// spam. Both scorers are rule based: a fixed set of checks runs in a fixed
// order and each match adds points and a human-readable reason.
package spam

import (
	"strings"
)

// Confidence is a coarse bucket derived from a score.
type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVeryHigh Confidence = "very_high"
)

// Thresholds shared by the scorers and the decision engine.
const (
	// SpamThreshold is the content score at which text is considered spam.
	SpamThreshold = 5

	// SuspiciousThreshold is the behaviour score at which an account is suspicious.
	SuspiciousThreshold = 7
)

// ContentResult is the outcome of scoring a piece of text.
type ContentResult struct {
	Spam       bool       `json:"spam"`
	Score      int        `json:"score"`
	Reasons    []string   `json:"reasons"`
	Confidence Confidence `json:"confidence"`
}

// BehaviorResult is the outcome of scoring an account's recent activity.
type BehaviorResult struct {
	Suspicious bool       `json:"suspicious"`
	Score      int        `json:"score"`
	Reasons    []string   `json:"reasons"`
	Confidence Confidence `json:"confidence"`
}

// Text adapts a raw string to anything that asks for moderation text.
type Text string

// ModerationText returns the string itself.
func (t Text) ModerationText() string { return string(t) }

// confidenceFor maps a score to its bucket:
//
//	0–2   → low
//	3–6   → medium
//	7–10  → high
//	>10   → very_high
func confidenceFor(score int) Confidence {
	switch {
	case score > 10:
		return ConfidenceVeryHigh
	case score >= 7:
		return ConfidenceHigh
	case score >= 3:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
