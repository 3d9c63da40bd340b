package risk

import "strings"

// Risk levels on the 1-5 scale used across the service.
const (
	LevelNone     = 1 // no concerning content detected
	LevelElevated = 3 // elevated concern, no imminent danger
	LevelCritical = 5 // immediate attention needed
)

// highRiskKeywords short-circuit to LevelCritical on the first match.
var highRiskKeywords = []string{
	"suicide", "kill myself", "end it all", "want to die",
	"hurt myself", "self harm", "no point", "can't go on",
}

// mediumRiskKeywords are only consulted when no high-risk phrase matched.
var mediumRiskKeywords = []string{
	"hopeless", "worthless", "give up", "can't cope",
	"everything is wrong", "no one cares", "alone",
}

// emergencyKeywords is the broader pre-filter applied at the chat boundary
// before any model is consulted. It intentionally overlaps with, but is not
// identical to, the assessor tiers: it exists to re-tag a session as an
// emergency session even for phrases the tiered assessor scores low.
var emergencyKeywords = []string{
	"suicide", "kill myself", "end it all", "want to die",
	"harm myself", "hurt myself", "emergency", "crisis",
	"help me", "can't go on", "no point", "hopeless",
}

// Assess classifies text into a risk level. It is deterministic and total:
// case-insensitive substring matching, high tier first (any match wins the
// tier), then medium tier, otherwise LevelNone. Empty input is LevelNone.
func Assess(text string) int {
	normalized := strings.ToLower(text)
	if strings.TrimSpace(normalized) == "" {
		return LevelNone
	}

	for _, keyword := range highRiskKeywords {
		if strings.Contains(normalized, keyword) {
			return LevelCritical
		}
	}

	for _, keyword := range mediumRiskKeywords {
		if strings.Contains(normalized, keyword) {
			return LevelElevated
		}
	}

	return LevelNone
}

// IsEmergency reports whether text trips the broad emergency pre-filter.
func IsEmergency(text string) bool {
	normalized := strings.ToLower(text)
	for _, keyword := range emergencyKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}
