package emotion

import "strings"

// Label is the emotional-state tag recorded on a session.
type Label string

const (
	Neutral   Label = "neutral"
	Happy     Label = "happy"
	Sad       Label = "sad"
	Angry     Label = "angry"
	Anxious   Label = "anxious"
	Calm      Label = "calm"
	Excited   Label = "excited"
	Depressed Label = "depressed"
	Stressed  Label = "stressed"
)

var keywordBuckets = map[Label][]string{
	Happy: {
		"happy", "glad", "great", "wonderful", "thank you", "thanks", "love",
		"amazing", "awesome", "better today", "good day",
	},
	Sad: {
		"sad", "cry", "crying", "tearful", "miss", "lost", "grief", "lonely",
		"heartbroken", "upset", "hurt",
	},
	Angry: {
		"angry", "furious", "rage", "mad", "annoyed", "frustrated", "hate",
		"fed up", "unfair",
	},
	Anxious: {
		"anxious", "anxiety", "panic", "worried", "nervous", "scared", "afraid",
		"racing heart", "can't breathe", "overwhelmed",
	},
	Calm: {
		"calm", "relaxed", "peaceful", "at ease", "breathing easier", "settled",
	},
	Excited: {
		"excited", "can't wait", "thrilled", "pumped", "looking forward",
	},
	Depressed: {
		"depressed", "depression", "empty", "numb", "no energy", "can't get up",
		"nothing matters",
	},
	Stressed: {
		"stressed", "stress", "pressure", "burned out", "burnout", "exhausted",
		"too much", "deadline",
	},
}

// Classify picks the emotional-state label with the most keyword hits.
// Ties resolve arbitrarily; no hits yield Neutral. The label is advisory
// session metadata, never an input to risk triage.
func Classify(text string) Label {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Neutral
	}

	best := Neutral
	bestScore := 0
	for label, keywords := range keywordBuckets {
		score := 0
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = label
		}
	}

	return best
}
