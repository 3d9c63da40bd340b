package risk

import "testing"

func TestAssessHighRisk(t *testing.T) {
	inputs := []string{
		"I want to end it all",
		"i want to kill myself",
		"Sometimes I think about SUICIDE",
		"there is no point anymore",
	}

	for _, input := range inputs {
		if got := Assess(input); got != LevelCritical {
			t.Fatalf("Assess(%q) = %d, want %d", input, got, LevelCritical)
		}
	}
}

func TestAssessMediumRisk(t *testing.T) {
	inputs := []string{
		"I feel hopeless",
		"I'm completely worthless",
		"it feels like everything is wrong",
	}

	for _, input := range inputs {
		if got := Assess(input); got != LevelElevated {
			t.Fatalf("Assess(%q) = %d, want %d", input, got, LevelElevated)
		}
	}
}

func TestAssessHighTierWinsOverMedium(t *testing.T) {
	// Contains both a medium phrase ("hopeless") and a high phrase.
	input := "I feel hopeless and want to die"
	if got := Assess(input); got != LevelCritical {
		t.Fatalf("Assess(%q) = %d, want %d", input, got, LevelCritical)
	}
}

func TestAssessNoMatch(t *testing.T) {
	inputs := []string{
		"Can you give me a daily affirmation?",
		"I had a pretty good day today",
		"",
		"   ",
	}

	for _, input := range inputs {
		if got := Assess(input); got != LevelNone {
			t.Fatalf("Assess(%q) = %d, want %d", input, got, LevelNone)
		}
	}
}

func TestIsEmergencyBroaderThanAssessor(t *testing.T) {
	// "help me" trips the pre-filter but scores LevelNone on the tiers.
	input := "please help me figure this out"
	if !IsEmergency(input) {
		t.Fatalf("IsEmergency(%q) = false, want true", input)
	}
	if got := Assess(input); got != LevelNone {
		t.Fatalf("Assess(%q) = %d, want %d", input, got, LevelNone)
	}
}

func TestIsEmergencyCaseInsensitive(t *testing.T) {
	if !IsEmergency("This is a CRISIS") {
		t.Fatal("expected crisis keyword to match case-insensitively")
	}
	if IsEmergency("a calm afternoon walk") {
		t.Fatal("unexpected emergency match on neutral text")
	}
}
