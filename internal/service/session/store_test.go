package session_test

import (
	"fmt"
	"sync"
	"testing"

	model "github.com/safespace/safespace-agent/internal/model/session"
	store "github.com/safespace/safespace-agent/internal/service/session"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	s := store.NewStore()

	first := s.GetOrCreate("s1", model.CategoryTherapy)
	s.AppendTurn("s1", model.Turn{Role: model.RoleUser, Content: "hello", Modality: model.ModalityText})

	second := s.GetOrCreate("s1", model.CategoryGeneral)
	if second.Category != model.CategoryTherapy {
		t.Fatalf("category changed on re-create: got %s", second.Category)
	}
	if len(second.Turns) != 1 {
		t.Fatalf("log reset on re-create: got %d turns", len(second.Turns))
	}
	if first.ID != second.ID {
		t.Fatalf("session identity changed: %s vs %s", first.ID, second.ID)
	}
}

func TestAppendTurnRiskMonotonic(t *testing.T) {
	s := store.NewStore()
	s.GetOrCreate("s1", model.CategoryGeneral)

	s.AppendTurn("s1", model.Turn{Role: model.RoleUser, Content: "a", RiskLevel: 5})
	s.AppendTurn("s1", model.Turn{Role: model.RoleUser, Content: "b", RiskLevel: 1})

	got, ok := s.Get("s1")
	if !ok {
		t.Fatal("session missing")
	}
	if got.RiskLevel != 5 {
		t.Fatalf("aggregate risk regressed: got %d, want 5", got.RiskLevel)
	}
}

func TestEndComputesSummary(t *testing.T) {
	s := store.NewStore()
	s.GetOrCreate("s1", model.CategoryGeneral)
	s.AppendTurn("s1", model.Turn{Role: model.RoleUser, Content: "a", Modality: model.ModalityText})
	s.AppendTurn("s1", model.Turn{
		Role: model.RoleAssistant, Content: "b", Modality: model.ModalityText,
		Metadata: map[string]string{"tool": "get_daily_affirmation"},
	})
	s.AppendTurn("s1", model.Turn{Role: model.RoleUser, Content: "c", Modality: model.ModalityAudio})

	summary := s.End("s1")
	if summary == nil {
		t.Fatal("expected summary")
	}
	if summary.TurnCount != 3 {
		t.Fatalf("turn count = %d, want 3", summary.TurnCount)
	}
	if len(summary.Modalities) != 2 {
		t.Fatalf("modalities = %v, want two distinct", summary.Modalities)
	}
	if len(summary.ToolsUsed) != 1 || summary.ToolsUsed[0] != "get_daily_affirmation" {
		t.Fatalf("tools = %v", summary.ToolsUsed)
	}
	if _, ok := s.Get("s1"); ok {
		t.Fatal("session should be evicted after End")
	}
}

func TestEndUnknownSessionIsNoop(t *testing.T) {
	s := store.NewStore()
	if summary := s.End("never-seen"); summary != nil {
		t.Fatalf("expected nil summary, got %+v", summary)
	}
}

func TestClear(t *testing.T) {
	s := store.NewStore()
	s.GetOrCreate("s1", model.CategoryTherapy)
	s.AppendTurn("s1", model.Turn{Role: model.RoleUser, Content: "x", RiskLevel: 5})

	if !s.Clear("s1") {
		t.Fatal("Clear returned false for existing session")
	}

	got, ok := s.Get("s1")
	if !ok {
		t.Fatal("session evicted by Clear; should be preserved")
	}
	if len(got.Turns) != 0 || got.RiskLevel != 1 {
		t.Fatalf("log not reset: %d turns, risk %d", len(got.Turns), got.RiskLevel)
	}
	if got.Category != model.CategoryTherapy {
		t.Fatalf("category not preserved: %s", got.Category)
	}
}

func TestClearUnknownSession(t *testing.T) {
	s := store.NewStore()
	if s.Clear("never-seen-id") {
		t.Fatal("Clear of unknown session must return false")
	}
}

func TestPopAssistantTurn(t *testing.T) {
	s := store.NewStore()
	s.GetOrCreate("s1", model.CategoryGeneral)
	s.AppendTurn("s1", model.Turn{Role: model.RoleUser, Content: "q"})
	s.AppendTurn("s1", model.Turn{Role: model.RoleAssistant, Content: "a"})

	turn, ok := s.PopAssistantTurn("s1")
	if !ok || turn.Content != "a" {
		t.Fatalf("pop = %+v, %v", turn, ok)
	}

	// A trailing user turn must not be popped.
	if _, ok := s.PopAssistantTurn("s1"); ok {
		t.Fatal("popped a non-assistant turn")
	}
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	s := store.NewStore()
	s.GetOrCreate("s1", model.CategoryGeneral)

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.AppendTurn("s1", model.Turn{
					Role:    model.RoleUser,
					Content: fmt.Sprintf("w%d-%d", w, i),
				})
			}
		}(w)
	}
	wg.Wait()

	got, _ := s.Get("s1")
	if len(got.Turns) != writers*perWriter {
		t.Fatalf("lost turns under contention: got %d, want %d", len(got.Turns), writers*perWriter)
	}
}
