package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safespace/safespace-agent/internal/model/session"
)

// Store owns all conversation state. The outer RWMutex guards the session
// map; each entry carries its own mutex so writes within one session are
// serialized while distinct sessions proceed in parallel.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu sync.Mutex
	s  session.Session
}

// NewStore bootstraps the in-memory session store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// GetOrCreate returns the session for id, creating it with an empty log and
// risk level 1 on first reference. Idempotent on id: the category argument
// only applies at creation time. Returns a snapshot copy.
func (s *Store) GetOrCreate(id string, category session.Category) session.Session {
	e := s.getOrCreateEntry(id, category)

	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(&e.s)
}

// Get returns a snapshot of an existing session.
func (s *Store) Get(id string) (session.Session, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return session.Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(&e.s), true
}

// AppendTurn appends a turn to the session log, bumps last-activity and
// raises the aggregate risk to max(current, turn risk). The session is
// created on first reference if id is unseen. Aggregate risk never
// decreases here; only Clear resets it.
func (s *Store) AppendTurn(id string, turn session.Turn) {
	e := s.getOrCreateEntry(id, session.CategoryGeneral)

	e.mu.Lock()
	defer e.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	e.s.Turns = append(e.s.Turns, turn)
	e.s.LastActivity = turn.CreatedAt
	if turn.RiskLevel > e.s.RiskLevel {
		e.s.RiskLevel = turn.RiskLevel
	}
}

// PopAssistantTurn removes the most recent turn when it is an assistant
// turn, supporting regenerate. Any other trailing role is left alone.
func (s *Store) PopAssistantTurn(id string) (session.Turn, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return session.Turn{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.s.Turns)
	if n == 0 || e.s.Turns[n-1].Role != session.RoleAssistant {
		return session.Turn{}, false
	}

	turn := e.s.Turns[n-1]
	e.s.Turns = e.s.Turns[:n-1]
	return turn, true
}

// SetEmotionalState records the latest observed emotional-state label.
// Last write wins.
func (s *Store) SetEmotionalState(id string, state string) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	e.mu.Lock()
	e.s.EmotionalState = state
	e.s.LastActivity = time.Now().UTC()
	e.mu.Unlock()
}

// SetCategory re-tags the session, used when the emergency pre-filter trips
// mid-conversation.
func (s *Store) SetCategory(id string, category session.Category) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	e.mu.Lock()
	e.s.Category = category
	e.mu.Unlock()
}

// End evicts the session and returns its summary. Ending an unknown session
// is a no-op and returns nil.
func (s *Store) End(id string) *session.Summary {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	return &session.Summary{
		SessionID:  e.s.ID,
		Duration:   now.Sub(e.s.CreatedAt),
		TurnCount:  len(e.s.Turns),
		Modalities: distinctModalities(e.s.Turns),
		ToolsUsed:  distinctTools(e.s.Turns),
		RiskLevel:  e.s.RiskLevel,
		EndedAt:    now,
	}
}

// Clear resets the session log in place, preserving the identifier and
// category. Risk and emotional state reset with the log. Returns false when
// the session was never seen.
func (s *Store) Clear(id string) bool {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.s.Turns = nil
	e.s.RiskLevel = 1
	e.s.EmotionalState = ""
	e.s.LastActivity = time.Now().UTC()
	e.mu.Unlock()
	return true
}

// Count reports the number of active sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) getOrCreateEntry(id string, category session.Category) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[id]; ok {
		return e
	}

	now := time.Now().UTC()
	if category == "" {
		category = session.CategoryGeneral
	}
	e = &entry{s: session.Session{
		ID:           id,
		Category:     category,
		CreatedAt:    now,
		LastActivity: now,
		RiskLevel:    1,
	}}
	s.entries[id] = e
	return e
}

// snapshot copies the session so callers never alias the stored log.
func snapshot(s *session.Session) session.Session {
	out := *s
	out.Turns = append([]session.Turn(nil), s.Turns...)
	return out
}

func distinctModalities(turns []session.Turn) []string {
	seen := make(map[string]struct{})
	for _, turn := range turns {
		if turn.Modality != "" {
			seen[string(turn.Modality)] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func distinctTools(turns []session.Turn) []string {
	seen := make(map[string]struct{})
	for _, turn := range turns {
		if tool := turn.Metadata["tool"]; tool != "" && tool != "none" {
			seen[tool] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
