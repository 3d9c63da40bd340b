package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var ErrEmptyDocument = errors.New("document has no content")

// Document is one uploaded piece of trusted reference material.
type Document struct {
	Name     string
	Passages []string
}

// Store holds uploaded documents and serves passage retrieval for the
// agent's knowledge tool. Scoring is plain keyword overlap: the store is a
// stand-in for an external retrieval index and stays deliberately simple.
type Store struct {
	mu   sync.RWMutex
	docs []Document
}

// NewStore creates an empty knowledge store.
func NewStore() *Store {
	return &Store{}
}

// AddFile splits a text file into passages and indexes it.
func (s *Store) AddFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.AddDocument(filepath.Base(path), string(data))
}

// AddDocument indexes raw content under the given name.
func (s *Store) AddDocument(name, content string) error {
	passages := splitPassages(content)
	if len(passages) == 0 {
		return ErrEmptyDocument
	}

	s.mu.Lock()
	s.docs = append(s.docs, Document{Name: name, Passages: passages})
	s.mu.Unlock()
	return nil
}

// Retrieve returns up to limit passages ranked by keyword overlap with the
// query. An empty result means the knowledge base has nothing relevant.
func (s *Store) Retrieve(_ context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		passage string
		score   int
	}

	s.mu.RLock()
	var candidates []scored
	for _, doc := range s.docs {
		for _, passage := range doc.Passages {
			lower := strings.ToLower(passage)
			score := 0
			for _, term := range terms {
				if strings.Contains(lower, term) {
					score++
				}
			}
			if score > 0 {
				candidates = append(candidates, scored{passage: passage, score: score})
			}
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.passage
	}
	return out, nil
}

// Size reports the number of indexed documents.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func splitPassages(content string) []string {
	var passages []string
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if len(block) >= 40 {
			passages = append(passages, block)
		}
	}
	return passages
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,!?\"'")
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}
