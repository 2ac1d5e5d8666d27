// Package session holds per-client analysis state. Each browser session
// sees only its own current transcript and running costs.
package session

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nijaru/yt-digest/models"
)

// Current is the analysis a session is looking at.
type Current struct {
	VideoID    string           `json:"videoId"`
	Title      string           `json:"title"`
	URL        string           `json:"url"`
	Method     string           `json:"method"`
	Language   string           `json:"language"`
	Transcript string           `json:"transcript"`
	Segments   []models.Segment `json:"timestampedSegments"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
	Summary    string           `json:"summary"`
}

// FromEntry rebuilds the session view of a stored history entry.
func FromEntry(entry models.HistoryEntry, summary string) Current {
	return Current{
		VideoID:    entry.ID,
		Title:      entry.Title,
		URL:        entry.URL,
		Method:     entry.Method,
		Language:   entry.Language,
		Transcript: entry.Transcript,
		Segments:   entry.TimestampedSegments,
		Metadata:   entry.Metadata,
		Summary:    summary,
	}
}

type Session struct {
	ID      string
	Created time.Time

	mu      sync.RWMutex
	current *Current
	whisper float64
	gpt     float64
}

func (s *Session) SetCurrent(c Current) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &c
}

func (s *Session) Current() (Current, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Current{}, false
	}
	return *s.current, true
}

func (s *Session) AddCosts(whisper, gpt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whisper += whisper
	s.gpt += gpt
}

func (s *Session) Costs(server string, now time.Time) models.SessionCosts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SessionCosts{
		Whisper:   s.whisper,
		GPT:       s.gpt,
		Total:     s.whisper + s.gpt,
		Server:    server,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// Store keeps the most recently used sessions. Evicted sessions simply
// start over empty.
type Store struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
	now      func() time.Time
}

func NewStore(size int) (*Store, error) {
	cache, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, err
	}
	return &Store{sessions: cache, now: time.Now}, nil
}

// Get returns the session with the given id, creating it if needed.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions.Get(id); ok {
		return sess
	}
	sess := &Session{ID: id, Created: s.now()}
	s.sessions.Add(id, sess)
	return sess
}

func (s *Store) Len() int {
	return s.sessions.Len()
}
