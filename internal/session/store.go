// Package session holds the in-memory conversation session store and the
// pure rule functions of the conversational state machine (classification,
// context budgeting, compaction).
package session

import (
	"sync"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

// Store is the session repository contract. The authoritative session state
// lives in process memory; implementations are constructed at startup and
// injected, never ambient.
type Store interface {
	Create(sess *model.ConversationSession)
	// Get returns a snapshot copy of the session.
	Get(id string) (model.ConversationSession, bool)
	// Mutate runs fn on the live session under the store lock.
	Mutate(id string, fn func(*model.ConversationSession)) bool
	Delete(id string) bool
	// List returns snapshot copies of all sessions.
	List() []model.ConversationSession
}

// MemoryStore is a mutex-guarded keyed collection. Individual operations
// are atomic; a logical read-modify-write spanning an external call (look up
// session, await an answer, append) is not, which is the documented race of
// the conversational flow. See ConversationService.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.ConversationSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.ConversationSession)}
}

func (s *MemoryStore) Create(sess *model.ConversationSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SessionID] = sess
}

func (s *MemoryStore) Get(id string) (model.ConversationSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.ConversationSession{}, false
	}
	return snapshot(sess), true
}

func (s *MemoryStore) Mutate(id string, fn func(*model.ConversationSession)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	fn(sess)
	return true
}

func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *MemoryStore) List() []model.ConversationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ConversationSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, snapshot(sess))
	}
	return out
}

func snapshot(sess *model.ConversationSession) model.ConversationSession {
	copied := *sess
	copied.Messages = make([]model.ConversationMessage, len(sess.Messages))
	copy(copied.Messages, sess.Messages)
	return copied
}
