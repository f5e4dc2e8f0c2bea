package session

import (
	"sync"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

type entry struct {
	mu      sync.Mutex
	idle    *sync.Cond
	session *domain.Session
}

// Store owns every conversation. Each phone number gets its own lock, so a
// slow critical section for one user never blocks another. The map lock is
// only held long enough to find or create an entry.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) entry(phone string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[phone]
	if !ok {
		e = &entry{session: domain.NewSession(phone)}
		e.idle = sync.NewCond(&e.mu)
		s.entries[phone] = e
	}
	return e
}

// With runs fn with exclusive access to the session for phone, creating it in
// the initial state on first use. fn must not block on network I/O and must not
// retain the pointer after returning.
func (s *Store) With(phone string, fn func(*domain.Session)) {
	e := s.entry(phone)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.run(fn)
}

// WhenIdle is With, but first waits until no operation holds a claim on the
// session. The lock is not held while waiting, so the claimed operation can
// commit and release.
func (s *Store) WhenIdle(phone string, fn func(*domain.Session)) {
	e := s.entry(phone)
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.session.Busy != "" {
		e.idle.Wait()
	}
	e.run(fn)
}

func (e *entry) run(fn func(*domain.Session)) {
	claimed := e.session.Busy != ""
	defer func() {
		if claimed && e.session.Busy == "" {
			e.idle.Broadcast()
		}
	}()
	fn(e.session)
}

func (s *Store) Snapshot(phone string) (domain.Session, bool) {
	s.mu.Lock()
	e, ok := s.entries[phone]
	s.mu.Unlock()
	if !ok {
		return domain.Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
