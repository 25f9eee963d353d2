package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/pd15/saocontacts/internal/timex"
)

var ErrUnknownSession = errors.New("session not found")

// HandleFunc produces a fresh opaque handle.
type HandleFunc func() (string, error)

// Registry keeps live sessions in memory. Sessions older than the TTL are
// dropped on lookup and whenever a new session begins; a zero TTL keeps them
// until End.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	clock    timex.Clock
	handle   HandleFunc
}

func NewRegistry(ttl time.Duration, clock timex.Clock, handle HandleFunc) *Registry {
	if clock == nil {
		clock = timex.RealClock{}
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		clock:    clock,
		handle:   handle,
	}
}

// Begin registers s under a new handle and returns it.
func (r *Registry) Begin(s *Session) (string, error) {
	h, err := r.handle()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	s.Handle = h
	r.sessions[h] = s
	return h, nil
}

// pruneLocked drops expired sessions. The caller holds the write lock.
func (r *Registry) pruneLocked() {
	if r.ttl <= 0 {
		return
	}
	now := r.clock.Now()
	for h, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, h)
		}
	}
}

func (r *Registry) expired(s *Session, now time.Time) bool {
	return r.ttl > 0 && now.Sub(s.IssuedAt) >= r.ttl
}

// Current returns a copy of the session behind handle.
func (r *Registry) Current(handle string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[handle]
	var cp Session
	if ok {
		cp = *s
	}
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownSession
	}

	if r.expired(&cp, r.clock.Now()) {
		r.End(handle)
		return nil, ErrUnknownSession
	}

	return &cp, nil
}

// End destroys the session. Unknown handles are ignored.
func (r *Registry) End(handle string) {
	r.mu.Lock()
	delete(r.sessions, handle)
	r.mu.Unlock()
}

// EndAccount destroys every session of the account and reports how many
// ended.
func (r *Registry) EndAccount(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for h, s := range r.sessions {
		if strings.EqualFold(s.Email, email) {
			delete(r.sessions, h)
			n++
		}
	}
	return n
}

// SetAdmin updates the role carried by the account's live sessions.
func (r *Registry) SetAdmin(email string, admin bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if strings.EqualFold(s.Email, email) {
			s.Admin = admin
		}
	}
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
