package identity

import (
	"slices"
	"sync"

	"github.com/joescharf/bugless/internal/models"
)

// Listener is notified with the current identity, or nil once signed out.
type Listener func(*models.Identity)

// Session is the identity provider's client-side session object. It holds
// the signed-in identity and notifies listeners whenever it changes.
type Session struct {
	mu        sync.Mutex
	current   *models.Identity
	listeners map[int]Listener
	nextID    int
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{listeners: make(map[int]Listener)}
}

// CurrentUser returns a copy of the signed-in identity, or nil.
func (s *Session) CurrentUser() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.current)
}

// OnChange registers fn and calls it once right away with the current
// identity. Later changes are delivered synchronously, in registration
// order. The returned func unsubscribes and is safe to call more than once.
func (s *Session) OnChange(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	cur := clone(s.current)
	s.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Listeners returns the number of registered listeners.
func (s *Session) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *Session) set(id *models.Identity) {
	s.mu.Lock()
	s.current = clone(id)
	ids := make([]int, 0, len(s.listeners))
	for k := range s.listeners {
		ids = append(ids, k)
	}
	fns := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, k := range ids {
		fns = append(fns, s.listeners[k])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(clone(id))
	}
}

func clone(id *models.Identity) *models.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
