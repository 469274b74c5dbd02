package api

import (
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/joescharf/bugless/internal/identity"
	"github.com/joescharf/bugless/internal/view"
)

const (
	cookieName  = "bugless"
	keyClientID = "cid"
	keyOAuth    = "oauth_state"
)

// client is the server-side state of one browser.
type client struct {
	id      string
	session *identity.Session
	ctrl    *view.Controller

	// moving is set while the client is re-keyed so eviction of its old
	// id leaves the controller open.
	moving atomic.Bool
}

// client returns the caller's client, creating it and setting the cookie
// on first contact. It must run before anything is written to w.
func (s *Server) client(w http.ResponseWriter, r *http.Request) *client {
	// A cookie that fails to decode yields a fresh session.
	sess, _ := s.cookies.Get(r, cookieName)
	cid, _ := sess.Values[keyClientID].(string)
	if cid == "" {
		cid = uuid.NewString()
		sess.Values[keyClientID] = cid
	}
	if err := sess.Save(r, w); err != nil {
		s.logger.Warn("saving session cookie", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.clients.Get(cid); ok {
		c := v.(*client)
		s.clients.Set(cid, c, cache.DefaultExpiration)
		return c
	}
	// An expired entry the janitor has not purged yet is evicted here so
	// its controller is closed before the id is reused.
	s.clients.Delete(cid)

	idSess := identity.NewSession()
	c := &client{
		id:      cid,
		session: idSess,
		ctrl: view.NewController(idSess, view.Options{
			Analyzer: s.analyzer,
			Recorder: s.history,
			IDs:      s.ids,
			Logger:   s.logger,
		}),
	}
	s.clients.Set(cid, c, cache.DefaultExpiration)
	s.logger.Debug("new client", "client", cid)
	s.countClients()
	return c
}

// rotate moves c to a new client id and reissues the cookie, so an id
// issued before sign-in does not reach the signed-in session. It must run
// before anything is written to w.
func (s *Server) rotate(w http.ResponseWriter, r *http.Request, c *client) {
	sess, _ := s.cookies.Get(r, cookieName)
	next := uuid.NewString()

	s.mu.Lock()
	prev := c.id
	c.id = next
	s.clients.Set(next, c, cache.DefaultExpiration)
	c.moving.Store(true)
	s.clients.Delete(prev)
	c.moving.Store(false)
	s.mu.Unlock()

	sess.Values[keyClientID] = next
	if err := sess.Save(r, w); err != nil {
		s.logger.Warn("saving session cookie", "error", err)
	}
	s.logger.Debug("client id rotated", "client", next)
}

func (s *Server) evicted(cid string, v any) {
	if c, ok := v.(*client); ok && !c.moving.Load() {
		c.ctrl.Close()
		s.logger.Debug("client expired", "client", cid)
	}
	s.countClients()
}

func (s *Server) countClients() {
	if s.metrics != nil {
		s.metrics.SetClients(s.clients.ItemCount())
	}
}

// Clients returns the number of live browser clients.
func (s *Server) Clients() int {
	return s.clients.ItemCount()
}

// Close drops every client, closing its controller.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients.DeleteExpired()
	for cid := range s.clients.Items() {
		s.clients.Delete(cid)
	}
}
