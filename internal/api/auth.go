package api

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/joescharf/bugless/internal/password"
)

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	writeJSON(w, http.StatusOK, c.ctrl.Snapshot())
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	var req struct {
		Target string `json:"target"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := c.ctrl.Navigate(req.Target); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.ctrl.Snapshot())
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	var req credentials
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.gateway.SignUp(r.Context(), c.session, req.Email, req.Password, req.DisplayName); err != nil {
		s.fail(w, err)
		return
	}
	s.rotate(w, r, c)
	writeJSON(w, http.StatusCreated, c.ctrl.Snapshot())
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	var req credentials
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.gateway.Login(r.Context(), c.session, req.Email, req.Password); err != nil {
		s.fail(w, err)
		return
	}
	s.rotate(w, r, c)
	writeJSON(w, http.StatusOK, c.ctrl.Snapshot())
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	if err := s.gateway.Logout(r.Context(), c.session); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.ctrl.Snapshot())
}

// googleStart redirects to the identity provider with a one-time state
// kept in the session cookie.
func (s *Server) googleStart(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	sess, _ := s.cookies.Get(r, cookieName)
	sess.Values[keyOAuth] = state
	if err := sess.Save(r, w); err != nil {
		s.fail(w, err)
		return
	}

	target, err := s.gateway.FederatedURL(state)
	if err != nil {
		s.fail(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// googleCallback finishes a federated sign-in and returns to the client,
// passing a failure message in the authError query parameter.
func (s *Server) googleCallback(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.cookies.Get(r, cookieName)
	want, _ := sess.Values[keyOAuth].(string)
	delete(sess.Values, keyOAuth)
	c := s.client(w, r)

	q := r.URL.Query()
	code := q.Get("code")
	if want == "" || q.Get("state") != want {
		code = ""
	}

	if err := s.gateway.LoginFederated(r.Context(), c.session, code); err != nil {
		http.Redirect(w, r, "/?authError="+url.QueryEscape(err.Error()), http.StatusFound)
		return
	}
	s.rotate(w, r, c)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) checkPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checks": password.Check(req.Password),
		"result": password.Validate(req.Password),
	})
}

func (s *Server) updateName(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.gateway.UpdateDisplayName(r.Context(), c.session, req.DisplayName); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.ctrl.Snapshot())
}

func (s *Server) updateEmail(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	var req struct {
		Email           string `json:"email"`
		CurrentPassword string `json:"currentPassword"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.gateway.UpdateEmail(r.Context(), c.session, req.Email, req.CurrentPassword); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.ctrl.Snapshot())
}

func (s *Server) updatePassword(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.gateway.UpdatePassword(r.Context(), c.session, req.CurrentPassword, req.NewPassword); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
