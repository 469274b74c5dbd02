// Package view holds the per-client screen state: which page or view is
// shown, what the signed-in identity is, and the review workspace.
package view

import "github.com/joescharf/bugless/internal/models"

// Page is an unauthenticated screen.
type Page string

const (
	PageLanding Page = "landing"
	PageLogin   Page = "login"
	PageSignup  Page = "signup"
)

// View is an authenticated screen.
type View string

const (
	ViewHome     View = "home"
	ViewEditor   View = "editor"
	ViewProfile  View = "profile"
	ViewSettings View = "settings"
)

var (
	pages = []Page{PageLanding, PageLogin, PageSignup}
	views = []View{ViewHome, ViewEditor, ViewProfile, ViewSettings}
)

// State is the screen state. Page applies while signed out and View while
// signed in; both are kept so a sign-in/sign-out returns to a sane place.
type State struct {
	LoadingAuth bool                 `json:"loadingAuth"`
	User        *models.Identity     `json:"user"`
	Page        Page                 `json:"page"`
	View        View                 `json:"view"`
	Selected    *models.ReviewRecord `json:"selected,omitempty"`
}

// InitialState is the state before the first identity notification.
func InitialState() State {
	return State{LoadingAuth: true, Page: PageLanding, View: ViewHome}
}

// Transition applies an identity change to s. Signing in lands on the
// home view with nothing selected; signing out lands on the landing page.
// Any other change leaves the screen as it is.
func Transition(prev, curr *models.Identity, s State) State {
	switch {
	case prev == nil && curr != nil:
		s.View = ViewHome
		s.Selected = nil
	case prev != nil && curr == nil:
		s.Page = PageLanding
	}
	s.User = curr
	s.LoadingAuth = false
	return s
}

func isPage(p string) bool {
	for _, v := range pages {
		if string(v) == p {
			return true
		}
	}
	return false
}

func isView(v string) bool {
	for _, x := range views {
		if string(x) == v {
			return true
		}
	}
	return false
}
