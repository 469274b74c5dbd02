package view

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joescharf/bugless/internal/identity"
	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/review"
)

// DefaultCode is the snippet a fresh review session starts with.
const DefaultCode = "function greet(name) {\n  console.log(\"Hello, \" + name);\n}"

// MsgEmptyCode is shown when a review is requested for blank code.
const MsgEmptyCode = "Code cannot be empty."

var (
	ErrInvalidTarget    = errors.New("invalid navigation target")
	ErrNotSignedIn      = errors.New("not signed in")
	ErrReviewInProgress = errors.New("a review is already in progress")
	ErrEmptyCode        = errors.New(MsgEmptyCode)
	ErrUnknownLanguage  = errors.New("unknown language")
)

// Analyzer produces an analysis for a piece of code.
type Analyzer interface {
	Analyze(ctx context.Context, language, code string) (*models.AnalysisResult, error)
}

// Recorder persists a finished review for a user.
type Recorder interface {
	Save(ctx context.Context, uid string, rec models.ReviewRecord) error
}

// Workspace is the editor state of one review session.
type Workspace struct {
	ID       string                 `json:"id"`
	Code     string                 `json:"code"`
	Language string                 `json:"language"`
	Result   *models.AnalysisResult `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Loading  bool                   `json:"loading"`
}

// Snapshot is a consistent copy of a Controller's state.
type Snapshot struct {
	State
	Workspace Workspace `json:"workspace"`
}

// Options configures a Controller. Every field is optional.
type Options struct {
	Analyzer Analyzer
	Recorder Recorder
	IDs      *IDs
	Logger   *slog.Logger
}

// Controller drives the screens of one client. It follows the identity
// session it was created with until Close is called.
type Controller struct {
	analyzer Analyzer
	recorder Recorder
	ids      *IDs
	logger   *slog.Logger

	mu    sync.Mutex
	prev  *models.Identity
	curr  *models.Identity
	state State
	ws    Workspace
	// gen changes whenever the workspace is replaced or left, so an
	// analysis that finishes afterwards is not applied.
	gen uint64

	unsubscribe func()
}

// NewController creates a Controller subscribed to sess.
func NewController(sess *identity.Session, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.IDs == nil {
		opts.IDs = processIDs
	}
	c := &Controller{
		analyzer: opts.Analyzer,
		recorder: opts.Recorder,
		ids:      opts.IDs,
		logger:   opts.Logger.With("system", "view"),
		state:    InitialState(),
	}
	c.ws = c.freshWorkspace()
	c.unsubscribe = sess.OnChange(c.onIdentity)
	return c
}

// Close stops following the identity session and drops any pending
// analysis result.
func (c *Controller) Close() {
	c.unsubscribe()
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

func (c *Controller) onIdentity(id *models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prev, c.curr = c.curr, id
	c.state = Transition(c.prev, c.curr, c.state)
	if c.prev != nil && c.curr == nil {
		c.gen++
		c.ws = c.freshWorkspace()
	}
}

func (c *Controller) freshWorkspace() Workspace {
	return Workspace{ID: c.ids.Next(), Code: DefaultCode, Language: models.DefaultLanguage}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Workspace: c.ws}
}

// Navigate moves to target, which must be a page while signed out and a
// view while signed in. Leaving the editor abandons its workspace: a
// running analysis is no longer applied, and the editor reopens on a new
// session.
func (c *Controller) Navigate(target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.curr == nil {
		if !isPage(target) {
			return ErrInvalidTarget
		}
		c.state.Page = Page(target)
		return nil
	}
	if !isView(target) {
		return ErrInvalidTarget
	}
	if c.state.View == ViewEditor && View(target) != ViewEditor {
		c.gen++
		c.ws = c.freshWorkspace()
		c.state.Selected = nil
	}
	c.state.View = View(target)
	return nil
}

// StartReview opens the editor. A nil item starts a fresh session with a
// new id; otherwise the workspace shows item and keeps its id.
func (c *Controller) StartReview(item *models.ReviewRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.curr == nil {
		return ErrNotSignedIn
	}
	c.gen++
	if item == nil {
		c.ws = c.freshWorkspace()
		c.state.Selected = nil
	} else {
		sel := *item
		c.ws = Workspace{ID: sel.ID, Code: sel.SourceCode, Language: sel.Language, Result: sel.Result}
		c.state.Selected = &sel
	}
	c.state.View = ViewEditor
	return nil
}

// Edit changes the workspace code and/or language. Nil arguments are left
// unchanged.
func (c *Controller) Edit(code, language *string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.curr == nil {
		return ErrNotSignedIn
	}
	if language != nil && !models.IsLanguage(*language) {
		return ErrUnknownLanguage
	}
	if code != nil {
		c.ws.Code = *code
	}
	if language != nil {
		c.ws.Language = *language
	}
	return nil
}

// Review analyzes the workspace code and, on success, records it in the
// user's history. Only one review runs per workspace at a time. The
// analysis is not cancelled when ctx is, but its result is discarded if
// the workspace was replaced or left in the meantime.
func (c *Controller) Review(ctx context.Context) error {
	c.mu.Lock()
	if c.curr == nil {
		c.mu.Unlock()
		return ErrNotSignedIn
	}
	if c.ws.Loading {
		c.mu.Unlock()
		return ErrReviewInProgress
	}
	if strings.TrimSpace(c.ws.Code) == "" {
		c.ws.Error = MsgEmptyCode
		c.mu.Unlock()
		return ErrEmptyCode
	}
	c.ws.Loading = true
	c.ws.Error = ""
	c.ws.Result = nil
	gen := c.gen
	uid := c.curr.UID
	id, code, language := c.ws.ID, c.ws.Code, c.ws.Language
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	res, err := c.analyze(ctx, language, code)
	if err == nil {
		c.record(ctx, uid, models.ReviewRecord{
			ID:         id,
			CreatedAt:  time.Now().UTC().Format(models.TimeLayout),
			Language:   language,
			SourceCode: code,
			Result:     res,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("discarding stale analysis", "id", id)
		return nil
	}
	c.ws.Loading = false
	if err != nil {
		c.ws.Error = review.Classify(err).Message
		return err
	}
	c.ws.Result = res
	return nil
}

func (c *Controller) analyze(ctx context.Context, language, code string) (*models.AnalysisResult, error) {
	if c.analyzer == nil {
		return nil, &review.Error{Kind: review.KindConfiguration, Message: review.MsgNotConfigured}
	}
	return c.analyzer.Analyze(ctx, language, code)
}

func (c *Controller) record(ctx context.Context, uid string, rec models.ReviewRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Save(ctx, uid, rec); err != nil {
		c.logger.Error("saving review to history", "id", rec.ID, "error", err)
	}
}
