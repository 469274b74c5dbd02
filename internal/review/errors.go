package review

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Kind is the coarse failure class of an analysis.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindProvider      Kind = "provider"
	KindUnknown       Kind = "unknown"
)

// Category refines KindProvider failures.
type Category string

const (
	CategoryCredential Category = "credential"
	CategoryQuota      Category = "quota"
	CategorySafety     Category = "safety"
	CategoryNetwork    Category = "network"
)

// Sentinels for errors.Is. A credential failure matches both
// ErrProvider and ErrConfiguration.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrProvider      = errors.New("provider error")
	ErrUnknown       = errors.New("unknown error")
)

// User-facing messages.
const (
	MsgNotConfigured   = "API key not configured. Please set the GEMINI_API_KEY environment variable."
	MsgInvalidResponse = "The AI returned an invalid response format."
	MsgUnparsable      = "The AI returned a response that could not be read."
	MsgGeneric         = "Failed to analyze code. The AI model may be temporarily unavailable or the request was invalid."
)

// MaxVerbatim is the rune length below which an unclassified provider
// message is shown as-is.
const MaxVerbatim = 200

// Error is an analysis failure carrying a user-facing Message.
type Error struct {
	Kind     Kind
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration || e.Category == CategoryCredential
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrProvider:
		return e.Kind == KindProvider
	case ErrUnknown:
		return e.Kind == KindUnknown
	}
	return false
}

// Rule maps provider error text to a category. Markers are matched
// case-insensitively as substrings.
type Rule struct {
	Name     string
	Category Category
	Markers  []string
	Message  string
}

// Match reports whether msg contains any of the rule's markers.
func (r Rule) Match(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range r.Markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Rules is evaluated in order and the first match wins. It depends on the
// wording of third-party error messages, so an upstream change in that
// wording silently moves errors into a different category.
var Rules = []Rule{
	{
		Name:     "credential",
		Category: CategoryCredential,
		Markers:  []string{"api_key", "api key", "401", "403", "permission", "unauthenticated"},
		Message:  "Invalid or missing API key. Please check your GEMINI_API_KEY configuration.",
	},
	{
		Name:     "quota",
		Category: CategoryQuota,
		Markers:  []string{"429", "quota", "rate limit", "resource_exhausted"},
		Message:  "API rate limit exceeded. Please try again later or check your API quota.",
	},
	{
		Name:     "safety",
		Category: CategorySafety,
		Markers:  []string{"safety", "blocked"},
		Message:  "The code could not be processed due to safety settings. Please review your code and try again.",
	},
	{
		Name:     "network",
		Category: CategoryNetwork,
		Markers:  []string{"fetch", "network", "econnrefused", "connection refused", "no such host", "timeout"},
		Message:  "Network error. Please check your internet connection and try again.",
	},
}

// Classify converts a model failure into an *Error. Errors that are
// already classified pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	msg := err.Error()
	for _, r := range Rules {
		if r.Match(msg) {
			return &Error{Kind: KindProvider, Category: r.Category, Message: r.Message, Err: err}
		}
	}
	if msg != "" && utf8.RuneCountInString(msg) < MaxVerbatim {
		return &Error{Kind: KindUnknown, Message: msg, Err: err}
	}
	return &Error{Kind: KindUnknown, Message: MsgGeneric, Err: err}
}
