package review

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bugless/internal/llm"
	"github.com/joescharf/bugless/internal/models"
)

// mockModel implements llm.Model for testing.
type mockModel struct {
	configured bool
	reply      string
	err        error

	calls   int
	lastReq llm.Request
}

func (m *mockModel) Name() string     { return "mock/test" }
func (m *mockModel) Configured() bool { return m.configured }
func (m *mockModel) Generate(_ context.Context, req llm.Request) (string, error) {
	m.calls++
	m.lastReq = req
	return m.reply, m.err
}

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveAnalysis(outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

const validReply = `{
  "issues": [
    {"line": 2, "type": "Logic", "message": "missing null check"},
    {"line": -1, "type": "nitpick", "message": "odd spacing"}
  ],
  "suggestions": ["use template literals"],
  "score": 72,
  "editedCode": "function greet(name) {}"
}`

func TestAnalyze_Success(t *testing.T) {
	m := &mockModel{configured: true, reply: validReply}
	obs := &recordingObserver{}
	r := NewRequester(m, nil, obs)

	res, err := r.Analyze(context.Background(), "javascript", "function greet(name) {}")
	require.NoError(t, err)

	assert.Equal(t, 72, res.Score)
	assert.Equal(t, []string{"use template literals"}, res.Suggestions)
	assert.Equal(t, "function greet(name) {}", res.CorrectedCode)
	require.Len(t, res.Issues, 2)
	require.NotNil(t, res.Issues[0].Line)
	assert.Equal(t, 2, *res.Issues[0].Line)
	assert.Equal(t, models.IssueCategoryLogic, res.Issues[0].Category)
	assert.Nil(t, res.Issues[1].Line)
	assert.Equal(t, models.IssueCategoryStyle, res.Issues[1].Category)

	assert.Equal(t, 1, m.calls)
	assert.InDelta(t, 0.2, m.lastReq.Temperature, 0.0001)
	assert.Contains(t, m.lastReq.Prompt, "```javascript\nfunction greet(name) {}\n```")
	require.NotNil(t, m.lastReq.Schema)
	assert.Equal(t, []string{"issues", "suggestions", "score", "editedCode"}, m.lastReq.Schema.Required)
	assert.Equal(t, []string{"ok"}, obs.outcomes)
}

func TestAnalyze_NotConfigured(t *testing.T) {
	t.Run("nil model", func(t *testing.T) {
		_, err := NewRequester(nil, nil, nil).Analyze(context.Background(), "go", "x")
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Equal(t, MsgNotConfigured, err.Error())
	})

	t.Run("model without key", func(t *testing.T) {
		m := &mockModel{configured: false}
		_, err := NewRequester(m, nil, nil).Analyze(context.Background(), "go", "x")
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Equal(t, 0, m.calls)
	})

	t.Run("no transport call", func(t *testing.T) {
		mock := httpmock.NewMockTransport()
		mock.RegisterNoResponder(httpmock.NewStringResponder(http.StatusOK, "{}"))
		m := llm.NewAnthropic("", "", option.WithHTTPClient(&http.Client{Transport: mock}))

		_, err := NewRequester(m, nil, nil).Analyze(context.Background(), "go", "x")
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Equal(t, 0, mock.GetTotalCallCount())
	})
}

func TestAnalyze_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"score above range", `{"issues":[],"suggestions":["x"],"score":101,"editedCode":"y"}`},
		{"score below range", `{"issues":[],"suggestions":["x"],"score":-1,"editedCode":"y"}`},
		{"fractional score", `{"issues":[],"suggestions":[],"score":50.5,"editedCode":"y"}`},
		{"score as string", `{"issues":[],"suggestions":[],"score":"90","editedCode":"y"}`},
		{"null score", `{"issues":[],"suggestions":[],"score":null,"editedCode":"y"}`},
		{"missing editedCode", `{"issues":[],"suggestions":[],"score":90}`},
		{"editedCode not string", `{"issues":[],"suggestions":[],"score":90,"editedCode":5}`},
		{"issues not array", `{"issues":{},"suggestions":[],"score":90,"editedCode":"y"}`},
		{"suggestions missing", `{"issues":[],"score":90,"editedCode":"y"}`},
		{"suggestion not string", `{"issues":[],"suggestions":[1],"score":90,"editedCode":"y"}`},
		{"issue without message", `{"issues":[{"line":1,"type":"Logic"}],"suggestions":[],"score":90,"editedCode":"y"}`},
		{"top-level array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockModel{configured: true, reply: tt.reply}
			res, err := NewRequester(m, nil, nil).Analyze(context.Background(), "go", "x")
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, MsgInvalidResponse, err.Error())
		})
	}
}

func TestAnalyze_ScoreBoundaries(t *testing.T) {
	for _, reply := range []string{
		`{"issues":[],"suggestions":[],"score":0,"editedCode":""}`,
		`{"issues":[],"suggestions":[],"score":100,"editedCode":""}`,
		`{"issues":[],"suggestions":[],"score":100.0,"editedCode":""}`,
	} {
		m := &mockModel{configured: true, reply: reply}
		_, err := NewRequester(m, nil, nil).Analyze(context.Background(), "go", "x")
		assert.NoError(t, err, reply)
	}
}

func TestAnalyze_UnparsableReply(t *testing.T) {
	m := &mockModel{configured: true, reply: "Sure! Here is your review"}
	obs := &recordingObserver{}
	_, err := NewRequester(m, nil, obs).Analyze(context.Background(), "go", "x")
	assert.ErrorIs(t, err, ErrUnknown)
	assert.Equal(t, MsgUnparsable, err.Error())
	assert.Equal(t, []string{"unknown"}, obs.outcomes)
}

func TestAnalyze_ProviderError(t *testing.T) {
	m := &mockModel{configured: true, err: errors.New("googleapi: Error 429: Resource has been exhausted (e.g. check quota)")}
	_, err := NewRequester(m, nil, nil).Analyze(context.Background(), "go", "x")

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindProvider, e.Kind)
	assert.Equal(t, CategoryQuota, e.Category)
	assert.Equal(t, 1, m.calls)
}

func TestClassify_Order(t *testing.T) {
	tests := []struct {
		msg      string
		kind     Kind
		category Category
	}{
		{"API key not valid. Please pass a valid API key.", KindProvider, CategoryCredential},
		{"googleapi: Error 403: permission denied", KindProvider, CategoryCredential},
		{"401 Unauthorized", KindProvider, CategoryCredential},
		{"403 and also 429", KindProvider, CategoryCredential},
		{"429 Too Many Requests", KindProvider, CategoryQuota},
		{"Quota exceeded for model", KindProvider, CategoryQuota},
		{"Rate limit reached, and the network is slow", KindProvider, CategoryQuota},
		{"response blocked by SAFETY filter: SAFETY", KindProvider, CategorySafety},
		{"Failed to fetch", KindProvider, CategoryNetwork},
		{"dial tcp 127.0.0.1:443: connect: connection refused", KindProvider, CategoryNetwork},
		{"connect ECONNREFUSED", KindProvider, CategoryNetwork},
		{"model is overloaded", KindUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			e := Classify(errors.New(tt.msg))
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.category, e.Category)
		})
	}
}

func TestClassify_Verbatim(t *testing.T) {
	short := "model is overloaded"
	assert.Equal(t, short, Classify(errors.New(short)).Message)

	long := strings.Repeat("z", MaxVerbatim)
	e := Classify(errors.New(long))
	assert.Equal(t, KindUnknown, e.Kind)
	assert.Equal(t, MsgGeneric, e.Message)

	assert.Nil(t, Classify(nil))
}

func TestClassify_CredentialIsConfiguration(t *testing.T) {
	err := error(Classify(errors.New("API_KEY_INVALID")))
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, ErrProvider)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestClassify_PassesThroughClassified(t *testing.T) {
	orig := &Error{Kind: KindValidation, Message: MsgInvalidResponse}
	wrapped := errors.Join(errors.New("context"), orig)
	assert.Same(t, orig, Classify(wrapped))
}

func TestRule_Match(t *testing.T) {
	r := Rule{Markers: []string{"quota"}}
	assert.True(t, r.Match("QUOTA exceeded"))
	assert.False(t, r.Match("all good"))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("python", "print('hi')")

	assert.True(t, strings.HasPrefix(p, "You are Bugless"))
	assert.Contains(t, p, "following python code")
	assert.Contains(t, p, "**Logic:**")
	assert.Contains(t, p, "**Performance:**")
	assert.Contains(t, p, "**Readability & Style:**")
	assert.Contains(t, p, "**Security:**")
	assert.Contains(t, p, "'Logic', 'Performance', 'Readability', 'Security', 'Style'")
	assert.Contains(t, p, "from 0 to 100")
	assert.Contains(t, p, `"editedCode"`)
	assert.Contains(t, p, "```python\nprint('hi')\n```")
}

func TestBuildPrompt_Verbatim(t *testing.T) {
	code := strings.Repeat("x := 1\n", 2000)
	assert.Contains(t, BuildPrompt("go", code), code)
}

func TestResponseSchema(t *testing.T) {
	s := ResponseSchema()
	assert.Equal(t, llm.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"issues", "suggestions", "score", "editedCode"}, s.Required)
	assert.Equal(t, llm.TypeInteger, s.Properties["score"].Type)
	assert.Equal(t, llm.TypeString, s.Properties["editedCode"].Type)
	assert.Equal(t, llm.TypeString, s.Properties["suggestions"].Items.Type)

	item := s.Properties["issues"].Items
	assert.Equal(t, []string{"line", "type", "message"}, item.Required)
	assert.Equal(t, llm.TypeInteger, item.Properties["line"].Type)
}
