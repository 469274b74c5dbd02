package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())

	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN] would create file")
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestCategoryColor(t *testing.T) {
	assert.Contains(t, CategoryColor("Security"), "Security")
	assert.Contains(t, CategoryColor("Performance"), "Performance")
	assert.Contains(t, CategoryColor("Style"), "Style")
	assert.Equal(t, "Other", CategoryColor("Other"))
}

func TestScoreColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	assert.Equal(t, Green("85"), ScoreColor(85))
	assert.Equal(t, Yellow("84"), ScoreColor(84))
	assert.Equal(t, Yellow("60"), ScoreColor(60))
	assert.Equal(t, Red("59"), ScoreColor(59))
}

func TestRule(t *testing.T) {
	u, out, _ := newTestUI()
	u.Rule()
	assert.Equal(t, strings.Repeat("\u2500", 60)+"\n", out.String())
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"ID", "Language"})
	require.NotNil(t, table)

	table.Append([]string{"1700000000000", "go"})
	table.Append([]string{"1700000000001", "python"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.Contains(t, result, "1700000000000")
	assert.Contains(t, result, "python")
}

func TestHeadingAndBullets(t *testing.T) {
	u, out, _ := newTestUI()
	u.Heading("Suggestions")
	u.Bullets([]string{"first", "second"})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Suggestions")
	assert.Equal(t, "  - first", lines[1])
	assert.Equal(t, "  - second", lines[2])
}
