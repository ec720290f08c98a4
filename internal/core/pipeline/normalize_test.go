package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeForPrompt_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeForPrompt(""))
}

func TestNormalizeForPrompt_DropsRepeatedShortLines(t *testing.T) {
	input := strings.Join([]string{
		"Page 1",
		"Calculus is the mathematical study of continuous change over time.",
		"Page 1",
		"Derivatives measure instantaneous rates of change of a function.",
		"page 1", // 3rd occurrence, case-insensitive
		"Integrals accumulate quantities over an interval of the real line.",
	}, "\n")

	out := NormalizeForPrompt(input)
	assert.Equal(t, 2, strings.Count(strings.ToLower(out), "page 1"))
	assert.Contains(t, out, "Derivatives measure")
}

func TestNormalizeForPrompt_KeepsTwoOccurrences(t *testing.T) {
	out := NormalizeForPrompt("header\nbody text\nheader")
	assert.Equal(t, 2, strings.Count(out, "header"))
}

func TestNormalizeForPrompt_CollapsesWhitespace(t *testing.T) {
	out := NormalizeForPrompt("a\t\t  b is a phrase\n\n\n\n\nc is another phrase")
	assert.NotContains(t, out, "\t\t")
	assert.NotContains(t, out, "  ")
	// Blank lines are dropped entirely, so no paragraph breaks survive.
	assert.NotContains(t, out, "\n\n")
	assert.Equal(t, "a b is a phrase\nc is another phrase", out)
}

func TestNormalizeForPrompt_Idempotent(t *testing.T) {
	// The last input is a >50-char line whose whitespace run shrinks it
	// under the dedupe threshold once collapsed.
	longWithRun := "chapter one      introduction to derivatives review"
	inputs := []string{
		"",
		"one line",
		"Page 3\nPage 3\nPage 3\nPage 3\nsome long form prose that goes on well past fifty characters total",
		"a  b\tc\n\n\n\nd\r\ne",
		strings.Repeat("repeated footer\n", 10),
		strings.Repeat(longWithRun+"\n", 3),
	}
	for _, in := range inputs {
		once := NormalizeForPrompt(in)
		assert.Equal(t, once, NormalizeForPrompt(once), "input %q", in)
	}
}

func TestNormalizeForPrompt_DedupesAfterCollapsing(t *testing.T) {
	// 51 chars raw, 46 once the space run collapses: the dedupe threshold
	// must see the collapsed length or a second pass changes the output.
	line := "chapter one      introduction to derivatives review"
	out := NormalizeForPrompt(strings.Repeat(line+"\n", 3))
	assert.Equal(t, 2, strings.Count(out, "chapter one introduction"))
}

func TestBuildShortText_WithinBudget(t *testing.T) {
	assert.Equal(t, "short", BuildShortText("short", 100))
}

func TestBuildShortText_Truncates(t *testing.T) {
	s := strings.Repeat("x", 50)
	out := BuildShortText(s, 10)
	require.Equal(t, 10+len(TruncationMarker), len(out))
	assert.Equal(t, s[:10], out[:10])
	assert.True(t, strings.HasSuffix(out, TruncationMarker))
}

func TestBuildShortText_Empty(t *testing.T) {
	assert.Equal(t, "", BuildShortText("", 10))
}

func TestKeywordFocusedSlice_TooFewMatches(t *testing.T) {
	text := "alpha line\nbeta line\ngamma line"
	_, ok := KeywordFocusedSlice(text, "alpha", 100)
	assert.False(t, ok)
}

func TestKeywordFocusedSlice_NoKeywords(t *testing.T) {
	_, ok := KeywordFocusedSlice("anything", "  ,  ", 100)
	assert.False(t, ok)
}

func TestKeywordFocusedSlice_Matches(t *testing.T) {
	lines := []string{
		"Limits define continuity",
		"The LIMIT of a sequence",
		"limits at infinity",
		"unrelated content here",
		"limit laws and their proofs",
		"one-sided limits explained",
		"squeeze theorem for limits",
	}
	out, ok := KeywordFocusedSlice(strings.Join(lines, "\n"), "limit, derivative", 100)
	require.True(t, ok)
	for _, line := range strings.Split(out, "\n") {
		assert.Contains(t, strings.ToLower(line), "limit")
	}
	assert.NotContains(t, out, "unrelated content")
}

func TestKeywordFocusedSlice_MaxLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("limit line\n")
	}
	out, ok := KeywordFocusedSlice(b.String(), "limit", 7)
	require.True(t, ok)
	assert.Len(t, strings.Split(out, "\n"), 7)
}
