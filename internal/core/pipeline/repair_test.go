package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`{"a":1}`))
}

func TestExtractObject(t *testing.T) {
	obj, ok := ExtractObject(`noise before {"a": {"b": "}"}} noise after`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": "}"}}`, obj)

	_, ok = ExtractObject("no braces here")
	assert.False(t, ok)

	_, ok = ExtractObject(`{"truncated": "missing close`)
	assert.False(t, ok)
}

func TestRepairRating_Strict(t *testing.T) {
	raw := `{"score":85,"verdict":"Strong","rationale":"Good coverage.","focus_topics":["limits"],"repetitive_topics":[],"suggested_plan":["review limits"]}`
	res := RepairRating(raw)
	assert.Equal(t, 85, res.Score)
	assert.Equal(t, "Strong", res.Verdict)
	assert.Equal(t, []string{"limits"}, res.FocusTopics)
}

func TestRepairRating_Fenced(t *testing.T) {
	raw := "```json\n{\"score\": 70, \"verdict\": \"Decent\", \"rationale\": \"ok\"}\n```"
	res := RepairRating(raw)
	assert.Equal(t, 70, res.Score)
	assert.Equal(t, "Decent", res.Verdict)
}

func TestRepairRating_UnescapedNewlineInRationale(t *testing.T) {
	raw := "{\"score\": 60, \"verdict\": \"Mixed\", \"rationale\": \"line one\nline two\"}"
	res := RepairRating(raw)
	assert.Equal(t, 60, res.Score)
	assert.Contains(t, res.Rationale, "line one")
	assert.Contains(t, res.Rationale, "line two")
}

func TestRepairRating_ClampsScore(t *testing.T) {
	assert.Equal(t, 100, RepairRating(`{"score": 250, "verdict": "v", "rationale": "r"}`).Score)
	assert.Equal(t, 0, RepairRating(`{"score": -5, "verdict": "v", "rationale": "r"}`).Score)
}

func TestRepairRating_ProseFallback(t *testing.T) {
	res := RepairRating("The model just chatted instead of emitting JSON.")
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, "unable_to_parse", res.Verdict)
	assert.NotEmpty(t, res.Rationale)
}

func TestRepairRating_Empty(t *testing.T) {
	res := RepairRating("")
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, "unable_to_parse", res.Verdict)
}

func TestRepairQuiz_Strict(t *testing.T) {
	raw := `{"questions":[{"question":"2+2?","options":["1","2","3","4"],"correctIndex":3}]}`
	qs := RepairQuiz(raw, 10)
	require.Len(t, qs, 1)
	assert.Equal(t, "2+2?", qs[0].Question)
	assert.Equal(t, 3, qs[0].CorrectIndex)
}

func TestRepairQuiz_UnescapedNewlineInQuestion(t *testing.T) {
	raw := "{\"questions\":[{\"question\":\"What is\na derivative?\",\"options\":[\"a\",\"b\",\"c\",\"d\"],\"correctIndex\":1}]}"
	qs := RepairQuiz(raw, 10)
	require.Len(t, qs, 1)
	assert.Contains(t, qs[0].Question, "What is")
	assert.Contains(t, qs[0].Question, "a derivative?")
}

func TestRepairQuiz_DiscardsMalformedEntries(t *testing.T) {
	raw := `{"questions":[
		{"question":"ok?","options":["a","b","c","d"],"correctIndex":0},
		{"question":"","options":["a","b","c","d"],"correctIndex":0},
		{"question":"three options","options":["a","b","c"],"correctIndex":0},
		{"question":"bad index","options":["a","b","c","d"],"correctIndex":7}
	]}`
	qs := RepairQuiz(raw, 10)
	require.Len(t, qs, 1)
	assert.Equal(t, "ok?", qs[0].Question)
}

func TestRepairQuiz_CapsAtMax(t *testing.T) {
	raw := `{"questions":[
		{"question":"q1","options":["a","b","c","d"],"correctIndex":0},
		{"question":"q2","options":["a","b","c","d"],"correctIndex":1},
		{"question":"q3","options":["a","b","c","d"],"correctIndex":2}
	]}`
	assert.Len(t, RepairQuiz(raw, 2), 2)
}

func TestRepairQuiz_TotalFailureIsEmptyNotNil(t *testing.T) {
	for _, raw := range []string{"", "no json at all", "{\"truncated\": "} {
		qs := RepairQuiz(raw, 10)
		require.NotNil(t, qs)
		assert.Empty(t, qs)
	}
}

func TestRepairFlow_Strict(t *testing.T) {
	res := RepairFlow(`{"flowAnalysis":"start with limits","flowDiagram":"A -> B"}`)
	assert.Equal(t, "start with limits", res.FlowAnalysis)
	assert.Equal(t, "A -> B", res.FlowDiagram)
}

func TestRepairFlow_UnescapedNewlines(t *testing.T) {
	raw := "{\"flowAnalysis\": \"first topic\nsecond topic\", \"flowDiagram\": \"A\n├── B\"}"
	res := RepairFlow(raw)
	assert.Contains(t, res.FlowAnalysis, "first topic")
	assert.Contains(t, res.FlowAnalysis, "second topic")
	assert.Contains(t, res.FlowDiagram, "├── B")
}

func TestRepairFlow_RegexTier(t *testing.T) {
	// Unbalanced braces defeat the scanner; the field regexes still hit.
	raw := `{{"flowAnalysis": "escaped\nanalysis", "flowDiagram": "D1 -> D2"}`
	res := RepairFlow(raw)
	assert.Contains(t, res.FlowAnalysis, "analysis")
	assert.Equal(t, "D1 -> D2", res.FlowDiagram)
}

func TestRepairFlow_HalfSplitLastResort(t *testing.T) {
	raw := "just a block of prose with no json structure whatsoever in it"
	res := RepairFlow(raw)
	assert.NotEmpty(t, res.FlowAnalysis)
	assert.NotEmpty(t, res.FlowDiagram)
	assert.Equal(t, raw, res.FlowAnalysis+res.FlowDiagram)
}

func TestRepairFlow_EmptyInput(t *testing.T) {
	res := RepairFlow("")
	assert.Equal(t, "", res.FlowAnalysis)
	assert.Equal(t, "Flow diagram could not be generated", res.FlowDiagram)
}

func TestUnescapeControl(t *testing.T) {
	assert.Equal(t, "a\nb\tc\r", UnescapeControl(`a\nb\tc\r`))
	assert.Equal(t, "plain", UnescapeControl("plain"))
}
