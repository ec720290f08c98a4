package pipeline

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// The model is instructed to emit escaped JSON but does not reliably comply;
// unescaped newlines inside long string values are the dominant failure mode.
// Repair therefore degrades through four strategies of decreasing confidence
// and always produces a structurally valid result. It never returns an error.

// RatingResult is the structured outcome of the rate task.
type RatingResult struct {
	Score            int      `json:"score"`
	Verdict          string   `json:"verdict"`
	Rationale        string   `json:"rationale"`
	FocusTopics      []string `json:"focus_topics"`
	RepetitiveTopics []string `json:"repetitive_topics"`
	SuggestedPlan    []string `json:"suggested_plan"`
}

// QuizQuestion is one multiple-choice entry of the quiz task.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// FlowResult is the outcome of the study-flow task. Fields hold plain text
// with real newlines once the handler has unescaped them.
type FlowResult struct {
	FlowAnalysis string `json:"flowAnalysis"`
	FlowDiagram  string `json:"flowDiagram"`
}

var (
	openFenceRe  = regexp.MustCompile("(?i)^```json\\s*")
	bareFenceRe  = regexp.MustCompile("(?i)^```\\s*")
	closeFenceRe = regexp.MustCompile("(?i)\\s*```$")
)

// StripFences removes a leading ```json / ``` marker and a trailing ```
// around model output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = openFenceRe.ReplaceAllString(s, "")
	s = bareFenceRe.ReplaceAllString(s, "")
	s = closeFenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractObject scans forward from the first '{' tracking brace depth while
// respecting string-quote and backslash-escape state, and returns the first
// complete JSON object. This is a boundary scanner, not a parser: raw
// newlines inside string values do not confuse it.
func ExtractObject(s string) (string, bool) {
	open := strings.IndexByte(s, '{')
	if open == -1 {
		return "", false
	}
	depth := 0
	inStr := false
	esc := false
	for i := open; i < len(s); i++ {
		ch := s[i]
		if esc {
			esc = false
			continue
		}
		switch ch {
		case '\\':
			esc = true
		case '"':
			inStr = !inStr
		case '{':
			if !inStr {
				depth++
			}
		case '}':
			if !inStr {
				depth--
				if depth == 0 {
					return s[open : i+1], true
				}
			}
		}
	}
	return "", false
}

func escapeFragment(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

// escapeFieldValues re-escapes the content of the named free-text fields,
// because the model frequently emits literal newlines and quotes inside them.
func escapeFieldValues(jsonStr string, fields ...string) string {
	for _, f := range fields {
		re := regexp.MustCompile(`("` + f + `"\s*:\s*")([\s\S]*?)("\s*[,}\]])`)
		jsonStr = re.ReplaceAllStringFunc(jsonStr, func(m string) string {
			sub := re.FindStringSubmatch(m)
			if sub == nil {
				return m
			}
			return sub[1] + escapeFragment(sub[2]) + sub[3]
		})
	}
	return jsonStr
}

// UnescapeControl turns literal \n \t \r sequences left over from JSON
// decoding back into real control characters for human-readable output.
func UnescapeControl(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\r`, "\r")
	return s
}

func unescapeCapture(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	return UnescapeControl(s)
}

func stringFieldRe(field string) *regexp.Regexp {
	return regexp.MustCompile(`"` + field + `"\s*:\s*"([\s\S]*?)"\s*[,}]`)
}

func numberFieldRe(field string) *regexp.Regexp {
	return regexp.MustCompile(`"` + field + `"\s*:\s*(-?\d+(?:\.\d+)?)`)
}

// stringArrayField pulls a top-level array of strings out of raw text.
func stringArrayField(raw, field string) []string {
	re := regexp.MustCompile(`"` + field + `"\s*:\s*\[([\s\S]*?)\]`)
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	itemRe := regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
	var out []string
	for _, it := range itemRe.FindAllStringSubmatch(m[1], -1) {
		out = append(out, unescapeCapture(it[1]))
	}
	return out
}

func clampScore(f float64) int {
	n := int(f + 0.5)
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// RepairRating recovers a RatingResult from raw model output.
func RepairRating(raw string) RatingResult {
	cleaned := StripFences(raw)

	type wire struct {
		Score            float64  `json:"score"`
		Verdict          string   `json:"verdict"`
		Rationale        string   `json:"rationale"`
		FocusTopics      []string `json:"focus_topics"`
		RepetitiveTopics []string `json:"repetitive_topics"`
		SuggestedPlan    []string `json:"suggested_plan"`
	}
	fromWire := func(w wire) RatingResult {
		return RatingResult{
			Score:            clampScore(w.Score),
			Verdict:          w.Verdict,
			Rationale:        w.Rationale,
			FocusTopics:      w.FocusTopics,
			RepetitiveTopics: w.RepetitiveTopics,
			SuggestedPlan:    w.SuggestedPlan,
		}
	}

	var w wire
	if err := json.Unmarshal([]byte(cleaned), &w); err == nil {
		return fromWire(w)
	}

	if obj, ok := ExtractObject(cleaned); ok {
		repaired := escapeFieldValues(obj, "verdict", "rationale")
		w = wire{}
		if err := json.Unmarshal([]byte(repaired), &w); err == nil {
			return fromWire(w)
		}
	}

	// Field-by-field regex extraction.
	res := RatingResult{Verdict: "unable_to_parse", Rationale: head(cleaned, 200)}
	found := false
	if m := numberFieldRe("score").FindStringSubmatch(cleaned); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			res.Score = clampScore(f)
			found = true
		}
	}
	if m := stringFieldRe("verdict").FindStringSubmatch(cleaned); m != nil {
		res.Verdict = unescapeCapture(m[1])
		found = true
	}
	if m := stringFieldRe("rationale").FindStringSubmatch(cleaned); m != nil {
		res.Rationale = unescapeCapture(m[1])
		found = true
	}
	if v := stringArrayField(cleaned, "focus_topics"); v != nil {
		res.FocusTopics = v
		found = true
	}
	if v := stringArrayField(cleaned, "repetitive_topics"); v != nil {
		res.RepetitiveTopics = v
		found = true
	}
	if v := stringArrayField(cleaned, "suggested_plan"); v != nil {
		res.SuggestedPlan = v
		found = true
	}
	if found {
		return res
	}

	// Last resort: degraded placeholder so the route can still answer 200.
	return RatingResult{Verdict: "unable_to_parse", Rationale: head(cleaned, 200)}
}

// validQuestions keeps only well-formed entries: non-empty question text,
// exactly 4 options, index within range.
func validQuestions(in []QuizQuestion, max int) []QuizQuestion {
	out := make([]QuizQuestion, 0, len(in))
	for _, q := range in {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		if len(q.Options) != 4 {
			continue
		}
		if q.CorrectIndex < 0 || q.CorrectIndex > 3 {
			continue
		}
		out = append(out, q)
		if len(out) >= max {
			break
		}
	}
	return out
}

// RepairQuiz recovers up to max quiz questions from raw model output.
// The result is never nil; total failure yields an empty slice.
func RepairQuiz(raw string, max int) []QuizQuestion {
	cleaned := StripFences(raw)

	type wire struct {
		Questions []QuizQuestion `json:"questions"`
	}

	var w wire
	if err := json.Unmarshal([]byte(cleaned), &w); err == nil && w.Questions != nil {
		return validQuestions(w.Questions, max)
	}

	if obj, ok := ExtractObject(cleaned); ok {
		repaired := escapeFieldValues(obj, "question")
		w = wire{}
		if err := json.Unmarshal([]byte(repaired), &w); err == nil && w.Questions != nil {
			return validQuestions(w.Questions, max)
		}
	}

	// Forgiving extraction of the questions array alone.
	arrRe := regexp.MustCompile(`"questions"\s*:\s*\[[\s\S]*\]`)
	if m := arrRe.FindString(cleaned); m != "" {
		repaired := escapeFieldValues("{"+m+"}", "question")
		w = wire{}
		if err := json.Unmarshal([]byte(repaired), &w); err == nil && w.Questions != nil {
			return validQuestions(w.Questions, max)
		}
	}

	return []QuizQuestion{}
}

// RepairFlow recovers a FlowResult from raw model output. The last-resort
// half-split is known-lossy and deliberately kept as the terminal fallback.
func RepairFlow(raw string) FlowResult {
	cleaned := StripFences(raw)

	var res FlowResult
	if err := json.Unmarshal([]byte(cleaned), &res); err == nil {
		return res
	}

	if obj, ok := ExtractObject(cleaned); ok {
		repaired := escapeFieldValues(obj, "flowAnalysis", "flowDiagram")
		res = FlowResult{}
		if err := json.Unmarshal([]byte(repaired), &res); err == nil {
			return res
		}
	}

	analysisM := stringFieldRe("flowAnalysis").FindStringSubmatch(cleaned)
	diagramM := stringFieldRe("flowDiagram").FindStringSubmatch(cleaned)
	if analysisM != nil || diagramM != nil {
		res = FlowResult{}
		if analysisM != nil {
			res.FlowAnalysis = unescapeCapture(analysisM[1])
		}
		if diagramM != nil {
			res.FlowDiagram = unescapeCapture(diagramM[1])
		}
		return res
	}

	mid := len(cleaned) / 2
	diagram := cleaned[mid:]
	if diagram == "" {
		diagram = "Flow diagram could not be generated"
	}
	return FlowResult{
		FlowAnalysis: cleaned[:mid],
		FlowDiagram:  diagram,
	}
}
