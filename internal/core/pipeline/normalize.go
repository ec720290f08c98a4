package pipeline

import (
	"regexp"
	"strings"
)

// TruncationMarker is appended whenever a text window is hard-cut to fit a
// prompt budget. Downstream prompts mention the cut, so the literal must not
// change without updating them.
const TruncationMarker = "\n... [truncated]"

var (
	lineBreakRe  = regexp.MustCompile(`\r?\n`)
	hSpaceRunRe  = regexp.MustCompile(`[\t ]{2,}`)
	keywordSepRe = regexp.MustCompile(`[,\s]+`)
)

// NormalizeForPrompt cleans raw extracted PDF text for prompting. Each line
// is trimmed and its whitespace runs collapse to a single space; blank lines
// are dropped. Short lines (<= 50 chars after collapsing) are dropped once
// they have already appeared twice, case-insensitively, which suppresses
// repeated headers, footers and page numbers without touching long-form
// prose. Collapsing before the length check keeps the function idempotent:
// a line's length never changes on a second pass.
func NormalizeForPrompt(input string) string {
	if input == "" {
		return ""
	}
	lines := lineBreakRe.Split(input, -1)
	seen := make(map[string]int)
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := hSpaceRunRe.ReplaceAllString(strings.TrimSpace(line), " ")
		if trimmed == "" {
			continue
		}
		if len(trimmed) <= 50 {
			key := strings.ToLower(trimmed)
			seen[key]++
			if seen[key] > 2 {
				continue
			}
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

// BuildShortText hard-cuts normalized text at maxChars and appends the
// truncation marker. The cut is character-exact, not word aware; the model
// tolerates mid-word truncation.
func BuildShortText(normalized string, maxChars int) string {
	if normalized == "" {
		return ""
	}
	if len(normalized) <= maxChars {
		return normalized
	}
	return normalized[:maxChars] + TruncationMarker
}

// KeywordFocusedSlice keeps only the lines containing at least one of the
// comma/whitespace separated keywords, up to maxLines. It reports ok=false
// when fewer than 5 lines matched: a too-sparse keyword match is worse than
// no filtering, so the caller falls back to the unfiltered text.
func KeywordFocusedSlice(text, keywords string, maxLines int) (string, bool) {
	var terms []string
	for _, t := range keywordSepRe.Split(keywords, -1) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return "", false
	}

	var snippets []string
	for _, line := range lineBreakRe.Split(text, -1) {
		low := strings.ToLower(line)
		for _, t := range terms {
			if strings.Contains(low, t) {
				snippets = append(snippets, line)
				break
			}
		}
		if len(snippets) >= maxLines {
			break
		}
	}
	if len(snippets) < 5 {
		return "", false
	}
	return strings.Join(snippets, "\n"), true
}
