package pipeline

import (
	"fmt"
)

// Task selects the prompt template and the output schema the repairer
// validates against.
type Task string

const (
	TaskRate         Task = "rate"
	TaskQuiz         Task = "quiz"
	TaskFlowDiagram  Task = "flow-diagram"
	TaskFlowAnalysis Task = "flow-analysis"
	TaskFlowBoth     Task = "flow-both"
)

const rateSystem = `You are an academic document rater. Score a PDF from 0 to 100 based on how well it serves the user's stated purpose. Consider coverage, accuracy, organization, clarity, depth, recency (if relevant), and usefulness.
Return STRICT JSON with keys only:
{
  "score": number,                    // 0-100
  "verdict": string,                 // short one-liner
  "rationale": string,               // <= 120 words
  "focus_topics": string[],          // 5-8 topics to focus more on
  "repetitive_topics": string[],     // 3-6 repetitive or low-value areas
  "suggested_plan": string[]         // 4-7 bullet steps to improve the notes for the purpose
}
Escape all quotes, newlines, and special characters inside JSON string values.`

const flowSystem = `You are an expert academic study flow analyzer. Your task is to analyze educational documents and create comprehensive flow state analyses that help students understand learning progression, concept dependencies, and optimal study paths.`

const escapeReminder = "IMPORTANT: Return ONLY valid JSON. Escape all quotes, newlines, and special characters in string values. Use \\n for newlines, \\\" for quotes."

const flowDiagramBody = `Analyze this entire document and create a FLOW STATE DIAGRAM:
   - Create a visual ASCII/text diagram showing:
     * Main topics as nodes
     * Connections/arrows showing dependencies (use -> or →)
     * Hierarchical structure (use indentation or tree format)
     * Learning flow direction
     * Use boxes, lines, arrows, and clear formatting`

const flowAnalysisBody = `Analyze this entire document and generate a FLOW STATE ANALYSIS:
   - Identify the main topics and subtopics
   - Map out the learning progression (which concepts build on others)
   - Highlight prerequisites and dependencies
   - Organize concepts in a logical study sequence
   - Note key relationships between topics
   - Suggest optimal learning path
   - Format as structured, readable text with clear sections`

const quizShape = `Return STRICT JSON only:
{
  "questions": [
    {
      "question": string,
      "options": [string, string, string, string],
      "correctIndex": number // 0..3
    }
  ]
}`

// PromptParams carries the per-request pieces interpolated into a prompt.
// Param holds the user's free-text context (rating) or keywords (quiz).
type PromptParams struct {
	DocumentName string
	TextWindow   string
	Param        string
	NumQuestions int
}

// BuildPrompt returns the fixed system instruction for the task and the user
// prompt with the text window fenced between literal delimiters. The
// delimiters let the repair step find the text boundary and discourage the
// model from obeying instructions embedded in the document itself.
func BuildPrompt(task Task, p PromptParams) (system, user string) {
	switch task {
	case TaskRate:
		param := p.Param
		if param == "" {
			param = "General study"
		}
		user = fmt.Sprintf("User purpose/context: %q\nDocument: %s\n--- Begin Extracted Text (truncated) ---\n%s\n--- End Extracted Text ---\nRespond with JSON only.",
			param, p.DocumentName, p.TextWindow)
		return rateSystem, user

	case TaskQuiz:
		n := p.NumQuestions
		if n <= 0 {
			n = 10
		}
		system = fmt.Sprintf("You are a quiz generator. Given academic text, create a high-quality multiple-choice quiz. Return strict JSON only with %d concise questions, each with exactly 4 options and the correct option index. Escape all quotes, newlines, and special characters inside JSON string values.", n)
		param := p.Param
		if param == "" {
			param = "General"
		}
		user = fmt.Sprintf("Document: %s\nFocus topic/keywords: %q\n--- Begin Extracted Text (truncated) ---\n%s\n--- End Extracted Text ---\n\n%s",
			p.DocumentName, param, p.TextWindow, quizShape)
		return system, user

	case TaskFlowDiagram:
		user = fmt.Sprintf("Document: %s\n--- Begin Extracted Text ---\n%s\n--- End Extracted Text ---\n\n%s\n\n%s\n\nReturn JSON with this exact key:\n{\n  \"flowDiagram\": \"ASCII diagram here with escaped quotes and newlines\"\n}",
			p.DocumentName, p.TextWindow, flowDiagramBody, escapeReminder)
		return flowSystem, user

	case TaskFlowAnalysis:
		user = fmt.Sprintf("Document: %s\n--- Begin Extracted Text ---\n%s\n--- End Extracted Text ---\n\n%s\n\n%s\n\nReturn JSON with this exact key:\n{\n  \"flowAnalysis\": \"detailed text analysis here with escaped quotes and newlines\"\n}\n\nMake the flowAnalysis comprehensive (500-1000 words).",
			p.DocumentName, p.TextWindow, flowAnalysisBody, escapeReminder)
		return flowSystem, user

	default: // TaskFlowBoth
		user = fmt.Sprintf("Document: %s\n--- Begin Extracted Text ---\n%s\n--- End Extracted Text ---\n\n1. %s\n\n2. %s\n\n%s\n\nReturn JSON with these exact keys:\n{\n  \"flowAnalysis\": \"detailed text analysis here with escaped quotes and newlines\",\n  \"flowDiagram\": \"ASCII diagram here with escaped quotes and newlines\"\n}\n\nMake the flowAnalysis comprehensive (500-1000 words) and the flowDiagram visually clear.",
			p.DocumentName, p.TextWindow, flowAnalysisBody, flowDiagramBody, escapeReminder)
		return flowSystem, user
	}
}
