package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	middleware "github.com/grindflow-app/grindflow-api/internal/api/middlewares"
	"github.com/grindflow-app/grindflow-api/internal/config"
	"github.com/grindflow-app/grindflow-api/internal/core"
	"github.com/grindflow-app/grindflow-api/internal/core/pipeline"
	"github.com/grindflow-app/grindflow-api/internal/models"
	"github.com/grindflow-app/grindflow-api/internal/services"
)

// Character budgets per task. Fast mode trades answer breadth for latency.
const (
	rateMaxChars     = 18000
	quizMaxChars     = 18000
	quizMaxCharsFast = 5000
	flowMaxChars     = 25000
	flowMaxCharsFast = 12000

	quizSmallerChars     = 8000
	quizSmallerCharsFast = 3000
	quizRetryChars       = 14000
	quizRetryCharsFast   = 9000

	keywordMaxLines = 1200
)

// StudyHandler owns the three LLM task routes. Auth, existence and ownership
// checks fail closed; everything from model invocation onward fails open with
// a degraded payload so the client always has something to render.
type StudyHandler struct {
	dbclient core.DbClient
	texts    *services.TextService
	invoker  *pipeline.Invoker
	cfg      *config.Config
}

func NewStudyHandler(dbclient core.DbClient, texts *services.TextService, invoker *pipeline.Invoker, cfg *config.Config) *StudyHandler {
	return &StudyHandler{dbclient: dbclient, texts: texts, invoker: invoker, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolveDocument decodes nothing; it takes the body-supplied id, loads the
// row and enforces ownership, writing the typed error itself on failure.
func (h *StudyHandler) resolveDocument(w http.ResponseWriter, r *http.Request, id string) (*models.Document, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing id")
		return nil, false
	}
	doc, err := h.dbclient.GetDocumentByID(r.Context(), id)
	if err != nil || doc == nil {
		writeError(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	if doc.UserID != userID {
		writeError(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	return doc, true
}

type analyzeRequest struct {
	ID      string `json:"id"`
	Context string `json:"context"`
}

// Analyze rates the document 0-100 against the user's stated purpose.
func (h *StudyHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	doc, ok := h.resolveDocument(w, r, req.ID)
	if !ok {
		return
	}

	text, err := h.texts.DocumentText(r.Context(), doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Download failed")
		return
	}

	window := pipeline.BuildShortText(pipeline.NormalizeForPrompt(text), rateMaxChars)
	system, prompt := pipeline.BuildPrompt(pipeline.TaskRate, pipeline.PromptParams{
		DocumentName: doc.FileName,
		TextWindow:   window,
		Param:        req.Context,
	})

	output, err := h.invoker.Invoke(r.Context(), system, prompt)
	if err != nil {
		if errors.Is(err, pipeline.ErrOverloaded) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	result := pipeline.RepairRating(output)

	// Best-effort rating persistence; the response is correct without it.
	if err := h.dbclient.UpsertDocumentMetadata(r.Context(), &models.DocumentMetadata{
		DocumentID: doc.ID,
		AIRating:   result.Score,
		AICritique: result.Rationale,
	}); err != nil {
		log.Printf("metadata upsert for %s failed (continuing): %v", doc.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": doc.ID, "result": result})
}

type quizRequest struct {
	ID      string `json:"id"`
	Keyword string `json:"keyword"`
}

// Quiz generates a multiple-choice quiz. Being interactive it bounds total
// latency: on timeout or total failure it still answers 200 with an empty
// questions list, never an error.
func (h *StudyHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	doc, ok := h.resolveDocument(w, r, req.ID)
	if !ok {
		return
	}

	text, err := h.texts.DocumentText(r.Context(), doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Download failed")
		return
	}

	numQuestions := 10
	maxChars := quizMaxChars
	smallerChars := quizSmallerChars
	retryChars := quizRetryChars
	if h.cfg.FastMode {
		numQuestions = 6
		maxChars = quizMaxCharsFast
		smallerChars = quizSmallerCharsFast
		retryChars = quizRetryCharsFast
	}
	overall := time.Duration(h.cfg.QuizTimeoutMs) * time.Millisecond

	normalized := pipeline.NormalizeForPrompt(text)
	window := normalized
	if req.Keyword != "" {
		if focused, ok := pipeline.KeywordFocusedSlice(normalized, req.Keyword, keywordMaxLines); ok {
			window = focused
		}
	}
	window = pipeline.BuildShortText(window, maxChars)

	params := pipeline.PromptParams{
		DocumentName: doc.FileName,
		TextWindow:   window,
		Param:        req.Keyword,
		NumQuestions: numQuestions,
	}
	system, prompt := pipeline.BuildPrompt(pipeline.TaskQuiz, params)

	// The timeout fallback degrades to a smaller context window.
	params.TextWindow = pipeline.BuildShortText(window, smallerChars)
	_, smallerPrompt := pipeline.BuildPrompt(pipeline.TaskQuiz, params)

	output := h.invoker.InvokeInteractive(r.Context(), system, prompt, smallerPrompt, overall)
	questions := pipeline.RepairQuiz(output, numQuestions)

	// One broader-context retry when the focused pass produced nothing.
	if len(questions) == 0 {
		params.TextWindow = pipeline.BuildShortText(normalized, retryChars)
		system, retryPrompt := pipeline.BuildPrompt(pipeline.TaskQuiz, params)
		output = h.invoker.InvokeInteractive(r.Context(), system, retryPrompt, retryPrompt, overall)
		questions = pipeline.RepairQuiz(output, numQuestions)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": doc.ID, "questions": questions})
}

type studyflowRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Studyflow produces a learning-progression analysis and/or an ASCII flow
// diagram as plain, already-unescaped text.
func (h *StudyHandler) Studyflow(w http.ResponseWriter, r *http.Request) {
	var req studyflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Type == "" {
		req.Type = "both"
	}

	var task pipeline.Task
	switch req.Type {
	case "diagram":
		task = pipeline.TaskFlowDiagram
	case "analysis":
		task = pipeline.TaskFlowAnalysis
	case "both":
		task = pipeline.TaskFlowBoth
	default:
		writeError(w, http.StatusBadRequest, `Invalid type. Must be "diagram", "analysis", or "both"`)
		return
	}

	doc, ok := h.resolveDocument(w, r, req.ID)
	if !ok {
		return
	}

	text, err := h.texts.DocumentText(r.Context(), doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Download failed")
		return
	}

	maxChars := flowMaxChars
	if h.cfg.FastMode {
		maxChars = flowMaxCharsFast
	}
	window := pipeline.BuildShortText(pipeline.NormalizeForPrompt(text), maxChars)
	system, prompt := pipeline.BuildPrompt(task, pipeline.PromptParams{
		DocumentName: doc.FileName,
		TextWindow:   window,
	})

	output, err := h.invoker.Invoke(r.Context(), system, prompt)
	if err != nil {
		if errors.Is(err, pipeline.ErrOverloaded) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	result := pipeline.RepairFlow(output)
	analysis := pipeline.UnescapeControl(result.FlowAnalysis)
	diagram := pipeline.UnescapeControl(result.FlowDiagram)

	switch req.Type {
	case "diagram":
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": doc.ID, "flowDiagram": diagram})
	case "analysis":
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": doc.ID, "flowAnalysis": analysis})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": doc.ID, "flowAnalysis": analysis, "flowDiagram": diagram})
	}
}
