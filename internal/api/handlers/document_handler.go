package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/grindflow-app/grindflow-api/internal/api/middlewares"
	"github.com/grindflow-app/grindflow-api/internal/config"
	"github.com/grindflow-app/grindflow-api/internal/core"
	"github.com/grindflow-app/grindflow-api/internal/models"
	"github.com/grindflow-app/grindflow-api/internal/services"
)

type DocumentHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	texts        *services.TextService
	cfg          *config.Config
}

func NewDocumentHandler(dbclient core.DbClient, objectclient core.ObjectClient, texts *services.TextService, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{dbclient: dbclient, objectclient: objectclient, texts: texts, cfg: cfg}
}

// UploadDocument handles the PDF upload and the DB insert.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {

	r.ParseMultipartForm(52 << 20)

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "application/pdf" {
		http.Error(w, "only PDF files are allowed", http.StatusBadRequest)
		return
	}

	// Sanitize filename to prevent path traversal or invalid characters
	cleanFilename := filepath.Base(header.Filename)
	docID := uuid.NewString()

	storageKey := fmt.Sprintf("%s/%s/%s", userID, docID, cleanFilename)

	uploadctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if _, err := h.objectclient.UploadFile(uploadctx, h.cfg.BucketName, storageKey, file, contentType); err != nil {
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
		return
	}

	doc := &models.Document{
		ID:          docID,
		UserID:      userID,
		FileName:    header.Filename,
		StoragePath: storageKey,
		ContentType: contentType,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := h.dbclient.CreateDocument(uploadctx, doc); err != nil {
		log.Printf("DB insert failed for doc %s: %v", docID, err)
		http.Error(w, "failed to store document metadata", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	documents, err := h.dbclient.ListDocumentsByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documents)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

// DeleteDocument removes the row; the blob delete is best-effort.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if err := h.dbclient.DeleteDocument(r.Context(), doc.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.objectclient.DeleteFile(r.Context(), h.cfg.BucketName, doc.StoragePath); err != nil {
		log.Printf("blob delete for %s failed (continuing): %v", doc.ID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}

// GetDocumentText reports the cached short text and its readiness, deriving
// the normalized/short forms lazily.
func (h *DocumentHandler) GetDocumentText(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	dt, err := h.texts.DerivedText(r.Context(), doc)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "missing", "short_text": "", "error": err.Error(),
		})
		return
	}

	status := "missing"
	switch {
	case dt.ShortText != "":
		status = "ready"
	case dt.Text != "":
		status = "partial"
	}

	length := len(dt.ShortText)
	if length == 0 {
		length = len(dt.Text)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"length":     length,
		"short_text": dt.ShortText,
	})
}

// ownedDocument loads the {id} document and enforces ownership, writing the
// error response itself when the check fails.
func (h *DocumentHandler) ownedDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return nil, false
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return nil, false
	}

	doc, err := h.dbclient.GetDocumentByID(r.Context(), id)
	if err != nil || doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	if doc.UserID != userID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return doc, true
}
