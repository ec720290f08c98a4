package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/grindflow-app/grindflow-api/internal/core"
	"github.com/grindflow-app/grindflow-api/internal/core/pipeline"
	"github.com/grindflow-app/grindflow-api/internal/models"
)

const shortTextMaxChars = 12000

// TextService resolves a document's extracted text, preferring the cached
// row over re-parsing the PDF. Extraction of the same document is deduped
// with singleflight so concurrent requests don't download the blob twice.
type TextService struct {
	db        core.DbClient
	obj       core.ObjectClient
	extractor core.TextExtractor
	bucket    string

	group singleflight.Group
}

func NewTextService(db core.DbClient, obj core.ObjectClient, extractor core.TextExtractor, bucket string) *TextService {
	return &TextService{db: db, obj: obj, extractor: extractor, bucket: bucket}
}

// DocumentText returns the raw extracted text for the document, extracting
// and caching it on first use. Cache write-back is fire-and-forget: a failed
// write must not fail the request.
func (s *TextService) DocumentText(ctx context.Context, doc *models.Document) (string, error) {
	if cached, err := s.db.GetDocumentText(ctx, doc.ID); err == nil && cached != nil && cached.Text != "" {
		return cached.Text, nil
	} else if err != nil {
		log.Printf("text cache read for %s failed (continuing): %v", doc.ID, err)
	}

	v, err, _ := s.group.Do(doc.ID, func() (interface{}, error) {
		return s.extract(ctx, doc)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// DerivedText returns the cached normalized and short forms, deriving and
// caching them lazily from the raw text when absent.
func (s *TextService) DerivedText(ctx context.Context, doc *models.Document) (*models.DocumentText, error) {
	dt, err := s.db.GetDocumentText(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("text cache read: %w", err)
	}
	if dt == nil {
		raw, err := s.DocumentText(ctx, doc)
		if err != nil {
			return nil, err
		}
		dt, err = s.db.GetDocumentText(ctx, doc.ID)
		if err != nil || dt == nil {
			// Cache write may have raced or failed; derive in memory.
			dt = &models.DocumentText{DocumentID: doc.ID, Text: raw, ExtractedAt: time.Now()}
		}
	}

	dirty := false
	if dt.NormalizedText == "" && dt.Text != "" {
		dt.NormalizedText = pipeline.NormalizeForPrompt(dt.Text)
		dirty = true
	}
	if dt.ShortText == "" && dt.NormalizedText != "" {
		dt.ShortText = pipeline.BuildShortText(dt.NormalizedText, shortTextMaxChars)
		dirty = true
	}
	if dirty {
		if err := s.db.UpsertDocumentText(ctx, dt); err != nil {
			log.Printf("derived text write for %s failed (continuing): %v", doc.ID, err)
		}
	}
	return dt, nil
}

func (s *TextService) extract(ctx context.Context, doc *models.Document) (string, error) {
	data, err := s.obj.GetFile(ctx, s.bucket, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", doc.StoragePath, err)
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	text, err := s.extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	if err := s.db.UpsertDocumentText(ctx, &models.DocumentText{
		DocumentID:  doc.ID,
		Text:        text,
		ExtractedAt: time.Now(),
	}); err != nil {
		log.Printf("text cache write for %s failed (continuing): %v", doc.ID, err)
	}

	return text, nil
}
