package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grindflow-app/grindflow-api/internal/models"
)

type memDB struct {
	texts   map[string]*models.DocumentText
	upserts int
}

func (m *memDB) CreateUser(ctx context.Context, user *models.User) error { return nil }
func (m *memDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}
func (m *memDB) CreateDocument(ctx context.Context, doc *models.Document) error { return nil }
func (m *memDB) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	return nil, nil
}
func (m *memDB) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	return nil, nil
}
func (m *memDB) DeleteDocument(ctx context.Context, id string) error { return nil }
func (m *memDB) GetDocumentText(ctx context.Context, documentID string) (*models.DocumentText, error) {
	return m.texts[documentID], nil
}
func (m *memDB) UpsertDocumentText(ctx context.Context, dt *models.DocumentText) error {
	m.texts[dt.DocumentID] = dt
	m.upserts++
	return nil
}
func (m *memDB) UpsertDocumentMetadata(ctx context.Context, meta *models.DocumentMetadata) error {
	return nil
}
func (m *memDB) Close() error { return nil }

type memObj struct {
	data  []byte
	err   error
	reads int
}

func (o *memObj) UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (string, error) {
	return "", nil
}
func (o *memObj) DeleteFile(ctx context.Context, bucket, key string) error { return nil }
func (o *memObj) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	o.reads++
	return o.data, o.err
}
func (o *memObj) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(o.data)), o.err
}

type memExtractor struct {
	text string
	err  error
}

func (e *memExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	return e.text, e.err
}

func testDoc() *models.Document {
	return &models.Document{
		ID:          "doc-1",
		UserID:      "user-1",
		FileName:    "notes.pdf",
		StoragePath: "user-1/doc-1/notes.pdf",
		ContentType: "application/pdf",
	}
}

func TestDocumentText_CacheHitSkipsDownload(t *testing.T) {
	db := &memDB{texts: map[string]*models.DocumentText{
		"doc-1": {DocumentID: "doc-1", Text: "cached text", ExtractedAt: time.Now()},
	}}
	obj := &memObj{}
	svc := NewTextService(db, obj, &memExtractor{text: "should not run"}, "grindflow")

	text, err := svc.DocumentText(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Equal(t, "cached text", text)
	assert.Zero(t, obj.reads)
}

func TestDocumentText_ExtractsAndWritesBack(t *testing.T) {
	db := &memDB{texts: map[string]*models.DocumentText{}}
	obj := &memObj{data: []byte("%PDF-1.7 fake")}
	svc := NewTextService(db, obj, &memExtractor{text: "parsed text"}, "grindflow")

	text, err := svc.DocumentText(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Equal(t, "parsed text", text)
	assert.Equal(t, 1, obj.reads)
	require.NotNil(t, db.texts["doc-1"])
	assert.Equal(t, "parsed text", db.texts["doc-1"].Text)
	assert.False(t, db.texts["doc-1"].ExtractedAt.IsZero())
}

func TestDocumentText_DownloadFailure(t *testing.T) {
	db := &memDB{texts: map[string]*models.DocumentText{}}
	obj := &memObj{err: errors.New("no such key")}
	svc := NewTextService(db, obj, &memExtractor{}, "grindflow")

	_, err := svc.DocumentText(context.Background(), testDoc())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download")
}

func TestDerivedText_FillsMissingForms(t *testing.T) {
	raw := "Header\nHeader\nHeader\nBody   line with    runs\n"
	db := &memDB{texts: map[string]*models.DocumentText{
		"doc-1": {DocumentID: "doc-1", Text: raw, ExtractedAt: time.Now()},
	}}
	svc := NewTextService(db, &memObj{}, &memExtractor{}, "grindflow")

	dt, err := svc.DerivedText(context.Background(), testDoc())
	require.NoError(t, err)
	assert.NotEmpty(t, dt.NormalizedText)
	assert.NotEmpty(t, dt.ShortText)
	// The filled forms were persisted.
	assert.Equal(t, 1, db.upserts)
	assert.Equal(t, dt.NormalizedText, db.texts["doc-1"].NormalizedText)
}

func TestDerivedText_NoRewriteWhenComplete(t *testing.T) {
	db := &memDB{texts: map[string]*models.DocumentText{
		"doc-1": {
			DocumentID:     "doc-1",
			Text:           "raw",
			NormalizedText: "raw",
			ShortText:      "raw",
			ExtractedAt:    time.Now(),
		},
	}}
	svc := NewTextService(db, &memObj{}, &memExtractor{}, "grindflow")

	_, err := svc.DerivedText(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Zero(t, db.upserts)
}
