package db

import (
	"context"

	"github.com/grindflow-app/grindflow-api/internal/models"
)

// DbClient defines all persistence operations your services will need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) (err error)
	GetUserByEmail(ctx context.Context, email string) (user *models.User, err error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	GetDocumentText(ctx context.Context, documentID string) (*models.DocumentText, error)
	UpsertDocumentText(ctx context.Context, dt *models.DocumentText) error

	UpsertDocumentMetadata(ctx context.Context, meta *models.DocumentMetadata) error

	Close() error
}
