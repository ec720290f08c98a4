package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/grindflow-app/grindflow-api/internal/config"
	"github.com/grindflow-app/grindflow-api/internal/core"
	"github.com/grindflow-app/grindflow-api/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(pingCtx, db); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Implementing the db interface for user

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Implementing the db interface for Document

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, user_id, file_name, storage_path, content_type, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, COALESCE($6, now()), COALESCE($7, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.FileName, doc.StoragePath, doc.ContentType, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, storage_path, content_type, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.UserID, &d.FileName, &d.StoragePath, &d.ContentType, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, storage_path, content_type, created_at, updated_at
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.FileName, &d.StoragePath, &d.ContentType, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// Implementing the db interface for cached document text

func (c *DatabaseClient) GetDocumentText(ctx context.Context, documentID string) (*models.DocumentText, error) {
	const q = `
		SELECT document_id, text, normalized_text, short_text, extracted_at
		FROM documents_text
		WHERE document_id = $1
	`
	var dt models.DocumentText
	err := c.db.QueryRowContext(ctx, q, documentID).Scan(
		&dt.DocumentID, &dt.Text, &dt.NormalizedText, &dt.ShortText, &dt.ExtractedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dt, nil
}

// UpsertDocumentText writes the extraction cache row. Re-writing the same
// derived text under concurrent requests is harmless.
func (c *DatabaseClient) UpsertDocumentText(ctx context.Context, dt *models.DocumentText) error {
	if dt == nil {
		return errors.New("nil document text")
	}
	const q = `
		INSERT INTO documents_text (document_id, text, normalized_text, short_text, extracted_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		ON CONFLICT (document_id) DO UPDATE SET
			text = EXCLUDED.text,
			normalized_text = EXCLUDED.normalized_text,
			short_text = EXCLUDED.short_text,
			extracted_at = EXCLUDED.extracted_at
	`
	_, err := c.db.ExecContext(ctx, q,
		dt.DocumentID, dt.Text, dt.NormalizedText, dt.ShortText, dt.ExtractedAt)
	return err
}

func (c *DatabaseClient) UpsertDocumentMetadata(ctx context.Context, meta *models.DocumentMetadata) error {
	if meta == nil {
		return errors.New("nil document metadata")
	}
	const q = `
		INSERT INTO documents_metadata (document_id, ai_rating, ai_critique, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (document_id) DO UPDATE SET
			ai_rating = EXCLUDED.ai_rating,
			ai_critique = EXCLUDED.ai_critique,
			updated_at = now()
	`
	_, err := c.db.ExecContext(ctx, q, meta.DocumentID, meta.AIRating, meta.AICritique)
	return err
}
