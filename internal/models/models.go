package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents a user-uploaded PDF of study notes.
type Document struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	ContentType string    `db:"content_type" json:"content_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentText caches the extracted text of a document plus its derived
// normalized and length-capped forms. Raw text is written once after the
// first successful PDF parse; the derived fields are filled lazily.
type DocumentText struct {
	DocumentID     string    `db:"document_id" json:"document_id"`
	Text           string    `db:"text" json:"text"`
	NormalizedText string    `db:"normalized_text" json:"normalized_text"`
	ShortText      string    `db:"short_text" json:"short_text"`
	ExtractedAt    time.Time `db:"extracted_at" json:"extracted_at"`
}

// DocumentMetadata holds the best-effort AI rating row for a document.
type DocumentMetadata struct {
	DocumentID string    `db:"document_id" json:"document_id"`
	AIRating   int       `db:"ai_rating" json:"ai_rating"`
	AICritique string    `db:"ai_critique" json:"ai_critique"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
