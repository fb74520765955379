package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferencePassage is an ingested slice of source material with provenance.
// Its embedding lives only in the vector index.
type ReferencePassage struct {
	ID        uuid.UUID `json:"id"`
	ChunkID   string    `json:"chunk_id"`
	Source    string    `json:"source"`
	Page      int       `json:"page"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateReferencePassageRequest represents the request to store a passage (embedding is filled in later).
type CreateReferencePassageRequest struct {
	ChunkID string `json:"chunk_id" validate:"required,no_null_bytes,max=512"`
	Source  string `json:"source" validate:"required,no_null_bytes,max=512"`
	Page    int    `json:"page" validate:"min=1"`
	Content string `json:"content" validate:"required,no_null_bytes"`
}

// PassageHit is one nearest-neighbor result. Position is the index-local slot of the match;
// Passage is nil when that slot does not resolve to stored metadata.
type PassageHit struct {
	Position int
	Distance float64
	Passage  *ReferencePassage
}
