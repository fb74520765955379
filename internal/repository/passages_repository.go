package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/models"
)

// PassagesRepository handles data access for reference passages and serves nearest-neighbor queries
// over their embeddings (L2 distance).
type PassagesRepository struct {
	db *pgxpool.Pool
}

// NewPassagesRepository creates a new passages repository.
func NewPassagesRepository(db *pgxpool.Pool) *PassagesRepository {
	return &PassagesRepository{db: db}
}

const passageColumns = `id, chunk_id, source, page, content, created_at`

// Upsert inserts a passage or, when chunk_id already exists, replaces its provenance and content and
// clears the embedding so it is computed again. Returns the stored passage.
func (r *PassagesRepository) Upsert(ctx context.Context, req *models.CreateReferencePassageRequest) (*models.ReferencePassage, error) {
	var p models.ReferencePassage

	err := r.db.QueryRow(ctx, `
		INSERT INTO reference_passages (chunk_id, source, page, content)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chunk_id) DO UPDATE
		SET source = EXCLUDED.source,
		    page = EXCLUDED.page,
		    content = EXCLUDED.content,
		    embedding = CASE WHEN reference_passages.content = EXCLUDED.content
		                     THEN reference_passages.embedding ELSE NULL END,
		    updated_at = now()
		RETURNING `+passageColumns,
		req.ChunkID, req.Source, req.Page, req.Content,
	).Scan(&p.ID, &p.ChunkID, &p.Source, &p.Page, &p.Content, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reference passage: %w", err)
	}

	return &p, nil
}

// GetByID retrieves a single passage by ID.
func (r *PassagesRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReferencePassage, error) {
	var p models.ReferencePassage

	err := r.db.QueryRow(ctx, `SELECT `+passageColumns+` FROM reference_passages WHERE id = $1`, id).
		Scan(&p.ID, &p.ChunkID, &p.Source, &p.Page, &p.Content, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, evalerrors.NewNotFoundError("reference passage", "reference passage not found")
		}

		return nil, fmt.Errorf("failed to get reference passage: %w", err)
	}

	return &p, nil
}

// UpdateEmbedding stores the embedding vector for a passage.
func (r *PassagesRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	result, err := r.db.Exec(ctx,
		`UPDATE reference_passages SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update reference passage embedding: %w", err)
	}

	if result.RowsAffected() == 0 {
		return evalerrors.NewNotFoundError("reference passage", "reference passage not found")
	}

	return nil
}

// ListIDsMissingEmbedding returns passages that still need an embedding.
func (r *PassagesRepository) ListIDsMissingEmbedding(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM reference_passages WHERE embedding IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list passages missing embedding: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan passage id: %w", err)
	}

	return ids, nil
}

// Nearest returns up to k embedded passages ordered by ascending L2 distance to vector.
// Position is the 0-based rank of the hit.
func (r *PassagesRepository) Nearest(ctx context.Context, vector []float32, k int) ([]models.PassageHit, error) {
	if k <= 0 {
		return []models.PassageHit{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+passageColumns+`, embedding <-> $1 AS distance
		FROM reference_passages
		WHERE embedding IS NOT NULL
		ORDER BY embedding <-> $1
		LIMIT $2`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("nearest reference passages: %w", err)
	}
	defer rows.Close()

	hits := []models.PassageHit{}

	for rows.Next() {
		var (
			p        models.ReferencePassage
			distance float64
		)

		if err := rows.Scan(&p.ID, &p.ChunkID, &p.Source, &p.Page, &p.Content, &p.CreatedAt, &distance); err != nil {
			return nil, fmt.Errorf("scan reference passage: %w", err)
		}

		hits = append(hits, models.PassageHit{Position: len(hits), Distance: distance, Passage: &p})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest: %w", err)
	}

	return hits, nil
}
