package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/evalhub/internal/embeddings"
	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/jobs"
	"github.com/formbricks/evalhub/internal/models"
)

type memoryPassages struct {
	byChunk map[string]*models.ReferencePassage
	missing []uuid.UUID
	listErr error
}

func newMemoryPassages() *memoryPassages {
	return &memoryPassages{byChunk: map[string]*models.ReferencePassage{}}
}

func (m *memoryPassages) Upsert(_ context.Context, req *models.CreateReferencePassageRequest) (*models.ReferencePassage, error) {
	if p, ok := m.byChunk[req.ChunkID]; ok {
		p.Content = req.Content

		return p, nil
	}

	p := &models.ReferencePassage{ID: uuid.New(), ChunkID: req.ChunkID, Source: req.Source, Page: req.Page, Content: req.Content}
	m.byChunk[req.ChunkID] = p

	return p, nil
}

func (m *memoryPassages) ListIDsMissingEmbedding(context.Context) ([]uuid.UUID, error) {
	return m.missing, m.listErr
}

type recordingInserter struct {
	args    []jobs.PassageEmbeddingArgs
	failFor map[uuid.UUID]bool
}

func (r *recordingInserter) InsertPassageEmbeddingJob(_ context.Context, args jobs.PassageEmbeddingArgs) error {
	if r.failFor[args.PassageID] {
		return errors.New("queue unavailable")
	}

	r.args = append(r.args, args)

	return nil
}

func TestIngester_Store(t *testing.T) {
	passages := newMemoryPassages()
	inserter := &recordingInserter{}
	ingester := NewIngester(passages, inserter, nil)

	reqs := ChunkDocument("guia", "Primera página\fSegunda página", 0)

	res, err := ingester.Store(context.Background(), reqs)
	require.NoError(t, err)
	assert.Equal(t, Result{Stored: 2, Enqueued: 2}, res)
	require.Len(t, inserter.args, 2)
	assert.Equal(t, passages.byChunk["guia_p1_c1"].ID, inserter.args[0].PassageID)

	// Re-ingesting the same document updates rows in place.
	res, err = ingester.Store(context.Background(), reqs)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)
	assert.Len(t, passages.byChunk, 2)
}

func TestIngester_Store_invalidPassage(t *testing.T) {
	ingester := NewIngester(newMemoryPassages(), &recordingInserter{}, nil)

	_, err := ingester.Store(context.Background(), []models.CreateReferencePassageRequest{{ChunkID: "x", Source: "a", Page: 0, Content: "t"}})

	assert.ErrorIs(t, err, evalerrors.ErrValidation)
}

func TestIngester_Backfill(t *testing.T) {
	failing := uuid.New()
	passages := newMemoryPassages()
	passages.missing = []uuid.UUID{uuid.New(), failing, uuid.New()}

	inserter := &recordingInserter{failFor: map[uuid.UUID]bool{failing: true}}

	res, err := NewIngester(passages, inserter, nil).Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Enqueued: 2, EnqueueFailed: 1}, res)

	passages.listErr = errors.New("db down")

	_, err = NewIngester(passages, inserter, nil).Backfill(context.Background())
	assert.Error(t, err)
}

func TestEmbedAll(t *testing.T) {
	embedder := embeddings.NewMockClient(3)
	embedder.Set("uno", []float32{1, 0, 0})
	embedder.Set("dos", []float32{0, 1, 0})

	reqs := []models.CreateReferencePassageRequest{
		{ChunkID: "a_p1_c1", Source: "a", Page: 1, Content: "uno"},
		{ChunkID: "a_p2_c1", Source: "a", Page: 2, Content: "dos"},
	}

	vectors, passages, err := EmbedAll(context.Background(), embedder, nil, reqs)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 1, 0}, vectors[1])
	assert.Equal(t, "a_p2_c1", passages[1].ChunkID)
	assert.Equal(t, 2, passages[1].Page)

	embedder.FailWith(errors.New("quota"))

	_, _, err = EmbedAll(context.Background(), embedder, nil, reqs)
	assert.Error(t, err)
}
