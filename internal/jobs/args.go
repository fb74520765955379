// Package jobs defines River job arguments and the insertion and error-handling plumbing shared by
// cmd/api and cmd/ingest.
package jobs

import "github.com/google/uuid"

// QueueEmbeddings is the River queue that runs passage embedding jobs.
const QueueEmbeddings = "passage_embeddings"

// PassageEmbeddingArgs asks a worker to embed one stored reference passage.
type PassageEmbeddingArgs struct {
	// PassageID is the reference_passages row to embed
	PassageID uuid.UUID `json:"passage_id"`
}

// Kind returns the job type identifier for River
func (PassageEmbeddingArgs) Kind() string { return "passage_embedding" }
