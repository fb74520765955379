package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EvaluationKey identifies one cached evaluation slot: (course, feedback, learner, question).
type EvaluationKey struct {
	CourseID   string `json:"course_id" validate:"required,no_null_bytes,max=255"`
	FeedbackID string `json:"feedback_id" validate:"required,no_null_bytes,max=255"`
	LearnerID  string `json:"learner_id" validate:"required,no_null_bytes,max=255"`
	QuestionID string `json:"question_id" validate:"required,no_null_bytes,max=255"`
}

// String joins the key parts; used for request coalescing and logs.
func (k EvaluationKey) String() string {
	return strings.Join([]string{k.CourseID, k.FeedbackID, k.LearnerID, k.QuestionID}, "/")
}

// EvaluationRecord is one persisted evaluation. Records are append-only; several may exist per key
// and the most recent by RespondedAt wins.
type EvaluationRecord struct {
	ID uuid.UUID `json:"id"`
	EvaluationKey

	UserID           *string `json:"user_id,omitempty"`
	IdentityDocument *string `json:"identity_document,omitempty"`
	Attempt          int     `json:"attempt"`

	Question          string    `json:"question"`
	Answer            string    `json:"answer"`
	SimilarityScore   float64   `json:"similarity_score"`
	LevelLabel        string    `json:"level_label"`
	GeneratedFeedback string    `json:"generated_feedback"`
	RespondedAt       time.Time `json:"responded_at"`
	CreatedAt         time.Time `json:"created_at"`
}

// RetrievedChunk is one reference passage returned by retrieval, closest first.
type RetrievedChunk struct {
	Source   string  `json:"source"`
	Page     int     `json:"page"`
	Snippet  string  `json:"snippet"`
	Distance float64 `json:"distance"`
}

// EvaluationResult is the outcome of evaluating one answer.
// GeneratedFeedback is prose from the text-generation model and is never parsed.
type EvaluationResult struct {
	Question          string           `json:"question"`
	QuestionID        string           `json:"question_id"`
	Answer            string           `json:"answer"`
	SimilarityScore   float64          `json:"similarity_score"`
	LevelEstimate     string           `json:"level_estimate"`
	RetrievedChunks   []RetrievedChunk `json:"retrieved_chunks"`
	GeneratedFeedback string           `json:"generated_feedback"`
}

// ResultFromRecord rebuilds a result from a stored record. Retrieved chunks are not persisted.
func ResultFromRecord(r *EvaluationRecord) *EvaluationResult {
	return &EvaluationResult{
		Question:          r.Question,
		QuestionID:        r.QuestionID,
		Answer:            r.Answer,
		SimilarityScore:   r.SimilarityScore,
		LevelEstimate:     r.LevelLabel,
		RetrievedChunks:   []RetrievedChunk{},
		GeneratedFeedback: r.GeneratedFeedback,
	}
}

// EvaluationSource tells whether a result was read from the cache or freshly generated.
type EvaluationSource string

// Evaluation sources.
const (
	EvaluationSourceCache     EvaluationSource = "cache"
	EvaluationSourceGenerated EvaluationSource = "generated"
)
