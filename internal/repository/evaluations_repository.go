package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/models"
)

// EvaluationsRepository is the evaluation cache: an append-only table of evaluation records keyed by
// (course, feedback, learner, question).
type EvaluationsRepository struct {
	db *pgxpool.Pool
}

// NewEvaluationsRepository creates a new evaluations repository.
func NewEvaluationsRepository(db *pgxpool.Pool) *EvaluationsRepository {
	return &EvaluationsRepository{db: db}
}

const evaluationColumns = `id, course_id, feedback_id, learner_id, user_id, identity_document, attempt,
	question_id, question, answer, similarity_score, level_label, generated_feedback, responded_at, created_at`

func scanEvaluation(row pgx.Row) (*models.EvaluationRecord, error) {
	var rec models.EvaluationRecord

	err := row.Scan(
		&rec.ID, &rec.CourseID, &rec.FeedbackID, &rec.LearnerID, &rec.UserID, &rec.IdentityDocument, &rec.Attempt,
		&rec.QuestionID, &rec.Question, &rec.Answer, &rec.SimilarityScore, &rec.LevelLabel, &rec.GeneratedFeedback,
		&rec.RespondedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Create appends a new record. Existing records for the same key are never updated.
func (r *EvaluationsRepository) Create(ctx context.Context, rec *models.EvaluationRecord) (*models.EvaluationRecord, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO evaluation_records (course_id, feedback_id, learner_id, user_id, identity_document, attempt,
			question_id, question, answer, similarity_score, level_label, generated_feedback, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+evaluationColumns,
		rec.CourseID, rec.FeedbackID, rec.LearnerID, rec.UserID, rec.IdentityDocument, rec.Attempt,
		rec.QuestionID, rec.Question, rec.Answer, rec.SimilarityScore, rec.LevelLabel, rec.GeneratedFeedback,
		rec.RespondedAt,
	)

	stored, err := scanEvaluation(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation record: %w", err)
	}

	return stored, nil
}

// Latest returns the most recent record for key by responded_at (ties broken by insertion time).
// Returns a NotFoundError when the key has never been evaluated.
func (r *EvaluationsRepository) Latest(ctx context.Context, key models.EvaluationKey) (*models.EvaluationRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+evaluationColumns+`
		FROM evaluation_records
		WHERE course_id = $1 AND feedback_id = $2 AND learner_id = $3 AND question_id = $4
		ORDER BY responded_at DESC, created_at DESC
		LIMIT 1`,
		key.CourseID, key.FeedbackID, key.LearnerID, key.QuestionID,
	)

	rec, err := scanEvaluation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, evalerrors.NewNotFoundError("evaluation", "evaluation not found")
		}

		return nil, fmt.Errorf("failed to get latest evaluation record: %w", err)
	}

	return rec, nil
}

// CountByKey returns how many records exist for key (history length).
func (r *EvaluationsRepository) CountByKey(ctx context.Context, key models.EvaluationKey) (int64, error) {
	var count int64

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM evaluation_records
		WHERE course_id = $1 AND feedback_id = $2 AND learner_id = $3 AND question_id = $4`,
		key.CourseID, key.FeedbackID, key.LearnerID, key.QuestionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluation records: %w", err)
	}

	return count, nil
}
