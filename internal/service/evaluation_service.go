package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/observability"
	"github.com/formbricks/evalhub/internal/validation"
)

// EvaluationsRepository is the evaluation cache store.
type EvaluationsRepository interface {
	Latest(ctx context.Context, key models.EvaluationKey) (*models.EvaluationRecord, error)
	Create(ctx context.Context, record *models.EvaluationRecord) (*models.EvaluationRecord, error)
}

// AnswerEvaluator evaluates a single answer.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, question, answer, questionID string) (*models.EvaluationResult, error)
}

// EvaluateRequest is one answer to evaluate under a cache key.
type EvaluateRequest struct {
	Key              models.EvaluationKey
	UserID           *string
	IdentityDocument *string
	Attempt          int
	Question         string
	Answer           string
	// RespondedAt is when the learner submitted the answer; zero means now.
	RespondedAt time.Time
}

// EvaluationService serves evaluations from the cache and evaluates on a miss.
// Concurrent requests for the same key in this process share one evaluation.
type EvaluationService struct {
	repo      EvaluationsRepository
	evaluator AnswerEvaluator
	group     singleflight.Group
	metrics   observability.EvaluationMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewEvaluationService creates an EvaluationService. metrics and logger may be nil.
func NewEvaluationService(
	repo EvaluationsRepository, evaluator AnswerEvaluator, metrics observability.EvaluationMetrics, logger *slog.Logger,
) *EvaluationService {
	if logger == nil {
		logger = slog.Default()
	}

	return &EvaluationService{repo: repo, evaluator: evaluator, metrics: metrics, logger: logger, now: time.Now}
}

// Evaluate runs the pipeline without touching the cache.
func (s *EvaluationService) Evaluate(ctx context.Context, question, answer, questionID string) (*models.EvaluationResult, error) {
	start := time.Now()

	result, err := s.evaluator.Evaluate(ctx, question, answer, questionID)
	if err != nil {
		s.recordEvaluation(ctx, "failed", start)

		return nil, err
	}

	s.recordEvaluation(ctx, string(models.EvaluationSourceGenerated), start)

	return result, nil
}

// Latest returns the most recent stored evaluation for key (NotFoundError when none).
func (s *EvaluationService) Latest(ctx context.Context, key models.EvaluationKey) (*models.EvaluationRecord, error) {
	key = trimKey(key)
	if err := validation.ValidateStruct(&key); err != nil {
		return nil, err
	}

	record, err := s.repo.Latest(ctx, key)
	if err != nil {
		if errors.Is(err, evalerrors.ErrNotFound) {
			return nil, err
		}

		return nil, evalerrors.NewCacheUnavailableError(evalerrors.CacheOpLookup, err)
	}

	return record, nil
}

type keyedEvaluation struct {
	result   *models.EvaluationResult
	storeErr error
}

// EvaluateForKey returns the most recent stored evaluation for req.Key without any retrieval or
// generation call, or evaluates the answer and appends a new record. A failed lookup is treated as a
// miss. A failed store returns the fresh result together with a CacheUnavailableError.
func (s *EvaluationService) EvaluateForKey(
	ctx context.Context, req EvaluateRequest,
) (*models.EvaluationResult, models.EvaluationSource, error) {
	req.Key = trimKey(req.Key)
	if err := validation.ValidateStruct(&req.Key); err != nil {
		return nil, "", err
	}

	ctx = observability.WithEvaluationKey(ctx, req.Key.String())
	start := time.Now()

	if cached := s.lookup(ctx, req.Key); cached != nil {
		s.recordEvaluation(ctx, string(models.EvaluationSourceCache), start)

		return models.ResultFromRecord(cached), models.EvaluationSourceCache, nil
	}

	// The shared evaluation outlives any single caller; the evaluator's own timeouts bound it.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(req.Key.String(), func() (any, error) {
		return s.evaluateAndStore(shared, req)
	})

	var res singleflight.Result

	select {
	case res = <-ch:
	case <-ctx.Done():
		s.recordEvaluation(ctx, "failed", start)

		return nil, "", ctx.Err()
	}

	v, err := res.Val, res.Err
	if err != nil {
		s.recordEvaluation(ctx, "failed", start)

		return nil, "", err
	}

	s.recordEvaluation(ctx, string(models.EvaluationSourceGenerated), start)

	out, _ := v.(*keyedEvaluation)

	return out.result, models.EvaluationSourceGenerated, out.storeErr
}

func (s *EvaluationService) lookup(ctx context.Context, key models.EvaluationKey) *models.EvaluationRecord {
	record, err := s.repo.Latest(ctx, key)
	if err == nil {
		return record
	}

	if !errors.Is(err, evalerrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "evaluation cache lookup failed, evaluating without cache", "error", err)

		if s.metrics != nil {
			s.metrics.RecordCacheUnavailable(ctx, evalerrors.CacheOpLookup)
		}
	}

	return nil
}

func (s *EvaluationService) evaluateAndStore(ctx context.Context, req EvaluateRequest) (*keyedEvaluation, error) {
	result, err := s.evaluator.Evaluate(ctx, req.Question, req.Answer, req.Key.QuestionID)
	if err != nil {
		return nil, err
	}

	respondedAt := req.RespondedAt
	if respondedAt.IsZero() {
		respondedAt = s.now()
	}

	record := &models.EvaluationRecord{
		EvaluationKey:     req.Key,
		UserID:            req.UserID,
		IdentityDocument:  req.IdentityDocument,
		Attempt:           req.Attempt,
		Question:          result.Question,
		Answer:            result.Answer,
		SimilarityScore:   result.SimilarityScore,
		LevelLabel:        result.LevelEstimate,
		GeneratedFeedback: result.GeneratedFeedback,
		RespondedAt:       respondedAt,
	}

	// Stored even when the caller has gone away.
	if _, err := s.repo.Create(context.WithoutCancel(ctx), record); err != nil {
		s.logger.ErrorContext(ctx, "evaluation cache store failed", "error", err)

		if s.metrics != nil {
			s.metrics.RecordCacheUnavailable(ctx, evalerrors.CacheOpStore)
		}

		return &keyedEvaluation{
			result:   result,
			storeErr: evalerrors.NewCacheUnavailableError(evalerrors.CacheOpStore, err),
		}, nil
	}

	return &keyedEvaluation{result: result}, nil
}

func (s *EvaluationService) recordEvaluation(ctx context.Context, source string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordEvaluation(ctx, source, time.Since(start))
	}
}

func trimKey(k models.EvaluationKey) models.EvaluationKey {
	return models.EvaluationKey{
		CourseID:   strings.TrimSpace(k.CourseID),
		FeedbackID: strings.TrimSpace(k.FeedbackID),
		LearnerID:  strings.TrimSpace(k.LearnerID),
		QuestionID: strings.TrimSpace(k.QuestionID),
	}
}
