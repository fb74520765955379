package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/validation"
	"github.com/formbricks/evalhub/pkg/moodle"
)

const defaultReviewConcurrency = 4

// FeedbackSource reads feedback attempts and items from the learning platform.
type FeedbackSource interface {
	GetResponsesAnalysis(ctx context.Context, feedbackID string) (*moodle.ResponsesAnalysis, error)
	GetItems(ctx context.Context, feedbackID string) (*moodle.ItemsResponse, error)
}

// KeyedEvaluator evaluates an answer through the evaluation cache.
type KeyedEvaluator interface {
	EvaluateForKey(ctx context.Context, req EvaluateRequest) (*models.EvaluationResult, models.EvaluationSource, error)
}

// ReviewRequest selects the learner whose attempts are reviewed.
type ReviewRequest struct {
	CourseID         string  `validate:"required,no_null_bytes,max=255"`
	FeedbackID       string  `validate:"required,no_null_bytes,max=255"`
	LearnerID        string  `validate:"required,no_null_bytes,max=255"`
	UserID           *string `validate:"omitempty,no_null_bytes,max=255"`
	IdentityDocument *string `validate:"omitempty,no_null_bytes,max=255"`
}

// ReviewService evaluates every response a learner submitted to a feedback activity.
type ReviewService struct {
	source      FeedbackSource
	evaluations KeyedEvaluator
	concurrency int
	logger      *slog.Logger
}

// NewReviewService creates a ReviewService. concurrency <= 0 uses a default.
func NewReviewService(source FeedbackSource, evaluations KeyedEvaluator, concurrency int, logger *slog.Logger) *ReviewService {
	if concurrency <= 0 {
		concurrency = defaultReviewConcurrency
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &ReviewService{source: source, evaluations: evaluations, concurrency: concurrency, logger: logger}
}

// Review fetches the learner's attempts, numbers them by submission time and evaluates each response
// through the evaluation cache. A response that fails to evaluate carries the error on its item; only
// platform failures fail the whole review (UpstreamError).
func (s *ReviewService) Review(ctx context.Context, req ReviewRequest) (*models.Review, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.FeedbackID = strings.TrimSpace(req.FeedbackID)
	req.LearnerID = strings.TrimSpace(req.LearnerID)

	if err := validation.ValidateStruct(&req); err != nil {
		return nil, err
	}

	analysis, err := s.source.GetResponsesAnalysis(ctx, req.FeedbackID)
	if err != nil {
		return nil, evalerrors.NewUpstreamError("fetch feedback attempts", err)
	}

	questionNames := map[string]string{}

	items, err := s.source.GetItems(ctx, req.FeedbackID)
	if err != nil {
		s.logger.WarnContext(ctx, "review: fetch feedback items failed, using response names",
			"feedback_id", req.FeedbackID, "error", err)
	} else {
		questionNames = items.ItemNames()
	}

	attempts := learnerAttempts(analysis.Attempts, req.LearnerID)
	review := &models.Review{
		CourseID:   req.CourseID,
		FeedbackID: req.FeedbackID,
		LearnerID:  req.LearnerID,
		Attempts:   make([]models.ReviewAttempt, len(attempts)),
	}

	// Responses to the same question share a key, so they run one after another in attempt order;
	// distinct questions run in parallel.
	type reviewTask struct {
		req  EvaluateRequest
		slot *models.ReviewItem
	}

	var order []string

	byQuestion := make(map[string][]reviewTask)

	for i, attempt := range attempts {
		respondedAt := time.Unix(attempt.TimeModified, 0).UTC()

		review.Attempts[i] = models.ReviewAttempt{
			Attempt:     i + 1,
			AttemptID:   attempt.ID,
			RespondedAt: respondedAt,
			Items:       make([]models.ReviewItem, len(attempt.Responses)),
		}

		for j, resp := range attempt.Responses {
			questionID := strconv.FormatInt(resp.ID, 10)

			question := questionNames[questionID]
			if question == "" {
				question = resp.Name
			}

			evalReq := EvaluateRequest{
				Key: models.EvaluationKey{
					CourseID:   req.CourseID,
					FeedbackID: req.FeedbackID,
					LearnerID:  req.LearnerID,
					QuestionID: questionID,
				},
				UserID:           req.UserID,
				IdentityDocument: req.IdentityDocument,
				Attempt:          i + 1,
				Question:         question,
				Answer:           strings.TrimSpace(resp.RawVal.String()),
				RespondedAt:      respondedAt,
			}

			if _, ok := byQuestion[questionID]; !ok {
				order = append(order, questionID)
			}

			byQuestion[questionID] = append(byQuestion[questionID], reviewTask{
				req:  evalReq,
				slot: &review.Attempts[i].Items[j],
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, questionID := range order {
		tasks := byQuestion[questionID]

		g.Go(func() error {
			for _, task := range tasks {
				*task.slot = s.reviewItem(gctx, task.req)
			}

			return nil
		})
	}

	// Item failures are recorded on the items; the group itself never fails.
	_ = g.Wait()

	return review, nil
}

func (s *ReviewService) reviewItem(ctx context.Context, req EvaluateRequest) models.ReviewItem {
	item := models.ReviewItem{
		QuestionID: req.Key.QuestionID,
		Question:   req.Question,
		Answer:     req.Answer,
	}

	result, source, err := s.evaluations.EvaluateForKey(ctx, req)
	if result != nil {
		item.Evaluation = result
		item.Source = source
	}

	switch {
	case err == nil:
	case errors.Is(err, evalerrors.ErrCacheUnavailable) && result != nil:
		s.logger.WarnContext(ctx, "review: evaluation not cached", "key", req.Key.String(), "error", err)
	default:
		s.logger.ErrorContext(ctx, "review: evaluation failed", "key", req.Key.String(), "error", err)
		item.Evaluation = nil
		item.Source = ""
		item.Error = err.Error()
	}

	return item
}

// learnerAttempts keeps the learner's attempts, drops repeated attempt ids and orders them by
// submission time.
func learnerAttempts(all []moodle.Attempt, learnerID string) []moodle.Attempt {
	seen := make(map[int64]bool)
	out := make([]moodle.Attempt, 0)

	for _, a := range all {
		if strconv.FormatInt(a.UserID, 10) != learnerID || seen[a.ID] {
			continue
		}

		seen[a.ID] = true
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeModified < out[j].TimeModified })

	return out
}
