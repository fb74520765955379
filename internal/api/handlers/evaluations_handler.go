package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/service"
)

// EvaluationsService defines the interface for evaluating answers and reading stored evaluations.
type EvaluationsService interface {
	Evaluate(ctx context.Context, question, answer, questionID string) (*models.EvaluationResult, error)
	EvaluateForKey(ctx context.Context, req service.EvaluateRequest) (*models.EvaluationResult, models.EvaluationSource, error)
	Latest(ctx context.Context, key models.EvaluationKey) (*models.EvaluationRecord, error)
}

// EvaluationsHandler handles HTTP requests for answer evaluations.
type EvaluationsHandler struct {
	service EvaluationsService
	logger  *slog.Logger
}

// NewEvaluationsHandler creates a new evaluations handler. logger may be nil.
func NewEvaluationsHandler(service EvaluationsService, logger *slog.Logger) *EvaluationsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &EvaluationsHandler{service: service, logger: logger}
}

// EvaluateBody is the body for POST /v1/evaluations. The key fields (course_id, feedback_id,
// learner_id) are either all set, which reads and writes the evaluation cache, or all omitted.
type EvaluateBody struct {
	QuestionID string `json:"question_id" minLength:"1" maxLength:"255" doc:"Question identifier in the expected-answers table"`
	Question   string `json:"question,omitempty" maxLength:"10000" doc:"Question text; defaults to the expected question"`
	Answer     string `json:"answer" maxLength:"50000" doc:"Learner answer"`

	CourseID         string     `json:"course_id,omitempty" maxLength:"255"`
	FeedbackID       string     `json:"feedback_id,omitempty" maxLength:"255"`
	LearnerID        string     `json:"learner_id,omitempty" maxLength:"255"`
	UserID           *string    `json:"user_id,omitempty" maxLength:"255"`
	IdentityDocument *string    `json:"identity_document,omitempty" maxLength:"255"`
	Attempt          int        `json:"attempt,omitempty" minimum:"0"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
}

// EvaluateInput is the huma input for creating an evaluation.
type EvaluateInput struct {
	Body EvaluateBody
}

// EvaluateResponse wraps an evaluation with where it came from. Warning is set when the result
// could not be stored.
type EvaluateResponse struct {
	Data    *models.EvaluationResult `json:"data"`
	Source  models.EvaluationSource  `json:"source"`
	Warning string                   `json:"warning,omitempty"`
}

// EvaluateOutput is the huma output for creating an evaluation.
type EvaluateOutput struct {
	Body EvaluateResponse
}

// LatestEvaluationInput selects one evaluation key from the path.
type LatestEvaluationInput struct {
	CourseID   string `path:"courseId" maxLength:"255"`
	FeedbackID string `path:"feedbackId" maxLength:"255"`
	LearnerID  string `path:"learnerId" maxLength:"255"`
	QuestionID string `path:"questionId" maxLength:"255"`
}

// LatestEvaluationOutput is the most recent stored evaluation for a key.
type LatestEvaluationOutput struct {
	Body DataResponse[*models.EvaluationRecord]
}

// Register adds the evaluation operations to api.
func (h *EvaluationsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-evaluation",
		Method:        http.MethodPost,
		Path:          "/v1/evaluations",
		Summary:       "Evaluate an answer",
		Tags:          []string{"Evaluations"},
		DefaultStatus: http.StatusOK,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "get-latest-evaluation",
		Method:      http.MethodGet,
		Path:        "/v1/courses/{courseId}/feedbacks/{feedbackId}/learners/{learnerId}/questions/{questionId}/evaluation",
		Summary:     "Get the most recent stored evaluation",
		Tags:        []string{"Evaluations"},
	}, h.Latest)
}

// Create handles POST /v1/evaluations.
func (h *EvaluationsHandler) Create(ctx context.Context, input *EvaluateInput) (*EvaluateOutput, error) {
	body := input.Body

	key := models.EvaluationKey{
		CourseID:   strings.TrimSpace(body.CourseID),
		FeedbackID: strings.TrimSpace(body.FeedbackID),
		LearnerID:  strings.TrimSpace(body.LearnerID),
		QuestionID: strings.TrimSpace(body.QuestionID),
	}

	switch keyParts(key) {
	case 0:
		result, err := h.service.Evaluate(ctx, body.Question, body.Answer, key.QuestionID)
		if err != nil {
			return nil, toHTTPError(ctx, h.logger, "evaluate", err)
		}

		return &EvaluateOutput{Body: EvaluateResponse{Data: result, Source: models.EvaluationSourceGenerated}}, nil
	case 3:
	default:
		return nil, huma.Error400BadRequest("course_id, feedback_id and learner_id must be provided together")
	}

	req := service.EvaluateRequest{
		Key:              key,
		UserID:           body.UserID,
		IdentityDocument: body.IdentityDocument,
		Attempt:          body.Attempt,
		Question:         body.Question,
		Answer:           body.Answer,
	}
	if body.RespondedAt != nil {
		req.RespondedAt = *body.RespondedAt
	}

	result, source, err := h.service.EvaluateForKey(ctx, req)
	if err != nil {
		if result != nil && errors.Is(err, evalerrors.ErrCacheUnavailable) {
			h.logger.WarnContext(ctx, "evaluate: result returned without storing", "key", key.String(), "error", err)

			return &EvaluateOutput{Body: EvaluateResponse{
				Data: result, Source: source, Warning: "evaluation could not be stored",
			}}, nil
		}

		return nil, toHTTPError(ctx, h.logger, "evaluate", err)
	}

	return &EvaluateOutput{Body: EvaluateResponse{Data: result, Source: source}}, nil
}

// Latest handles GET .../questions/{questionId}/evaluation.
func (h *EvaluationsHandler) Latest(ctx context.Context, input *LatestEvaluationInput) (*LatestEvaluationOutput, error) {
	record, err := h.service.Latest(ctx, models.EvaluationKey{
		CourseID:   input.CourseID,
		FeedbackID: input.FeedbackID,
		LearnerID:  input.LearnerID,
		QuestionID: input.QuestionID,
	})
	if err != nil {
		return nil, toHTTPError(ctx, h.logger, "latest evaluation", err)
	}

	return &LatestEvaluationOutput{Body: DataResponse[*models.EvaluationRecord]{Data: record}}, nil
}

// keyParts counts the set location fields of key (question id excluded).
func keyParts(key models.EvaluationKey) int {
	n := 0

	for _, v := range []string{key.CourseID, key.FeedbackID, key.LearnerID} {
		if v != "" {
			n++
		}
	}

	return n
}
