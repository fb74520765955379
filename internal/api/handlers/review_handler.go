package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/service"
)

// ReviewService defines the interface for reviewing a learner's attempts.
type ReviewService interface {
	Review(ctx context.Context, req service.ReviewRequest) (*models.Review, error)
}

// ReviewHandler handles HTTP requests for learner reviews.
type ReviewHandler struct {
	service ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review handler. logger may be nil.
func NewReviewHandler(service ReviewService, logger *slog.Logger) *ReviewHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReviewHandler{service: service, logger: logger}
}

// ReviewInput selects the learner to review.
type ReviewInput struct {
	CourseID         string `path:"courseId" maxLength:"255"`
	FeedbackID       string `path:"feedbackId" maxLength:"255"`
	LearnerID        string `path:"learnerId" maxLength:"255"`
	UserID           string `query:"user_id" maxLength:"255" doc:"Stored on new evaluation records"`
	IdentityDocument string `query:"identity_document" maxLength:"255" doc:"Stored on new evaluation records"`
}

// ReviewOutput is every evaluated attempt of the learner.
type ReviewOutput struct {
	Body DataResponse[*models.Review]
}

// Register adds the review operation to api.
func (h *ReviewHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-learner-review",
		Method:      http.MethodGet,
		Path:        "/v1/courses/{courseId}/feedbacks/{feedbackId}/learners/{learnerId}/review",
		Summary:     "Evaluate every response a learner submitted",
		Tags:        []string{"Reviews"},
	}, h.Review)
}

// Review handles GET .../learners/{learnerId}/review.
func (h *ReviewHandler) Review(ctx context.Context, input *ReviewInput) (*ReviewOutput, error) {
	review, err := h.service.Review(ctx, service.ReviewRequest{
		CourseID:         input.CourseID,
		FeedbackID:       input.FeedbackID,
		LearnerID:        input.LearnerID,
		UserID:           optionalString(input.UserID),
		IdentityDocument: optionalString(input.IdentityDocument),
	})
	if err != nil {
		return nil, toHTTPError(ctx, h.logger, "review", err)
	}

	return &ReviewOutput{Body: DataResponse[*models.Review]{Data: review}}, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
