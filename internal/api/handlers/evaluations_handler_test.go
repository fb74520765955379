package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/service"
)

type mockEvaluationsService struct {
	evaluateFunc       func(ctx context.Context, question, answer, questionID string) (*models.EvaluationResult, error)
	evaluateForKeyFunc func(ctx context.Context, req service.EvaluateRequest) (*models.EvaluationResult, models.EvaluationSource, error)
	latestFunc         func(ctx context.Context, key models.EvaluationKey) (*models.EvaluationRecord, error)
}

func (m *mockEvaluationsService) Evaluate(
	ctx context.Context, question, answer, questionID string,
) (*models.EvaluationResult, error) {
	if m.evaluateFunc != nil {
		return m.evaluateFunc(ctx, question, answer, questionID)
	}

	return nil, errors.New("unexpected Evaluate call")
}

func (m *mockEvaluationsService) EvaluateForKey(
	ctx context.Context, req service.EvaluateRequest,
) (*models.EvaluationResult, models.EvaluationSource, error) {
	if m.evaluateForKeyFunc != nil {
		return m.evaluateForKeyFunc(ctx, req)
	}

	return nil, "", errors.New("unexpected EvaluateForKey call")
}

func (m *mockEvaluationsService) Latest(ctx context.Context, key models.EvaluationKey) (*models.EvaluationRecord, error) {
	if m.latestFunc != nil {
		return m.latestFunc(ctx, key)
	}

	return nil, evalerrors.NewNotFoundError("evaluation", "")
}

func newEvaluationsAPI(t *testing.T, svc EvaluationsService) humatest.TestAPI {
	t.Helper()

	_, api := humatest.New(t)
	NewEvaluationsHandler(svc, nil).Register(api)

	return api
}

func sampleResult() *models.EvaluationResult {
	return &models.EvaluationResult{
		Question:          "¿Qué es la evaluación formativa?",
		QuestionID:        "q1",
		Answer:            "Acompaña el aprendizaje",
		SimilarityScore:   0.8,
		LevelEstimate:     "Destacado",
		RetrievedChunks:   []models.RetrievedChunk{},
		GeneratedFeedback: "Buena respuesta.",
	}
}

func decodeEvaluateResponse(t *testing.T, raw []byte) EvaluateResponse {
	t.Helper()

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(raw, &resp))

	return resp
}

func TestEvaluationsHandler_Create(t *testing.T) {
	t.Run("without key evaluates without the cache", func(t *testing.T) {
		var gotQuestionID, gotAnswer string

		api := newEvaluationsAPI(t, &mockEvaluationsService{
			evaluateFunc: func(_ context.Context, _, answer, questionID string) (*models.EvaluationResult, error) {
				gotQuestionID, gotAnswer = questionID, answer

				return sampleResult(), nil
			},
		})

		resp := api.Post("/v1/evaluations", map[string]any{"question_id": " q1 ", "answer": "Acompaña el aprendizaje"})

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, "q1", gotQuestionID)
		assert.Equal(t, "Acompaña el aprendizaje", gotAnswer)

		body := decodeEvaluateResponse(t, resp.Body.Bytes())
		assert.Equal(t, models.EvaluationSourceGenerated, body.Source)
		assert.Equal(t, "Destacado", body.Data.LevelEstimate)
		assert.Empty(t, body.Warning)
	})

	t.Run("with key goes through the cache", func(t *testing.T) {
		var got service.EvaluateRequest

		api := newEvaluationsAPI(t, &mockEvaluationsService{
			evaluateForKeyFunc: func(_ context.Context, req service.EvaluateRequest) (*models.EvaluationResult, models.EvaluationSource, error) {
				got = req

				return sampleResult(), models.EvaluationSourceCache, nil
			},
		})

		respondedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		resp := api.Post("/v1/evaluations", map[string]any{
			"question_id":  "q1",
			"answer":       "Acompaña el aprendizaje",
			"course_id":    "c1",
			"feedback_id":  "f1",
			"learner_id":   "u1",
			"user_id":      "7",
			"attempt":      2,
			"responded_at": respondedAt,
		})

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, models.EvaluationKey{CourseID: "c1", FeedbackID: "f1", LearnerID: "u1", QuestionID: "q1"}, got.Key)
		require.NotNil(t, got.UserID)
		assert.Equal(t, "7", *got.UserID)
		assert.Equal(t, 2, got.Attempt)
		assert.True(t, respondedAt.Equal(got.RespondedAt))

		body := decodeEvaluateResponse(t, resp.Body.Bytes())
		assert.Equal(t, models.EvaluationSourceCache, body.Source)
	})

	t.Run("partial key returns 400", func(t *testing.T) {
		api := newEvaluationsAPI(t, &mockEvaluationsService{})

		resp := api.Post("/v1/evaluations", map[string]any{"question_id": "q1", "answer": "x", "course_id": "c1"})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("store failure still returns the result with a warning", func(t *testing.T) {
		api := newEvaluationsAPI(t, &mockEvaluationsService{
			evaluateForKeyFunc: func(context.Context, service.EvaluateRequest) (*models.EvaluationResult, models.EvaluationSource, error) {
				return sampleResult(), models.EvaluationSourceGenerated,
					evalerrors.NewCacheUnavailableError(evalerrors.CacheOpStore, errors.New("conn refused"))
			},
		})

		resp := api.Post("/v1/evaluations", map[string]any{
			"question_id": "q1", "answer": "x", "course_id": "c1", "feedback_id": "f1", "learner_id": "u1",
		})

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		body := decodeEvaluateResponse(t, resp.Body.Bytes())
		assert.Equal(t, models.EvaluationSourceGenerated, body.Source)
		assert.NotEmpty(t, body.Warning)
		assert.Equal(t, "Buena respuesta.", body.Data.GeneratedFeedback)
	})

	errorCases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", evalerrors.NewValidationError("question_id", "question_id is required"), http.StatusBadRequest},
		{"generation rejected", evalerrors.NewGenerationError("openai", errors.New("quota exceeded")), http.StatusBadGateway},
		{"generation timeout", evalerrors.NewGenerationError("openai", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"retrieval", evalerrors.NewRetrievalError("nearest", errors.New("index down")), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range errorCases {
		t.Run(tc.name+" maps to status", func(t *testing.T) {
			api := newEvaluationsAPI(t, &mockEvaluationsService{
				evaluateFunc: func(context.Context, string, string, string) (*models.EvaluationResult, error) {
					return nil, tc.err
				},
			})

			resp := api.Post("/v1/evaluations", map[string]any{"question_id": "q1", "answer": "x"})

			assert.Equal(t, tc.status, resp.Code)
		})
	}
}

func TestEvaluationsHandler_Latest(t *testing.T) {
	t.Run("returns the stored record", func(t *testing.T) {
		var gotKey models.EvaluationKey

		api := newEvaluationsAPI(t, &mockEvaluationsService{
			latestFunc: func(_ context.Context, key models.EvaluationKey) (*models.EvaluationRecord, error) {
				gotKey = key

				return &models.EvaluationRecord{EvaluationKey: key, LevelLabel: "En proceso"}, nil
			},
		})

		resp := api.Get("/v1/courses/c1/feedbacks/f1/learners/u1/questions/q1/evaluation")

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, models.EvaluationKey{CourseID: "c1", FeedbackID: "f1", LearnerID: "u1", QuestionID: "q1"}, gotKey)

		var body DataResponse[models.EvaluationRecord]
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "En proceso", body.Data.LevelLabel)
	})

	t.Run("missing record returns 404", func(t *testing.T) {
		api := newEvaluationsAPI(t, &mockEvaluationsService{})

		resp := api.Get("/v1/courses/c1/feedbacks/f1/learners/u1/questions/q1/evaluation")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("store failure returns 503", func(t *testing.T) {
		api := newEvaluationsAPI(t, &mockEvaluationsService{
			latestFunc: func(context.Context, models.EvaluationKey) (*models.EvaluationRecord, error) {
				return nil, evalerrors.NewCacheUnavailableError(evalerrors.CacheOpLookup, errors.New("timeout"))
			},
		})

		resp := api.Get("/v1/courses/c1/feedbacks/f1/learners/u1/questions/q1/evaluation")

		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})
}
