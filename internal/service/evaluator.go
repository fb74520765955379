package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/formbricks/evalhub/internal/corpus"
	"github.com/formbricks/evalhub/internal/evalerrors"
	"github.com/formbricks/evalhub/internal/models"
	"github.com/formbricks/evalhub/internal/observability"
	"github.com/formbricks/evalhub/internal/prompts"
	"github.com/formbricks/evalhub/internal/retrieval"
	"github.com/formbricks/evalhub/internal/scoring"
)

const (
	defaultTopK              = 5
	defaultRetrievalTimeout  = 15 * time.Second
	defaultGenerationTimeout = 60 * time.Second
)

// Generator turns a prompt into feedback prose.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChunkRetriever returns the passages closest to a query, closest first.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error)
}

// SimilarityScorer returns the bounded similarity of two texts.
type SimilarityScorer interface {
	Score(ctx context.Context, candidate, expected string) (float64, error)
}

// Evaluator runs the evaluation pipeline for one answer: retrieval, similarity, prompt selection
// and generation. It holds no per-request state.
type Evaluator struct {
	corpus            *corpus.Corpus
	retriever         ChunkRetriever
	scorer            SimilarityScorer
	leveler           *scoring.Leveler
	prompts           *prompts.Builder
	generator         Generator
	provider          string
	reservedID        string
	topK              int
	retrievalTimeout  time.Duration
	generationTimeout time.Duration
	degradeRetrieval  bool
	metrics           observability.EvaluationMetrics
	logger            *slog.Logger
}

// EvaluatorParams configures Evaluator. Metrics and Logger may be nil; zero TopK and timeouts use defaults.
type EvaluatorParams struct {
	Corpus    *corpus.Corpus
	Retriever ChunkRetriever
	Scorer    SimilarityScorer
	Leveler   *scoring.Leveler
	Prompts   *prompts.Builder
	Generator Generator
	// Provider names the generation backend in errors and metrics (openai, google, anthropic).
	Provider string

	ReservedLeveledQuestionID string
	TopK                      int
	RetrievalTimeout          time.Duration
	GenerationTimeout         time.Duration
	// DegradeOnRetrievalError continues with zero chunks when retrieval fails.
	DegradeOnRetrievalError bool

	Metrics observability.EvaluationMetrics
	Logger  *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(p EvaluatorParams) *Evaluator {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	topK := p.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	retrievalTimeout := p.RetrievalTimeout
	if retrievalTimeout <= 0 {
		retrievalTimeout = defaultRetrievalTimeout
	}

	generationTimeout := p.GenerationTimeout
	if generationTimeout <= 0 {
		generationTimeout = defaultGenerationTimeout
	}

	c := p.Corpus
	if c == nil {
		c = corpus.New(nil, nil, "")
	}

	return &Evaluator{
		corpus:            c,
		retriever:         p.Retriever,
		scorer:            p.Scorer,
		leveler:           p.Leveler,
		prompts:           p.Prompts,
		generator:         p.Generator,
		provider:          p.Provider,
		reservedID:        p.ReservedLeveledQuestionID,
		topK:              topK,
		retrievalTimeout:  retrievalTimeout,
		generationTimeout: generationTimeout,
		degradeRetrieval:  p.DegradeOnRetrievalError,
		metrics:           p.Metrics,
		logger:            logger,
	}
}

// Evaluate produces the evaluation of answer to question. An unknown questionID scores 0 with the
// lowest level and no embedding call. Retrieval failures are returned as RetrievalError unless
// degradation is enabled; similarity failures are always RetrievalError and generation failures
// always GenerationError.
func (e *Evaluator) Evaluate(ctx context.Context, question, answer, questionID string) (*models.EvaluationResult, error) {
	questionID = strings.TrimSpace(questionID)
	expected, hasExpected := e.corpus.ExpectedAnswer(questionID)

	if strings.TrimSpace(question) == "" && hasExpected {
		question = expected.Question
	}

	chunks, err := e.retrieve(ctx, retrieval.Query(question, answer))
	if err != nil {
		return nil, err
	}

	score := 0.0

	if hasExpected {
		score, err = e.similarity(ctx, answer, expected.ExpectedText)
		if err != nil {
			return nil, err
		}
	}

	level := e.leveler.LevelOf(score)

	rubric := e.corpus.Rubric(questionID)
	strategy := prompts.Select(questionID, rubric, e.reservedID)

	prompt, err := e.prompts.Build(strategy, prompts.Input{
		Question:       question,
		Answer:         answer,
		ExpectedAnswer: expected.ExpectedText,
		Rubric:         rubric,
		Chunks:         chunks,
		Transcript:     e.corpus.Transcript(),
	})
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	feedback, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "evaluation completed",
		"question_id", questionID,
		"strategy", strategy.String(),
		"chunks", len(chunks),
		"similarity", score,
		"level", level,
	)

	return &models.EvaluationResult{
		Question:          question,
		QuestionID:        questionID,
		Answer:            answer,
		SimilarityScore:   score,
		LevelEstimate:     level,
		RetrievedChunks:   chunks,
		GeneratedFeedback: feedback,
	}, nil
}

func (e *Evaluator) retrieve(ctx context.Context, query string) ([]models.RetrievedChunk, error) {
	if e.retriever == nil {
		return []models.RetrievedChunk{}, nil
	}

	retrieveCtx, cancel := context.WithTimeout(ctx, e.retrievalTimeout)
	defer cancel()

	chunks, err := e.retriever.Retrieve(retrieveCtx, query, e.topK)
	if err == nil {
		return chunks, nil
	}

	if !errors.Is(err, evalerrors.ErrRetrieval) {
		err = evalerrors.NewRetrievalError("retrieve", err)
	}

	// The caller's own cancellation is never degraded.
	if !e.degradeRetrieval || ctx.Err() != nil {
		return nil, err
	}

	reason := "error"
	if evalerrors.IsTimeout(err) {
		reason = "timeout"
	}

	e.logger.WarnContext(ctx, "retrieval failed, continuing without reference passages",
		"error", err, "reason", reason)

	if e.metrics != nil {
		e.metrics.RecordRetrievalDegraded(ctx, reason)
	}

	return []models.RetrievedChunk{}, nil
}

func (e *Evaluator) similarity(ctx context.Context, answer, expected string) (float64, error) {
	scoreCtx, cancel := context.WithTimeout(ctx, e.retrievalTimeout)
	defer cancel()

	score, err := e.scorer.Score(scoreCtx, answer, expected)
	if err != nil {
		if !errors.Is(err, evalerrors.ErrRetrieval) {
			err = evalerrors.NewRetrievalError("similarity", err)
		}

		return 0, err
	}

	return score, nil
}

func (e *Evaluator) generate(ctx context.Context, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, e.generationTimeout)
	defer cancel()

	start := time.Now()
	feedback, err := e.generator.Generate(genCtx, prompt)

	status := "success"

	switch {
	case err != nil && evalerrors.IsTimeout(err):
		status = "timeout"
	case err != nil:
		status = "error"
	}

	if e.metrics != nil {
		e.metrics.RecordGeneration(ctx, e.provider, status, time.Since(start))
	}

	if err != nil {
		return "", evalerrors.NewGenerationError(e.provider, err)
	}

	return feedback, nil
}
