package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/formbricks/evalhub/internal/evalerrors"
)

// DataResponse wraps a single data object in a consistent response format
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// toHTTPError maps pipeline errors to RFC 7807 responses: invalid input 400, missing resources 404,
// generation failures 502 (504 on timeout), retrieval and cache failures 503, platform failures 502.
func toHTTPError(ctx context.Context, logger *slog.Logger, op string, err error) error {
	var (
		validationErr *evalerrors.ValidationError
		notFoundErr   *evalerrors.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		return huma.Error400BadRequest(validationErr.Error())
	case errors.As(err, &notFoundErr):
		return huma.Error404NotFound(notFoundErr.Error())
	case errors.Is(err, evalerrors.ErrGeneration):
		logger.ErrorContext(ctx, op+": generation failed", "error", err)

		if evalerrors.IsTimeout(err) {
			return huma.Error504GatewayTimeout("feedback generation timed out")
		}

		return huma.Error502BadGateway("feedback generation failed")
	case errors.Is(err, evalerrors.ErrRetrieval):
		logger.ErrorContext(ctx, op+": retrieval failed", "error", err)

		return huma.Error503ServiceUnavailable("reference retrieval unavailable")
	case errors.Is(err, evalerrors.ErrCacheUnavailable):
		logger.ErrorContext(ctx, op+": evaluation store unavailable", "error", err)

		return huma.Error503ServiceUnavailable("evaluation store unavailable")
	case errors.Is(err, evalerrors.ErrUpstream):
		logger.ErrorContext(ctx, op+": learning platform failed", "error", err)

		return huma.Error502BadGateway("learning platform request failed")
	case errors.Is(err, context.Canceled):
		return huma.Error503ServiceUnavailable("request canceled")
	default:
		logger.ErrorContext(ctx, op+": unexpected error", "error", err)

		return huma.Error500InternalServerError("internal error")
	}
}
