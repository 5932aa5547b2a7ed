package server

import (
	"net/http"

	"careerkit/internal/errors"
	"careerkit/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// proxyHandler runs one tool request and writes the response envelope.
// Every failure is reported as 400 with the public error message.
func (s *Server) proxyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer("careerkit.api").Start(r.Context(), "api.generate")
	defer span.End()

	defer func() {
		if err := r.Body.Close(); err != nil {
			s.Logger.Debug("Failed to close request body", "error", err)
		}
	}()

	result, err := s.Proxy.Handle(ctx, r.Header.Get("Authorization"), r.Body)
	if err != nil {
		message := errors.PublicMessage(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, message)
		if appErr, ok := errors.As(err); ok {
			span.SetAttributes(
				attribute.String("error.type", string(appErr.Type)),
				attribute.String("error.code", appErr.Code),
			)
		}
		writeEnvelope(w, http.StatusBadRequest, types.FailureResponse(message))
		return
	}

	span.SetAttributes(
		attribute.String("tool.type", result.ToolType.String()),
		attribute.Int64("tokens.used", result.TokensUsed),
	)
	writeEnvelope(w, http.StatusOK, types.SuccessResponse(result.Content, result.TokensUsed))
}
