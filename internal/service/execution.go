package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/executor"
	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/observability"
	"github.com/sakif/codeagentix/internal/repository"
)

// ExecutionService runs user programs on the configured backend.
type ExecutionService struct {
	exec   executor.Executor
	usage  usageTracker
	logger *slog.Logger
}

func NewExecutionService(exec executor.Executor, usage repository.UsageRepository, logger *slog.Logger) *ExecutionService {
	return &ExecutionService{
		exec:   exec,
		usage:  usageTracker{repo: usage, logger: logger},
		logger: logger,
	}
}

// Execute runs req once and returns the flattened output text.
// Upstream failures are returned as-is and never retried.
func (s *ExecutionService) Execute(ctx context.Context, userID string, req executor.ExecutionRequest) (string, error) {
	lang := strings.TrimSpace(req.Language)
	ctx, span := otel.Tracer("service/execution").Start(ctx, "Execute",
		trace.WithAttributes(attribute.String("exec.language", lang)))
	defer span.End()

	if lang == "" {
		return "", apperror.ValidationFailed("language", "language is required")
	}

	res, err := s.exec.Execute(ctx, req)
	label := strings.ToLower(lang)
	if errors.Is(err, apperror.ErrUnsupportedLanguage) {
		label = "unsupported" // keep label cardinality bounded
	}
	observability.Executions.WithLabelValues(label, observability.Outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("execution failed",
			slog.String("language", lang),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	s.logger.Debug("execution finished",
		slog.String("language", lang),
		slog.Int("exit_code", res.ExitCode),
		slog.Duration("duration", res.Duration),
	)
	s.usage.track(ctx, userID, model.ActionRun)

	return res.Text(), nil
}
