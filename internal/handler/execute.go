package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/auth"
	"github.com/sakif/codeagentix/internal/executor"
)

// Runner executes programs for real.
type Runner interface {
	Execute(ctx context.Context, userID string, req executor.ExecutionRequest) (string, error)
}

// ExecuteHandler serves POST /api/run.
type ExecuteHandler struct {
	runner Runner
	logger *slog.Logger
}

func NewExecuteHandler(runner Runner, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{runner: runner, logger: logger}
}

// runRequest is the editor's run payload. Older clients send stdin as userInput.
type runRequest struct {
	Code      string `json:"code"`
	Language  string `json:"language"`
	Stdin     string `json:"stdin"`
	UserInput string `json:"userInput"`
}

func (r runRequest) stdin() string {
	if r.Stdin != "" {
		return r.Stdin
	}
	return r.UserInput
}

// HandleRun runs the program and answers with its output as plain text.
func (h *ExecuteHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Code == "" {
		writeError(w, apperror.ValidationFailed("code", "code cannot be empty"))
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	out, err := h.runner.Execute(r.Context(), userID, executor.ExecutionRequest{
		Code:     req.Code,
		Language: req.Language,
		Stdin:    req.stdin(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		h.logger.Debug("failed to write run output", slog.String("error", err.Error()))
	}
}
