package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// AccountService exposes a signed-in user's counters and share history.
type AccountService struct {
	history repository.ShareHistoryRepository
	usage   repository.UsageRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewAccountService(history repository.ShareHistoryRepository, usage repository.UsageRepository, logger *slog.Logger) *AccountService {
	return &AccountService{history: history, usage: usage, logger: logger, now: time.Now}
}

// Usage returns every counter for userID. Actions never performed read as zero.
func (s *AccountService) Usage(ctx context.Context, userID string) (model.Usage, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	counts, err := s.usage.Usage(ctx, userID)
	if err != nil {
		s.logger.Error("failed to read usage", slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("reading usage: %w", err)
	}

	out := model.Usage{}
	for _, a := range []model.Action{
		model.ActionRun, model.ActionSimulate, model.ActionGenerate, model.ActionRefactor,
		model.ActionAssist, model.ActionWeb, model.ActionShare,
	} {
		out[a] = counts[a]
	}
	return out, nil
}

// Shares lists userID's shares that have not expired yet, newest first.
func (s *AccountService) Shares(ctx context.Context, userID string, limit, offset int) ([]model.ShareRecord, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.history.ListActive(ctx, userID, s.now().UTC(), repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list shares", slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	if records == nil {
		records = []model.ShareRecord{}
	}
	return records, nil
}
