package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/auth"
	"github.com/sakif/codeagentix/internal/model"
)

// Account reads a signed-in user's own data.
type Account interface {
	Usage(ctx context.Context, userID string) (model.Usage, error)
	Shares(ctx context.Context, userID string, limit, offset int) ([]model.ShareRecord, error)
}

// AccountHandler serves /api/me.
type AccountHandler struct {
	account Account
	logger  *slog.Logger
}

func NewAccountHandler(account Account, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{account: account, logger: logger}
}

// HandleUsage serves GET /api/me/usage.
func (h *AccountHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	usage, err := h.account.Usage(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

// HandleShares serves GET /api/me/shares?limit=&offset=.
func (h *AccountHandler) HandleShares(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	// Invalid numbers fall back to the service defaults.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	shares, err := h.account.Shares(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}
