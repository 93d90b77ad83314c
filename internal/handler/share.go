package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/auth"
	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/service"
)

// ShareIDHeader carries the id the client believes it is opening.
const ShareIDHeader = "X-Share-Id"

// Sharer manages expiring shared snippets.
type Sharer interface {
	Create(ctx context.Context, userID string, in service.CreateShareInput) (*service.ShareCreated, error)
	Read(ctx context.Context, shareID, callerID string) (*service.ShareLookup, error)
	Delete(ctx context.Context, userID, shareID string) error
}

// ShareHandler serves /api/shares.
type ShareHandler struct {
	shares  Sharer
	baseURL string
	logger  *slog.Logger
}

func NewShareHandler(shares Sharer, baseURL string, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{shares: shares, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// minutes accepts an expiry as a JSON number or a numeric string, since
// form radio buttons post "30".
type minutes int

func (m *minutes) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*m = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return apperror.ValidationFailed("expiryTime", "invalid expiry time")
	}
	*m = minutes(n)
	return nil
}

type createShareBody struct {
	Code       string  `json:"code"`
	Language   string  `json:"language"`
	Title      string  `json:"title"`
	ExpiryTime minutes `json:"expiryTime"`
}

// CreateShareResponse is the body of a successful POST /api/shares.
type CreateShareResponse struct {
	Message    string `json:"message"`
	FileURL    string `json:"fileUrl"`
	ShareID    string `json:"shareId"`
	ExpiryTime string `json:"expiry_time"`
}

// ShareResponse is the body of GET /api/shares/{shareId}.
type ShareResponse struct {
	*model.SharedSnippet
	ExpiryTime string `json:"expiry_time"`
}

// HandleCreate serves POST /api/shares.
func (h *ShareHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body createShareBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	out, err := h.shares.Create(r.Context(), userID, service.CreateShareInput{
		Code:          body.Code,
		Language:      body.Language,
		Title:         body.Title,
		ExpiryMinutes: int(body.ExpiryTime),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateShareResponse{
		Message:    "Code uploaded successfully",
		FileURL:    out.URL,
		ShareID:    out.ShareID,
		ExpiryTime: out.ExpiresAtDisplay,
	})
}

// HandleGet serves GET /api/shares/{shareId}. A request whose X-Share-Id
// header does not name the same share is redirected to the share page.
func (h *ShareHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareId")

	got, err := h.shares.Read(r.Context(), shareID, r.Header.Get(ShareIDHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	if got.Redirect {
		http.Redirect(w, r, h.baseURL+"/"+shareID, http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, ShareResponse{
		SharedSnippet: got.Snippet,
		ExpiryTime:    got.Snippet.ExpiresAtDisplay(),
	})
}

// HandleDelete serves DELETE /api/shares/{shareId}.
func (h *ShareHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.shares.Delete(r.Context(), userID, chi.URLParam(r, "shareId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "File deleted successfully"})
}
