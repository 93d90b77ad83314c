package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/auth"
	"github.com/sakif/codeagentix/internal/llm"
	"github.com/sakif/codeagentix/internal/prompt"
	"github.com/sakif/codeagentix/internal/service"
)

// Assistant answers editor requests with model output.
type Assistant interface {
	Stream(ctx context.Context, req service.AssistRequest, emit llm.EmitFunc) error
	Complete(ctx context.Context, req service.AssistRequest) (string, error)
	StreamWeb(ctx context.Context, req service.WebGenerateRequest, emit llm.EmitFunc) error
	GenerateWeb(ctx context.Context, req service.WebGenerateRequest) (string, error)
	RefactorWeb(ctx context.Context, req service.WebRefactorRequest) (prompt.WebKind, string, error)
}

// AssistHandler serves every model-backed route.
type AssistHandler struct {
	assistant Assistant
	logger    *slog.Logger
}

func NewAssistHandler(assistant Assistant, logger *slog.Logger) *AssistHandler {
	return &AssistHandler{assistant: assistant, logger: logger}
}

// assistBody covers the fields of every code-assistance route.
type assistBody struct {
	Type               string `json:"type"`
	Language           string `json:"language"`
	Code               string `json:"code"`
	Output             string `json:"output"`
	ProblemDescription string `json:"problem_description"`
	Stdin              string `json:"stdin"`
	UserInput          string `json:"userInput"`
}

func (b assistBody) request(userID string, task prompt.TaskType) service.AssistRequest {
	stdin := b.Stdin
	if stdin == "" {
		stdin = b.UserInput
	}
	return service.AssistRequest{
		UserID:      userID,
		Task:        string(task),
		Language:    b.Language,
		Code:        b.Code,
		Output:      b.Output,
		Description: b.ProblemDescription,
		Stdin:       stdin,
	}
}

// streaming reports whether the caller wants chunked output. ?stream=false
// selects the one-shot form.
func streaming(r *http.Request) bool {
	v := r.URL.Query().Get("stream")
	if v == "" {
		return true
	}
	on, err := strconv.ParseBool(v)
	return err != nil || on
}

// run answers req either streamed or in one piece.
func (h *AssistHandler) run(w http.ResponseWriter, r *http.Request, req service.AssistRequest) {
	if !streaming(r) {
		out, err := h.assistant.Complete(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeText(w, out)
		return
	}

	sw := newStreamWriter(w, h.logger)
	sw.Finish(r.Context(), h.assistant.Stream(r.Context(), req, sw.Emit))
}

func (h *AssistHandler) fixedTask(task prompt.TaskType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body assistBody
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, err)
			return
		}
		userID, _ := auth.UserIDFromContext(r.Context())
		h.run(w, r, body.request(userID, task))
	}
}

// HandleGenerate serves POST /api/generate.
func (h *AssistHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	h.fixedTask(prompt.TaskGenerate)(w, r)
}

// HandleRefactor serves POST /api/refactor.
func (h *AssistHandler) HandleRefactor(w http.ResponseWriter, r *http.Request) {
	h.fixedTask(prompt.TaskRefactor)(w, r)
}

// HandleSimulate serves POST /api/simulate.
func (h *AssistHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	h.fixedTask(prompt.TaskSimulate)(w, r)
}

// HandleAssist serves POST /api/assist for the review family. An empty type
// means explain.
func (h *AssistHandler) HandleAssist(w http.ResponseWriter, r *http.Request) {
	var body assistBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	task := prompt.TaskExplain
	if strings.TrimSpace(body.Type) != "" {
		t, err := prompt.ParseTaskType(body.Type)
		if err != nil {
			writeError(w, err)
			return
		}
		if !t.IsReview() {
			writeError(w, apperror.ValidationFailed("type", "type must be one of explain, debug, optimize, docs, complexity"))
			return
		}
		task = t
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	h.run(w, r, body.request(userID, task))
}

type webGenerateBody struct {
	Type        string `json:"type"`
	Prompt      string `json:"prompt"`
	HTMLContent string `json:"htmlContent"`
	CSSContent  string `json:"cssContent"`
}

// HandleWebGenerate serves POST /api/web/generate.
func (h *AssistHandler) HandleWebGenerate(w http.ResponseWriter, r *http.Request) {
	var body webGenerateBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	req := service.WebGenerateRequest{
		UserID: userID,
		Kind:   body.Type,
		Prompt: body.Prompt,
		HTML:   body.HTMLContent,
		CSS:    body.CSSContent,
	}

	if !streaming(r) {
		out, err := h.assistant.GenerateWeb(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeText(w, out)
		return
	}

	sw := newStreamWriter(w, h.logger)
	sw.Finish(r.Context(), h.assistant.StreamWeb(r.Context(), req, sw.Emit))
}

type webRefactorBody struct {
	Type               string `json:"type"`
	HTML               string `json:"html"`
	CSS                string `json:"css"`
	JS                 string `json:"js"`
	ProblemDescription string `json:"problem_description"`
}

// HandleWebRefactor serves POST /api/web/refactor and answers {"<type>": code}.
func (h *AssistHandler) HandleWebRefactor(w http.ResponseWriter, r *http.Request) {
	var body webRefactorBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	kind, code, err := h.assistant.RefactorWeb(r.Context(), service.WebRefactorRequest{
		UserID:             userID,
		Kind:               body.Type,
		HTML:               body.HTML,
		CSS:                body.CSS,
		JS:                 body.JS,
		ProblemDescription: body.ProblemDescription,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{string(kind): code})
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
