package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/llm"
	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/observability"
	"github.com/sakif/codeagentix/internal/prompt"
	"github.com/sakif/codeagentix/internal/repository"
)

// Models names the gateway models used by the assistant.
type Models struct {
	Primary  string // drafts and every single-pass task
	Refiner  string // streams the refined review answer
	Fallback string // second refiner, tried once
}

// AssistRequest is one editor request for model help.
type AssistRequest struct {
	UserID      string
	Task        string
	Language    string
	Code        string
	Output      string
	Description string
	Stdin       string
}

// WebGenerateRequest asks for one pane of an HTML/CSS/JS project.
type WebGenerateRequest struct {
	UserID string
	Kind   string
	Prompt string
	HTML   string
	CSS    string
}

// WebRefactorRequest asks for a rewrite of one pane.
type WebRefactorRequest struct {
	UserID             string
	Kind               string
	HTML               string
	CSS                string
	JS                 string
	ProblemDescription string
}

// AssistantService builds prompts and relays model answers.
type AssistantService struct {
	client llm.Client
	models Models
	usage  usageTracker
	logger *slog.Logger
	now    func() time.Time
}

func NewAssistantService(client llm.Client, models Models, usage repository.UsageRepository, logger *slog.Logger) *AssistantService {
	return &AssistantService{
		client: client,
		models: models,
		usage:  usageTracker{repo: usage, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// reviewState is a step of the draft-then-refine pipeline.
type reviewState int

const (
	stateDraft reviewState = iota
	stateRefine
	stateFallback
	stateDone
	stateFailed
)

func (s reviewState) String() string {
	switch s {
	case stateDraft:
		return "draft"
	case stateRefine:
		return "refine"
	case stateFallback:
		return "fallback"
	case stateDone:
		return "done"
	default:
		return "failed"
	}
}

type plan struct {
	task   prompt.TaskType
	text   string
	code   string
	action model.Action
}

func actionFor(task prompt.TaskType) model.Action {
	switch task {
	case prompt.TaskGenerate:
		return model.ActionGenerate
	case prompt.TaskRefactor:
		return model.ActionRefactor
	case prompt.TaskSimulate:
		return model.ActionSimulate
	default:
		return model.ActionAssist
	}
}

// prepare validates req and renders its prompt.
func (s *AssistantService) prepare(req AssistRequest) (*plan, error) {
	task, err := prompt.ParseTaskType(req.Task)
	if err != nil {
		return nil, err
	}

	lang := model.NormalizeLanguage(req.Language)
	if lang == "" {
		return nil, apperror.ValidationFailed("language", "language is required")
	}
	if !model.IsSupportedLanguage(lang) {
		return nil, apperror.UnsupportedLanguage(req.Language)
	}

	if task == prompt.TaskGenerate {
		if strings.TrimSpace(req.Description) == "" {
			return nil, apperror.ValidationFailed("problemDescription", "problem description is required")
		}
	} else if strings.TrimSpace(req.Code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}

	text, err := prompt.Build(task, prompt.Input{
		Language:    lang,
		Code:        req.Code,
		Output:      req.Output,
		Description: strings.TrimSpace(req.Description),
		Stdin:       req.Stdin,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	return &plan{task: task, text: text, code: req.Code, action: actionFor(task)}, nil
}

// Stream relays the answer for req to emit chunk by chunk and returns nil at
// end of stream. Review tasks go through the draft-then-refine pipeline.
func (s *AssistantService) Stream(ctx context.Context, req AssistRequest, emit llm.EmitFunc) error {
	p, err := s.prepare(req)
	if err != nil {
		return err
	}

	ctx, span := otel.Tracer("service/assistant").Start(ctx, "Stream",
		trace.WithAttributes(attribute.String("assist.task", string(p.task))))
	defer span.End()

	if p.task.IsReview() {
		err = s.review(ctx, p, emit)
	} else {
		err = s.relay(ctx, p.text, emit)
	}
	s.finish(ctx, span, string(p.task), req.UserID, p.action, err)
	return err
}

// Complete returns the whole answer for req in one piece.
func (s *AssistantService) Complete(ctx context.Context, req AssistRequest) (string, error) {
	p, err := s.prepare(req)
	if err != nil {
		return "", err
	}

	ctx, span := otel.Tracer("service/assistant").Start(ctx, "Complete",
		trace.WithAttributes(attribute.String("assist.task", string(p.task))))
	defer span.End()

	var b strings.Builder
	collect := func(chunk string) error {
		b.WriteString(chunk)
		return nil
	}

	if p.task.IsReview() {
		err = s.review(ctx, p, collect)
	} else {
		var answer string
		answer, err = s.complete(ctx, s.models.Primary, p.text)
		err = s.upstreamError(ctx, err)
		b.WriteString(answer)
	}
	s.finish(ctx, span, string(p.task), req.UserID, p.action, err)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// review runs Draft -> Refine(primary) -> Refine(fallback) -> Done | Failed.
//
// The fallback refiner is tried only when the first refiner failed before any
// chunk reached emit and the caller is still there; bytes already sent cannot
// be taken back.
func (s *AssistantService) review(ctx context.Context, p *plan, emit llm.EmitFunc) error {
	var (
		state      = stateDraft
		draft      string
		refinement string
		lastErr    error
	)

	for {
		s.logger.Debug("review step", slog.String("task", string(p.task)), slog.String("state", state.String()))

		switch state {
		case stateDraft:
			answer, err := s.complete(ctx, s.models.Primary, p.text)
			if err != nil {
				lastErr = err
				state = stateFailed
				continue
			}
			draft = answer
			refinement = prompt.Refinement(draft, p.code)
			state = stateRefine

		case stateRefine:
			n, err := llm.Relay(ctx, s.client, s.models.Refiner, refinement, emit)
			if err == nil {
				state = stateDone
				continue
			}
			lastErr = err
			if n > 0 || llm.IsSinkError(err) || ctx.Err() != nil {
				state = stateFailed
				continue
			}
			s.logger.Warn("refiner failed, trying fallback",
				slog.String("model", s.models.Refiner),
				slog.String("error", err.Error()),
			)
			observability.RefinerFallbacks.Inc()
			state = stateFallback

		case stateFallback:
			_, err := llm.Relay(ctx, s.client, s.models.Fallback, refinement, emit)
			if err == nil {
				state = stateDone
				continue
			}
			lastErr = err
			state = stateFailed

		case stateDone:
			return nil

		case stateFailed:
			return s.upstreamError(ctx, lastErr)
		}
	}
}

// relay streams a single-pass prompt from the primary model.
func (s *AssistantService) relay(ctx context.Context, text string, emit llm.EmitFunc) error {
	if _, err := llm.Relay(ctx, s.client, s.models.Primary, text, emit); err != nil {
		return s.upstreamError(ctx, err)
	}
	return nil
}

func (s *AssistantService) complete(ctx context.Context, modelName, text string) (string, error) {
	answer, err := s.client.Complete(ctx, modelName, text)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// upstreamError classifies a pipeline failure. Caller-side failures pass
// through untouched so the handler can tell them apart from model failures.
func (s *AssistantService) upstreamError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if llm.IsSinkError(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Upstream(err.Error())
}

func (s *AssistantService) finish(ctx context.Context, span trace.Span, task, userID string, action model.Action, err error) {
	state := stateDone
	if err != nil {
		state = stateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !llm.IsSinkError(err) && ctx.Err() == nil {
			s.logger.Error("assistant request failed",
				slog.String("task", task),
				slog.String("error", err.Error()),
			)
		}
	}
	observability.AssistRuns.WithLabelValues(task, state.String()).Inc()
	if err == nil {
		s.usage.track(ctx, userID, action)
	}
}

func (s *AssistantService) webPrompt(req WebGenerateRequest) (prompt.WebKind, string, error) {
	kind, err := prompt.ParseWebKind(req.Kind)
	if err != nil {
		return "", "", err
	}
	description := strings.TrimSpace(req.Prompt)
	if description == "" {
		return "", "", apperror.ValidationFailed("prompt", "project description is required")
	}
	return kind, prompt.WebGenerate(kind, description, prompt.WebSources{HTML: req.HTML, CSS: req.CSS}), nil
}

// StreamWeb streams generated code for one pane of a web project.
func (s *AssistantService) StreamWeb(ctx context.Context, req WebGenerateRequest, emit llm.EmitFunc) error {
	kind, text, err := s.webPrompt(req)
	if err != nil {
		return err
	}

	ctx, span := otel.Tracer("service/assistant").Start(ctx, "StreamWeb",
		trace.WithAttributes(attribute.String("web.kind", string(kind))))
	defer span.End()

	err = s.relay(ctx, text, emit)
	s.finish(ctx, span, "web-"+string(kind), req.UserID, model.ActionWeb, err)
	return err
}

// GenerateWeb is the one-shot form of StreamWeb.
func (s *AssistantService) GenerateWeb(ctx context.Context, req WebGenerateRequest) (string, error) {
	kind, text, err := s.webPrompt(req)
	if err != nil {
		return "", err
	}

	ctx, span := otel.Tracer("service/assistant").Start(ctx, "GenerateWeb",
		trace.WithAttributes(attribute.String("web.kind", string(kind))))
	defer span.End()

	answer, err := s.complete(ctx, s.models.Primary, text)
	err = s.upstreamError(ctx, err)
	s.finish(ctx, span, "web-"+string(kind), req.UserID, model.ActionWeb, err)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// RefactorWeb rewrites one pane and returns only the code of the answer.
// CSS needs the HTML it styles; JS needs both HTML and CSS.
func (s *AssistantService) RefactorWeb(ctx context.Context, req WebRefactorRequest) (prompt.WebKind, string, error) {
	kind, err := prompt.ParseWebKind(req.Kind)
	if err != nil {
		return "", "", err
	}

	switch kind {
	case prompt.WebHTML:
		if strings.TrimSpace(req.HTML) == "" {
			return "", "", apperror.ValidationFailed("html", "HTML content is required for HTML refactoring")
		}
	case prompt.WebCSS:
		if strings.TrimSpace(req.HTML) == "" {
			return "", "", apperror.ValidationFailed("html", "HTML content is required for CSS refactoring")
		}
	case prompt.WebJS:
		if strings.TrimSpace(req.HTML) == "" || strings.TrimSpace(req.CSS) == "" {
			return "", "", apperror.ValidationFailed("css", "both HTML and CSS content are required for JS refactoring")
		}
	}

	ctx, span := otel.Tracer("service/assistant").Start(ctx, "RefactorWeb",
		trace.WithAttributes(attribute.String("web.kind", string(kind))))
	defer span.End()

	problem := strings.ToLower(strings.TrimSpace(req.ProblemDescription))
	text := prompt.WebRefactor(kind, problem, prompt.WebSources{HTML: req.HTML, CSS: req.CSS, JS: req.JS})

	answer, err := s.complete(ctx, s.models.Primary, text)
	err = s.upstreamError(ctx, err)
	s.finish(ctx, span, "web-refactor-"+string(kind), req.UserID, model.ActionWeb, err)
	if err != nil {
		return "", "", err
	}
	return kind, prompt.ExtractCode(answer), nil
}
