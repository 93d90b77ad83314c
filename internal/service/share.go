// Package service holds the business rules between the HTTP handlers and the
// storage and upstream adapters.
//
// Services accept plain values and return apperror kinds; they know nothing
// about HTTP. Every dependency is an interface injected by main, so tests run
// against hand-written fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/observability"
	"github.com/sakif/codeagentix/internal/repository"
)

// MaxTitleRunes caps a share title after trimming.
const MaxTitleRunes = 60

// ValidExpiryMinutes is the closed set of lifetimes a share may be given.
var ValidExpiryMinutes = []int{10, 30, 60, 1440, 10080}

// CreateShareInput is what a caller submits to share code.
type CreateShareInput struct {
	Code          string
	Language      string
	Title         string
	ExpiryMinutes int
}

// ShareCreated describes a freshly written share.
type ShareCreated struct {
	ShareID          string
	URL              string
	ExpiresAt        time.Time
	ExpiresAtDisplay string
}

// ShareLookup is the result of Read. Exactly one of Snippet and Redirect is set.
type ShareLookup struct {
	Snippet  *model.SharedSnippet
	Redirect bool
}

// ShareService creates, reads and deletes expiring shared snippets.
type ShareService struct {
	store   repository.ShareStore
	history repository.ShareHistoryRepository // nil disables per-user history
	usage   usageTracker
	baseURL string
	logger  *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewShareService builds the service. history and usage may be nil.
func NewShareService(
	store repository.ShareStore,
	history repository.ShareHistoryRepository,
	usage repository.UsageRepository,
	baseURL string,
	logger *slog.Logger,
) *ShareService {
	return &ShareService{
		store:   store,
		history: history,
		usage:   usageTracker{repo: usage, logger: logger},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

var titleCaser = cases.Title(language.English)

// Create validates the input and writes one expiring record.
//
// userID is empty for anonymous callers; when set, the share is also added to
// that user's history.
func (s *ShareService) Create(ctx context.Context, userID string, in CreateShareInput) (*ShareCreated, error) {
	ctx, span := otel.Tracer("service/share").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("share.language", in.Language)))
	defer span.End()

	if !slices.Contains(ValidExpiryMinutes, in.ExpiryMinutes) {
		return nil, apperror.ValidationFailed("expiryTime", "invalid expiry time")
	}
	if strings.TrimSpace(in.Code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}
	lang := model.NormalizeLanguage(in.Language)
	if lang == "" {
		return nil, apperror.ValidationFailed("language", "language is required")
	}
	if !model.IsSupportedLanguage(lang) {
		return nil, apperror.ValidationFailed("language", fmt.Sprintf("language %q is not supported", in.Language))
	}

	now := s.now().UTC().Truncate(time.Second)
	ttl := time.Duration(in.ExpiryMinutes) * time.Minute
	snippet := &model.SharedSnippet{
		ShareID:   lang + "-" + s.newID(),
		Code:      in.Code,
		Language:  lang,
		Title:     shareTitle(in.Title, lang),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	err := s.store.Put(ctx, snippet, ttl)
	observability.ShareOps.WithLabelValues("create", observability.Outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to store share",
			slog.String("share_id", snippet.ShareID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating share: %w", err)
	}

	s.logger.Info("share created",
		slog.String("share_id", snippet.ShareID),
		slog.Int("expiry_minutes", in.ExpiryMinutes),
	)

	if userID != "" && s.history != nil {
		rec := &model.ShareRecord{
			UserID:    userID,
			ShareID:   snippet.ShareID,
			Title:     snippet.Title,
			Language:  snippet.Language,
			ExpiresAt: snippet.ExpiresAt,
			CreatedAt: snippet.CreatedAt,
		}
		if err := s.history.Record(ctx, rec); err != nil {
			s.logger.Warn("failed to record share history",
				slog.String("share_id", snippet.ShareID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.usage.track(ctx, userID, model.ActionShare)

	return &ShareCreated{
		ShareID:          snippet.ShareID,
		URL:              s.baseURL + "/" + snippet.ShareID,
		ExpiresAt:        snippet.ExpiresAt,
		ExpiresAtDisplay: snippet.ExpiresAtDisplay(),
	}, nil
}

// shareTitle trims and truncates the title, defaulting to the language name.
func shareTitle(title, lang string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = titleCaser.String(lang)
	}
	if utf8.RuneCountInString(title) > MaxTitleRunes {
		title = string([]rune(title)[:MaxTitleRunes])
	}
	return title
}

// Read fetches a share. When callerID differs from shareID the caller is
// told to redirect and the store is not consulted.
func (s *ShareService) Read(ctx context.Context, shareID, callerID string) (*ShareLookup, error) {
	if callerID != shareID {
		return &ShareLookup{Redirect: true}, nil
	}

	ctx, span := otel.Tracer("service/share").Start(ctx, "Read",
		trace.WithAttributes(attribute.String("share.id", shareID)))
	defer span.End()

	if err := ParseShareID(shareID); err != nil {
		return nil, err
	}

	snippet, ttl, err := s.store.Get(ctx, shareID)
	observability.ShareOps.WithLabelValues("read", observability.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	// A record can still be visible for an instant after its deadline.
	if ttl <= 0 || !s.now().Before(snippet.ExpiresAt) {
		return nil, apperror.Expired("share", shareID)
	}

	return &ShareLookup{Snippet: snippet}, nil
}

// Delete removes a share. A second delete of the same id is a NotFound.
func (s *ShareService) Delete(ctx context.Context, userID, shareID string) error {
	if err := ParseShareID(shareID); err != nil {
		return err
	}

	err := s.store.Delete(ctx, shareID)
	observability.ShareOps.WithLabelValues("delete", observability.Outcome(err)).Inc()
	if err != nil {
		return err
	}

	s.logger.Info("share deleted", slog.String("share_id", shareID))

	if userID != "" && s.history != nil {
		if err := s.history.Forget(ctx, userID, shareID); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("failed to forget share history",
				slog.String("share_id", shareID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// ParseShareID checks that id has the form {language}-{uuid}.
func ParseShareID(id string) error {
	lang, rest, ok := strings.Cut(id, "-")
	if !ok || lang == "" || rest == "" {
		return apperror.ValidationFailed("shareId", "invalid shareId format")
	}
	if _, err := uuid.Parse(rest); err != nil {
		return apperror.ValidationFailed("shareId", "invalid shareId format")
	}
	return nil
}
