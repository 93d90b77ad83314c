package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/executor"
	"github.com/sakif/codeagentix/internal/llm"
	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/repository"
)

// Hand-written fakes. Each records what it was asked so tests can assert on
// side effects as well as results.

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- share store ---

type fakeShareStore struct {
	mu      sync.Mutex
	records map[string]*model.SharedSnippet
	ttls    map[string]time.Duration
	puts    int
	gets    int
	putErr  error
	getTTL  *time.Duration // overrides the remaining TTL Get reports
}

func newFakeShareStore() *fakeShareStore {
	return &fakeShareStore{
		records: map[string]*model.SharedSnippet{},
		ttls:    map[string]time.Duration{},
	}
}

func (f *fakeShareStore) Put(_ context.Context, s *model.SharedSnippet, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	if _, ok := f.records[s.ShareID]; ok {
		return apperror.Conflict("share", s.ShareID)
	}
	cp := *s
	f.records[s.ShareID] = &cp
	f.ttls[s.ShareID] = ttl
	return nil
}

func (f *fakeShareStore) Get(_ context.Context, id string) (*model.SharedSnippet, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	s, ok := f.records[id]
	if !ok {
		return nil, 0, apperror.NotFound("share", id)
	}
	ttl := f.ttls[id]
	if f.getTTL != nil {
		ttl = *f.getTTL
	}
	cp := *s
	return &cp, ttl, nil
}

func (f *fakeShareStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return apperror.NotFound("share", id)
	}
	delete(f.records, id)
	return nil
}

func (f *fakeShareStore) Ping(context.Context) error { return nil }

var _ repository.ShareStore = (*fakeShareStore)(nil)

// --- history ---

type fakeHistory struct {
	records   []model.ShareRecord
	forgotten []string
	recordErr error
	lastNow   time.Time
	lastOpts  repository.ListOptions
}

func (f *fakeHistory) Record(_ context.Context, rec *model.ShareRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeHistory) ListActive(_ context.Context, userID string, now time.Time, opts repository.ListOptions) ([]model.ShareRecord, error) {
	f.lastNow, f.lastOpts = now, opts
	var out []model.ShareRecord
	for _, r := range f.records {
		if r.UserID == userID && r.ExpiresAt.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeHistory) Forget(_ context.Context, userID, shareID string) error {
	f.forgotten = append(f.forgotten, userID+"/"+shareID)
	return nil
}

var _ repository.ShareHistoryRepository = (*fakeHistory)(nil)

// --- usage ---

type fakeUsage struct {
	mu     sync.Mutex
	counts map[string]model.Usage
	err    error
}

func newFakeUsage() *fakeUsage { return &fakeUsage{counts: map[string]model.Usage{}} }

func (f *fakeUsage) Increment(_ context.Context, userID string, action model.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.counts[userID] == nil {
		f.counts[userID] = model.Usage{}
	}
	f.counts[userID][action]++
	return nil
}

func (f *fakeUsage) Usage(_ context.Context, userID string) (model.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := model.Usage{}
	for k, v := range f.counts[userID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeUsage) count(userID string, action model.Action) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[userID][action]
}

var _ repository.UsageRepository = (*fakeUsage)(nil)

// --- executor ---

type fakeExecutor struct {
	calls  int
	result *executor.ExecutionResult
	err    error
	last   executor.ExecutionRequest
}

func (f *fakeExecutor) Execute(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// --- llm ---

// scriptedModel is how one model behaves for the fake client.
type scriptedModel struct {
	answer      string   // returned by Complete
	chunks      []string // yielded by Stream
	failAfter   int      // Stream fails after this many chunks when streamErr is set
	streamErr   error
	openErr     error // Stream fails before yielding anything
	completeErr error
}

type call struct {
	method string
	model  string
	prompt string
}

type fakeLLM struct {
	mu     sync.Mutex
	models map[string]scriptedModel
	calls  []call
}

func newFakeLLM(models map[string]scriptedModel) *fakeLLM {
	return &fakeLLM{models: models}
}

func (f *fakeLLM) record(method, modelName, prompt string) scriptedModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method, modelName, prompt})
	return f.models[modelName]
}

func (f *fakeLLM) Complete(_ context.Context, modelName, prompt string) (string, error) {
	m := f.record("complete", modelName, prompt)
	if m.completeErr != nil {
		return "", m.completeErr
	}
	return m.answer, nil
}

func (f *fakeLLM) Stream(ctx context.Context, modelName, prompt string) (llm.Stream, error) {
	m := f.record("stream", modelName, prompt)
	if m.openErr != nil {
		return nil, m.openErr
	}
	return &fakeStream{ctx: ctx, m: m}, nil
}

func (f *fakeLLM) modelsCalled(method string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c.model)
		}
	}
	return out
}

type fakeStream struct {
	ctx context.Context
	m   scriptedModel
	i   int
}

func (s *fakeStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.m.streamErr != nil && s.i >= s.m.failAfter {
		return "", s.m.streamErr
	}
	if s.i >= len(s.m.chunks) {
		return "", io.EOF
	}
	c := s.m.chunks[s.i]
	s.i++
	return c, nil
}

func (s *fakeStream) Close() error { return nil }

var errModel = errors.New("503 no capacity")
