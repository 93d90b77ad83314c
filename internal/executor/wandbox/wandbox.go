// Package wandbox runs code on the public Wandbox compile service.
//
// HOW A RUN WORKS:
// The source is posted once to /api/compile.json together with a compiler id
// and stdin. Wandbox compiles, runs, and answers with separate fields for
// compiler diagnostics and program output. Nothing is retried: a transport
// failure is reported to the caller verbatim.
//
// The "codes" entry names the entry file. Java needs it because the public
// class has to live in Main.java; the other languages simply ignore it.
package wandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/executor"
)

// DefaultURL is the public compile endpoint.
const DefaultURL = "https://wandbox.org/api/compile.json"

// Runtime pairs a Wandbox compiler id with the file name the program is saved as.
type Runtime struct {
	Compiler string
	File     string
}

// runtimes maps lower-cased language ids to Wandbox compilers.
var runtimes = map[string]Runtime{
	"python":     {Compiler: "cpython-3.14.0", File: "prog.py"},
	"python3":    {Compiler: "cpython-3.14.0", File: "prog.py"},
	"javascript": {Compiler: "nodejs-20.17.0", File: "prog.js"},
	"node":       {Compiler: "nodejs-20.17.0", File: "prog.js"},
	"cpp":        {Compiler: "gcc-head", File: "prog.cpp"},
	"c":          {Compiler: "gcc-head-c", File: "prog.c"},
	"java":       {Compiler: "openjdk-jdk-22+36", File: "Main.java"},
	"rust":       {Compiler: "rust-1.82.0", File: "prog.rs"},
	"go":         {Compiler: "go-1.23.2", File: "prog.go"},
	"ruby":       {Compiler: "ruby-3.4.1", File: "prog.rb"},
	"swift":      {Compiler: "swift-6.0.1", File: "prog.swift"},
	"typescript": {Compiler: "typescript-5.6.2", File: "prog.ts"},
	"kotlin":     {Compiler: "kotlin-1.9.24", File: "prog.kt"},
}

// Lookup returns the runtime for language, matching case-insensitively.
func Lookup(language string) (Runtime, bool) {
	rt, ok := runtimes[strings.ToLower(strings.TrimSpace(language))]
	return rt, ok
}

// Config holds the client settings.
type Config struct {
	// URL of the compile endpoint. Defaults to DefaultURL.
	URL string
	// Timeout bounds one HTTP round trip. Zero means the request context is the only bound.
	Timeout time.Duration
}

// Executor implements executor.Executor against Wandbox.
type Executor struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

var _ executor.Executor = (*Executor)(nil)

// New builds a Wandbox executor. A nil httpClient gets a fresh client with
// cfg.Timeout whose transport forwards the caller's trace context.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Executor {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Executor{
		url:    cfg.URL,
		client: httpClient,
		logger: logger,
	}
}

type sourceFile struct {
	File string `json:"file"`
	Code string `json:"code"`
}

type compileRequest struct {
	Compiler string       `json:"compiler"`
	Code     string       `json:"code"`
	Stdin    string       `json:"stdin"`
	Save     bool         `json:"save"`
	Codes    []sourceFile `json:"codes"`
}

type compileResponse struct {
	Status          string `json:"status"`
	Signal          string `json:"signal"`
	CompilerOutput  string `json:"compiler_output"`
	CompilerError   string `json:"compiler_error"`
	CompilerMessage string `json:"compiler_message"`
	ProgramOutput   string `json:"program_output"`
	ProgramError    string `json:"program_error"`
	ProgramMessage  string `json:"program_message"`
}

// Execute submits the program and maps the response onto an ExecutionResult.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	rt, ok := Lookup(req.Language)
	if !ok {
		return nil, apperror.UnsupportedLanguage(req.Language)
	}

	body, err := json.Marshal(compileRequest{
		Compiler: rt.Compiler,
		Code:     req.Code,
		Stdin:    req.Stdin,
		Save:     false,
		Codes:    []sourceFile{{File: rt.File, Code: req.Code}},
	})
	if err != nil {
		return nil, fmt.Errorf("wandbox: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wandbox: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	e.logger.Info("submitting program to wandbox",
		slog.String("language", req.Language),
		slog.String("compiler", rt.Compiler),
	)

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, apperror.ExecutionFailed(fmt.Sprintf("Execution Error: %s", err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.ExecutionFailed(fmt.Sprintf("Execution Error: reading response: %s", err.Error()))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.ExecutionFailed(fmt.Sprintf("Execution Error: wandbox returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var out compileResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperror.ExecutionFailed(fmt.Sprintf("Execution Error: decoding response: %s", err.Error()))
	}

	return &executor.ExecutionResult{
		CompilerMessage: out.CompilerMessage,
		CompilerError:   out.CompilerError,
		ProgramMessage:  out.ProgramMessage,
		ProgramOutput:   out.ProgramOutput,
		ProgramError:    out.ProgramError,
		ExitCode:        exitCode(out.Status),
		Duration:        time.Since(start),
	}, nil
}

// exitCode parses Wandbox's string status. Killed programs report no status.
func exitCode(status string) int {
	code, err := strconv.Atoi(strings.TrimSpace(status))
	if err != nil {
		return -1
	}
	return code
}
