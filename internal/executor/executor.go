// Package executor defines the contract for running user code somewhere else.
//
// The service never compiles or interprets anything itself. A backend either
// forwards the program to a remote compile service (wandbox) or to a local
// container sandbox (docker); both report results in the same shape.
package executor

import (
	"context"
	"strings"
	"time"
)

// NoOutputMessage is returned when a run produced no text at all.
const NoOutputMessage = "--- Program execution finished (no output) ---"

// ExecutionRequest is one program to run.
type ExecutionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Stdin    string `json:"stdin"`
}

// ExecutionResult carries the raw diagnostic and output channels of a run.
//
// The Message fields hold the merged stream a backend reports when it can
// (stdout and stderr interleaved in order). Backends that cannot merge leave
// them empty and fill the split fields instead.
type ExecutionResult struct {
	CompilerMessage string        `json:"compilerMessage,omitempty"`
	CompilerError   string        `json:"compilerError,omitempty"`
	ProgramMessage  string        `json:"programMessage,omitempty"`
	ProgramOutput   string        `json:"programOutput,omitempty"`
	ProgramError    string        `json:"programError,omitempty"`
	ExitCode        int           `json:"exitCode"`
	Duration        time.Duration `json:"duration"`
}

// Text flattens the result into the single blob shown in the output panel.
//
// Precedence is fixed: compiler message (or, failing that, compiler error),
// then program message (or program output), then the runtime error on its own
// line when it was not already part of the program message.
func (r *ExecutionResult) Text() string {
	var b strings.Builder

	if r.CompilerMessage != "" {
		b.WriteString(r.CompilerMessage)
	} else if r.CompilerError != "" {
		b.WriteString(r.CompilerError)
	}

	if r.ProgramMessage != "" {
		b.WriteString(r.ProgramMessage)
	} else if r.ProgramOutput != "" {
		b.WriteString(r.ProgramOutput)
	}

	if r.ProgramError != "" && r.ProgramMessage == "" {
		b.WriteString("\n")
		b.WriteString(r.ProgramError)
	}

	if b.Len() == 0 {
		return NoOutputMessage
	}
	return b.String()
}

// Executor runs a program and reports what it printed.
//
// Implementations return apperror.ErrUnsupportedLanguage before contacting
// anything when the language has no mapping, and apperror.ErrExecution when
// the backend could not be reached.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
