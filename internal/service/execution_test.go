package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/executor"
	"github.com/sakif/codeagentix/internal/model"
)

func TestExecute_ReturnsFlattenedText(t *testing.T) {
	exec := &fakeExecutor{result: &executor.ExecutionResult{ProgramOutput: "42\n"}}
	usage := newFakeUsage()
	svc := NewExecutionService(exec, usage, quietLogger())

	req := executor.ExecutionRequest{Code: "print(42)", Language: "python", Stdin: "in"}
	out, err := svc.Execute(context.Background(), "user-1", req)
	require.NoError(t, err)

	assert.Equal(t, "42\n", out)
	assert.Equal(t, req, exec.last)
	assert.Equal(t, int64(1), usage.count("user-1", model.ActionRun))
}

func TestExecute_NoOutput(t *testing.T) {
	svc := NewExecutionService(&fakeExecutor{result: &executor.ExecutionResult{}}, nil, quietLogger())

	out, err := svc.Execute(context.Background(), "", executor.ExecutionRequest{Code: "pass", Language: "python"})
	require.NoError(t, err)
	assert.Equal(t, executor.NoOutputMessage, out)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		lang     string
		execErr  error
		wantKind error
		wantCall bool
	}{
		{"missing language", "  ", nil, apperror.ErrValidation, false},
		{"unsupported language", "cobol", apperror.UnsupportedLanguage("cobol"), apperror.ErrUnsupportedLanguage, true},
		{"upstream failure", "go", apperror.ExecutionFailed("Execution Error: 502"), apperror.ErrExecution, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{err: tt.execErr}
			usage := newFakeUsage()
			svc := NewExecutionService(exec, usage, quietLogger())

			_, err := svc.Execute(context.Background(), "user-1", executor.ExecutionRequest{Code: "x", Language: tt.lang})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind))
			assert.Equal(t, tt.wantCall, exec.calls == 1)
			assert.LessOrEqual(t, exec.calls, 1, "executions are never retried")
			assert.Zero(t, usage.count("user-1", model.ActionRun))
		})
	}
}
