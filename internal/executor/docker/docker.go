// Package docker runs interpreted programs in throwaway local containers.
//
// It is the self-hosted alternative to the remote compile service: same
// executor.Executor contract, no network inside the sandbox, a hard time limit
// and one fresh container per run taken from a pre-warmed pool.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/executor"
)

// timeoutExitCode mirrors the exit status of coreutils timeout(1).
const timeoutExitCode = 124

// Executor implements the executor.Executor interface using Docker.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pools  map[string]*sandboxPool // keyed by image
}

var _ executor.Executor = (*Executor)(nil)

// New connects to the Docker daemon, pulls every configured image and starts
// one container pool per image.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	exec := &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
		pools:  make(map[string]*sandboxPool),
	}

	for _, img := range cfg.images() {
		if err := pullImage(ctx, cli, img, logger); err != nil {
			exec.Close()
			return nil, err
		}
		exec.pools[img] = newSandboxPool(cli, img, cfg, logger)
	}

	return exec, nil
}

func pullImage(ctx context.Context, cli *client.Client, img string, logger *slog.Logger) error {
	logger.Info("ensuring docker image is available", slog.String("image", img))
	reader, err := cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, err)
	}
	defer reader.Close()
	// The pull only completes once the progress stream is drained.
	_, _ = io.Copy(io.Discard, reader)
	logger.Info("docker image is ready", slog.String("image", img))
	return nil
}

// Close shuts down every pool and the docker client.
func (e *Executor) Close() error {
	for _, p := range e.pools {
		p.close()
	}
	return e.cli.Close()
}

// Execute runs the program in a pre-warmed container of the language's image.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	rt, ok := e.config.runtimeFor(req.Language)
	if !ok {
		return nil, apperror.UnsupportedLanguage(req.Language)
	}
	pool, ok := e.pools[rt.Image]
	if !ok {
		return nil, apperror.UnsupportedLanguage(req.Language)
	}

	start := time.Now()

	containerID, err := pool.acquire(ctx)
	if err != nil {
		return nil, apperror.ExecutionFailed(fmt.Sprintf("Execution Error: no sandbox available: %s", err.Error()))
	}

	// Containers are single-use: whatever the program did to it is discarded.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := e.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true})
		if err != nil {
			e.logger.Error("failed to remove container", slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	executeCtx, executeCancel := context.WithTimeout(ctx, e.config.Timeout)
	defer executeCancel()

	cmd := append(append([]string{}, rt.Command...), req.Code)
	execResp, err := e.cli.ContainerExecCreate(executeCtx, containerID, container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
	})
	if err != nil {
		return nil, apperror.ExecutionFailed(fmt.Sprintf("Execution Error: creating exec: %s", err.Error()))
	}

	attachResp, err := e.cli.ContainerExecAttach(executeCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, apperror.ExecutionFailed(fmt.Sprintf("Execution Error: attaching exec: %s", err.Error()))
	}
	defer attachResp.Close()

	// Feed stdin and close the write side so programs reading to EOF terminate.
	if req.Stdin != "" {
		if _, err := io.WriteString(attachResp.Conn, req.Stdin); err != nil {
			e.logger.Warn("failed to write stdin", slog.String("error", err.Error()))
		}
	}
	if err := attachResp.CloseWrite(); err != nil {
		e.logger.Debug("closing stdin", slog.String("error", err.Error()))
	}

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		// stdcopy demultiplexes the single attach stream into stdout and stderr.
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	exitCode := 0
	select {
	case <-done:
		inspectResp, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
		if err == nil {
			exitCode = inspectResp.ExitCode
		}
	case <-executeCtx.Done():
		// Closing the hijacked connection unblocks StdCopy before the buffers are read.
		attachResp.Close()
		<-done
		exitCode = timeoutExitCode
		stderr.WriteString("\nExecution timed out.\n")
	}

	return &executor.ExecutionResult{
		ProgramOutput: stdout.String(),
		ProgramError:  stderr.String(),
		ExitCode:      exitCode,
		Duration:      time.Since(start),
	}, nil
}
