package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

const (
	createTimeout = 10 * time.Second
	removeTimeout = 5 * time.Second
	refillBackoff = time.Second
	refillIdle    = 100 * time.Millisecond
)

// sandboxSpec describes an idle sandbox: it sleeps until a program is exec'd
// into it, with no network, a read-only root and a small noexec /tmp.
func sandboxSpec(img string, cfg Config) (*container.Config, *container.HostConfig) {
	return &container.Config{
			Image:     img,
			Cmd:       []string{"sleep", "infinity"},
			OpenStdin: true,
			User:      "nobody",
		}, &container.HostConfig{
			NetworkMode: "none",
			Resources: container.Resources{
				Memory:   cfg.MemoryLimit,
				NanoCPUs: int64(cfg.CPULimit * 1e9),
			},
			ReadonlyRootfs: true,
			Tmpfs:          map[string]string{"/tmp": "rw,noexec,nosuid,size=16m"},
		}
}

// sandboxPool holds up to Config.PoolSize started sandboxes of one image.
// Each sandbox is handed out once and removed by the caller after the run.
type sandboxPool struct {
	cli    *client.Client
	image  string
	cfg    Config
	logger *slog.Logger

	ready    chan string
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newSandboxPool(cli *client.Client, img string, cfg Config, logger *slog.Logger) *sandboxPool {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}
	p := &sandboxPool{
		cli:    cli,
		image:  img,
		cfg:    cfg,
		logger: logger.With(slog.String("image", img)),
		ready:  make(chan string, size),
		stop:   make(chan struct{}),
	}

	p.logger.Info("warming sandbox pool", slog.Int("size", size))
	p.wg.Add(1)
	go p.refill()
	return p
}

// acquire blocks until a sandbox is ready, the pool closes, or ctx ends.
func (p *sandboxPool) acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.ready:
		return id, nil
	case <-p.stop:
		return "", fmt.Errorf("sandbox pool for %s is closed", p.image)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// close stops refilling and removes every idle sandbox. Safe to call twice.
func (p *sandboxPool) close() {
	p.stopOnce.Do(func() {
		p.logger.Info("closing sandbox pool")
		close(p.stop)
		p.wg.Wait()
		for {
			select {
			case id := <-p.ready:
				p.remove(id)
			default:
				return
			}
		}
	})
}

// refill tops the pool up whenever a sandbox is taken. Creation failures back
// off for a second so a missing daemon does not spin.
func (p *sandboxPool) refill() {
	defer p.wg.Done()

	for {
		wait := refillIdle
		if len(p.ready) < cap(p.ready) {
			id, err := p.create()
			switch {
			case err != nil:
				p.logger.Error("failed to create sandbox", slog.String("error", err.Error()))
				wait = refillBackoff
			default:
				select {
				case p.ready <- id:
					continue
				case <-p.stop:
					p.remove(id)
					return
				}
			}
		}

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-p.stop:
			t.Stop()
			return
		}
	}
}

func (p *sandboxPool) create() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), createTimeout)
	defer cancel()

	cfg, host := sandboxSpec(p.image, p.cfg)
	resp, err := p.cli.ContainerCreate(ctx, cfg, host, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("docker: create sandbox: %w", err)
	}
	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return "", fmt.Errorf("docker: start sandbox: %w", err)
	}
	return resp.ID, nil
}

func (p *sandboxPool) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()
	if err := p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		p.logger.Warn("failed to remove sandbox", slog.String("id", id), slog.String("error", err.Error()))
	}
}
