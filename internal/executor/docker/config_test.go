package docker

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_RuntimeFor(t *testing.T) {
	cfg := DefaultConfig()

	rt, ok := cfg.runtimeFor(" NODE ")
	assert.True(t, ok)
	assert.Equal(t, "node:20-alpine", rt.Image)
	assert.Equal(t, []string{"node", "-e"}, rt.Command)

	_, ok = cfg.runtimeFor("cpp")
	assert.False(t, ok, "compiled languages are not sandboxed locally")
}

func TestConfig_ImagesAreDistinct(t *testing.T) {
	images := DefaultConfig().images()
	sort.Strings(images)
	assert.Equal(t, []string{"node:20-alpine", "python:3.12-alpine", "ruby:3.4-alpine"}, images)
}

func TestSandboxSpec_IsIsolated(t *testing.T) {
	cfg := DefaultConfig()
	c, host := sandboxSpec("python:3.12-alpine", cfg)

	assert.Equal(t, "python:3.12-alpine", c.Image)
	assert.Equal(t, "nobody", c.User)
	assert.True(t, c.OpenStdin)
	assert.Equal(t, "none", string(host.NetworkMode))
	assert.True(t, host.ReadonlyRootfs)
	assert.Equal(t, cfg.MemoryLimit, host.Memory)
	assert.Equal(t, int64(500_000_000), host.NanoCPUs)
	assert.Contains(t, host.Tmpfs["/tmp"], "noexec")
}
