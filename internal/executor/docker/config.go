package docker

import (
	"strings"
	"time"
)

// Runtime describes how one language runs inside a container.
// The program source is appended to Command as its final argument, so every
// runtime here must be an interpreter that accepts inline source.
type Runtime struct {
	Image   string
	Command []string
}

// Config holds the configuration for Docker execution.
type Config struct {
	// Runtimes maps a lower-cased language id to its image and command.
	Runtimes map[string]Runtime
	// MemoryLimit is the maximum amount of memory a container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs a container can use.
	CPULimit float64
	// Timeout is the maximum amount of time one run can take.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers kept per image.
	PoolSize int
}

// DefaultConfig runs Python, JavaScript and Ruby in small alpine images.
func DefaultConfig() Config {
	return Config{
		Runtimes: map[string]Runtime{
			"python":     {Image: "python:3.12-alpine", Command: []string{"python", "-c"}},
			"python3":    {Image: "python:3.12-alpine", Command: []string{"python", "-c"}},
			"javascript": {Image: "node:20-alpine", Command: []string{"node", "-e"}},
			"node":       {Image: "node:20-alpine", Command: []string{"node", "-e"}},
			"ruby":       {Image: "ruby:3.4-alpine", Command: []string{"ruby", "-e"}},
		},
		MemoryLimit: 128 * 1024 * 1024,
		CPULimit:    0.5,
		Timeout:     5 * time.Second,
		PoolSize:    2,
	}
}

// runtimeFor finds the runtime for language, case-insensitively.
func (c Config) runtimeFor(language string) (Runtime, bool) {
	rt, ok := c.Runtimes[strings.ToLower(strings.TrimSpace(language))]
	return rt, ok
}

// images returns each distinct image once, so aliases share a pool.
func (c Config) images() []string {
	seen := make(map[string]struct{}, len(c.Runtimes))
	var out []string
	for _, rt := range c.Runtimes {
		if _, ok := seen[rt.Image]; ok {
			continue
		}
		seen[rt.Image] = struct{}{}
		out = append(out, rt.Image)
	}
	return out
}
