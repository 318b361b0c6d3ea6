package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CLIRenderer renders through mermaid-cli (mmdc) using temporary files.
type CLIRenderer struct {
	Path string
	// Args are appended after the input and output flags.
	Args []string
}

// NewCLIRenderer returns a renderer for the given mmdc binary ("mmdc" on PATH
// when empty).
func NewCLIRenderer(path string) *CLIRenderer {
	if path == "" {
		path = "mmdc"
	}
	return &CLIRenderer{Path: path, Args: []string{"--quiet"}}
}

// Name implements Renderer.
func (r *CLIRenderer) Name() string { return "mmdc" }

// Render implements Renderer.
func (r *CLIRenderer) Render(ctx context.Context, source string) (*Preview, error) {
	dir, err := os.MkdirTemp("", "mermaidsync-mmdc-*")
	if err != nil {
		return nil, Failed(r.Name(), fmt.Errorf("mmdc: temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "diagram.mmd")
	out := filepath.Join(dir, "diagram.svg")
	if err := os.WriteFile(in, []byte(source), 0o600); err != nil {
		return nil, Failed(r.Name(), fmt.Errorf("mmdc: write input: %w", err))
	}

	args := append([]string{"-i", in, "-o", out}, r.Args...)
	cmd := exec.CommandContext(ctx, r.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, Failed(r.Name(), errors.New(msg))
		}
		return nil, Failed(r.Name(), err)
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return nil, Failed(r.Name(), fmt.Errorf("mmdc: read output: %w", err))
	}
	return &Preview{Format: FormatSVG, Renderer: r.Name(), Data: svg}, nil
}
