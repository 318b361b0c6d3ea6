// Package render turns Mermaid text into a preview. Renderers either shell
// out to an external tool (mermaid-cli, mermaid-ascii) or draw the parsed
// model themselves (Graphviz SVG, box-drawing text).
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/rendis/mermaidsync/pkg/schema"
)

// Format identifies the kind of preview payload.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatText Format = "text"
)

// MediaType returns the HTTP content type for f.
func (f Format) MediaType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Preview is a rendered diagram.
type Preview struct {
	Format   Format `json:"format"`
	Renderer string `json:"renderer"`
	Data     []byte `json:"data"`
}

// Renderer turns Mermaid source into a preview.
type Renderer interface {
	Name() string
	Render(ctx context.Context, source string) (*Preview, error)
}

// Failed wraps a renderer failure as RENDER_FAILED, keeping the renderer's
// own message as the error message.
func Failed(renderer string, err error) *schema.Error {
	if se, ok := err.(*schema.Error); ok && se.Code == schema.ErrCodeRenderFailed {
		return se
	}
	return schema.NewError(schema.ErrCodeRenderFailed, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"renderer": renderer})
}

// Chain tries renderers in order and returns the first preview. When all of
// them fail the last failure is returned.
type Chain []Renderer

// Name implements Renderer.
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Render implements Renderer.
func (c Chain) Render(ctx context.Context, source string) (*Preview, error) {
	if len(c) == 0 {
		return nil, Failed("chain", fmt.Errorf("no renderer configured"))
	}
	var last error
	for _, r := range c {
		p, err := r.Render(ctx, source)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return nil, Failed(r.Name(), ctx.Err())
		}
		last = Failed(r.Name(), err)
	}
	return nil, last
}

// Options selects and configures renderers by name.
type Options struct {
	// Renderer is one of "mmdc", "graphviz", "ascii" or "auto".
	Renderer string
	// MmdcPath is the mermaid-cli binary; empty means "mmdc" on PATH.
	MmdcPath string
	// ASCIIBinDir holds an optional mermaid-ascii binary.
	ASCIIBinDir string
}

// New builds the renderer named in opts. "auto" chains mermaid-cli, Graphviz
// and the text renderer.
func New(opts Options) (Renderer, error) {
	ascii := &ASCIIRenderer{BinDir: opts.ASCIIBinDir}
	switch opts.Renderer {
	case "mmdc":
		return NewCLIRenderer(opts.MmdcPath), nil
	case "graphviz":
		return NewGraphvizRenderer(FormatSVG), nil
	case "ascii":
		return ascii, nil
	case "", "auto":
		return Chain{NewCLIRenderer(opts.MmdcPath), NewGraphvizRenderer(FormatSVG), ascii}, nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown renderer %q", opts.Renderer)
	}
}
