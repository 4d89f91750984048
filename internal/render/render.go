// Package render converts markdown bodies to HTML with goldmark, handing every
// link and image destination to a rewrite callback.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/sitelinks/internal/reference"
)

// RewriteFunc returns the destination to emit for dest. The renderer
// substitutes the returned value verbatim.
type RewriteFunc func(dest string, kind reference.Kind) string

// Options configures the renderer.
type Options struct {
	// Unsafe passes raw HTML through instead of omitting it.
	Unsafe bool
}

// Renderer is a reusable goldmark engine. It keeps no per-call state and is
// safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

var rewriteKey = parser.NewContextKey()

// New builds a renderer with GFM and automatic heading IDs.
func New(opts Options) *Renderer {
	rendererOptions := []renderer.Option{}
	if opts.Unsafe {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(destinationTransformer{}, 100)),
		),
		goldmark.WithRendererOptions(rendererOptions...),
	)
	return &Renderer{md: md}
}

// Render converts body to HTML. rewrite may be nil.
func (r *Renderer) Render(body []byte, rewrite RewriteFunc) ([]byte, error) {
	ctx := parser.NewContext()
	if rewrite != nil {
		ctx.Set(rewriteKey, rewrite)
	}
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf, parser.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

// destinationTransformer rewrites Link and Image destinations in place before
// rendering. Reference-style links are already resolved to Link nodes here.
type destinationTransformer struct{}

func (destinationTransformer) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	rewrite, ok := pc.Get(rewriteKey).(RewriteFunc)
	if !ok {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			node.Destination = []byte(rewrite(string(node.Destination), reference.KindLink))
		case *ast.Image:
			node.Destination = []byte(rewrite(string(node.Destination), reference.KindImage))
		}
		return ast.WalkContinue, nil
	})
}
