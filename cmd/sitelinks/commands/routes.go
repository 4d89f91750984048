package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/metrics"
	"git.home.luguber.info/inful/sitelinks/internal/pipeline"
)

// RoutesCmd implements the 'routes' command.
type RoutesCmd struct {
	Format  string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Changed bool   `help:"Only list items whose output path differs from their source path"`
}

func (r *RoutesCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	res, err := plan(context.Background(), cfg)
	if err != nil {
		return err
	}
	return r.print(os.Stdout, res)
}

func (r *RoutesCmd) print(out io.Writer, res *pipeline.Result) error {
	routes := res.Routes()
	if r.Changed {
		kept := routes[:0]
		for _, rt := range routes {
			if rt.Original != rt.Current || rt.Synthetic {
				kept = append(kept, rt)
			}
		}
		routes = kept
	}

	if r.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	}
	width := 0
	for _, rt := range routes {
		width = max(width, len(rt.Original))
	}
	for _, rt := range routes {
		marker := ""
		if rt.Synthetic {
			marker = " (generated)"
		}
		_, _ = fmt.Fprintf(out, "%-*s -> %s%s\n", width, rt.Original, rt.Current, marker)
	}
	return nil
}

// plan runs the route planning stages over the configured content tree.
func plan(ctx context.Context, cfg *config.Config) (*pipeline.Result, error) {
	builder, err := pipeline.NewBuilder(cfg, pipeline.WithRecorder(metrics.NoopRecorder{}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = builder.Close() }()
	coll, err := loadContent(cfg)
	if err != nil {
		return nil, err
	}
	return builder.Plan(ctx, coll)
}
