package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/linkverify"
	"git.home.luguber.info/inful/sitelinks/internal/metrics"
	"git.home.luguber.info/inful/sitelinks/internal/pipeline"
)

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitelinks.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Assign routes, rewrite references, write the output tree and validate it"`
	Check  CheckCmd  `cmd:"" help:"Run the full build in memory and report broken references without writing output"`
	Routes RoutesCmd `cmd:"" help:"Print the original to output path mapping"`
	Terms  TermsCmd  `cmd:"" help:"Print taxonomy terms with member counts"`
	Init   InitCmd   `cmd:"" help:"Write an example configuration file"`
	Watch  WatchCmd  `cmd:"" help:"Rebuild whenever content or configuration changes"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return nil
}

func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	slog.Debug("Configuration loaded", "path", root.Config, "routes", len(cfg.Routes), "taxonomies", len(cfg.Taxonomies))
	return cfg, nil
}

func loadContent(cfg *config.Config) (*content.Collection, error) {
	coll, err := content.LoadDir(cfg.Content.Directory, cfg.Content.MarkdownExtensions)
	if err != nil {
		return nil, err
	}
	slog.Info("Content loaded", "directory", cfg.Content.Directory, "items", coll.Len())
	return coll, nil
}

// newBuilder wires the validator to the NATS probe cache when one is
// configured. A cache that cannot be reached degrades to the in-memory cache.
func newBuilder(ctx context.Context, cfg *config.Config, rec metrics.Recorder, opts ...pipeline.Option) (*pipeline.Builder, error) {
	opts = append(opts, pipeline.WithRecorder(rec))
	if cfg.Validation.Enabled {
		vopts := []linkverify.Option{linkverify.WithRecorder(rec)}
		if cache := cfg.Validation.External.Cache; cfg.Validation.External.Enabled && cache.Enabled() {
			client, err := linkverify.NewNATSClient(ctx, cache)
			if err != nil {
				slog.Warn("Probe cache unavailable, using in-memory cache", "error", err)
			} else {
				vopts = append(vopts, linkverify.WithCache(client))
			}
		}
		opts = append(opts, pipeline.WithValidator(linkverify.NewValidator(cfg.Validation, cfg.Site.URL, vopts...)))
	}
	return pipeline.NewBuilder(cfg, opts...)
}

// newRecorder returns a Prometheus recorder when metrics are wanted, else a no-op.
func newRecorder(enabled bool) (metrics.Recorder, *metrics.PrometheusRecorder) {
	if !enabled {
		return metrics.NoopRecorder{}, nil
	}
	prom := metrics.NewPrometheusRecorder(nil)
	return prom, prom
}

func writeTextfile(prom *metrics.PrometheusRecorder, path string) {
	if prom == nil || path == "" {
		return
	}
	if err := prom.WriteTextfile(path); err != nil {
		slog.Warn("Failed to write metrics textfile", "path", path, "error", err)
	}
}
