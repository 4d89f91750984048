package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/linkverify"
	"git.home.luguber.info/inful/sitelinks/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Content         string `help:"Override content.directory" type:"path"`
	Output          string `short:"o" help:"Override output.directory" type:"path"`
	Clean           bool   `help:"Remove the output directory before writing"`
	IncludeDrafts   bool   `name:"drafts" help:"Publish items marked draft"`
	MetricsTextfile string `name:"metrics-textfile" help:"Write Prometheus metrics to this file (overrides metrics.textfile)" type:"path"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	b.apply(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunBuild(ctx, cfg, os.Stdout)
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Content != "" {
		cfg.Content.Directory = b.Content
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Clean {
		cfg.Output.Clean = true
	}
	if b.IncludeDrafts {
		cfg.Content.IncludeDrafts = true
	}
	if b.MetricsTextfile != "" {
		cfg.Metrics.Textfile = b.MetricsTextfile
	}
}

// RunBuild loads the content tree, builds it and prints a summary to out.
func RunBuild(ctx context.Context, cfg *config.Config, out io.Writer, opts ...pipeline.Option) error {
	rec, prom := newRecorder(cfg.Metrics.Textfile != "")
	defer writeTextfile(prom, cfg.Metrics.Textfile)

	builder, err := newBuilder(ctx, cfg, rec, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()

	coll, err := loadContent(cfg)
	if err != nil {
		return err
	}
	res, err := builder.Build(ctx, coll)
	printSummary(out, res)
	return err
}

func printSummary(out io.Writer, res *pipeline.Result) {
	if res == nil {
		return
	}
	_, _ = fmt.Fprintf(out, "Built %d items (%d routed, %d drafts dropped, %d references rewritten) in %s\n",
		len(res.Items), res.Matched, res.Drafts, res.Rewritten, res.Duration.Round(time.Millisecond))
	if res.Report != nil {
		printReport(out, res.Report)
	}
}

func printReport(out io.Writer, report *linkverify.Report) {
	for _, f := range report.Failures {
		_, _ = fmt.Fprintf(out, "%-7s %s\n", f.Severity, f)
	}
	_, _ = fmt.Fprintf(out, "Validated %d pages, %d references, %d probes: %d errors, %d warnings (build %s)\n",
		report.Pages, report.Checked, report.Probed, len(report.Errors()), len(report.Warnings()), report.BuildID)
}
