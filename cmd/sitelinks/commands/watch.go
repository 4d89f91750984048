package commands

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/metrics"
	"git.home.luguber.info/inful/sitelinks/internal/pipeline"
	"git.home.luguber.info/inful/sitelinks/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Content     string        `help:"Override content.directory" type:"path"`
	Output      string        `short:"o" help:"Override output.directory" type:"path"`
	Debounce    time.Duration `default:"300ms" help:"Quiet period before a rebuild starts"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address, for example :9102"`
}

func (w *WatchCmd) apply(cfg *config.Config) {
	if w.Content != "" {
		cfg.Content.Directory = w.Content
	}
	if w.Output != "" {
		cfg.Output.Directory = w.Output
	}
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	w.apply(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec, prom := newRecorder(w.MetricsAddr != "" || cfg.Metrics.Textfile != "")
	if w.MetricsAddr != "" {
		stop := serveMetrics(w.MetricsAddr, prom)
		defer stop()
	}

	builder, err := newBuilder(ctx, cfg, rec)
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()

	rebuild := func(ctx context.Context) error {
		coll, err := loadContent(cfg)
		if err != nil {
			return err
		}
		res, err := builder.Build(ctx, coll)
		printSummary(os.Stdout, res)
		writeTextfile(prom, cfg.Metrics.Textfile)
		return err
	}
	if err := rebuild(ctx); err != nil {
		slog.Error("Initial build failed", "error", err)
	}

	watcher, err := watch.New(watch.Options{
		ContentDir: cfg.Content.Directory,
		ConfigPath: root.Config,
		Ignore:     []string{cfg.Output.Directory},
		Debounce:   w.Debounce,
	})
	if err != nil {
		return err
	}

	return watcher.Run(ctx, func(ctx context.Context, ev watch.Event) error {
		if ev.ConfigChanged {
			next, err := reload(ctx, root, w, rec, cfg)
			if err != nil {
				slog.Error("Keeping previous configuration", "error", err)
			} else {
				_ = builder.Close()
				builder, cfg = next.builder, next.cfg
			}
		}
		slog.Info("Rebuilding", "changes", len(ev.Paths), "config_changed", ev.ConfigChanged)
		return rebuild(ctx)
	})
}

type reloaded struct {
	cfg     *config.Config
	builder *pipeline.Builder
}

func reload(ctx context.Context, root *CLI, w *WatchCmd, rec metrics.Recorder, prev *config.Config) (*reloaded, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	w.apply(cfg)
	if cfg.Content.Directory != prev.Content.Directory {
		slog.Warn("content.directory changed; restart watch to follow the new directory",
			"watching", prev.Content.Directory, "configured", cfg.Content.Directory)
		cfg.Content.Directory = prev.Content.Directory
	}
	builder, err := newBuilder(ctx, cfg, rec)
	if err != nil {
		return nil, err
	}
	return &reloaded{cfg: cfg, builder: builder}, nil
}

// serveMetrics exposes the recorder's registry and returns a shutdown func.
func serveMetrics(addr string, prom *metrics.PrometheusRecorder) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.HTTPHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
