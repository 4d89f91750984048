package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/pipeline"
)

// CheckCmd implements the 'check' command: a full build that never touches
// the output directory.
type CheckCmd struct {
	Content  string `help:"Override content.directory" type:"path"`
	External bool   `help:"Probe external references even if disabled in configuration"`
	Fail     bool   `help:"Treat broken external references as errors"`
}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if c.Content != "" {
		cfg.Content.Directory = c.Content
	}
	cfg.Validation.Enabled = true
	if c.External {
		cfg.Validation.External.Enabled = true
	}
	if c.Fail {
		cfg.Validation.External.Mode = config.ExternalModeFail
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunBuild(ctx, cfg, os.Stdout, pipeline.WithoutOutput())
}
