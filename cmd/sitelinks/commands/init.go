package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitelinks/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite an existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory to write sitelinks.yaml into (defaults to --config)" type:"path"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	target := root.Config
	if i.Output != "" {
		target = filepath.Join(i.Output, "sitelinks.yaml")
	}
	return RunInit(os.Stdout, target, i.Force)
}

// RunInit writes the example configuration to configPath.
func RunInit(out io.Writer, configPath string, force bool) error {
	if err := config.Init(configPath, force); err != nil {
		return err
	}
	example := config.Example()
	_, _ = fmt.Fprintf(out, "Wrote %s (%d routes, %d taxonomies). Put sources under %s/ and run `sitelinks build`.\n",
		configPath, len(example.Routes), len(example.Taxonomies), example.Content.Directory)
	return nil
}
