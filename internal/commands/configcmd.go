package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/output"
	"taskman/internal/taskapi"
)

func init() {
	Register(&ConfigCmd{})
}

// ConfigCmd prints the effective configuration as YAML.
type ConfigCmd struct{}

type configView struct {
	Dir     string `yaml:"config_dir"`
	Backend string `yaml:"backend"`
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token,omitempty"`
	Timeout string `yaml:"timeout"`
	Output  string `yaml:"output"`
}

func (c *ConfigCmd) Name() string       { return "config" }
func (c *ConfigCmd) Aliases() []string  { return nil }
func (c *ConfigCmd) Synopsis() string   { return "Print the effective configuration" }
func (c *ConfigCmd) Usage() string      { return "taskman config" }
func (c *ConfigCmd) NeedsService() bool { return false }

func (c *ConfigCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ConfigCmd) Run(ctx context.Context, cfg *config.Config, api *taskapi.API, args []string, out, errOut io.Writer) int {
	v := configView{
		Dir:     cfg.Dir,
		Backend: cfg.Backend,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout.String(),
		Output:  cfg.Output,
	}
	if cfg.Token != "" {
		v.Token = "********"
	}
	if err := output.WriteYAML(out, v); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}
