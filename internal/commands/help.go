package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/taskapi"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "taskman help" }
func (c *HelpCmd) NeedsService() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, api *taskapi.API, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, HelpText)
	return exitcode.Success
}

// HelpText is the usage summary printed by help and --help.
const HelpText = `Usage:
  taskman                                   List all tasks
  taskman list [--status pending|completed|all]
  taskman show <ref>
  taskman add [--title <title>] --description <text> [title...]
  taskman create ...                        Alias for add
  taskman edit [--title <title>] [--description <text>] <ref>
  taskman toggle <ref>                      Flip pending/completed (alias: done)
  taskman rm <ref>                          Delete a task (alias: delete)
  taskman serve [--addr <host:port>]        Run the web interface
  taskman config                            Print the effective configuration
  taskman login                             Authenticate with Google (google backend)
  taskman logout
  taskman help
  taskman version

A <ref> is a position from the listing (3 or #3) or a task id.

Common flags:
  --config <dir>       Override config directory
  --base-url <url>     Override the task API base URL
  -o, --output <fmt>   Output format: text, json, yaml
  -q, --quiet          Suppress informational output
  --debug              Print debug logs to stderr
`
