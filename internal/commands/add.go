package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/taskapi"
	"taskman/internal/view"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	title       string
	description string
}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a task" }
func (c *AddCmd) Usage() string      { return "taskman add [--title <title>] --description <text> [title...]" }
func (c *AddCmd) NeedsService() bool { return true }

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.title, "title", "t", "", "task title")
	fs.StringVarP(&c.description, "description", "d", "", "task description")
}

// SetFields sets the title and description flags (for testing).
func (c *AddCmd) SetFields(title, description string) {
	c.title = title
	c.description = description
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, api *taskapi.API, args []string, out, errOut io.Writer) int {
	title := c.title
	if len(args) > 0 {
		if title != "" {
			fmt.Fprintln(errOut, "error: cannot use both --title and a positional title")
			return exitcode.UserError
		}
		title = strings.Join(args, " ")
	}

	form := view.NewFormModel(api, api.Logger())
	form.OpenAdd()
	form.SetTitle(title)
	form.SetDescription(c.description)

	task, err := form.Submit(ctx)
	if err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %s\n", task.ID)
	}
	return exitcode.Success
}
