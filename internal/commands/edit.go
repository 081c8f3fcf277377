package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
	"taskman/internal/taskapi"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Unset fields keep their current
// values; the update carries every field.
type EditCmd struct {
	fs          *pflag.FlagSet
	title       string
	description string
}

func (c *EditCmd) Name() string       { return "edit" }
func (c *EditCmd) Aliases() []string  { return []string{"update"} }
func (c *EditCmd) Synopsis() string   { return "Edit a task" }
func (c *EditCmd) Usage() string      { return "taskman edit [--title <title>] [--description <text>] <ref>" }
func (c *EditCmd) NeedsService() bool { return true }

func (c *EditCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.fs = fs
	fs.StringVarP(&c.title, "title", "t", "", "new title")
	fs.StringVarP(&c.description, "description", "d", "", "new description")
}

func (c *EditCmd) changed(name string) bool {
	return c.fs != nil && c.fs.Changed(name)
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, api *taskapi.API, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return report(errOut, err)
	}
	if !c.changed("title") && !c.changed("description") {
		return report(errOut, fmt.Errorf("%w (use --title or --description)", service.ErrNoFieldsToUpdate))
	}

	list := mountList(ctx, api)
	defer list.Unmount()

	task, err := resolveTask(ctx, api, list, ref)
	if err != nil {
		return report(errOut, err)
	}

	form := list.OpenEdit(task)
	if c.changed("title") {
		form.SetTitle(c.title)
	}
	if c.changed("description") {
		form.SetDescription(c.description)
	}

	if _, err := form.Submit(ctx); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
