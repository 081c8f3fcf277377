package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskman/internal/cache"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/output"
	"taskman/internal/service"
	"taskman/internal/taskapi"
)

const statusAll = "all"

func init() {
	Register(&ListCmd{})
	if err := DefaultRegistry.SetDefault("list"); err != nil {
		panic(err)
	}
}

// ListCmd implements the list command.
// Handles both `taskman` (no args) and `taskman list`.
type ListCmd struct {
	status string
}

// SetStatus sets the status filter (for testing).
func (c *ListCmd) SetStatus(status string) {
	c.status = status
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "taskman list [--status pending|completed|all]" }
func (c *ListCmd) NeedsService() bool { return true }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.status, "status", "s", statusAll, "filter by status: pending, completed or all")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, api *taskapi.API, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	filter, err := parseStatusFilter(c.status)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	list := mountList(ctx, api)
	defer list.Unmount()

	snap := list.Snapshot()
	if snap.State == cache.StateError {
		fmt.Fprintf(errOut, "error: error loading tasks: %v\n", snap.Err)
		return ExitCode(snap.Err)
	}

	tasks := filterTasks(snap.Tasks, filter)

	if cfg.Output == config.OutputText {
		if len(tasks) == 0 {
			if !cfg.Quiet {
				fmt.Fprintln(out, "no tasks found")
			}
			return exitcode.Success
		}
		// Numbers are positions in the full list so they work as <ref>.
		for i, t := range snap.Tasks {
			if filter == "" || t.Status == filter {
				output.FormatTask(out, i+1, t)
			}
		}
		return exitcode.Success
	}

	if err := output.WriteTasks(out, cfg.Output, tasks); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}

// parseStatusFilter returns "" for all tasks.
func parseStatusFilter(s string) (service.Status, error) {
	if s == "" || s == statusAll {
		return "", nil
	}
	return service.ParseStatus(s)
}

// filterTasks keeps tasks with the given status; "" keeps all.
func filterTasks(tasks []service.Task, status service.Status) []service.Task {
	if status == "" {
		return tasks
	}
	result := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			result = append(result, t)
		}
	}
	return result
}
