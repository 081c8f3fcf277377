// Package cli builds the cobra command tree from the command registry and
// runs it.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"taskman/internal/backend/googletasks"
	"taskman/internal/backend/rest"
	"taskman/internal/commands"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
	"taskman/internal/taskapi"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error)

// DefaultFactory builds the backend named by cfg.Backend.
func DefaultFactory(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error) {
	switch cfg.Backend {
	case config.BackendGoogle:
		return googletasks.New(ctx, cfg)
	default:
		return rest.New(ctx, cfg, rest.WithLogger(log))
	}
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
}

// NewDispatcher creates a new dispatcher with the given registry and service
// factory. A nil factory uses DefaultFactory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	if factory == nil {
		factory = DefaultFactory
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// globalFlags are the flags shared by every command.
type globalFlags struct {
	configDir string
	quiet     bool
	debug     bool
	baseURL   string
	output    string
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if _, err := d.registry.Lookup(args[0]); err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			return exitcode.UserError
		}
	}

	code := exitcode.Success
	root := d.newRoot(&code, out, errOut)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	return code
}

func (d *Dispatcher) newRoot(code *int, out, errOut io.Writer) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Manage tasks from the command line or the browser",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetHelpFunc(func(*cobra.Command, []string) {
		fmt.Fprint(out, commands.HelpText)
	})
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return err
	})

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config", "", "config directory")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress informational output")
	pf.BoolVar(&flags.debug, "debug", false, "print debug logs to stderr")
	pf.StringVar(&flags.baseURL, "base-url", "", "task API base URL")
	pf.StringVarP(&flags.output, "output", "o", "", "output format: text, json, yaml")

	for _, cmd := range d.registry.All() {
		c := &cobra.Command{
			Use:     cmd.Name(),
			Aliases: cmd.Aliases(),
			Short:   cmd.Synopsis(),
			Long:    cmd.Usage(),
		}
		cmd.RegisterFlags(c.Flags())
		c.RunE = d.runner(cmd, &flags, code, out, errOut)
		if cmd.Name() == "help" {
			root.SetHelpCommand(c)
			continue
		}
		root.AddCommand(c)
	}

	if fallback, ok := d.registry.Default(); ok {
		fallback.RegisterFlags(root.Flags())
		root.RunE = d.runner(fallback, &flags, code, out, errOut)
	}

	return root
}

func (d *Dispatcher) runner(cmd commands.Command, flags *globalFlags, code *int, out, errOut io.Writer) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		ctx := c.Context()

		cfg, err := loadConfig(flags)
		if err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			*code = exitcode.UserError
			return nil
		}
		log := newLogger(cfg, errOut)

		var api *taskapi.API
		if cmd.NeedsService() {
			svc, err := d.factory(ctx, cfg, log)
			if err != nil {
				// The google backend fails here only on missing or bad credentials.
				if errors.Is(err, service.ErrUnauthorized) || cfg.Backend == config.BackendGoogle {
					fmt.Fprintf(errOut, "error: auth error: %s\n", err)
					*code = exitcode.AuthError
					return nil
				}
				fmt.Fprintf(errOut, "error: %s\n", err)
				*code = exitcode.UserError
				return nil
			}
			api = taskapi.New(svc, nil, log)
		}

		*code = cmd.Run(ctx, cfg, api, args, out, errOut)
		return nil
	}
}

// loadConfig loads the config and applies the global flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configDir)
	if err != nil {
		return nil, err
	}
	cfg.Quiet = flags.quiet
	cfg.Debug = flags.debug
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.output != "" {
		cfg.Output = flags.output
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns a debug logger on errOut when --debug is set and a
// discarding logger otherwise.
func newLogger(cfg *config.Config, errOut io.Writer) *slog.Logger {
	if !cfg.Debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
