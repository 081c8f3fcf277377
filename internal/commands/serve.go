package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/taskapi"
	"taskman/internal/web"
)

const defaultAddr = "localhost:8080"

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs the web interface until interrupted.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string       { return "serve" }
func (c *ServeCmd) Aliases() []string  { return nil }
func (c *ServeCmd) Synopsis() string   { return "Run the web interface" }
func (c *ServeCmd) Usage() string      { return "taskman serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsService() bool { return true }

func (c *ServeCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.addr, "addr", defaultAddr, "listen address")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, api *taskapi.API, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := web.NewServer(api, api.Logger())
	if !cfg.Quiet {
		fmt.Fprintf(errOut, "listening on http://%s\n", c.addr)
	}
	if err := srv.Run(ctx, c.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
