package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/oauth2"

	"taskman/internal/backend/googletasks"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/taskapi"
)

const (
	callbackWait     = 5 * time.Minute
	exchangeTimeout  = 30 * time.Second
	tokenCheckWait   = 10 * time.Second
	callbackPort     = 8085
	callbackPortSpan = 5
	callbackPath     = "/callback"
)

const credentialsHelp = `No Google OAuth client found. To create one:

  1. Open https://console.cloud.google.com/apis/credentials and pick a project.
  2. Enable the Tasks API (APIs & Services > Library > Google Tasks API).
  3. Create Credentials > OAuth client ID, application type "Desktop app".
  4. Download the JSON and save it as %s.

Then run '%s login' again.
`

func init() {
	Register(&LoginCmd{})
}

// LoginCmd runs the browser OAuth flow for the google backend and stores the
// resulting token in the config directory.
type LoginCmd struct{}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Authenticate with Google" }
func (c *LoginCmd) Usage() string      { return "taskman login [common flags]" }
func (c *LoginCmd) NeedsService() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, api *taskapi.API, args []string, out, errOut io.Writer) int {
	if cfg.Backend != config.BackendGoogle {
		fmt.Fprintf(errOut, "error: login is only used by the %s backend (set TASKMAN_BACKEND=%s)\n", config.BackendGoogle, config.BackendGoogle)
		return exitcode.UserError
	}
	if !cfg.HasOAuthClient() {
		fmt.Fprintf(errOut, "error: %s not found in %s\n\n", config.OAuthClientFile, cfg.Dir)
		fmt.Fprintf(errOut, credentialsHelp, cfg.OAuthClientPath(), config.AppName)
		return exitcode.AuthError
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	conf, err := googletasks.OAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if tokenUsable(ctx, cfg, conf) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	tok, err := authorize(ctx, conf, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	if err := googletasks.WriteToken(cfg, tok); err != nil {
		fmt.Fprintf(errOut, "error: save token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// tokenUsable reports whether the saved token has a refresh token and can
// still mint an access token.
func tokenUsable(ctx context.Context, cfg *config.Config, conf *oauth2.Config) bool {
	tok, err := googletasks.ReadToken(cfg)
	if err != nil || tok.RefreshToken == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, tokenCheckWait)
	defer cancel()
	_, err = conf.TokenSource(ctx, tok).Token()
	return err == nil
}

// authorize prints the consent URL, waits for the browser to come back to a
// local callback and exchanges the code using PKCE.
func authorize(ctx context.Context, conf *oauth2.Config, errOut io.Writer) (*oauth2.Token, error) {
	ln, err := listenCallback()
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	conf.RedirectURL = fmt.Sprintf("http://localhost:%d%s", ln.Addr().(*net.TCPAddr).Port, callbackPath)
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)))

	code, err := awaitCode(ctx, ln, state)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()
	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code for token: %w", err)
	}
	return tok, nil
}

// listenCallback binds the first free port in the callback range.
func listenCallback() (net.Listener, error) {
	for port := callbackPort; port < callbackPort+callbackPortSpan; port++ {
		if ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port)); err == nil {
			return ln, nil
		}
	}
	return nil, errors.New("could not bind a local port for the OAuth callback")
}

// awaitCode serves the callback on ln until the browser delivers a code for
// state, the wait times out or ctx ends.
func awaitCode(ctx context.Context, ln net.Listener, state string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	router := gin.New()
	router.GET(callbackPath, func(c *gin.Context) {
		if c.Query("state") != state {
			c.String(http.StatusBadRequest, "state mismatch")
			return
		}
		code := c.Query("code")
		if code == "" {
			c.String(http.StatusBadRequest, "missing code")
			select {
			case errCh <- fmt.Errorf("callback without code: %s", c.Query("error")):
			default:
			}
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte("<html><body><h1>Signed in</h1><p>You can close this window.</p></body></html>"))
		select {
		case codeCh <- code:
		default:
		}
	})

	srv := &http.Server{Handler: router}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	timer := time.NewTimer(callbackWait)
	defer timer.Stop()
	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-timer.C:
		return "", errors.New("oauth callback timed out")
	case <-ctx.Done():
		return "", errors.New("cancelled")
	}
}
