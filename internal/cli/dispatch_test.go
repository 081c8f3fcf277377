package cli_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"taskman/internal/cli"
	"taskman/internal/commands"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
	"taskman/internal/testutil"
)

// testFactory creates a service factory that returns the given FakeService.
func testFactory(svc *testutil.FakeService) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error) {
		return svc, nil
	}
}

// run dispatches args against svc with an isolated config directory.
func run(t *testing.T, svc *testutil.FakeService, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	t.Setenv("TASKMAN_BACKEND", "")
	t.Setenv("TASKMAN_OUTPUT", "")
	t.Setenv("TASKMAN_BASE_URL", "")

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
	var outBuf, errBuf bytes.Buffer
	args = append([]string{"--config", t.TempDir()}, args...)
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func seeded() *testutil.FakeService {
	svc := testutil.NewFakeService()
	svc.AddTask("t1", "Buy milk", "2 liters", service.StatusPending)
	svc.AddTask("t2", "Call mom", "Sunday", service.StatusCompleted)
	return svc
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"unknowncmd"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_HelpFlag(t *testing.T) {
	stdout, _, code := run(t, nil, "list", "--help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != commands.HelpText {
		t.Errorf("expected help text, got %q", stdout)
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskman 0.1.0\n" {
		t.Errorf("expected 'taskman 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_NoArgsLists(t *testing.T) {
	stdout, stderr, code := run(t, seeded())

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	expected := "   1  [ ] Buy milk\n          2 liters\n   2  [x] Call mom\n          Sunday\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestDispatcher_ListStatusFilter(t *testing.T) {
	stdout, _, code := run(t, seeded(), "list", "--status", "completed")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "   2  [x] Call mom\n          Sunday\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestDispatcher_ListJSON(t *testing.T) {
	stdout, _, code := run(t, seeded(), "-o", "json", "list")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(stdout, `"id": "t1"`) || !strings.Contains(stdout, `"status": "completed"`) {
		t.Errorf("unexpected json %q", stdout)
	}
}

func TestDispatcher_ListLoadError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = errors.New("connection refused")

	stdout, stderr, code := run(t, svc, "list")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: error loading tasks: connection refused\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_AddThenList(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := run(t, svc, "add", "-d", "2 liters", "Buy", "milk")
	if code != exitcode.Success {
		t.Fatalf("add: expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}

	stdout, _, _ := run(t, svc)
	if stdout != "   1  [ ] Buy milk\n          2 liters\n" {
		t.Errorf("unexpected list %q", stdout)
	}
}

func TestDispatcher_CreateAlias(t *testing.T) {
	svc := testutil.NewFakeService()

	_, _, code := run(t, svc, "-q", "create", "--title", "A", "--description", "a")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if len(svc.Tasks()) != 1 {
		t.Error("expected one task")
	}
}

func TestDispatcher_ToggleByPosition(t *testing.T) {
	svc := seeded()

	stdout, _, code := run(t, svc, "done", "#2")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok Pending\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if svc.Tasks()[1].Status != service.StatusPending {
		t.Error("expected t2 to be pending")
	}
}

func TestDispatcher_EditByID(t *testing.T) {
	svc := seeded()

	_, _, code := run(t, svc, "-q", "edit", "t1", "--title", "Buy oat milk")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	want := service.Task{ID: "t1", Title: "Buy oat milk", Description: "2 liters", Status: service.StatusPending}
	if got := svc.Tasks()[0]; got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDispatcher_RmOutOfRange(t *testing.T) {
	svc := seeded()

	_, stderr, code := run(t, svc, "rm", "5")
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task number out of range: 5\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if svc.Calls("DeleteTask") != 0 {
		t.Error("backend must not be called")
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, nil, "version", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: --unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	_, stderr, code := run(t, testutil.NewFakeService(), "add", "--title")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: flag needs an argument") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_InvalidOutput(t *testing.T) {
	_, stderr, code := run(t, seeded(), "--output", "xml", "list")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown output format: xml\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_FactoryUnauthorized(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.Service, error) {
		return nil, fmt.Errorf("failed to read token.json: %w", service.ErrUnauthorized)
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"--config", t.TempDir(), "list"}, &stdout, &stderr)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr.String(), "error: auth error:") {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestDispatcher_ConfigCommand(t *testing.T) {
	stdout, _, code := run(t, nil, "--base-url", "http://localhost:9000/", "config")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(stdout, "base_url: http://localhost:9000/") || !strings.Contains(stdout, "timeout: 10s") {
		t.Errorf("unexpected config output %q", stdout)
	}
}
