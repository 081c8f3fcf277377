package commands

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestAwaitCode_ChecksState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	base := "http://" + ln.Addr().String() + callbackPath

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := awaitCode(context.Background(), ln, "expected-state")
		done <- result{code, err}
	}()

	get := func(query string) int {
		t.Helper()
		resp, err := http.Get(base + "?" + query)
		if err != nil {
			t.Fatalf("GET callback: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if got := get("state=forged&code=evil"); got != http.StatusBadRequest {
		t.Errorf("forged state status = %d, want 400", got)
	}
	if got := get("state=expected-state&code=abc"); got != http.StatusOK {
		t.Errorf("callback status = %d, want 200", got)
	}

	select {
	case r := <-done:
		if r.err != nil || r.code != "abc" {
			t.Errorf("awaitCode() = %q, %v, want abc", r.code, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("awaitCode did not return")
	}
}

func TestAwaitCode_Cancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := awaitCode(ctx, ln, "s"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
