package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testTag Tag = "Task"

func counter(n *int32, value any) Fetcher {
	return func(ctx context.Context) (any, error) {
		atomic.AddInt32(n, 1)
		return value, nil
	}
}

func TestQuery_CachesUntilInvalidated(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	var calls int32
	fetch := counter(&calls, "v1")

	for i := 0; i < 3; i++ {
		v, err := c.Query(ctx, "list", []Tag{testTag}, fetch)
		if err != nil || v != "v1" {
			t.Fatalf("Query() = %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch, got %d", calls)
	}

	c.Invalidate(ctx, testTag)
	if calls != 1 {
		t.Errorf("unsubscribed entry must not refetch on invalidate, got %d fetches", calls)
	}

	if _, err := c.Query(ctx, "list", []Tag{testTag}, fetch); err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected refetch after invalidation, got %d fetches", calls)
	}
}

func TestInvalidate_OtherTagUntouched(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	var calls int32

	c.Query(ctx, "list", []Tag{testTag}, counter(&calls, "v"))
	c.Invalidate(ctx, Tag("User"))
	c.Query(ctx, "list", nil, nil)

	if calls != 1 {
		t.Errorf("expected 1 fetch, got %d", calls)
	}
}

func TestSubscribe_ReceivesLoadingThenReady(t *testing.T) {
	c := New(nil)
	var states []State

	unsub := c.Subscribe(context.Background(), "list", []Tag{testTag}, counter(new(int32), []string{"a"}), func(s Snapshot) {
		states = append(states, s.State)
	})
	defer unsub()

	want := []State{StateLoading, StateReady}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states = %v, want %v", states, want)
		}
	}
}

func TestSubscribe_InvalidateRefetchesSynchronously(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	var version int32
	fetch := func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&version, 1), nil
	}

	var last Snapshot
	unsub := c.Subscribe(ctx, "list", []Tag{testTag}, fetch, func(s Snapshot) { last = s })
	defer unsub()

	if last.Value != int32(1) {
		t.Fatalf("initial value = %v", last.Value)
	}

	c.Invalidate(ctx, testTag)

	if last.State != StateReady || last.Value != int32(2) || last.Fetching {
		t.Errorf("after invalidate got %+v, want ready value 2", last)
	}
}

func TestSubscribe_RefetchMarksFetching(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	var snaps []Snapshot
	unsub := c.Subscribe(ctx, "list", []Tag{testTag}, counter(new(int32), "v"), func(s Snapshot) {
		snaps = append(snaps, s)
	})
	defer unsub()

	snaps = nil
	c.Invalidate(ctx, testTag)

	if len(snaps) != 2 {
		t.Fatalf("expected 2 notifications, got %+v", snaps)
	}
	if !snaps[0].Fetching || snaps[0].State != StateReady || snaps[0].Value != "v" {
		t.Errorf("expected fetching snapshot keeping old value, got %+v", snaps[0])
	}
	if snaps[1].Fetching {
		t.Errorf("expected settled snapshot, got %+v", snaps[1])
	}
}

func TestUnsubscribe_StopsRefetch(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	var calls int32
	unsub := c.Subscribe(ctx, "list", []Tag{testTag}, counter(&calls, "v"), func(Snapshot) {})
	unsub()
	unsub()

	c.Invalidate(ctx, testTag)
	if calls != 1 {
		t.Errorf("expected no refetch after unsubscribe, got %d fetches", calls)
	}
}

func TestQuery_ErrorState(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := c.Query(ctx, "list", []Tag{testTag}, func(context.Context) (any, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	snap, ok := c.Peek("list")
	if !ok || snap.State != StateError || snap.Value != nil || !errors.Is(snap.Err, boom) {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	// An errored entry is retried on the next query.
	v, err := c.Query(ctx, "list", nil, func(context.Context) (any, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Errorf("retry Query() = %v, %v", v, err)
	}
}

func TestQuery_ConcurrentCallsCollapse(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Query(ctx, "list", []Tag{testTag}, fetch)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected concurrent queries to share one fetch, got %d", calls)
	}
}

func TestInvalidate_DuringFetchRefetchesOnce(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	var calls int32
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			started <- struct{}{}
			<-release
			return "stale", nil
		}
		return "fresh", nil
	}

	done := make(chan any)
	go func() {
		v, _ := c.Query(ctx, "list", []Tag{testTag}, fetch)
		done <- v
	}()
	<-started

	// Several invalidations land while the first fetch is in flight.
	c.Invalidate(ctx, testTag)
	c.Invalidate(ctx, testTag)
	c.Invalidate(ctx, testTag)
	close(release)

	if v := <-done; v != "fresh" {
		t.Errorf("expected the post-invalidation value, got %v", v)
	}
	if calls != 2 {
		t.Errorf("expected invalidations to collapse into one extra fetch, got %d fetches", calls)
	}
	snap, _ := c.Peek("list")
	if snap.Value != "fresh" {
		t.Errorf("cached value = %v, want fresh", snap.Value)
	}
}

func TestInvalidate_CancelledContextKeepsSharedEntry(t *testing.T) {
	c := New(nil)
	var version int32
	fetch := func(ctx context.Context) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return atomic.AddInt32(&version, 1), nil
	}

	settled := make(chan Snapshot, 8)
	unsub := c.Subscribe(context.Background(), "list", []Tag{testTag}, fetch, func(s Snapshot) {
		if s.State != StateLoading && !s.Fetching {
			settled <- s
		}
	})
	defer unsub()
	if s := <-settled; s.Value != int32(1) {
		t.Fatalf("initial snapshot = %+v", s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Invalidate(ctx, testTag)

	select {
	case s := <-settled:
		if s.State != StateReady || s.Value != int32(2) {
			t.Errorf("after cancelled invalidate got %+v, want ready value 2", s)
		}
	case <-time.After(time.Second):
		t.Fatal("refetch never committed")
	}
}

func TestQuery_CancelledCallerStopsWaiting(t *testing.T) {
	c := New(nil)
	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Query(ctx, "list", []Tag{testTag}, fetch); !errors.Is(err, context.Canceled) {
		t.Fatalf("Query() error = %v, want context.Canceled", err)
	}
	close(release)

	deadline := time.Now().Add(time.Second)
	for {
		if snap, _ := c.Peek("list"); snap.State == StateReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("abandoned fetch never committed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	v, err := c.Query(context.Background(), "list", nil, nil)
	if err != nil || v != "v" {
		t.Errorf("Query() = %v, %v, want v", v, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected the abandoned fetch's result to be cached, got %d fetches", n)
	}
}

func TestQuery_SupersededOnEveryAttemptStaysStale(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n <= maxAttempts {
			c.Invalidate(ctx, testTag)
		}
		return n, nil
	}

	v, err := c.Query(ctx, "list", []Tag{testTag}, fetch)
	if err != nil || v != int32(maxAttempts) {
		t.Fatalf("Query() = %v, %v", v, err)
	}

	v, err = c.Query(ctx, "list", nil, nil)
	if err != nil || v != int32(maxAttempts+1) {
		t.Errorf("second Query() = %v, %v, want a fresh fetch", v, err)
	}
}

func TestPeek_Missing(t *testing.T) {
	if _, ok := New(nil).Peek("nope"); ok {
		t.Error("expected missing entry")
	}
}

func TestStateString(t *testing.T) {
	if StateLoading.String() != "loading" || StateReady.String() != "ready" || StateError.String() != "error" {
		t.Error("unexpected state names")
	}
}
