package paging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/model"
)

var testAccount = model.NewKey("me", "example.com")

// fakeMediator records the requests it receives and answers from a
// per-test hook.
type fakeMediator struct {
	key  string
	hook func(ctx context.Context, req microblog.Request) (microblog.Result, error)

	mu       sync.Mutex
	requests []microblog.Request
}

func (m *fakeMediator) PagingKey() string { return m.key }

func (m *fakeMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.hook(ctx, req)
}

func (m *fakeMediator) recorded() []microblog.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]microblog.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func TestDriveThreadsCursors(t *testing.T) {
	mediator := &fakeMediator{
		key: "feed",
		hook: func(ctx context.Context, req microblog.Request) (microblog.Result, error) {
			switch req.Kind {
			case microblog.Refresh:
				return microblog.Result{NextCursor: "page2"}, nil
			case microblog.Append:
				return microblog.Result{NextCursor: "page3"}, nil
			default:
				return microblog.Result{EndOfPagination: true}, nil
			}
		},
	}
	engine := NewEngine(nil, 20)
	engine.Register(testAccount, mediator)
	ctx := context.Background()

	if err := engine.Refresh(ctx, "feed"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err := engine.LoadMore(ctx, "feed"); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	if err := engine.LoadMore(ctx, "feed"); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}

	requests := mediator.recorded()
	if len(requests) != 3 {
		t.Fatalf("mediator saw %d requests, want 3", len(requests))
	}
	if requests[0].Cursor != "" {
		t.Errorf("refresh carried cursor %q, want empty", requests[0].Cursor)
	}
	if requests[1].Cursor != "page2" {
		t.Errorf("first append carried cursor %q, want page2", requests[1].Cursor)
	}
	if requests[2].Cursor != "page3" {
		t.Errorf("second append carried cursor %q, want page3", requests[2].Cursor)
	}
}

func TestEndOfPaginationIsStickyUntilRefresh(t *testing.T) {
	mediator := &fakeMediator{
		key: "feed",
		hook: func(ctx context.Context, req microblog.Request) (microblog.Result, error) {
			if req.Kind == microblog.Append {
				return microblog.Result{EndOfPagination: true}, nil
			}
			return microblog.Result{NextCursor: "next"}, nil
		},
	}
	engine := NewEngine(nil, 20)
	engine.Register(testAccount, mediator)
	ctx := context.Background()

	if err := engine.Refresh(ctx, "feed"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err := engine.LoadMore(ctx, "feed"); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	if !engine.State("feed").EndOfPagination {
		t.Fatal("State() should report end of pagination")
	}

	// Further LoadMore calls are no-ops
	if err := engine.LoadMore(ctx, "feed"); err != nil {
		t.Fatalf("LoadMore() after end error = %v", err)
	}
	if got := len(mediator.recorded()); got != 2 {
		t.Errorf("mediator saw %d requests, want 2 (append after end must not fetch)", got)
	}

	// Refresh resets the flag
	if err := engine.Refresh(ctx, "feed"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if engine.State("feed").EndOfPagination {
		t.Error("refresh should clear end of pagination")
	}
	if err := engine.LoadMore(ctx, "feed"); err != nil {
		t.Fatalf("LoadMore() after refresh error = %v", err)
	}
	if got := len(mediator.recorded()); got != 4 {
		t.Errorf("mediator saw %d requests, want 4", got)
	}
}

func TestSameKindRequestsCoalesce(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	mediator := &fakeMediator{
		key: "feed",
		hook: func(ctx context.Context, req microblog.Request) (microblog.Result, error) {
			once.Do(func() { close(started) })
			<-release
			return microblog.Result{}, nil
		},
	}
	engine := NewEngine(nil, 20)
	engine.Register(testAccount, mediator)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- engine.Refresh(ctx, "feed") }()
	<-started

	// Second refresh while one is in flight returns immediately
	if err := engine.Refresh(ctx, "feed"); err != nil {
		t.Fatalf("coalesced Refresh() error = %v", err)
	}
	if !engine.State("feed").Loading {
		t.Error("State() should report loading while the fetch runs")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := len(mediator.recorded()); got != 1 {
		t.Errorf("mediator saw %d requests, want 1", got)
	}
}

func TestRefreshCancelsInflightAppend(t *testing.T) {
	appendStarted := make(chan struct{})
	appendCancelled := make(chan struct{})
	var startedOnce, cancelledOnce sync.Once
	mediator := &fakeMediator{key: "feed"}
	mediator.hook = func(ctx context.Context, req microblog.Request) (microblog.Result, error) {
		if req.Kind == microblog.Append {
			startedOnce.Do(func() { close(appendStarted) })
			select {
			case <-ctx.Done():
				cancelledOnce.Do(func() { close(appendCancelled) })
				return microblog.Result{}, ctx.Err()
			case <-time.After(5 * time.Second):
				return microblog.Result{NextCursor: "stale"}, nil
			}
		}
		return microblog.Result{NextCursor: "fresh"}, nil
	}
	engine := NewEngine(nil, 20)
	engine.Register(testAccount, mediator)
	ctx := context.Background()

	if err := engine.Refresh(ctx, "feed"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	appendDone := make(chan error, 1)
	go func() { appendDone <- engine.LoadMore(ctx, "feed") }()
	<-appendStarted

	if err := engine.Refresh(ctx, "feed"); err != nil {
		t.Fatalf("overtaking Refresh() error = %v", err)
	}

	select {
	case <-appendCancelled:
	case <-time.After(time.Second):
		t.Fatal("append fetch was not cancelled by the refresh")
	}
	// The cancelled append reports no error upward: its generation is
	// stale and its outcome discarded.
	if err := <-appendDone; err != nil {
		t.Errorf("stale LoadMore() error = %v, want nil", err)
	}

	// The next append uses the refresh's cursor, not the stale one
	if err := engine.LoadMore(ctx, "feed"); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	requests := mediator.recorded()
	last := requests[len(requests)-1]
	if last.Cursor != "fresh" {
		t.Errorf("append after refresh carried cursor %q, want fresh", last.Cursor)
	}
}

func TestFetchErrorSurfacesInState(t *testing.T) {
	fetchErr := errors.New("backend down")
	failing := true
	mediator := &fakeMediator{
		key: "feed",
		hook: func(ctx context.Context, req microblog.Request) (microblog.Result, error) {
			if failing {
				return microblog.Result{}, fetchErr
			}
			return microblog.Result{NextCursor: "ok"}, nil
		},
	}
	engine := NewEngine(nil, 20)
	engine.Register(testAccount, mediator)
	ctx := context.Background()

	if err := engine.Refresh(ctx, "feed"); !errors.Is(err, fetchErr) {
		t.Fatalf("Refresh() error = %v, want %v", err, fetchErr)
	}
	if got := engine.State("feed").Err; !errors.Is(got, fetchErr) {
		t.Errorf("State().Err = %v, want %v", got, fetchErr)
	}

	failing = false
	if err := engine.Refresh(ctx, "feed"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := engine.State("feed").Err; got != nil {
		t.Errorf("State().Err = %v after success, want nil", got)
	}
}

func TestUnregisteredPagingKey(t *testing.T) {
	engine := NewEngine(nil, 20)
	if err := engine.Refresh(context.Background(), "nope"); err == nil {
		t.Error("Refresh() on unregistered key should fail")
	}
	if _, err := engine.Timeline("nope"); err == nil {
		t.Error("Timeline() on unregistered key should fail")
	}
}

func TestPrependEndIsIndependentOfAppend(t *testing.T) {
	mediator := &fakeMediator{
		key: "feed",
		hook: func(ctx context.Context, req microblog.Request) (microblog.Result, error) {
			if req.Kind == microblog.Prepend {
				return microblog.Result{EndOfPagination: true}, nil
			}
			return microblog.Result{NextCursor: "next"}, nil
		},
	}
	engine := NewEngine(nil, 20)
	engine.Register(testAccount, mediator)
	ctx := context.Background()

	if err := engine.Refresh(ctx, "feed"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err := engine.LoadNewer(ctx, "feed"); err != nil {
		t.Fatalf("LoadNewer() error = %v", err)
	}
	// Prepend hit its end; append still proceeds
	if err := engine.LoadNewer(ctx, "feed"); err != nil {
		t.Fatalf("LoadNewer() after end error = %v", err)
	}
	if err := engine.LoadMore(ctx, "feed"); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}

	requests := mediator.recorded()
	if len(requests) != 3 {
		t.Fatalf("mediator saw %d requests, want 3 (second prepend must not fetch)", len(requests))
	}
	if requests[2].Kind != microblog.Append {
		t.Errorf("last request kind = %v, want append", requests[2].Kind)
	}
}
