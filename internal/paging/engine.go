package paging

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
)

// Engine drives mediators in response to refresh/load-more signals
// and tracks per-feed paging state. At most one fetch is in flight
// per paging key; a request of the same kind arriving while one runs
// is coalesced, and a Refresh overtaking an in-flight Append cancels
// it so the stale page can never commit after the clear.
type Engine struct {
	store    *store.Store
	pageSize int
	logger   *zap.Logger

	mu        sync.Mutex
	mediators map[string]registration
	states    map[string]*feedState
}

type registration struct {
	accountKey model.Key
	mediator   microblog.TimelineMediator
}

// feedState is the paging state machine for one paging key
type feedState struct {
	mu            sync.Mutex
	inflight      bool
	inflightKind  microblog.RequestKind
	cancel        context.CancelFunc
	generation    uint64
	appendCursor  string
	prependCursor string
	endAppend     bool
	endPrepend    bool
	lastErr       error
}

// NewEngine creates a paging engine over the given store
func NewEngine(cacheStore *store.Store, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Engine{
		store:     cacheStore,
		pageSize:  pageSize,
		logger:    logging.GetLogger().With(zap.String("component", "paging-engine")),
		mediators: make(map[string]registration),
		states:    make(map[string]*feedState),
	}
}

// Register binds a mediator to its paging key. The account key is
// needed for store reads on the observe side.
func (e *Engine) Register(accountKey model.Key, mediator microblog.TimelineMediator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mediators[mediator.PagingKey()] = registration{accountKey: accountKey, mediator: mediator}
}

func (e *Engine) lookup(pagingKey string) (registration, *feedState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	reg, ok := e.mediators[pagingKey]
	if !ok {
		return registration{}, nil, fmt.Errorf("no mediator registered for paging key %q", pagingKey)
	}
	state, ok := e.states[pagingKey]
	if !ok {
		state = &feedState{}
		e.states[pagingKey] = state
	}
	return reg, state, nil
}

// Refresh discards the feed's pagination state and fetches the newest
// page. An in-flight Append or Prepend is cancelled first; an
// in-flight Refresh coalesces this call into a no-op.
func (e *Engine) Refresh(ctx context.Context, pagingKey string) error {
	return e.drive(ctx, pagingKey, microblog.Refresh)
}

// LoadMore fetches the next older page. No-op when end of pagination
// was reached (sticky until the next Refresh) or a fetch is running.
func (e *Engine) LoadMore(ctx context.Context, pagingKey string) error {
	return e.drive(ctx, pagingKey, microblog.Append)
}

// LoadNewer fetches items above the current top where the backend
// supports it; mediators without a prepend cursor report end
// immediately.
func (e *Engine) LoadNewer(ctx context.Context, pagingKey string) error {
	return e.drive(ctx, pagingKey, microblog.Prepend)
}

func (e *Engine) drive(ctx context.Context, pagingKey string, kind microblog.RequestKind) error {
	reg, state, err := e.lookup(pagingKey)
	if err != nil {
		return err
	}

	state.mu.Lock()
	if state.inflight {
		if kind == microblog.Refresh && state.inflightKind != microblog.Refresh {
			// Refresh wins over a running append/prepend: cancel it so
			// its page cannot commit after our clear.
			state.cancel()
		} else {
			state.mu.Unlock()
			return nil
		}
	}
	switch kind {
	case microblog.Append:
		if state.endAppend {
			state.mu.Unlock()
			return nil
		}
	case microblog.Prepend:
		if state.endPrepend {
			state.mu.Unlock()
			return nil
		}
	case microblog.Refresh:
		state.generation++
	}
	generation := state.generation
	request := microblog.Request{Kind: kind}
	switch kind {
	case microblog.Append:
		request.Cursor = state.appendCursor
	case microblog.Prepend:
		request.Cursor = state.prependCursor
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	state.inflight = true
	state.inflightKind = kind
	state.cancel = cancel
	state.mu.Unlock()

	result, err := reg.mediator.Timeline(fetchCtx, e.pageSize, request)
	cancel()

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.generation != generation {
		// A refresh overtook this fetch; its outcome no longer matters,
		// and the inflight flag now belongs to the refresh.
		return nil
	}
	state.inflight = false
	if err != nil {
		state.lastErr = err
		e.logger.Warn("Fetch failed",
			zap.String("paging_key", pagingKey),
			zap.String("kind", kind.String()),
			zap.Error(err))
		return err
	}
	state.lastErr = nil
	switch kind {
	case microblog.Refresh:
		state.appendCursor = result.NextCursor
		state.endAppend = result.EndOfPagination
		state.prependCursor = ""
		state.endPrepend = false
	case microblog.Append:
		state.appendCursor = result.NextCursor
		state.endAppend = result.EndOfPagination
	case microblog.Prepend:
		state.prependCursor = result.NextCursor
		state.endPrepend = result.EndOfPagination
	}
	e.logger.Debug("Fetch complete",
		zap.String("paging_key", pagingKey),
		zap.String("kind", kind.String()),
		zap.Int("count", result.Count),
		zap.Bool("end", result.EndOfPagination))
	return nil
}

// State is an observable snapshot of one feed's paging state
type State struct {
	Loading         bool
	LoadingKind     microblog.RequestKind
	EndOfPagination bool
	Err             error
}

// State reports the current paging state for a feed
func (e *Engine) State(pagingKey string) State {
	e.mu.Lock()
	state, ok := e.states[pagingKey]
	e.mu.Unlock()
	if !ok {
		return State{}
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return State{
		Loading:         state.inflight,
		LoadingKind:     state.inflightKind,
		EndOfPagination: state.endAppend,
		Err:             state.lastErr,
	}
}

// Timeline returns the observable read view for a registered feed
func (e *Engine) Timeline(pagingKey string) (*Timeline, error) {
	reg, _, err := e.lookup(pagingKey)
	if err != nil {
		return nil, err
	}
	return &Timeline{
		engine:     e,
		store:      e.store,
		accountKey: reg.accountKey,
		pagingKey:  pagingKey,
	}, nil
}
