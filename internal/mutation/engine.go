package mutation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
)

const remoteTimeout = 30 * time.Second

// Mutator describes one optimistic status mutation. Apply rewrites
// the cached content immediately; Revert is its exact inverse, used
// when the remote call fails. Remote performs the backend call and
// may return an authoritative replacement to reconcile the cache.
type Mutator struct {
	Name   string
	Apply  func(db.StatusContent) (db.StatusContent, error)
	Revert func(db.StatusContent) (db.StatusContent, error)
	Remote func(ctx context.Context) (*db.StatusContent, error)
}

// Failure reports a remote mutation that was rolled back
type Failure struct {
	AccountKey model.Key
	StatusKey  model.Key
	Name       string
	Err        error
}

// Engine runs optimistic mutations: the cache changes first so the
// reader sees the effect instantly, and the remote call settles in
// the background. Failures revert the cache and surface on Failures.
type Engine struct {
	store    *store.Store
	logger   *zap.Logger
	failures chan Failure
	wg       sync.WaitGroup
}

// NewEngine creates a mutation engine over the given store
func NewEngine(cacheStore *store.Store) *Engine {
	return &Engine{
		store:    cacheStore,
		logger:   logging.GetLogger().With(zap.String("component", "mutation-engine")),
		failures: make(chan Failure, 64),
	}
}

// Apply performs the optimistic update synchronously and launches the
// remote call. It returns once the cache reflects the new state; the
// remote outcome lands later through reconcile or rollback.
func (e *Engine) Apply(ctx context.Context, accountKey, statusKey model.Key, m Mutator) error {
	if err := e.store.UpdateStatus(ctx, accountKey, statusKey, m.Apply); err != nil {
		return err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		remoteCtx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()

		authoritative, err := m.Remote(remoteCtx)
		if err != nil {
			e.logger.Warn("Remote mutation failed, rolling back",
				zap.String("mutation", m.Name),
				zap.String("status_key", statusKey.String()),
				zap.Error(err))
			if revertErr := e.store.UpdateStatus(remoteCtx, accountKey, statusKey, m.Revert); revertErr != nil {
				e.logger.Error("Rollback failed",
					zap.String("status_key", statusKey.String()),
					zap.Error(revertErr))
			}
			e.report(Failure{AccountKey: accountKey, StatusKey: statusKey, Name: m.Name, Err: err})
			return
		}
		if authoritative != nil {
			err := e.store.UpdateStatus(remoteCtx, accountKey, statusKey, func(db.StatusContent) (db.StatusContent, error) {
				return *authoritative, nil
			})
			if err != nil {
				e.logger.Warn("Reconcile failed",
					zap.String("status_key", statusKey.String()),
					zap.Error(err))
			}
		}
	}()
	return nil
}

// Delete removes the status from the cache first, then tells the
// backend in the background. A remote failure is reported but the
// cache removal stands; the item reappears on the next refresh if the
// backend still has it.
func (e *Engine) Delete(ctx context.Context, accountKey, statusKey model.Key, remote func(ctx context.Context) error) error {
	if err := e.store.DeleteStatus(ctx, accountKey, statusKey); err != nil {
		return err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		remoteCtx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if err := remote(remoteCtx); err != nil {
			e.logger.Warn("Remote delete failed",
				zap.String("status_key", statusKey.String()),
				zap.Error(err))
			e.report(Failure{AccountKey: accountKey, StatusKey: statusKey, Name: "delete", Err: err})
		}
	}()
	return nil
}

func (e *Engine) report(f Failure) {
	select {
	case e.failures <- f:
	default:
		e.logger.Warn("Failure channel full, dropping report",
			zap.String("mutation", f.Name))
	}
}

// Failures surfaces rolled-back mutations for the UI layer
func (e *Engine) Failures() <-chan Failure {
	return e.failures
}

// Wait blocks until all launched remote calls have settled
func (e *Engine) Wait() {
	e.wg.Wait()
}
