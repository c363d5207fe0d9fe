package paging

import (
	"context"

	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

// Timeline is the observable read side of one feed. Reads come from
// the cache only; paging past the loaded window triggers an Append in
// the background rather than blocking the reader.
type Timeline struct {
	engine     *Engine
	store      *store.Store
	accountKey model.Key
	pagingKey  string
}

// Window reads a slice of the cached timeline in sort order. When the
// requested window runs past what is cached and the feed has not hit
// end of pagination, a LoadMore is kicked off asynchronously; the
// caller learns about the new items through Watch.
func (t *Timeline) Window(ctx context.Context, limit, offset int) ([]store.TimelineItem, error) {
	items, err := t.store.Timeline(ctx, t.accountKey, t.pagingKey, limit, offset)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) < limit && !t.engine.State(t.pagingKey).EndOfPagination {
		go func() {
			_ = t.engine.LoadMore(context.Background(), t.pagingKey)
		}()
	}
	return items, nil
}

// Count reports how many items are cached for this feed
func (t *Timeline) Count(ctx context.Context) (int64, error) {
	return t.store.TimelineCount(ctx, t.accountKey, t.pagingKey)
}

// Watch signals whenever the cached timeline changes. The channel is
// coalesced; call cancel when done observing.
func (t *Timeline) Watch() (<-chan struct{}, func()) {
	return t.store.SubscribeTimeline(t.pagingKey)
}

// Refresh reloads the feed from the top
func (t *Timeline) Refresh(ctx context.Context) error {
	return t.engine.Refresh(ctx, t.pagingKey)
}

// LoadMore fetches the next older page
func (t *Timeline) LoadMore(ctx context.Context) error {
	return t.engine.LoadMore(ctx, t.pagingKey)
}
