package mastodon

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	api "github.com/DimensionDev/Flare-sub003/internal/mastodon"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/mutation"
)

func clampCount(count int64) int64 {
	if count < 0 {
		return 0
	}
	return count
}

// withStatus lifts a status rewrite into a content mutator, rejecting
// rows that are not plain Mastodon statuses.
func withStatus(rewrite func(*api.Status)) func(db.StatusContent) (db.StatusContent, error) {
	return func(content db.StatusContent) (db.StatusContent, error) {
		if content.Type != db.ContentMastodon || content.Mastodon == nil {
			return content, fmt.Errorf("not a mastodon status, content type is %q", content.Type)
		}
		statusCopy := *content.Mastodon
		rewrite(&statusCopy)
		return db.StatusContent{Type: db.ContentMastodon, Mastodon: &statusCopy}, nil
	}
}

func (d *DataSource) reconciled(status *api.Status, err error) (*db.StatusContent, error) {
	if err != nil {
		return nil, err
	}
	return &db.StatusContent{Type: db.ContentMastodon, Mastodon: status}, nil
}

// Favourite marks a status favourited optimistically, then settles
// with the server. On failure the exact inverse restores the cache.
func (d *DataSource) Favourite(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "favourite",
		Apply: withStatus(func(status *api.Status) {
			status.Favourited = true
			status.FavouritesCount++
		}),
		Revert: withStatus(func(status *api.Status) {
			status.Favourited = false
			status.FavouritesCount = clampCount(status.FavouritesCount - 1)
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return d.reconciled(d.client.Favourite(ctx, statusKey.ID))
		},
	})
}

// Unfavourite removes a favourite optimistically
func (d *DataSource) Unfavourite(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unfavourite",
		Apply: withStatus(func(status *api.Status) {
			status.Favourited = false
			status.FavouritesCount = clampCount(status.FavouritesCount - 1)
		}),
		Revert: withStatus(func(status *api.Status) {
			status.Favourited = true
			status.FavouritesCount++
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return d.reconciled(d.client.Unfavourite(ctx, statusKey.ID))
		},
	})
}

// Reblog boosts a status optimistically
func (d *DataSource) Reblog(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "reblog",
		Apply: withStatus(func(status *api.Status) {
			status.Reblogged = true
			status.ReblogsCount++
		}),
		Revert: withStatus(func(status *api.Status) {
			status.Reblogged = false
			status.ReblogsCount = clampCount(status.ReblogsCount - 1)
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			reblog, err := d.client.Reblog(ctx, statusKey.ID)
			if err != nil {
				return nil, err
			}
			// The reblog endpoint returns the boost wrapper; the cached
			// row is the original, which the wrapper embeds.
			if reblog.Reblog != nil {
				return &db.StatusContent{Type: db.ContentMastodon, Mastodon: reblog.Reblog}, nil
			}
			return &db.StatusContent{Type: db.ContentMastodon, Mastodon: reblog}, nil
		},
	})
}

// Unreblog removes a boost optimistically
func (d *DataSource) Unreblog(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unreblog",
		Apply: withStatus(func(status *api.Status) {
			status.Reblogged = false
			status.ReblogsCount = clampCount(status.ReblogsCount - 1)
		}),
		Revert: withStatus(func(status *api.Status) {
			status.Reblogged = true
			status.ReblogsCount++
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return d.reconciled(d.client.Unreblog(ctx, statusKey.ID))
		},
	})
}

// Bookmark saves a status optimistically. Bookmarks have no public
// counter, only the flag flips.
func (d *DataSource) Bookmark(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "bookmark",
		Apply: withStatus(func(status *api.Status) {
			status.Bookmarked = true
		}),
		Revert: withStatus(func(status *api.Status) {
			status.Bookmarked = false
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return d.reconciled(d.client.Bookmark(ctx, statusKey.ID))
		},
	})
}

// Unbookmark removes a bookmark optimistically
func (d *DataSource) Unbookmark(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unbookmark",
		Apply: withStatus(func(status *api.Status) {
			status.Bookmarked = false
		}),
		Revert: withStatus(func(status *api.Status) {
			status.Bookmarked = true
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return d.reconciled(d.client.Unbookmark(ctx, statusKey.ID))
		},
	})
}

// Delete removes the viewer's own status, cache first
func (d *DataSource) Delete(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Delete(ctx, d.accountKey, statusKey, func(ctx context.Context) error {
		return d.client.DeleteStatus(ctx, statusKey.ID)
	})
}

// Follow follows an account with an optimistic follower bump
func (d *DataSource) Follow(ctx context.Context, userKey model.Key) error {
	return d.updateRelation(ctx, userKey, "follow", 1, d.client.Follow)
}

// Unfollow unfollows an account
func (d *DataSource) Unfollow(ctx context.Context, userKey model.Key) error {
	return d.updateRelation(ctx, userKey, "unfollow", -1, d.client.Unfollow)
}

func (d *DataSource) updateRelation(ctx context.Context, userKey model.Key, name string, delta int64, remote func(context.Context, string) (*api.Relationship, error)) error {
	rewrite := func(content db.UserContent) (db.UserContent, error) {
		if content.Type != db.UserMastodon || content.Mastodon == nil {
			return content, fmt.Errorf("not a mastodon account, content type is %q", content.Type)
		}
		accountCopy := *content.Mastodon
		accountCopy.FollowersCount = clampCount(accountCopy.FollowersCount + delta)
		return db.UserContent{Type: db.UserMastodon, Mastodon: &accountCopy}, nil
	}
	if err := d.store.UpdateUser(ctx, userKey, rewrite); err != nil {
		return err
	}
	go func() {
		if _, err := remote(context.Background(), userKey.ID); err != nil {
			d.logger.Warn("Relation change failed, rolling back",
				zap.String("action", name),
				zap.String("user_key", userKey.String()),
				zap.Error(err))
			revert := func(content db.UserContent) (db.UserContent, error) {
				if content.Type != db.UserMastodon || content.Mastodon == nil {
					return content, fmt.Errorf("not a mastodon account, content type is %q", content.Type)
				}
				accountCopy := *content.Mastodon
				accountCopy.FollowersCount = clampCount(accountCopy.FollowersCount - delta)
				return db.UserContent{Type: db.UserMastodon, Mastodon: &accountCopy}, nil
			}
			if err := d.store.UpdateUser(context.Background(), userKey, revert); err != nil {
				d.logger.Error("Relation rollback failed", zap.Error(err))
			}
		}
	}()
	return nil
}
