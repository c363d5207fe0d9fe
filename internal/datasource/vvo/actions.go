package vvo

import (
	"context"
	"fmt"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/mutation"
	api "github.com/DimensionDev/Flare-sub003/internal/vvo"
)

func withStatus(rewrite func(*api.Status)) func(db.StatusContent) (db.StatusContent, error) {
	return func(content db.StatusContent) (db.StatusContent, error) {
		if content.Type != db.ContentVVO || content.VVO == nil {
			return content, fmt.Errorf("not a vvo status, content type is %q", content.Type)
		}
		statusCopy := *content.VVO
		rewrite(&statusCopy)
		return db.StatusContent{Type: db.ContentVVO, VVO: &statusCopy}, nil
	}
}

// Like likes a status optimistically. VVO carries no per-viewer like
// flag on the status, only the attitude counter moves.
func (d *DataSource) Like(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "like",
		Apply: withStatus(func(status *api.Status) {
			status.AttitudesCount++
		}),
		Revert: withStatus(func(status *api.Status) {
			if status.AttitudesCount > 0 {
				status.AttitudesCount--
			}
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.LikeStatus(ctx, statusKey.ID)
		},
	})
}

// Unlike removes a like optimistically
func (d *DataSource) Unlike(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unlike",
		Apply: withStatus(func(status *api.Status) {
			if status.AttitudesCount > 0 {
				status.AttitudesCount--
			}
		}),
		Revert: withStatus(func(status *api.Status) {
			status.AttitudesCount++
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.UnlikeStatus(ctx, statusKey.ID)
		},
	})
}

// Repost reposts a status optimistically
func (d *DataSource) Repost(ctx context.Context, statusKey model.Key, content string) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "repost",
		Apply: withStatus(func(status *api.Status) {
			status.RepostsCount++
		}),
		Revert: withStatus(func(status *api.Status) {
			if status.RepostsCount > 0 {
				status.RepostsCount--
			}
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			_, err := d.client.Repost(ctx, statusKey.ID, content)
			return nil, err
		},
	})
}

// Favorite bookmarks a status optimistically
func (d *DataSource) Favorite(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "favorite",
		Apply: withStatus(func(status *api.Status) {
			status.Favorited = true
		}),
		Revert: withStatus(func(status *api.Status) {
			status.Favorited = false
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.FavoriteStatus(ctx, statusKey.ID)
		},
	})
}

// Unfavorite removes a bookmark optimistically
func (d *DataSource) Unfavorite(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unfavorite",
		Apply: withStatus(func(status *api.Status) {
			status.Favorited = false
		}),
		Revert: withStatus(func(status *api.Status) {
			status.Favorited = true
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.UnfavoriteStatus(ctx, statusKey.ID)
		},
	})
}

// Delete removes the viewer's own status, cache first
func (d *DataSource) Delete(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Delete(ctx, d.accountKey, statusKey, func(ctx context.Context) error {
		return d.client.DeleteStatus(ctx, statusKey.ID)
	})
}
