package bluesky

import (
	"context"
	"fmt"

	api "github.com/DimensionDev/Flare-sub003/internal/bluesky"
	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/mutation"
)

// pendingRecordURI marks a like/repost whose record URI has not come
// back from the server yet. The reconcile step replaces it.
const pendingRecordURI = "pending"

func withPost(rewrite func(*api.PostView)) func(db.StatusContent) (db.StatusContent, error) {
	return func(content db.StatusContent) (db.StatusContent, error) {
		if content.Type != db.ContentBluesky || content.Bluesky == nil {
			return content, fmt.Errorf("not a bluesky post, content type is %q", content.Type)
		}
		postCopy := *content.Bluesky
		if postCopy.Viewer != nil {
			viewerCopy := *postCopy.Viewer
			postCopy.Viewer = &viewerCopy
		} else {
			postCopy.Viewer = &api.Viewer{}
		}
		rewrite(&postCopy)
		return db.StatusContent{Type: db.ContentBluesky, Bluesky: &postCopy}, nil
	}
}

// Like creates a like record optimistically. The viewer's like URI is
// marked pending until the created record ref comes back; undoing a
// like needs that URI.
func (d *DataSource) Like(ctx context.Context, statusKey model.Key) error {
	var cid string
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "like",
		Apply: withPost(func(post *api.PostView) {
			cid = post.CID
			post.LikeCount++
			post.Viewer.Like = pendingRecordURI
		}),
		Revert: withPost(func(post *api.PostView) {
			if post.LikeCount > 0 {
				post.LikeCount--
			}
			post.Viewer.Like = ""
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			ref, err := d.client.CreateRecord(ctx, "app.bsky.feed.like", map[string]interface{}{
				"subject": map[string]interface{}{"uri": statusKey.ID, "cid": cid},
			})
			if err != nil {
				return nil, err
			}
			err = d.store.UpdateStatus(ctx, d.accountKey, statusKey, withPost(func(post *api.PostView) {
				post.Viewer.Like = ref.URI
			}))
			return nil, err
		},
	})
}

// Unlike deletes the viewer's like record optimistically
func (d *DataSource) Unlike(ctx context.Context, statusKey model.Key) error {
	var likeURI string
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unlike",
		Apply: withPost(func(post *api.PostView) {
			likeURI = post.Viewer.Like
			if post.LikeCount > 0 {
				post.LikeCount--
			}
			post.Viewer.Like = ""
		}),
		Revert: withPost(func(post *api.PostView) {
			post.LikeCount++
			post.Viewer.Like = likeURI
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			if likeURI == "" || likeURI == pendingRecordURI {
				return nil, fmt.Errorf("no like record to delete for %s", statusKey.ID)
			}
			return nil, d.client.DeleteRecord(ctx, likeURI)
		},
	})
}

// Repost creates a repost record optimistically
func (d *DataSource) Repost(ctx context.Context, statusKey model.Key) error {
	var cid string
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "repost",
		Apply: withPost(func(post *api.PostView) {
			cid = post.CID
			post.RepostCount++
			post.Viewer.Repost = pendingRecordURI
		}),
		Revert: withPost(func(post *api.PostView) {
			if post.RepostCount > 0 {
				post.RepostCount--
			}
			post.Viewer.Repost = ""
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			ref, err := d.client.CreateRecord(ctx, "app.bsky.feed.repost", map[string]interface{}{
				"subject": map[string]interface{}{"uri": statusKey.ID, "cid": cid},
			})
			if err != nil {
				return nil, err
			}
			err = d.store.UpdateStatus(ctx, d.accountKey, statusKey, withPost(func(post *api.PostView) {
				post.Viewer.Repost = ref.URI
			}))
			return nil, err
		},
	})
}

// Unrepost deletes the viewer's repost record optimistically
func (d *DataSource) Unrepost(ctx context.Context, statusKey model.Key) error {
	var repostURI string
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unrepost",
		Apply: withPost(func(post *api.PostView) {
			repostURI = post.Viewer.Repost
			if post.RepostCount > 0 {
				post.RepostCount--
			}
			post.Viewer.Repost = ""
		}),
		Revert: withPost(func(post *api.PostView) {
			post.RepostCount++
			post.Viewer.Repost = repostURI
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			if repostURI == "" || repostURI == pendingRecordURI {
				return nil, fmt.Errorf("no repost record to delete for %s", statusKey.ID)
			}
			return nil, d.client.DeleteRecord(ctx, repostURI)
		},
	})
}

// Delete removes the viewer's own post, cache first
func (d *DataSource) Delete(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Delete(ctx, d.accountKey, statusKey, func(ctx context.Context) error {
		return d.client.DeleteRecord(ctx, statusKey.ID)
	})
}

// Follow creates a follow record for the given DID
func (d *DataSource) Follow(ctx context.Context, userKey model.Key) error {
	_, err := d.client.CreateRecord(ctx, "app.bsky.graph.follow", map[string]interface{}{
		"subject": userKey.ID,
	})
	return err
}

// Unfollow deletes an existing follow record by its AT-URI
func (d *DataSource) Unfollow(ctx context.Context, followRecordURI string) error {
	return d.client.DeleteRecord(ctx, followRecordURI)
}
