package misskey

import (
	"context"
	"fmt"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	api "github.com/DimensionDev/Flare-sub003/internal/misskey"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/mutation"
)

func withNote(rewrite func(*api.Note)) func(db.StatusContent) (db.StatusContent, error) {
	return func(content db.StatusContent) (db.StatusContent, error) {
		if content.Type != db.ContentMisskey || content.Misskey == nil {
			return content, fmt.Errorf("not a misskey note, content type is %q", content.Type)
		}
		noteCopy := *content.Misskey
		// Reactions is a shared map; the rewrite must not mutate the
		// old content in place.
		reactions := make(map[string]int64, len(noteCopy.Reactions))
		for emoji, count := range noteCopy.Reactions {
			reactions[emoji] = count
		}
		noteCopy.Reactions = reactions
		rewrite(&noteCopy)
		return db.StatusContent{Type: db.ContentMisskey, Misskey: &noteCopy}, nil
	}
}

// React adds the viewer's reaction optimistically. Misskey allows one
// reaction per note, so an existing reaction is replaced.
func (d *DataSource) React(ctx context.Context, statusKey model.Key, reaction string) error {
	var previous string
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "react",
		Apply: withNote(func(note *api.Note) {
			previous = note.MyReaction
			if previous != "" {
				if count := note.Reactions[previous] - 1; count > 0 {
					note.Reactions[previous] = count
				} else {
					delete(note.Reactions, previous)
				}
			}
			note.MyReaction = reaction
			note.Reactions[reaction]++
		}),
		Revert: withNote(func(note *api.Note) {
			if count := note.Reactions[reaction] - 1; count > 0 {
				note.Reactions[reaction] = count
			} else {
				delete(note.Reactions, reaction)
			}
			note.MyReaction = previous
			if previous != "" {
				note.Reactions[previous]++
			}
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			if previous != "" {
				if err := d.client.DeleteReaction(ctx, statusKey.ID); err != nil {
					return nil, err
				}
			}
			return nil, d.client.CreateReaction(ctx, statusKey.ID, reaction)
		},
	})
}

// Unreact removes the viewer's reaction optimistically
func (d *DataSource) Unreact(ctx context.Context, statusKey model.Key) error {
	var removed string
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unreact",
		Apply: withNote(func(note *api.Note) {
			removed = note.MyReaction
			if removed != "" {
				if count := note.Reactions[removed] - 1; count > 0 {
					note.Reactions[removed] = count
				} else {
					delete(note.Reactions, removed)
				}
			}
			note.MyReaction = ""
		}),
		Revert: withNote(func(note *api.Note) {
			note.MyReaction = removed
			if removed != "" {
				note.Reactions[removed]++
			}
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.DeleteReaction(ctx, statusKey.ID)
		},
	})
}

// Renote boosts a note optimistically
func (d *DataSource) Renote(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "renote",
		Apply: withNote(func(note *api.Note) {
			note.RenoteCount++
		}),
		Revert: withNote(func(note *api.Note) {
			if note.RenoteCount > 0 {
				note.RenoteCount--
			}
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			_, err := d.client.Renote(ctx, statusKey.ID)
			return nil, err
		},
	})
}

// Unrenote removes the viewer's renotes of a note optimistically
func (d *DataSource) Unrenote(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unrenote",
		Apply: withNote(func(note *api.Note) {
			if note.RenoteCount > 0 {
				note.RenoteCount--
			}
		}),
		Revert: withNote(func(note *api.Note) {
			note.RenoteCount++
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.Unrenote(ctx, statusKey.ID)
		},
	})
}

// Favorite adds a note to the viewer's favorites. Misskey keeps no
// public favorite state on the note, so there is nothing to rewrite;
// the call still routes through the mutation engine for uniform
// failure reporting.
func (d *DataSource) Favorite(ctx context.Context, statusKey model.Key) error {
	identity := func(content db.StatusContent) (db.StatusContent, error) {
		return content, nil
	}
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name:   "favorite",
		Apply:  identity,
		Revert: identity,
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.FavoriteNote(ctx, statusKey.ID)
		},
	})
}

// Unfavorite removes a note from the viewer's favorites
func (d *DataSource) Unfavorite(ctx context.Context, statusKey model.Key) error {
	identity := func(content db.StatusContent) (db.StatusContent, error) {
		return content, nil
	}
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name:   "unfavorite",
		Apply:  identity,
		Revert: identity,
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.UnfavoriteNote(ctx, statusKey.ID)
		},
	})
}

// Delete removes the viewer's own note, cache first
func (d *DataSource) Delete(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Delete(ctx, d.accountKey, statusKey, func(ctx context.Context) error {
		return d.client.DeleteNote(ctx, statusKey.ID)
	})
}

// Follow follows a user
func (d *DataSource) Follow(ctx context.Context, userKey model.Key) error {
	return d.client.FollowUser(ctx, userKey.ID)
}

// Unfollow unfollows a user
func (d *DataSource) Unfollow(ctx context.Context, userKey model.Key) error {
	return d.client.UnfollowUser(ctx, userKey.ID)
}
