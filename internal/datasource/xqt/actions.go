package xqt

import (
	"context"
	"fmt"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/mutation"
	api "github.com/DimensionDev/Flare-sub003/internal/xqt"
)

func withTweet(rewrite func(*api.TweetLegacy)) func(db.StatusContent) (db.StatusContent, error) {
	return func(content db.StatusContent) (db.StatusContent, error) {
		if content.Type != db.ContentXQT || content.XQT == nil {
			return content, fmt.Errorf("not an xqt tweet, content type is %q", content.Type)
		}
		tweetCopy := *content.XQT
		rewrite(&tweetCopy.Legacy)
		return db.StatusContent{Type: db.ContentXQT, XQT: &tweetCopy}, nil
	}
}

// Favorite likes a tweet optimistically
func (d *DataSource) Favorite(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "favorite",
		Apply: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Favorited = true
			tweet.FavoriteCount++
		}),
		Revert: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Favorited = false
			if tweet.FavoriteCount > 0 {
				tweet.FavoriteCount--
			}
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.FavoriteTweet(ctx, statusKey.ID)
		},
	})
}

// Unfavorite removes a like optimistically
func (d *DataSource) Unfavorite(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unfavorite",
		Apply: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Favorited = false
			if tweet.FavoriteCount > 0 {
				tweet.FavoriteCount--
			}
		}),
		Revert: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Favorited = true
			tweet.FavoriteCount++
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.UnfavoriteTweet(ctx, statusKey.ID)
		},
	})
}

// Retweet retweets a tweet optimistically
func (d *DataSource) Retweet(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "retweet",
		Apply: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Retweeted = true
			tweet.RetweetCount++
		}),
		Revert: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Retweeted = false
			if tweet.RetweetCount > 0 {
				tweet.RetweetCount--
			}
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.CreateRetweet(ctx, statusKey.ID)
		},
	})
}

// Unretweet removes a retweet optimistically
func (d *DataSource) Unretweet(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unretweet",
		Apply: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Retweeted = false
			if tweet.RetweetCount > 0 {
				tweet.RetweetCount--
			}
		}),
		Revert: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Retweeted = true
			tweet.RetweetCount++
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.DeleteRetweet(ctx, statusKey.ID)
		},
	})
}

// Bookmark saves a tweet optimistically
func (d *DataSource) Bookmark(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "bookmark",
		Apply: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Bookmarked = true
			tweet.BookmarkCount++
		}),
		Revert: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Bookmarked = false
			if tweet.BookmarkCount > 0 {
				tweet.BookmarkCount--
			}
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.CreateBookmark(ctx, statusKey.ID)
		},
	})
}

// Unbookmark removes a bookmark optimistically
func (d *DataSource) Unbookmark(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Apply(ctx, d.accountKey, statusKey, mutation.Mutator{
		Name: "unbookmark",
		Apply: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Bookmarked = false
			if tweet.BookmarkCount > 0 {
				tweet.BookmarkCount--
			}
		}),
		Revert: withTweet(func(tweet *api.TweetLegacy) {
			tweet.Bookmarked = true
			tweet.BookmarkCount++
		}),
		Remote: func(ctx context.Context) (*db.StatusContent, error) {
			return nil, d.client.DeleteBookmark(ctx, statusKey.ID)
		},
	})
}

// Delete removes the viewer's own tweet, cache first
func (d *DataSource) Delete(ctx context.Context, statusKey model.Key) error {
	return d.mutations.Delete(ctx, d.accountKey, statusKey, func(ctx context.Context) error {
		return d.client.DeleteTweet(ctx, statusKey.ID)
	})
}
