package xqt

import (
	"context"
	"fmt"
	"time"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

type fetchedPage struct {
	statuses   []store.StatusEntry
	users      []store.UserEntry
	nextCursor string
}

// feedMediator adapts one bottom-cursor paged XQT feed to the paging
// contract. The web API has no "newer than" direction, so Prepend
// reports the end immediately.
type feedMediator struct {
	source    *DataSource
	pagingKey string
	fetch     func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error)
}

func (m *feedMediator) PagingKey() string {
	return m.pagingKey
}

func (m *feedMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind == microblog.Prepend {
		return microblog.Result{EndOfPagination: true}, nil
	}
	cursor := ""
	if req.Kind == microblog.Append {
		cursor = req.Cursor
	}
	page, err := m.fetch(ctx, pageSize, cursor)
	if err != nil {
		return microblog.Result{}, err
	}
	err = m.source.store.SavePage(ctx, store.Page{
		AccountKey: m.source.accountKey,
		PagingKey:  m.pagingKey,
		Statuses:   page.statuses,
		Users:      page.users,
	}, req.Kind == microblog.Refresh)
	if err != nil {
		return microblog.Result{}, err
	}
	return microblog.Result{
		NextCursor:      page.nextCursor,
		EndOfPagination: len(page.statuses) == 0 || page.nextCursor == "",
		Count:           len(page.statuses),
	}, nil
}

// HomeTimeline returns the mediator for the home feed
func (d *DataSource) HomeTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "home_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			tweets, next, err := d.client.HomeTimeline(ctx, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapTweets(tweets)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// UserTimeline returns the mediator for one user's tweets
func (d *DataSource) UserTimeline(userID string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("user_%s_%s", userID, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			tweets, next, err := d.client.UserTweets(ctx, userID, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapTweets(tweets)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// SearchTimeline returns the mediator for a tweet search
func (d *DataSource) SearchTimeline(query string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("search_%s_%s", query, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			tweets, next, err := d.client.SearchTimeline(ctx, query, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapTweets(tweets)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// BookmarkTimeline returns the mediator for the bookmark feed
func (d *DataSource) BookmarkTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "bookmark_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			tweets, next, err := d.client.Bookmarks(ctx, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapTweets(tweets)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// LikeTimeline returns the mediator for the viewer's liked tweets
func (d *DataSource) LikeTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "likes_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			tweets, next, err := d.client.Likes(ctx, d.accountKey.ID, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapTweets(tweets)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// NotificationTimeline returns the mediator for the notification feed.
// Referenced tweets and users arrive as global objects in the same
// response and are joined into the stored rows.
func (d *DataSource) NotificationTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "notification_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			notifications, tweets, userObjects, next, err := d.client.Notifications(ctx, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries := make([]store.StatusEntry, 0, len(notifications))
			var users []store.UserEntry
			for _, notification := range notifications {
				entry, notificationUsers := d.mapNotification(notification, tweets, userObjects)
				entries = append(entries, entry)
				users = append(users, notificationUsers...)
			}
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// threadMediator loads a tweet's thread, already flattened by the
// client into ancestors, the focal tweet and replies.
type threadMediator struct {
	source  *DataSource
	tweetID string
}

func (m *threadMediator) PagingKey() string {
	return fmt.Sprintf("status_%s_%s", m.tweetID, m.source.accountKey.String())
}

func (m *threadMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind == microblog.Prepend {
		return microblog.Result{EndOfPagination: true}, nil
	}
	cursor := ""
	if req.Kind == microblog.Append {
		cursor = req.Cursor
	}
	thread, err := m.source.client.TweetDetail(ctx, m.tweetID, cursor)
	if err != nil {
		return microblog.Result{}, err
	}

	var entries []store.StatusEntry
	var users []store.UserEntry
	if req.Kind == microblog.Refresh {
		ancestors := thread.Ancestors
		for i, ancestor := range ancestors {
			entry, tweetUsers := m.source.mapTweet(ancestor)
			entry.SortID = int64(i - len(ancestors))
			entries = append(entries, entry)
			users = append(users, tweetUsers...)
		}
		focalEntry, focalUsers := m.source.mapTweet(*thread.Focal)
		focalEntry.SortID = 0
		entries = append(entries, focalEntry)
		users = append(users, focalUsers...)
		for i, reply := range thread.Replies {
			entry, tweetUsers := m.source.mapTweet(reply)
			entry.SortID = int64(i + 1)
			entries = append(entries, entry)
			users = append(users, tweetUsers...)
		}
		err = m.source.store.SaveOrderedPage(ctx, store.Page{
			AccountKey: m.source.accountKey,
			PagingKey:  m.PagingKey(),
			Statuses:   entries,
			Users:      users,
		}, true)
	} else {
		// Older reply pages continue below the existing entries
		entries, users = m.source.mapTweets(thread.Replies)
		err = m.source.store.SavePage(ctx, store.Page{
			AccountKey: m.source.accountKey,
			PagingKey:  m.PagingKey(),
			Statuses:   entries,
			Users:      users,
		}, false)
	}
	if err != nil {
		return microblog.Result{}, err
	}
	return microblog.Result{
		NextCursor:      thread.Cursor,
		EndOfPagination: thread.Cursor == "",
		Count:           len(entries),
	}, nil
}

// StatusDetail returns the mediator for one tweet's thread view
func (d *DataSource) StatusDetail(tweetID string) microblog.TimelineMediator {
	return &threadMediator{source: d, tweetID: tweetID}
}
