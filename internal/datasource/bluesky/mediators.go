package bluesky

import (
	"context"
	"fmt"

	api "github.com/DimensionDev/Flare-sub003/internal/bluesky"
	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

const getPostsBatch = 25

type fetchedPage struct {
	statuses   []store.StatusEntry
	users      []store.UserEntry
	nextCursor string
}

// feedMediator adapts one cursor-paged XRPC feed to the paging
// contract. The cursor is opaque; an empty cursor on a non-empty page
// means the feed is exhausted. Bluesky has no "newer than" paging, so
// Prepend always reports the end.
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

// HomeTimeline returns the mediator for the following feed
func (d *DataSource) HomeTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "home_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			feed, next, err := d.client.GetTimeline(ctx, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapFeed(feed)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// UserTimeline returns the mediator for one actor's posts
func (d *DataSource) UserTimeline(actor string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("user_%s_%s", actor, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			feed, next, err := d.client.GetAuthorFeed(ctx, actor, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapFeed(feed)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// LikeTimeline returns the mediator for the viewer's liked posts
func (d *DataSource) LikeTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "likes_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			feed, next, err := d.client.GetActorLikes(ctx, d.client.DID(), cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapFeed(feed)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// SearchTimeline returns the mediator for a post search
func (d *DataSource) SearchTimeline(query string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("search_%s_%s", query, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			posts, next, err := d.client.SearchPosts(ctx, query, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapPosts(posts)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// ListTimeline returns the mediator for one graph list's feed
func (d *DataSource) ListTimeline(listURI string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("list_%s_%s", listURI, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			feed, next, err := d.client.GetListFeed(ctx, listURI, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapFeed(feed)
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// NotificationTimeline returns the mediator for the notification feed.
// Like and repost notifications only carry the subject post's URI, so
// after the page fetch the referenced posts are hydrated in one
// batched getPosts call and embedded before the page is committed.
func (d *DataSource) NotificationTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "notification_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, cursor string) (fetchedPage, error) {
			notifications, next, err := d.client.ListNotifications(ctx, cursor, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			referenced, err := d.resolveReferences(ctx, notifications)
			if err != nil {
				return fetchedPage{}, err
			}
			entries := make([]store.StatusEntry, 0, len(notifications))
			var users []store.UserEntry
			for _, notification := range notifications {
				if post, ok := referenced[notification.ReasonSubject]; ok {
					notification.ReferencedPost = post
				}
				entry, notificationUsers := d.mapNotification(notification)
				entries = append(entries, entry)
				users = append(users, notificationUsers...)
			}
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// resolveReferences hydrates the distinct reasonSubject URIs of a
// notification page, batching at the getPosts limit.
func (d *DataSource) resolveReferences(ctx context.Context, notifications []api.Notification) (map[string]*api.PostView, error) {
	seen := make(map[string]bool)
	var uris []string
	for _, notification := range notifications {
		uri := notification.ReasonSubject
		if uri == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		uris = append(uris, uri)
	}
	resolved := make(map[string]*api.PostView, len(uris))
	for start := 0; start < len(uris); start += getPostsBatch {
		end := start + getPostsBatch
		if end > len(uris) {
			end = len(uris)
		}
		posts, err := d.client.GetPosts(ctx, uris[start:end])
		if err != nil {
			return nil, err
		}
		for i := range posts {
			resolved[posts[i].URI] = &posts[i]
		}
	}
	return resolved, nil
}

// threadMediator loads a post's thread: the parent chain above the
// focal post at sort id zero, first-level replies below.
type threadMediator struct {
	source  *DataSource
	postURI string
}

func (m *threadMediator) PagingKey() string {
	return fmt.Sprintf("status_%s_%s", m.postURI, m.source.accountKey.String())
}

func (m *threadMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind != microblog.Refresh {
		return microblog.Result{EndOfPagination: true}, nil
	}
	thread, err := m.source.client.GetPostThread(ctx, m.postURI)
	if err != nil {
		return microblog.Result{}, err
	}
	if thread.Post == nil {
		return microblog.Result{}, &microblog.NotFoundError{Kind: "post", ID: m.postURI}
	}

	// Walk the parent chain up, then reverse into root-first order
	var ancestors []api.PostView
	for parent := thread.Parent; parent != nil; parent = parent.Parent {
		if parent.Post == nil {
			break
		}
		ancestors = append(ancestors, *parent.Post)
	}

	var entries []store.StatusEntry
	var users []store.UserEntry
	for i := len(ancestors) - 1; i >= 0; i-- {
		entry, postUsers := m.source.mapPost(ancestors[i])
		entry.SortID = int64(-i - 1)
		entries = append(entries, entry)
		users = append(users, postUsers...)
	}
	focalEntry, focalUsers := m.source.mapPost(*thread.Post)
	focalEntry.SortID = 0
	entries = append(entries, focalEntry)
	users = append(users, focalUsers...)
	sortID := int64(1)
	for _, reply := range thread.Replies {
		if reply.Post == nil {
			continue
		}
		entry, postUsers := m.source.mapPost(*reply.Post)
		entry.SortID = sortID
		sortID++
		entries = append(entries, entry)
		users = append(users, postUsers...)
	}

	err = m.source.store.SaveOrderedPage(ctx, store.Page{
		AccountKey: m.source.accountKey,
		PagingKey:  m.PagingKey(),
		Statuses:   entries,
		Users:      users,
	}, true)
	if err != nil {
		return microblog.Result{}, err
	}
	return microblog.Result{EndOfPagination: true, Count: len(entries)}, nil
}

// StatusDetail returns the mediator for one post's thread view
func (d *DataSource) StatusDetail(postURI string) microblog.TimelineMediator {
	return &threadMediator{source: d, postURI: postURI}
}
