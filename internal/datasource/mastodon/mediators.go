package mastodon

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

// fetchedPage is the mapper output for one fetched page plus the
// cursor continuing pagination downward.
type fetchedPage struct {
	statuses   []store.StatusEntry
	users      []store.UserEntry
	nextCursor string
}

// feedMediator adapts one max_id/min_id paged Mastodon feed to the
// paging contract. Feeds that support it can load newer items with
// min_id; those pages go in with negative sort ids so they land above
// the refresh anchor at sort id zero.
type feedMediator struct {
	source     *DataSource
	pagingKey  string
	supportsUp bool
	fetch      func(ctx context.Context, pageSize int, maxID, minID string) (fetchedPage, error)

	mu        sync.Mutex
	topID     string
	prepended int64
}

func (m *feedMediator) PagingKey() string {
	return m.pagingKey
}

func (m *feedMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	switch req.Kind {
	case microblog.Prepend:
		return m.prependPage(ctx, pageSize, req.Cursor)
	default:
		return m.downPage(ctx, pageSize, req)
	}
}

func (m *feedMediator) downPage(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	maxID := ""
	if req.Kind == microblog.Append {
		maxID = req.Cursor
	}
	page, err := m.fetch(ctx, pageSize, maxID, "")
	if err != nil {
		return microblog.Result{}, err
	}
	clear := req.Kind == microblog.Refresh
	err = m.source.store.SavePage(ctx, store.Page{
		AccountKey: m.source.accountKey,
		PagingKey:  m.pagingKey,
		Statuses:   page.statuses,
		Users:      page.users,
	}, clear)
	if err != nil {
		return microblog.Result{}, err
	}
	if clear {
		m.mu.Lock()
		m.prepended = 0
		if len(page.statuses) > 0 {
			m.topID = page.statuses[0].StatusKey.ID
		} else {
			m.topID = ""
		}
		m.mu.Unlock()
	}
	return microblog.Result{
		NextCursor:      page.nextCursor,
		EndOfPagination: len(page.statuses) == 0,
		Count:           len(page.statuses),
	}, nil
}

func (m *feedMediator) prependPage(ctx context.Context, pageSize int, cursor string) (microblog.Result, error) {
	if !m.supportsUp {
		return microblog.Result{EndOfPagination: true}, nil
	}
	m.mu.Lock()
	minID := cursor
	if minID == "" {
		minID = m.topID
	}
	m.mu.Unlock()
	if minID == "" {
		// Nothing loaded yet, there is no "newer than" anchor
		return microblog.Result{EndOfPagination: true}, nil
	}
	page, err := m.fetch(ctx, pageSize, "", minID)
	if err != nil {
		return microblog.Result{}, err
	}
	if len(page.statuses) == 0 {
		return microblog.Result{NextCursor: minID, EndOfPagination: true}, nil
	}
	m.mu.Lock()
	base := -(m.prepended + int64(len(page.statuses)))
	m.prepended += int64(len(page.statuses))
	m.topID = page.statuses[0].StatusKey.ID
	m.mu.Unlock()
	// Newest-first fetch order maps onto ascending negative sort ids
	for i := range page.statuses {
		page.statuses[i].SortID = base + int64(i)
	}
	err = m.source.store.SaveOrderedPage(ctx, store.Page{
		AccountKey: m.source.accountKey,
		PagingKey:  m.pagingKey,
		Statuses:   page.statuses,
		Users:      page.users,
	}, false)
	if err != nil {
		return microblog.Result{}, err
	}
	return microblog.Result{
		NextCursor: page.statuses[0].StatusKey.ID,
		Count:      len(page.statuses),
	}, nil
}

func statusCursor(entries []store.StatusEntry) string {
	if len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].StatusKey.ID
}

// HomeTimeline returns the mediator for the account's home feed
func (d *DataSource) HomeTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:     d,
		pagingKey:  "home_" + d.accountKey.String(),
		supportsUp: true,
		fetch: func(ctx context.Context, pageSize int, maxID, minID string) (fetchedPage, error) {
			statuses, err := d.client.HomeTimeline(ctx, maxID, minID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapStatuses(statuses)
			return fetchedPage{statuses: entries, users: users, nextCursor: statusCursor(entries)}, nil
		},
	}
}

// NotificationTimeline returns the mediator for the notification feed
func (d *DataSource) NotificationTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "notification_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, maxID, _ string) (fetchedPage, error) {
			notifications, err := d.client.Notifications(ctx, maxID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries := make([]store.StatusEntry, 0, len(notifications))
			var users []store.UserEntry
			next := ""
			for _, notification := range notifications {
				entry, notificationUsers := d.mapNotification(notification)
				entries = append(entries, entry)
				users = append(users, notificationUsers...)
				next = notification.ID
			}
			return fetchedPage{statuses: entries, users: users, nextCursor: next}, nil
		},
	}
}

// UserTimeline returns the mediator for one profile's statuses
func (d *DataSource) UserTimeline(userID string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("user_%s_%s", userID, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, maxID, _ string) (fetchedPage, error) {
			statuses, err := d.client.AccountStatuses(ctx, userID, maxID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapStatuses(statuses)
			return fetchedPage{statuses: entries, users: users, nextCursor: statusCursor(entries)}, nil
		},
	}
}

// ListTimeline returns the mediator for one list's feed
func (d *DataSource) ListTimeline(listID string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("list_%s_%s", listID, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, maxID, _ string) (fetchedPage, error) {
			statuses, err := d.client.ListTimeline(ctx, listID, maxID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapStatuses(statuses)
			return fetchedPage{statuses: entries, users: users, nextCursor: statusCursor(entries)}, nil
		},
	}
}

// BookmarkTimeline returns the mediator for the bookmark feed
func (d *DataSource) BookmarkTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "bookmark_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, maxID, _ string) (fetchedPage, error) {
			statuses, err := d.client.Bookmarks(ctx, maxID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapStatuses(statuses)
			return fetchedPage{statuses: entries, users: users, nextCursor: statusCursor(entries)}, nil
		},
	}
}

// FavouriteTimeline returns the mediator for the favourites feed
func (d *DataSource) FavouriteTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "favourite_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, maxID, _ string) (fetchedPage, error) {
			statuses, err := d.client.Favourites(ctx, maxID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapStatuses(statuses)
			return fetchedPage{statuses: entries, users: users, nextCursor: statusCursor(entries)}, nil
		},
	}
}

// searchMediator pages a status search by offset
type searchMediator struct {
	source *DataSource
	query  string
}

func (m *searchMediator) PagingKey() string {
	return fmt.Sprintf("search_%s_%s", m.query, m.source.accountKey.String())
}

func (m *searchMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind == microblog.Prepend {
		return microblog.Result{EndOfPagination: true}, nil
	}
	offset := 0
	if req.Kind == microblog.Append && req.Cursor != "" {
		parsed, err := strconv.Atoi(req.Cursor)
		if err != nil {
			return microblog.Result{}, fmt.Errorf("bad search cursor %q: %w", req.Cursor, err)
		}
		offset = parsed
	}
	statuses, err := m.source.client.SearchStatuses(ctx, m.query, offset, pageSize)
	if err != nil {
		return microblog.Result{}, err
	}
	entries, users := m.source.mapStatuses(statuses)
	err = m.source.store.SavePage(ctx, store.Page{
		AccountKey: m.source.accountKey,
		PagingKey:  m.PagingKey(),
		Statuses:   entries,
		Users:      users,
	}, req.Kind == microblog.Refresh)
	if err != nil {
		return microblog.Result{}, err
	}
	return microblog.Result{
		NextCursor:      strconv.Itoa(offset + len(statuses)),
		EndOfPagination: len(statuses) == 0,
		Count:           len(entries),
	}, nil
}

// SearchTimeline returns the mediator for a status search
func (d *DataSource) SearchTimeline(query string) microblog.TimelineMediator {
	return &searchMediator{source: d, query: query}
}

// threadMediator loads a status detail page: the focal status pinned
// at sort id zero, ancestors above it, descendants below. The whole
// thread loads in one shot, so paging always reports the end.
type threadMediator struct {
	source   *DataSource
	statusID string
}

func (m *threadMediator) PagingKey() string {
	return fmt.Sprintf("status_%s_%s", m.statusID, m.source.accountKey.String())
}

func (m *threadMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind != microblog.Refresh {
		return microblog.Result{EndOfPagination: true}, nil
	}
	focal, err := m.source.client.GetStatus(ctx, m.statusID)
	if err != nil {
		return microblog.Result{}, err
	}
	threadContext, err := m.source.client.GetContext(ctx, m.statusID)
	if err != nil {
		return microblog.Result{}, err
	}

	var entries []store.StatusEntry
	var users []store.UserEntry
	ancestors := threadContext.Ancestors
	for i, ancestor := range ancestors {
		entry, statusUsers := m.source.mapStatus(ancestor)
		entry.SortID = int64(i - len(ancestors))
		entries = append(entries, entry)
		users = append(users, statusUsers...)
	}
	focalEntry, focalUsers := m.source.mapStatus(*focal)
	focalEntry.SortID = 0
	entries = append(entries, focalEntry)
	users = append(users, focalUsers...)
	for i, descendant := range threadContext.Descendants {
		entry, statusUsers := m.source.mapStatus(descendant)
		entry.SortID = int64(i + 1)
		entries = append(entries, entry)
		users = append(users, statusUsers...)
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

// StatusDetail returns the mediator for one status' thread view
func (d *DataSource) StatusDetail(statusID string) microblog.TimelineMediator {
	return &threadMediator{source: d, statusID: statusID}
}
