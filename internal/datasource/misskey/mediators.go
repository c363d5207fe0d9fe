package misskey

import (
	"context"
	"fmt"
	"sync"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

type fetchedPage struct {
	statuses   []store.StatusEntry
	users      []store.UserEntry
	nextCursor string
}

// feedMediator adapts one untilId/sinceId paged Misskey feed to the
// paging contract. Prepend uses sinceId where the feed supports it.
type feedMediator struct {
	source     *DataSource
	pagingKey  string
	supportsUp bool
	fetch      func(ctx context.Context, pageSize int, untilID, sinceID string) (fetchedPage, error)

	mu        sync.Mutex
	topID     string
	prepended int64
}

func (m *feedMediator) PagingKey() string {
	return m.pagingKey
}

func (m *feedMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind == microblog.Prepend {
		return m.prependPage(ctx, pageSize, req.Cursor)
	}

	untilID := ""
	if req.Kind == microblog.Append {
		untilID = req.Cursor
	}
	page, err := m.fetch(ctx, pageSize, untilID, "")
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
	sinceID := cursor
	if sinceID == "" {
		sinceID = m.topID
	}
	m.mu.Unlock()
	if sinceID == "" {
		return microblog.Result{EndOfPagination: true}, nil
	}
	page, err := m.fetch(ctx, pageSize, "", sinceID)
	if err != nil {
		return microblog.Result{}, err
	}
	if len(page.statuses) == 0 {
		return microblog.Result{NextCursor: sinceID, EndOfPagination: true}, nil
	}
	m.mu.Lock()
	base := -(m.prepended + int64(len(page.statuses)))
	m.prepended += int64(len(page.statuses))
	m.topID = page.statuses[0].StatusKey.ID
	m.mu.Unlock()
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

func noteCursor(entries []store.StatusEntry) string {
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
		fetch: func(ctx context.Context, pageSize int, untilID, sinceID string) (fetchedPage, error) {
			notes, err := d.client.HomeTimeline(ctx, untilID, sinceID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapNotes(notes)
			return fetchedPage{statuses: entries, users: users, nextCursor: noteCursor(entries)}, nil
		},
	}
}

// NotificationTimeline returns the mediator for the notification feed
func (d *DataSource) NotificationTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "notification_" + d.accountKey.String(),
		fetch: func(ctx context.Context, pageSize int, untilID, _ string) (fetchedPage, error) {
			notifications, err := d.client.Notifications(ctx, untilID, pageSize)
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

// UserTimeline returns the mediator for one user's notes
func (d *DataSource) UserTimeline(userID string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("user_%s_%s", userID, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, untilID, _ string) (fetchedPage, error) {
			notes, err := d.client.UserNotes(ctx, userID, untilID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapNotes(notes)
			return fetchedPage{statuses: entries, users: users, nextCursor: noteCursor(entries)}, nil
		},
	}
}

// SearchTimeline returns the mediator for a note search
func (d *DataSource) SearchTimeline(query string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("search_%s_%s", query, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, untilID, _ string) (fetchedPage, error) {
			notes, err := d.client.SearchNotes(ctx, query, untilID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapNotes(notes)
			return fetchedPage{statuses: entries, users: users, nextCursor: noteCursor(entries)}, nil
		},
	}
}

// ListTimeline returns the mediator for one user list's feed
func (d *DataSource) ListTimeline(listID string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("list_%s_%s", listID, d.accountKey.String()),
		fetch: func(ctx context.Context, pageSize int, untilID, _ string) (fetchedPage, error) {
			notes, err := d.client.ListNotes(ctx, listID, untilID, pageSize)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapNotes(notes)
			return fetchedPage{statuses: entries, users: users, nextCursor: noteCursor(entries)}, nil
		},
	}
}

// threadMediator loads a note's conversation: ancestors above the
// focal note at sort id zero, children below.
type threadMediator struct {
	source *DataSource
	noteID string
}

func (m *threadMediator) PagingKey() string {
	return fmt.Sprintf("status_%s_%s", m.noteID, m.source.accountKey.String())
}

func (m *threadMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind != microblog.Refresh {
		return microblog.Result{EndOfPagination: true}, nil
	}
	focal, err := m.source.client.ShowNote(ctx, m.noteID)
	if err != nil {
		return microblog.Result{}, err
	}
	// Conversation returns ancestors nearest-first; flip them so the
	// root sits at the top of the view.
	ancestors, err := m.source.client.NoteConversation(ctx, m.noteID, pageSize)
	if err != nil {
		return microblog.Result{}, err
	}
	children, err := m.source.client.NoteChildren(ctx, m.noteID, "", pageSize)
	if err != nil {
		return microblog.Result{}, err
	}

	var entries []store.StatusEntry
	var users []store.UserEntry
	for i := len(ancestors) - 1; i >= 0; i-- {
		entry, noteUsers := m.source.mapNote(ancestors[i])
		entry.SortID = int64(-i - 1)
		entries = append(entries, entry)
		users = append(users, noteUsers...)
	}
	focalEntry, focalUsers := m.source.mapNote(*focal)
	focalEntry.SortID = 0
	entries = append(entries, focalEntry)
	users = append(users, focalUsers...)
	for i, child := range children {
		entry, noteUsers := m.source.mapNote(child)
		entry.SortID = int64(i + 1)
		entries = append(entries, entry)
		users = append(users, noteUsers...)
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

// StatusDetail returns the mediator for one note's thread view
func (d *DataSource) StatusDetail(noteID string) microblog.TimelineMediator {
	return &threadMediator{source: d, noteID: noteID}
}
