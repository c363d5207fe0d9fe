package vvo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	api "github.com/DimensionDev/Flare-sub003/internal/vvo"
)

type fetchedPage struct {
	statuses []store.StatusEntry
	users    []store.UserEntry
}

// feedMediator adapts one page-numbered VVO feed to the paging
// contract. The cursor is the next page number in decimal; an empty
// page means the feed is exhausted. There is no "newer than" paging.
type feedMediator struct {
	source    *DataSource
	pagingKey string
	fetch     func(ctx context.Context, page int) (fetchedPage, error)
}

func (m *feedMediator) PagingKey() string {
	return m.pagingKey
}

func (m *feedMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind == microblog.Prepend {
		return microblog.Result{EndOfPagination: true}, nil
	}
	page := 1
	if req.Kind == microblog.Append && req.Cursor != "" {
		parsed, err := strconv.Atoi(req.Cursor)
		if err != nil {
			return microblog.Result{}, fmt.Errorf("bad page cursor %q: %w", req.Cursor, err)
		}
		page = parsed
	}
	fetched, err := m.fetch(ctx, page)
	if err != nil {
		return microblog.Result{}, err
	}
	err = m.source.store.SavePage(ctx, store.Page{
		AccountKey: m.source.accountKey,
		PagingKey:  m.pagingKey,
		Statuses:   fetched.statuses,
		Users:      fetched.users,
	}, req.Kind == microblog.Refresh)
	if err != nil {
		return microblog.Result{}, err
	}
	return microblog.Result{
		NextCursor:      strconv.Itoa(page + 1),
		EndOfPagination: len(fetched.statuses) == 0,
		Count:           len(fetched.statuses),
	}, nil
}

// HomeTimeline returns the mediator for the friends feed
func (d *DataSource) HomeTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "home_" + d.accountKey.String(),
		fetch: func(ctx context.Context, page int) (fetchedPage, error) {
			statuses, err := d.client.HomeTimeline(ctx, page)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapStatuses(statuses)
			return fetchedPage{statuses: entries, users: users}, nil
		},
	}
}

// UserTimeline returns the mediator for one user's statuses
func (d *DataSource) UserTimeline(uid int64) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("user_%d_%s", uid, d.accountKey.String()),
		fetch: func(ctx context.Context, page int) (fetchedPage, error) {
			statuses, err := d.client.UserTimeline(ctx, uid, page)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapStatuses(statuses)
			return fetchedPage{statuses: entries, users: users}, nil
		},
	}
}

// SearchTimeline returns the mediator for a status search
func (d *DataSource) SearchTimeline(query string) microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: fmt.Sprintf("search_%s_%s", query, d.accountKey.String()),
		fetch: func(ctx context.Context, page int) (fetchedPage, error) {
			statuses, err := d.client.SearchStatuses(ctx, query, page)
			if err != nil {
				return fetchedPage{}, err
			}
			entries, users := d.mapStatuses(statuses)
			return fetchedPage{statuses: entries, users: users}, nil
		},
	}
}

// CommentNotificationTimeline returns the mediator for comment
// notifications. Comments reference their status as a stub carrying
// only the ID; the full status is resolved before the page commits.
func (d *DataSource) CommentNotificationTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "notification_comment_" + d.accountKey.String(),
		fetch: func(ctx context.Context, page int) (fetchedPage, error) {
			comments, err := d.client.MentionComments(ctx, page)
			if err != nil {
				return fetchedPage{}, err
			}
			resolved := d.resolveStubs(ctx, commentStubIDs(comments))
			entries := make([]store.StatusEntry, 0, len(comments))
			var users []store.UserEntry
			for _, comment := range comments {
				if comment.Status != nil {
					if full, ok := resolved[comment.Status.ID]; ok {
						comment.Status = full
					}
				}
				entry, commentUsers := d.mapComment(comment)
				entries = append(entries, entry)
				users = append(users, commentUsers...)
			}
			return fetchedPage{statuses: entries, users: users}, nil
		},
	}
}

// AttitudeNotificationTimeline returns the mediator for like
// notifications, with the same stub resolution as comments.
func (d *DataSource) AttitudeNotificationTimeline() microblog.TimelineMediator {
	return &feedMediator{
		source:    d,
		pagingKey: "notification_attitude_" + d.accountKey.String(),
		fetch: func(ctx context.Context, page int) (fetchedPage, error) {
			attitudes, err := d.client.Attitudes(ctx, page)
			if err != nil {
				return fetchedPage{}, err
			}
			resolved := d.resolveStubs(ctx, attitudeStubIDs(attitudes))
			entries := make([]store.StatusEntry, 0, len(attitudes))
			var users []store.UserEntry
			for _, attitude := range attitudes {
				if attitude.Status != nil {
					if full, ok := resolved[attitude.Status.ID]; ok {
						attitude.Status = full
					}
				}
				entry, attitudeUsers := d.mapAttitude(attitude)
				entries = append(entries, entry)
				users = append(users, attitudeUsers...)
			}
			return fetchedPage{statuses: entries, users: users}, nil
		},
	}
}

func commentStubIDs(comments []api.Comment) []string {
	var ids []string
	for _, comment := range comments {
		if comment.Status != nil && comment.Status.User == nil {
			ids = append(ids, comment.Status.ID)
		}
	}
	return ids
}

func attitudeStubIDs(attitudes []api.Attitude) []string {
	var ids []string
	for _, attitude := range attitudes {
		if attitude.Status != nil && attitude.Status.User == nil {
			ids = append(ids, attitude.Status.ID)
		}
	}
	return ids
}

// resolveStubs fetches the distinct referenced statuses one by one.
// A status that fails to resolve keeps its stub; a degraded entry
// beats a failed page.
func (d *DataSource) resolveStubs(ctx context.Context, ids []string) map[string]*api.Status {
	resolved := make(map[string]*api.Status)
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := resolved[id]; ok {
			continue
		}
		status, err := d.client.ShowStatus(ctx, id)
		if err != nil {
			continue
		}
		resolved[id] = status
	}
	return resolved
}

// threadMediator loads a status detail: the focal status at sort id
// zero with its comments below. Older comment pages append.
type threadMediator struct {
	source   *DataSource
	statusID string
}

func (m *threadMediator) PagingKey() string {
	return fmt.Sprintf("status_%s_%s", m.statusID, m.source.accountKey.String())
}

func (m *threadMediator) Timeline(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind == microblog.Prepend {
		return microblog.Result{EndOfPagination: true}, nil
	}
	page := 1
	if req.Kind == microblog.Append && req.Cursor != "" {
		parsed, err := strconv.Atoi(req.Cursor)
		if err != nil {
			return microblog.Result{}, fmt.Errorf("bad page cursor %q: %w", req.Cursor, err)
		}
		page = parsed
	}

	comments, err := m.source.client.StatusComments(ctx, m.statusID, page)
	if err != nil {
		return microblog.Result{}, err
	}

	var entries []store.StatusEntry
	var users []store.UserEntry
	if req.Kind == microblog.Refresh {
		focal, err := m.source.client.ShowStatus(ctx, m.statusID)
		if err != nil {
			return microblog.Result{}, err
		}
		focalEntry, focalUsers := m.source.mapStatus(*focal)
		focalEntry.SortID = 0
		entries = append(entries, focalEntry)
		users = append(users, focalUsers...)
		for i, comment := range comments {
			entry, commentUsers := m.source.mapComment(comment)
			entry.SortID = int64(i + 1)
			entries = append(entries, entry)
			users = append(users, commentUsers...)
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
	} else {
		for _, comment := range comments {
			entry, commentUsers := m.source.mapComment(comment)
			entries = append(entries, entry)
			users = append(users, commentUsers...)
		}
		err = m.source.store.SavePage(ctx, store.Page{
			AccountKey: m.source.accountKey,
			PagingKey:  m.PagingKey(),
			Statuses:   entries,
			Users:      users,
		}, false)
		if err != nil {
			return microblog.Result{}, err
		}
	}
	return microblog.Result{
		NextCursor:      strconv.Itoa(page + 1),
		EndOfPagination: len(comments) == 0,
		Count:           len(entries),
	}, nil
}

// StatusDetail returns the mediator for one status' detail view
func (d *DataSource) StatusDetail(statusID string) microblog.TimelineMediator {
	return &threadMediator{source: d, statusID: statusID}
}
