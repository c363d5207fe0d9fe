package mastodon

import (
	"github.com/DimensionDev/Flare-sub003/internal/db"
	api "github.com/DimensionDev/Flare-sub003/internal/mastodon"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

func (d *DataSource) statusKey(id string) model.Key {
	return model.NewKey(id, d.accountKey.Host)
}

func (d *DataSource) userKey(id string) model.Key {
	return model.NewKey(id, d.accountKey.Host)
}

func (d *DataSource) mapAccount(account *api.Account) store.UserEntry {
	return store.UserEntry{
		UserKey:  d.userKey(account.ID),
		Platform: model.PlatformMastodon,
		Name:     account.DisplayName,
		Handle:   "@" + account.Acct,
		Host:     d.accountKey.Host,
		Content:  db.UserContent{Type: db.UserMastodon, Mastodon: account},
	}
}

// mapStatus normalizes one status plus every account it embeds. The
// reblog wrapper keeps the outer status as the timeline row; the inner
// author still gets a user row so profile lookups hit the cache.
func (d *DataSource) mapStatus(status api.Status) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if status.Account != nil {
		users = append(users, d.mapAccount(status.Account))
	}
	if status.Reblog != nil && status.Reblog.Account != nil {
		users = append(users, d.mapAccount(status.Reblog.Account))
	}
	statusCopy := status
	entry := store.StatusEntry{
		StatusKey: d.statusKey(status.ID),
		Platform:  model.PlatformMastodon,
		Content:   db.StatusContent{Type: db.ContentMastodon, Mastodon: &statusCopy},
	}
	if status.Account != nil {
		entry.UserKey = d.userKey(status.Account.ID)
	}
	return entry, users
}

func (d *DataSource) mapStatuses(statuses []api.Status) ([]store.StatusEntry, []store.UserEntry) {
	entries := make([]store.StatusEntry, 0, len(statuses))
	var users []store.UserEntry
	for _, status := range statuses {
		entry, statusUsers := d.mapStatus(status)
		entries = append(entries, entry)
		users = append(users, statusUsers...)
	}
	return entries, users
}

func (d *DataSource) mapNotification(notification api.Notification) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if notification.Account != nil {
		users = append(users, d.mapAccount(notification.Account))
	}
	if notification.Status != nil && notification.Status.Account != nil {
		users = append(users, d.mapAccount(notification.Status.Account))
	}
	notificationCopy := notification
	entry := store.StatusEntry{
		StatusKey: d.statusKey("notification-" + notification.ID),
		Platform:  model.PlatformMastodon,
		Content:   db.StatusContent{Type: db.ContentMastodonNotification, MastodonNotification: &notificationCopy},
	}
	if notification.Account != nil {
		entry.UserKey = d.userKey(notification.Account.ID)
	}
	return entry, users
}

func (d *DataSource) mapList(list api.List) store.ListEntry {
	return store.ListEntry{
		ListKey: model.NewKey(list.ID, d.accountKey.Host),
		Content: db.ListContent{ID: list.ID, Title: list.Title},
	}
}
