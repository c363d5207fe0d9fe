package misskey

import (
	"github.com/DimensionDev/Flare-sub003/internal/db"
	api "github.com/DimensionDev/Flare-sub003/internal/misskey"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

func (d *DataSource) statusKey(id string) model.Key {
	return model.NewKey(id, d.accountKey.Host)
}

func (d *DataSource) mapUser(user *api.User) store.UserEntry {
	host := user.Host
	if host == "" {
		host = d.accountKey.Host
	}
	return store.UserEntry{
		UserKey:  model.NewKey(user.ID, d.accountKey.Host),
		Platform: model.PlatformMisskey,
		Name:     user.Name,
		Handle:   "@" + user.Username + "@" + host,
		Host:     host,
		Content:  db.UserContent{Type: db.UserMisskey, Misskey: user},
	}
}

func (d *DataSource) mapNote(note api.Note) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if note.User != nil {
		users = append(users, d.mapUser(note.User))
	}
	if note.Renote != nil && note.Renote.User != nil {
		users = append(users, d.mapUser(note.Renote.User))
	}
	noteCopy := note
	entry := store.StatusEntry{
		StatusKey: d.statusKey(note.ID),
		Platform:  model.PlatformMisskey,
		Content:   db.StatusContent{Type: db.ContentMisskey, Misskey: &noteCopy},
	}
	if note.User != nil {
		entry.UserKey = model.NewKey(note.User.ID, d.accountKey.Host)
	}
	return entry, users
}

func (d *DataSource) mapNotes(notes []api.Note) ([]store.StatusEntry, []store.UserEntry) {
	entries := make([]store.StatusEntry, 0, len(notes))
	var users []store.UserEntry
	for _, note := range notes {
		entry, noteUsers := d.mapNote(note)
		entries = append(entries, entry)
		users = append(users, noteUsers...)
	}
	return entries, users
}

func (d *DataSource) mapNotification(notification api.Notification) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if notification.User != nil {
		users = append(users, d.mapUser(notification.User))
	}
	if notification.Note != nil && notification.Note.User != nil {
		users = append(users, d.mapUser(notification.Note.User))
	}
	notificationCopy := notification
	entry := store.StatusEntry{
		StatusKey: d.statusKey("notification-" + notification.ID),
		Platform:  model.PlatformMisskey,
		Content:   db.StatusContent{Type: db.ContentMisskeyNotification, MisskeyNotification: &notificationCopy},
	}
	if notification.User != nil {
		entry.UserKey = model.NewKey(notification.User.ID, d.accountKey.Host)
	}
	return entry, users
}

func (d *DataSource) mapList(list api.UserList) store.ListEntry {
	return store.ListEntry{
		ListKey: model.NewKey(list.ID, d.accountKey.Host),
		Content: db.ListContent{
			ID:          list.ID,
			Title:       list.Name,
			MemberCount: int64(len(list.UserIDs)),
		},
	}
}
