package vvo

import (
	"strconv"
	"time"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	api "github.com/DimensionDev/Flare-sub003/internal/vvo"
)

func (d *DataSource) statusKey(id string) model.Key {
	return model.NewKey(id, d.accountKey.Host)
}

func (d *DataSource) userKeyFor(uid int64) model.Key {
	return model.NewKey(strconv.FormatInt(uid, 10), d.accountKey.Host)
}

func (d *DataSource) mapUser(user *api.User) store.UserEntry {
	return store.UserEntry{
		UserKey:  d.userKeyFor(user.ID),
		Platform: model.PlatformVVO,
		Name:     user.ScreenName,
		Handle:   "@" + user.ScreenName,
		Host:     d.accountKey.Host,
		Content:  db.UserContent{Type: db.UserVVO, VVO: user},
	}
}

func (d *DataSource) mapStatus(status api.Status) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if status.User != nil {
		users = append(users, d.mapUser(status.User))
	}
	if status.RetweetedStatus != nil && status.RetweetedStatus.User != nil {
		users = append(users, d.mapUser(status.RetweetedStatus.User))
	}
	statusCopy := status
	entry := store.StatusEntry{
		StatusKey: d.statusKey(status.ID),
		Platform:  model.PlatformVVO,
		Content:   db.StatusContent{Type: db.ContentVVO, VVO: &statusCopy},
	}
	if status.User != nil {
		entry.UserKey = d.userKeyFor(status.User.ID)
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

func (d *DataSource) mapComment(comment api.Comment) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if comment.User != nil {
		users = append(users, d.mapUser(comment.User))
	}
	commentCopy := comment
	entry := store.StatusEntry{
		StatusKey: d.statusKey("comment-" + comment.ID),
		Platform:  model.PlatformVVO,
		Content: db.StatusContent{
			Type:            db.ContentVVONotification,
			VVONotification: &db.VVONotificationContent{Comment: &commentCopy},
		},
	}
	if comment.User != nil {
		entry.UserKey = d.userKeyFor(comment.User.ID)
	}
	return entry, users
}

func (d *DataSource) mapAttitude(attitude api.Attitude) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if attitude.User != nil {
		users = append(users, d.mapUser(attitude.User))
	}
	attitudeCopy := attitude
	entry := store.StatusEntry{
		StatusKey: d.statusKey("attitude-" + attitude.ID),
		Platform:  model.PlatformVVO,
		Content: db.StatusContent{
			Type:            db.ContentVVONotification,
			VVONotification: &db.VVONotificationContent{Attitude: &attitudeCopy},
		},
	}
	if attitude.User != nil {
		entry.UserKey = d.userKeyFor(attitude.User.ID)
	}
	return entry, users
}

func (d *DataSource) mapSession(session api.ChatSession) store.RoomEntry {
	sessionCopy := session
	return store.RoomEntry{
		RoomKey:    model.NewKey(session.ID, d.accountKey.Host),
		LastActive: time.Unix(session.UpdatedAt, 0).UTC(),
		Content:    db.RoomContent{Type: db.MessageVVO, VVO: &sessionCopy},
	}
}

func (d *DataSource) mapMessage(message api.ChatMessage) store.MessageEntry {
	messageCopy := message
	return store.MessageEntry{
		MessageKey: model.NewKey(message.ID, d.accountKey.Host),
		Content:    db.MessageContent{Type: db.MessageVVO, VVO: &messageCopy},
	}
}
