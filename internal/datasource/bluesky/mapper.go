package bluesky

import (
	api "github.com/DimensionDev/Flare-sub003/internal/bluesky"
	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

// Post and profile keys use the AT-URI and DID directly; both are
// globally unique, the host part still scopes them to the service.
func (d *DataSource) statusKey(uri string) model.Key {
	return model.NewKey(uri, d.accountKey.Host)
}

func (d *DataSource) userKey(did string) model.Key {
	return model.NewKey(did, d.accountKey.Host)
}

func (d *DataSource) mapProfile(profile *api.Profile) store.UserEntry {
	return store.UserEntry{
		UserKey:  d.userKey(profile.DID),
		Platform: model.PlatformBluesky,
		Name:     profile.DisplayName,
		Handle:   "@" + profile.Handle,
		Host:     d.accountKey.Host,
		Content:  db.UserContent{Type: db.UserBluesky, Bluesky: profile},
	}
}

func (d *DataSource) mapPost(post api.PostView) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if post.Author != nil {
		users = append(users, d.mapProfile(post.Author))
	}
	postCopy := post
	entry := store.StatusEntry{
		StatusKey: d.statusKey(post.URI),
		Platform:  model.PlatformBluesky,
		Content:   db.StatusContent{Type: db.ContentBluesky, Bluesky: &postCopy},
	}
	if post.Author != nil {
		entry.UserKey = d.userKey(post.Author.DID)
	}
	return entry, users
}

func (d *DataSource) mapFeed(feed []api.FeedViewPost) ([]store.StatusEntry, []store.UserEntry) {
	entries := make([]store.StatusEntry, 0, len(feed))
	var users []store.UserEntry
	for _, feedPost := range feed {
		entry, postUsers := d.mapPost(feedPost.Post)
		entries = append(entries, entry)
		users = append(users, postUsers...)
	}
	return entries, users
}

func (d *DataSource) mapPosts(posts []api.PostView) ([]store.StatusEntry, []store.UserEntry) {
	entries := make([]store.StatusEntry, 0, len(posts))
	var users []store.UserEntry
	for _, post := range posts {
		entry, postUsers := d.mapPost(post)
		entries = append(entries, entry)
		users = append(users, postUsers...)
	}
	return entries, users
}

func (d *DataSource) mapNotification(notification api.Notification) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if notification.Author != nil {
		users = append(users, d.mapProfile(notification.Author))
	}
	if notification.ReferencedPost != nil && notification.ReferencedPost.Author != nil {
		users = append(users, d.mapProfile(notification.ReferencedPost.Author))
	}
	notificationCopy := notification
	entry := store.StatusEntry{
		StatusKey: d.statusKey(notification.URI),
		Platform:  model.PlatformBluesky,
		Content:   db.StatusContent{Type: db.ContentBlueskyNotification, BlueskyNotification: &notificationCopy},
	}
	if notification.Author != nil {
		entry.UserKey = d.userKey(notification.Author.DID)
	}
	return entry, users
}

func (d *DataSource) mapList(list api.ListView) store.ListEntry {
	return store.ListEntry{
		ListKey: model.NewKey(list.URI, d.accountKey.Host),
		Content: db.ListContent{
			ID:          list.URI,
			Title:       list.Name,
			Description: list.Description,
			AvatarURL:   list.Avatar,
		},
	}
}
