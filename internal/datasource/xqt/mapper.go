package xqt

import (
	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	api "github.com/DimensionDev/Flare-sub003/internal/xqt"
)

func (d *DataSource) statusKey(id string) model.Key {
	return model.NewKey(id, d.accountKey.Host)
}

func (d *DataSource) userKey(id string) model.Key {
	return model.NewKey(id, d.accountKey.Host)
}

func (d *DataSource) mapUser(user *api.User) store.UserEntry {
	return store.UserEntry{
		UserKey:  d.userKey(user.RestID),
		Platform: model.PlatformXQT,
		Name:     user.Legacy.Name,
		Handle:   "@" + user.Legacy.ScreenName,
		Host:     d.accountKey.Host,
		Content:  db.UserContent{Type: db.UserXQT, XQT: user},
	}
}

func (d *DataSource) mapTweet(tweet api.Tweet) (store.StatusEntry, []store.UserEntry) {
	var users []store.UserEntry
	if tweet.User != nil {
		users = append(users, d.mapUser(tweet.User))
	}
	if tweet.RetweetedTweet != nil && tweet.RetweetedTweet.User != nil {
		users = append(users, d.mapUser(tweet.RetweetedTweet.User))
	}
	if tweet.QuotedStatus != nil && tweet.QuotedStatus.User != nil {
		users = append(users, d.mapUser(tweet.QuotedStatus.User))
	}
	tweetCopy := tweet
	entry := store.StatusEntry{
		StatusKey: d.statusKey(tweet.RestID),
		Platform:  model.PlatformXQT,
		Content:   db.StatusContent{Type: db.ContentXQT, XQT: &tweetCopy},
	}
	if tweet.User != nil {
		entry.UserKey = d.userKey(tweet.User.RestID)
	}
	return entry, users
}

func (d *DataSource) mapTweets(tweets []api.Tweet) ([]store.StatusEntry, []store.UserEntry) {
	entries := make([]store.StatusEntry, 0, len(tweets))
	var users []store.UserEntry
	for _, tweet := range tweets {
		entry, tweetUsers := d.mapTweet(tweet)
		entries = append(entries, entry)
		users = append(users, tweetUsers...)
	}
	return entries, users
}

// mapNotification joins a notification with its referenced tweet and
// user from the response's global objects before storage.
func (d *DataSource) mapNotification(notification api.Notification, tweets map[string]api.Tweet, userObjects map[string]api.User) (store.StatusEntry, []store.UserEntry) {
	content := db.XQTNotificationContent{Notification: notification}
	var users []store.UserEntry
	if len(notification.TweetIDs) > 0 {
		if tweet, ok := tweets[notification.TweetIDs[0]]; ok {
			tweetCopy := tweet
			content.Tweet = &tweetCopy
			if tweet.User != nil {
				users = append(users, d.mapUser(tweet.User))
			}
		}
	}
	entry := store.StatusEntry{
		StatusKey: d.statusKey("notification-" + notification.ID),
		Platform:  model.PlatformXQT,
		Content:   db.StatusContent{Type: db.ContentXQTNotification, XQTNotification: &content},
	}
	if len(notification.UserIDs) > 0 {
		if user, ok := userObjects[notification.UserIDs[0]]; ok {
			userCopy := user
			users = append(users, d.mapUser(&userCopy))
			entry.UserKey = d.userKey(user.RestID)
		}
	}
	return entry, users
}

func (d *DataSource) mapConversation(conversation api.Conversation) store.RoomEntry {
	conversationCopy := conversation
	return store.RoomEntry{
		RoomKey:    model.NewKey(conversation.ConversationID, d.accountKey.Host),
		LastActive: millisToTime(conversation.SortTimestamp),
		Content:    db.RoomContent{Type: db.MessageXQT, XQT: &conversationCopy},
	}
}

func (d *DataSource) mapMessage(message api.Message) store.MessageEntry {
	messageCopy := message
	return store.MessageEntry{
		MessageKey: model.NewKey(message.ID, d.accountKey.Host),
		Content:    db.MessageContent{Type: db.MessageXQT, XQT: &messageCopy},
	}
}
