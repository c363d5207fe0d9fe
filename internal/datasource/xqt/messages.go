package xqt

import (
	"context"

	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

// RefreshRooms reloads the DM conversation list into the cache
func (d *DataSource) RefreshRooms(ctx context.Context) error {
	conversations, err := d.client.Inbox(ctx)
	if err != nil {
		return err
	}
	rooms := make([]store.RoomEntry, 0, len(conversations))
	for _, conversation := range conversations {
		rooms = append(rooms, d.mapConversation(conversation))
	}
	return d.store.SaveRooms(ctx, d.accountKey, rooms, true)
}

// LoadMessages fetches one page of a conversation, newest first, and
// commits it under the room. Refresh clears the room; the returned
// cursor continues into older messages.
func (d *DataSource) LoadMessages(ctx context.Context, roomKey model.Key, maxID string, pageSize int) (nextCursor string, err error) {
	messages, next, err := d.client.ConversationMessages(ctx, roomKey.ID, maxID, pageSize)
	if err != nil {
		return "", err
	}
	entries := make([]store.MessageEntry, 0, len(messages))
	for _, message := range messages {
		entries = append(entries, d.mapMessage(message))
	}
	if err := d.store.SaveMessagePage(ctx, d.accountKey, roomKey, entries, maxID == ""); err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", nil
	}
	return next, nil
}
