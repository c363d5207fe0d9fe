package vvo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

// RefreshRooms reloads the DM session list into the cache
func (d *DataSource) RefreshRooms(ctx context.Context) error {
	sessions, err := d.client.ChatList(ctx, 1)
	if err != nil {
		return err
	}
	rooms := make([]store.RoomEntry, 0, len(sessions))
	for _, session := range sessions {
		rooms = append(rooms, d.mapSession(session))
	}
	return d.store.SaveRooms(ctx, d.accountKey, rooms, true)
}

// LoadMessages fetches one page of a session's messages and commits it
// under the room. An empty cursor refreshes from page one; the
// returned cursor is the next page number.
func (d *DataSource) LoadMessages(ctx context.Context, roomKey model.Key, cursor string, pageSize int) (nextCursor string, err error) {
	page := 1
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return "", fmt.Errorf("bad page cursor %q: %w", cursor, err)
		}
		page = parsed
	}
	messages, err := d.client.ChatMessages(ctx, roomKey.ID, page)
	if err != nil {
		return "", err
	}
	entries := make([]store.MessageEntry, 0, len(messages))
	for _, message := range messages {
		entries = append(entries, d.mapMessage(message))
	}
	if err := d.store.SaveMessagePage(ctx, d.accountKey, roomKey, entries, page == 1); err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", nil
	}
	return strconv.Itoa(page + 1), nil
}
