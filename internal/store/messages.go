package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
)

// RoomEntry is one normalized DM conversation descriptor
type RoomEntry struct {
	RoomKey    model.Key
	LastActive time.Time
	Content    db.RoomContent
}

// MessageEntry is one normalized direct message
type MessageEntry struct {
	MessageKey model.Key
	Content    db.MessageContent
}

// SaveRooms upserts DM room descriptors in one transaction
func (s *Store) SaveRooms(ctx context.Context, accountKey model.Key, rooms []RoomEntry, clear bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	account := accountKey.String()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := tx.Where("account_key = ?", account).
				Delete(&db.MessageRoom{}).Error; err != nil {
				return fmt.Errorf("failed to clear rooms: %w", err)
			}
		}
		for _, room := range rooms {
			blob, err := room.Content.Encode()
			if err != nil {
				return err
			}
			row := db.MessageRoom{
				RoomKey:    room.RoomKey.String(),
				AccountKey: account,
				LastActive: room.LastActive,
				Content:    blob,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "room_key"}, {Name: "account_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"last_active", "content"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to upsert room %s: %w", room.RoomKey, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.Notify(topicRoom + account)
	return nil
}

// Rooms reads the account's DM rooms, most recently active first
func (s *Store) Rooms(ctx context.Context, accountKey model.Key) ([]RoomEntry, error) {
	var rows []db.MessageRoom
	if err := s.db.WithContext(ctx).
		Where("account_key = ?", accountKey.String()).
		Order("last_active DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read rooms: %w", err)
	}
	rooms := make([]RoomEntry, 0, len(rows))
	for _, row := range rows {
		content, err := db.DecodeRoomContent(row.Content)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, RoomEntry{
			RoomKey:    mustParseKey(row.RoomKey),
			LastActive: row.LastActive,
			Content:    content,
		})
	}
	return rooms, nil
}

// SaveMessagePage commits a page of messages for one room with the
// same sort-id rule as timeline pages: assigned in fetch order,
// duplicates skipped, clear+insert transactional on refresh.
func (s *Store) SaveMessagePage(ctx context.Context, accountKey, roomKey model.Key, messages []MessageEntry, clear bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	account := accountKey.String()
	room := roomKey.String()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := tx.Where("room_key = ? AND account_key = ?", room, account).
				Delete(&db.MessageItem{}).Error; err != nil {
				return fmt.Errorf("failed to clear room: %w", err)
			}
		}

		nextSortID := int64(0)
		var maxSortID *int64
		if err := tx.Model(&db.MessageItem{}).
			Where("room_key = ? AND account_key = ?", room, account).
			Select("MAX(sort_id)").
			Scan(&maxSortID).Error; err != nil {
			return fmt.Errorf("failed to read max sort id: %w", err)
		}
		if maxSortID != nil {
			nextSortID = *maxSortID + 1
		}

		existing := make(map[string]bool)
		if !clear {
			var keys []string
			if err := tx.Model(&db.MessageItem{}).
				Where("room_key = ? AND account_key = ?", room, account).
				Pluck("message_key", &keys).Error; err != nil {
				return fmt.Errorf("failed to read existing messages: %w", err)
			}
			for _, k := range keys {
				existing[k] = true
			}
		}

		for _, message := range messages {
			messageKey := message.MessageKey.String()
			if existing[messageKey] {
				continue
			}
			existing[messageKey] = true
			blob, err := message.Content.Encode()
			if err != nil {
				return err
			}
			row := db.MessageItem{
				RoomKey:    room,
				AccountKey: account,
				MessageKey: messageKey,
				SortID:     nextSortID,
				Content:    blob,
			}
			nextSortID++
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert message %s: %w", messageKey, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.Notify(topicRoom + room)
	return nil
}

// Messages reads a window of one room's messages in sort order
func (s *Store) Messages(ctx context.Context, accountKey, roomKey model.Key, limit, offset int) ([]MessageEntry, error) {
	var rows []db.MessageItem
	query := s.db.WithContext(ctx).
		Where("room_key = ? AND account_key = ?", roomKey.String(), accountKey.String()).
		Order("sort_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	messages := make([]MessageEntry, 0, len(rows))
	for _, row := range rows {
		content, err := db.DecodeMessageContent(row.Content)
		if err != nil {
			return nil, err
		}
		messages = append(messages, MessageEntry{
			MessageKey: mustParseKey(row.MessageKey),
			Content:    content,
		})
	}
	return messages, nil
}

// SubscribeRoom signals when a room's messages (or the room list,
// keyed by account) change.
func (s *Store) SubscribeRoom(key string) (<-chan struct{}, func()) {
	return s.notifier.Subscribe(topicRoom + key)
}
