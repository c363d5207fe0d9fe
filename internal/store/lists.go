package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
)

// ListEntry is one normalized list descriptor
type ListEntry struct {
	ListKey model.Key
	Content db.ListContent
}

// SaveListPage commits a page of list descriptors under a paging key.
// Lists are small and reloaded wholesale, so a refresh clears the
// paging key and reinserts in one transaction.
func (s *Store) SaveListPage(ctx context.Context, accountKey model.Key, pagingKey string, lists []ListEntry, clear bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	account := accountKey.String()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := tx.Where("account_key = ? AND paging_key = ?", account, pagingKey).
				Delete(&db.ListPaging{}).Error; err != nil {
				return fmt.Errorf("failed to clear list paging key: %w", err)
			}
		}
		for _, entry := range lists {
			blob, err := entry.Content.Encode()
			if err != nil {
				return err
			}
			row := db.List{
				ListKey:    entry.ListKey.String(),
				AccountKey: account,
				Metadata:   blob,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "list_key"}, {Name: "account_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"metadata"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to upsert list %s: %w", entry.ListKey, err)
			}
			paging := db.ListPaging{
				AccountKey: account,
				PagingKey:  pagingKey,
				ListKey:    entry.ListKey.String(),
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&paging).Error; err != nil {
				return fmt.Errorf("failed to insert list paging entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.Notify(topicList + pagingKey)
	for _, entry := range lists {
		s.notifier.Notify(topicList + entry.ListKey.String())
	}
	return nil
}

// Lists reads the list descriptors loaded under a paging key
func (s *Store) Lists(ctx context.Context, accountKey model.Key, pagingKey string) ([]ListEntry, error) {
	var pagingRows []db.ListPaging
	if err := s.db.WithContext(ctx).
		Where("account_key = ? AND paging_key = ?", accountKey.String(), pagingKey).
		Order("id ASC").
		Find(&pagingRows).Error; err != nil {
		return nil, fmt.Errorf("failed to read list paging: %w", err)
	}
	entries := make([]ListEntry, 0, len(pagingRows))
	for _, pagingRow := range pagingRows {
		entry, err := s.GetList(ctx, accountKey, mustParseKey(pagingRow.ListKey))
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

// GetList reads one list descriptor, nil if absent
func (s *Store) GetList(ctx context.Context, accountKey, listKey model.Key) (*ListEntry, error) {
	var row db.List
	err := s.db.WithContext(ctx).
		Where("list_key = ? AND account_key = ?", listKey.String(), accountKey.String()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read list: %w", err)
	}
	content, err := db.DecodeListContent(row.Metadata)
	if err != nil {
		return nil, err
	}
	return &ListEntry{ListKey: listKey, Content: content}, nil
}

// SaveList upserts a single list descriptor
func (s *Store) SaveList(ctx context.Context, accountKey model.Key, entry ListEntry) error {
	blob, err := entry.Content.Encode()
	if err != nil {
		return err
	}
	row := db.List{
		ListKey:    entry.ListKey.String(),
		AccountKey: accountKey.String(),
		Metadata:   blob,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "list_key"}, {Name: "account_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"metadata"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to upsert list %s: %w", entry.ListKey, err)
	}
	s.notifier.Notify(topicList + entry.ListKey.String())
	return nil
}

// DeleteList removes a list descriptor and its paging entries
func (s *Store) DeleteList(ctx context.Context, accountKey, listKey model.Key) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_key = ? AND list_key = ?", accountKey.String(), listKey.String()).
			Delete(&db.ListPaging{}).Error; err != nil {
			return fmt.Errorf("failed to delete list paging entries: %w", err)
		}
		if err := tx.Where("list_key = ? AND account_key = ?", listKey.String(), accountKey.String()).
			Delete(&db.List{}).Error; err != nil {
			return fmt.Errorf("failed to delete list: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.Notify(topicList + listKey.String())
	return nil
}

// SubscribeList signals when a list (or a list paging key) changes
func (s *Store) SubscribeList(key string) (<-chan struct{}, func()) {
	return s.notifier.Subscribe(topicList + key)
}

func mustParseKey(s string) model.Key {
	key, err := model.ParseKey(s)
	if err != nil {
		return model.Key{ID: s}
	}
	return key
}
