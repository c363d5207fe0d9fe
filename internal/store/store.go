package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
)

// Topic prefixes for change notifications
const (
	topicTimeline = "timeline:"
	topicStatus   = "status:"
	topicUser     = "user:"
	topicList     = "list:"
	topicRoom     = "room:"
)

// Store is the single source of truth for cached content. Mediators
// write pages through it, the mutation engine updates individual
// rows through it, and the UI-facing layers read and subscribe
// through it. All multi-row writes are transactional.
type Store struct {
	db       *db.DB
	notifier *Notifier
	logger   *zap.Logger

	// statusLocks serializes read-modify-write cycles per status key
	// so two simultaneous actions on the same post cannot interleave.
	statusLocks sync.Map
}

// New creates a store over the given cache database
func New(database *db.DB) *Store {
	return &Store{
		db:       database,
		notifier: NewNotifier(),
		logger:   logging.GetLogger().With(zap.String("component", "store")),
	}
}

// StatusEntry is one normalized status produced by a mapper
type StatusEntry struct {
	StatusKey model.Key
	UserKey   model.Key
	Platform  model.PlatformType
	Content   db.StatusContent
	// SortID is honored only by SaveOrderedPage
	SortID int64
}

// UserEntry is one normalized user produced by a mapper
type UserEntry struct {
	UserKey  model.Key
	Platform model.PlatformType
	Name     string
	Handle   string
	Host     string
	Content  db.UserContent
}

// Page is the unit a mediator commits after a successful fetch
type Page struct {
	AccountKey model.Key
	PagingKey  string
	Statuses   []StatusEntry
	Users      []UserEntry
}

// SavePage commits a fetched page in one transaction. When clear is
// true the paging key's existing entries are removed first (inside
// the same transaction, so a failure leaves the old feed intact).
// Sort ids are assigned in slice order continuing from the key's
// current maximum; entries whose status key already exists under the
// paging key are skipped without consuming a sort id.
func (s *Store) SavePage(ctx context.Context, page Page, clear bool) error {
	return s.savePage(ctx, page, clear, false)
}

// SaveOrderedPage commits a page using the explicit SortID carried by
// each entry. Status-detail mediators use this to place ancestors at
// negative offsets above the focal status.
func (s *Store) SaveOrderedPage(ctx context.Context, page Page, clear bool) error {
	return s.savePage(ctx, page, clear, true)
}

func (s *Store) savePage(ctx context.Context, page Page, clear, explicitOrder bool) error {
	if err := ctx.Err(); err != nil {
		// Cancellation is checked before, never during, a commit
		return err
	}
	accountKey := page.AccountKey.String()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := tx.Where("account_key = ? AND paging_key = ?", accountKey, page.PagingKey).
				Delete(&db.PagingTimeline{}).Error; err != nil {
				return fmt.Errorf("failed to clear paging key: %w", err)
			}
		}

		nextSortID := int64(0)
		if !explicitOrder {
			var maxSortID *int64
			if err := tx.Model(&db.PagingTimeline{}).
				Where("account_key = ? AND paging_key = ?", accountKey, page.PagingKey).
				Select("MAX(sort_id)").
				Scan(&maxSortID).Error; err != nil {
				return fmt.Errorf("failed to read max sort id: %w", err)
			}
			if maxSortID != nil {
				nextSortID = *maxSortID + 1
			}
		}

		existing := make(map[string]bool)
		if !clear {
			var keys []string
			if err := tx.Model(&db.PagingTimeline{}).
				Where("account_key = ? AND paging_key = ?", accountKey, page.PagingKey).
				Pluck("status_key", &keys).Error; err != nil {
				return fmt.Errorf("failed to read existing entries: %w", err)
			}
			for _, k := range keys {
				existing[k] = true
			}
		}

		for _, entry := range page.Statuses {
			statusKey := entry.StatusKey.String()

			blob, err := entry.Content.Encode()
			if err != nil {
				return fmt.Errorf("failed to encode status %s: %w", statusKey, err)
			}
			status := db.Status{
				StatusKey:    statusKey,
				AccountKey:   accountKey,
				UserKey:      entry.UserKey.String(),
				PlatformType: string(entry.Platform),
				Content:      blob,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "status_key"}, {Name: "account_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"user_key", "platform_type", "content"}),
			}).Create(&status).Error; err != nil {
				return fmt.Errorf("failed to upsert status %s: %w", statusKey, err)
			}

			if existing[statusKey] {
				continue
			}
			existing[statusKey] = true

			timeline := db.PagingTimeline{
				AccountKey: accountKey,
				PagingKey:  page.PagingKey,
				StatusKey:  statusKey,
			}
			if explicitOrder {
				timeline.SortID = entry.SortID
			} else {
				timeline.SortID = nextSortID
				nextSortID++
			}
			if err := tx.Create(&timeline).Error; err != nil {
				return fmt.Errorf("failed to insert timeline entry %s: %w", statusKey, err)
			}
		}

		for _, user := range page.Users {
			if err := upsertUser(tx, user); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Saved timeline page",
		zap.String("paging_key", page.PagingKey),
		zap.Int("statuses", len(page.Statuses)),
		zap.Bool("clear", clear))

	s.notifier.Notify(topicTimeline + page.PagingKey)
	for _, entry := range page.Statuses {
		s.notifier.Notify(topicStatus + entry.StatusKey.String())
	}
	for _, user := range page.Users {
		s.notifier.Notify(topicUser + user.UserKey.String())
	}
	return nil
}

func upsertUser(tx *gorm.DB, user UserEntry) error {
	blob, err := user.Content.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode user %s: %w", user.UserKey, err)
	}
	row := db.User{
		UserKey:      user.UserKey.String(),
		PlatformType: string(user.Platform),
		Name:         user.Name,
		Handle:       user.Handle,
		Host:         user.Host,
		Content:      blob,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform_type", "name", "handle", "host", "content"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.UserKey, err)
	}
	return nil
}

// SaveUsers upserts user rows outside of a timeline page (last write
// wins, matching the shared-row policy).
func (s *Store) SaveUsers(ctx context.Context, users []UserEntry) error {
	if len(users) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, user := range users {
			if err := upsertUser(tx, user); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, user := range users {
		s.notifier.Notify(topicUser + user.UserKey.String())
	}
	return nil
}

// TimelineItem is one row of an observed timeline, status and author
// already decoded.
type TimelineItem struct {
	StatusKey model.Key
	SortID    int64
	Platform  model.PlatformType
	Content   db.StatusContent
	User      *UserEntry
}

// Timeline reads a window of a feed in display order (ascending sort
// id), joining each entry to its status row and author.
func (s *Store) Timeline(ctx context.Context, accountKey model.Key, pagingKey string, limit, offset int) ([]TimelineItem, error) {
	var entries []db.PagingTimeline
	query := s.db.WithContext(ctx).
		Where("account_key = ? AND paging_key = ?", accountKey.String(), pagingKey).
		Order("sort_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}

	items := make([]TimelineItem, 0, len(entries))
	for _, entry := range entries {
		statusKey, err := model.ParseKey(entry.StatusKey)
		if err != nil {
			return nil, err
		}
		status, err := s.getStatusRow(ctx, entry.AccountKey, entry.StatusKey)
		if err != nil {
			return nil, err
		}
		if status == nil {
			// Entry without a status row; skip rather than fail the page
			continue
		}
		content, err := db.DecodeStatusContent(status.Content)
		if err != nil {
			return nil, err
		}
		item := TimelineItem{
			StatusKey: statusKey,
			SortID:    entry.SortID,
			Platform:  model.PlatformType(status.PlatformType),
			Content:   content,
		}
		if user, err := s.lookupUser(ctx, status.UserKey); err == nil && user != nil {
			item.User = user
		}
		items = append(items, item)
	}
	return items, nil
}

// TimelineCount returns the number of entries under a paging key
func (s *Store) TimelineCount(ctx context.Context, accountKey model.Key, pagingKey string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.PagingTimeline{}).
		Where("account_key = ? AND paging_key = ?", accountKey.String(), pagingKey).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count timeline: %w", err)
	}
	return count, nil
}

func (s *Store) getStatusRow(ctx context.Context, accountKey, statusKey string) (*db.Status, error) {
	var status db.Status
	err := s.db.WithContext(ctx).
		Where("status_key = ? AND account_key = ?", statusKey, accountKey).
		First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	return &status, nil
}

// GetStatus reads one status row, nil if absent
func (s *Store) GetStatus(ctx context.Context, accountKey, statusKey model.Key) (*db.Status, error) {
	return s.getStatusRow(ctx, accountKey.String(), statusKey.String())
}

func (s *Store) lookupUser(ctx context.Context, userKey string) (*UserEntry, error) {
	var row db.User
	err := s.db.WithContext(ctx).Where("user_key = ?", userKey).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	key, err := model.ParseKey(row.UserKey)
	if err != nil {
		return nil, err
	}
	content, err := db.DecodeUserContent(row.Content)
	if err != nil {
		return nil, err
	}
	return &UserEntry{
		UserKey:  key,
		Platform: model.PlatformType(row.PlatformType),
		Name:     row.Name,
		Handle:   row.Handle,
		Host:     row.Host,
		Content:  content,
	}, nil
}

// GetUser reads one user row, nil if absent
func (s *Store) GetUser(ctx context.Context, userKey model.Key) (*UserEntry, error) {
	return s.lookupUser(ctx, userKey.String())
}

func (s *Store) statusLock(accountKey, statusKey string) *sync.Mutex {
	lock, _ := s.statusLocks.LoadOrStore(accountKey+"|"+statusKey, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// UpdateStatus runs a read-modify-write cycle on one status row under
// the row's key lock and inside a transaction. Both the optimistic
// apply and the rollback of a failed action go through here, so
// concurrent actions on the same post serialize.
func (s *Store) UpdateStatus(ctx context.Context, accountKey, statusKey model.Key, update func(db.StatusContent) (db.StatusContent, error)) error {
	lock := s.statusLock(accountKey.String(), statusKey.String())
	lock.Lock()
	defer lock.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var status db.Status
		err := tx.Where("status_key = ? AND account_key = ?", statusKey.String(), accountKey.String()).
			First(&status).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("status %s not cached", statusKey)
			}
			return fmt.Errorf("failed to read status: %w", err)
		}
		content, err := db.DecodeStatusContent(status.Content)
		if err != nil {
			return err
		}
		updated, err := update(content)
		if err != nil {
			return err
		}
		blob, err := updated.Encode()
		if err != nil {
			return err
		}
		return tx.Model(&db.Status{}).
			Where("status_key = ? AND account_key = ?", statusKey.String(), accountKey.String()).
			Update("content", blob).Error
	})
	if err != nil {
		return err
	}
	s.notifier.Notify(topicStatus + statusKey.String())
	return nil
}

// UpdateUser runs a read-modify-write cycle on one user row
func (s *Store) UpdateUser(ctx context.Context, userKey model.Key, update func(db.UserContent) (db.UserContent, error)) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row db.User
		err := tx.Where("user_key = ?", userKey.String()).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %s not cached", userKey)
			}
			return fmt.Errorf("failed to read user: %w", err)
		}
		content, err := db.DecodeUserContent(row.Content)
		if err != nil {
			return err
		}
		updated, err := update(content)
		if err != nil {
			return err
		}
		blob, err := updated.Encode()
		if err != nil {
			return err
		}
		return tx.Model(&db.User{}).
			Where("user_key = ?", userKey.String()).
			Update("content", blob).Error
	})
	if err != nil {
		return err
	}
	s.notifier.Notify(topicUser + userKey.String())
	return nil
}

// DeleteStatus removes a status row and every timeline entry that
// references it, across all paging keys, in one transaction.
func (s *Store) DeleteStatus(ctx context.Context, accountKey, statusKey model.Key) error {
	var pagingKeys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.PagingTimeline{}).
			Where("account_key = ? AND status_key = ?", accountKey.String(), statusKey.String()).
			Distinct().
			Pluck("paging_key", &pagingKeys).Error; err != nil {
			return fmt.Errorf("failed to find referencing feeds: %w", err)
		}
		if err := tx.Where("account_key = ? AND status_key = ?", accountKey.String(), statusKey.String()).
			Delete(&db.PagingTimeline{}).Error; err != nil {
			return fmt.Errorf("failed to delete timeline entries: %w", err)
		}
		if err := tx.Where("status_key = ? AND account_key = ?", statusKey.String(), accountKey.String()).
			Delete(&db.Status{}).Error; err != nil {
			return fmt.Errorf("failed to delete status: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.Notify(topicStatus + statusKey.String())
	for _, pagingKey := range pagingKeys {
		s.notifier.Notify(topicTimeline + pagingKey)
	}
	return nil
}

// SubscribeTimeline signals whenever a paging key's entries change
func (s *Store) SubscribeTimeline(pagingKey string) (<-chan struct{}, func()) {
	return s.notifier.Subscribe(topicTimeline + pagingKey)
}

// SubscribeStatus signals whenever one status row changes
func (s *Store) SubscribeStatus(statusKey model.Key) (<-chan struct{}, func()) {
	return s.notifier.Subscribe(topicStatus + statusKey.String())
}

// SubscribeUser signals whenever one user row changes
func (s *Store) SubscribeUser(userKey model.Key) (<-chan struct{}, func()) {
	return s.notifier.Subscribe(topicUser + userKey.String())
}
