package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/mastodon"
	"github.com/DimensionDev/Flare-sub003/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.New(":memory:", "ERROR")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database)
}

func testEntry(id string, favourites int64) StatusEntry {
	return StatusEntry{
		StatusKey: model.NewKey(id, "mastodon.social"),
		UserKey:   model.NewKey("u1", "mastodon.social"),
		Platform:  model.PlatformMastodon,
		Content: db.StatusContent{
			Type: db.ContentMastodon,
			Mastodon: &mastodon.Status{
				ID:              id,
				Content:         "post " + id,
				FavouritesCount: favourites,
			},
		},
	}
}

func testEntries(from, count int) []StatusEntry {
	entries := make([]StatusEntry, 0, count)
	for i := 0; i < count; i++ {
		entries = append(entries, testEntry(fmt.Sprintf("s%d", from+i), 0))
	}
	return entries
}

var (
	testAccount   = model.NewKey("me", "mastodon.social")
	testPagingKey = "home_me@mastodon.social"
)

func TestSavePageAssignsSortIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(0, 5),
	}, true)
	if err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}

	items, err := s.Timeline(ctx, testAccount, testPagingKey, 0, 0)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("Timeline() returned %d items, want 5", len(items))
	}
	for i, item := range items {
		if item.SortID != int64(i) {
			t.Errorf("item %d has sort id %d, want %d", i, item.SortID, i)
		}
	}
}

func TestSavePageAppendContinuesSortIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(0, 3),
	}, true); err != nil {
		t.Fatalf("refresh SavePage() error = %v", err)
	}
	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(3, 3),
	}, false); err != nil {
		t.Fatalf("append SavePage() error = %v", err)
	}

	items, err := s.Timeline(ctx, testAccount, testPagingKey, 0, 0)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("Timeline() returned %d items, want 6", len(items))
	}
	for i, item := range items {
		if item.SortID != int64(i) {
			t.Errorf("item %d has sort id %d, want %d", i, item.SortID, i)
		}
		wantID := fmt.Sprintf("s%d", i)
		if item.StatusKey.ID != wantID {
			t.Errorf("item %d is %s, want %s", i, item.StatusKey.ID, wantID)
		}
	}
}

func TestSavePageSkipsDuplicatesWithoutConsumingSortIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(0, 3),
	}, true); err != nil {
		t.Fatalf("refresh SavePage() error = %v", err)
	}

	// Overlapping append: s2 is already present, s3 and s4 are new
	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   []StatusEntry{testEntry("s2", 0), testEntry("s3", 0), testEntry("s4", 0)},
	}, false); err != nil {
		t.Fatalf("append SavePage() error = %v", err)
	}

	items, err := s.Timeline(ctx, testAccount, testPagingKey, 0, 0)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("Timeline() returned %d items, want 5", len(items))
	}
	// s3 and s4 take sort ids 3 and 4; the duplicate never consumed one
	for i, item := range items {
		if item.SortID != int64(i) {
			t.Errorf("item %d has sort id %d, want %d", i, item.SortID, i)
		}
	}
	if items[3].StatusKey.ID != "s3" || items[4].StatusKey.ID != "s4" {
		t.Errorf("appended items are %s, %s, want s3, s4", items[3].StatusKey.ID, items[4].StatusKey.ID)
	}
}

func TestSavePageRefreshClearsFeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(0, 4),
	}, true); err != nil {
		t.Fatalf("first SavePage() error = %v", err)
	}
	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(10, 2),
	}, true); err != nil {
		t.Fatalf("second SavePage() error = %v", err)
	}

	items, err := s.Timeline(ctx, testAccount, testPagingKey, 0, 0)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Timeline() returned %d items after refresh, want 2", len(items))
	}
	if items[0].StatusKey.ID != "s10" || items[0].SortID != 0 {
		t.Errorf("first item is %s at sort id %d, want s10 at 0", items[0].StatusKey.ID, items[0].SortID)
	}
}

func TestSavePageCancelledContextNeverCommits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(0, 2),
	}, true); err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := s.SavePage(cancelled, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(2, 2),
	}, false)
	if err == nil {
		t.Fatal("SavePage() with cancelled context should fail")
	}

	count, err := s.TimelineCount(ctx, testAccount, testPagingKey)
	if err != nil {
		t.Fatalf("TimelineCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("TimelineCount() = %d after cancelled append, want 2", count)
	}
}

func TestSaveOrderedPagePlacesAncestorsAboveFocal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []StatusEntry{
		testEntry("ancestor2", 0),
		testEntry("ancestor1", 0),
		testEntry("focal", 0),
		testEntry("reply1", 0),
	}
	entries[0].SortID = -2
	entries[1].SortID = -1
	entries[2].SortID = 0
	entries[3].SortID = 1

	pagingKey := "status_focal_" + testAccount.String()
	if err := s.SaveOrderedPage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  pagingKey,
		Statuses:   entries,
	}, true); err != nil {
		t.Fatalf("SaveOrderedPage() error = %v", err)
	}

	items, err := s.Timeline(ctx, testAccount, pagingKey, 0, 0)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	want := []string{"ancestor2", "ancestor1", "focal", "reply1"}
	if len(items) != len(want) {
		t.Fatalf("Timeline() returned %d items, want %d", len(items), len(want))
	}
	for i, item := range items {
		if item.StatusKey.ID != want[i] {
			t.Errorf("position %d is %s, want %s", i, item.StatusKey.ID, want[i])
		}
	}
	if items[2].SortID != 0 {
		t.Errorf("focal status sort id = %d, want 0", items[2].SortID)
	}
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   []StatusEntry{testEntry("s0", 3)},
	}, true); err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}

	statusKey := model.NewKey("s0", "mastodon.social")
	err := s.UpdateStatus(ctx, testAccount, statusKey, func(content db.StatusContent) (db.StatusContent, error) {
		updated := *content.Mastodon
		updated.FavouritesCount++
		updated.Favourited = true
		return db.StatusContent{Type: db.ContentMastodon, Mastodon: &updated}, nil
	})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	row, err := s.GetStatus(ctx, testAccount, statusKey)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	content, err := db.DecodeStatusContent(row.Content)
	if err != nil {
		t.Fatalf("DecodeStatusContent() error = %v", err)
	}
	if content.Mastodon.FavouritesCount != 4 || !content.Mastodon.Favourited {
		t.Errorf("got favourites=%d favourited=%v, want 4 true",
			content.Mastodon.FavouritesCount, content.Mastodon.Favourited)
	}
}

func TestUpdateStatusNotCached(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateStatus(context.Background(), testAccount, model.NewKey("missing", "mastodon.social"),
		func(content db.StatusContent) (db.StatusContent, error) {
			return content, nil
		})
	if err == nil {
		t.Fatal("UpdateStatus() on uncached status should fail")
	}
}

func TestDeleteStatusRemovesAllTimelineEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// The same status referenced from two feeds
	otherKey := "bookmark_me@mastodon.social"
	for _, pagingKey := range []string{testPagingKey, otherKey} {
		if err := s.SavePage(ctx, Page{
			AccountKey: testAccount,
			PagingKey:  pagingKey,
			Statuses:   []StatusEntry{testEntry("s0", 0), testEntry("s1", 0)},
		}, true); err != nil {
			t.Fatalf("SavePage(%s) error = %v", pagingKey, err)
		}
	}

	statusKey := model.NewKey("s0", "mastodon.social")
	if err := s.DeleteStatus(ctx, testAccount, statusKey); err != nil {
		t.Fatalf("DeleteStatus() error = %v", err)
	}

	for _, pagingKey := range []string{testPagingKey, otherKey} {
		items, err := s.Timeline(ctx, testAccount, pagingKey, 0, 0)
		if err != nil {
			t.Fatalf("Timeline(%s) error = %v", pagingKey, err)
		}
		if len(items) != 1 || items[0].StatusKey.ID != "s1" {
			t.Errorf("feed %s still references deleted status: %+v", pagingKey, items)
		}
	}

	row, err := s.GetStatus(ctx, testAccount, statusKey)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if row != nil {
		t.Error("status row survived DeleteStatus()")
	}
}

func TestTimelineWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(0, 10),
	}, true); err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}

	tests := []struct {
		name    string
		limit   int
		offset  int
		wantLen int
		first   string
	}{
		{"first page", 3, 0, 3, "s0"},
		{"second page", 3, 3, 3, "s3"},
		{"past the end", 5, 8, 2, "s8"},
		{"unbounded", 0, 0, 10, "s0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := s.Timeline(ctx, testAccount, testPagingKey, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("Timeline() error = %v", err)
			}
			if len(items) != tt.wantLen {
				t.Fatalf("Timeline() returned %d items, want %d", len(items), tt.wantLen)
			}
			if items[0].StatusKey.ID != tt.first {
				t.Errorf("first item is %s, want %s", items[0].StatusKey.ID, tt.first)
			}
		})
	}
}

func TestSavePageNotifiesSubscribers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, cancel := s.SubscribeTimeline(testPagingKey)
	defer cancel()

	if err := s.SavePage(ctx, Page{
		AccountKey: testAccount,
		PagingKey:  testPagingKey,
		Statuses:   testEntries(0, 1),
	}, true); err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}

	select {
	case <-ch:
	default:
		t.Error("no timeline notification after SavePage()")
	}
}
