package mutation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/mastodon"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

var (
	testAccount = model.NewKey("me", "mastodon.social")
	testStatus  = model.NewKey("s1", "mastodon.social")
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	database, err := db.New(":memory:", "ERROR")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	cacheStore := store.New(database)
	return NewEngine(cacheStore), cacheStore
}

func seedStatus(t *testing.T, cacheStore *store.Store, favourites int64) {
	t.Helper()
	err := cacheStore.SavePage(context.Background(), store.Page{
		AccountKey: testAccount,
		PagingKey:  "home_" + testAccount.String(),
		Statuses: []store.StatusEntry{{
			StatusKey: testStatus,
			UserKey:   model.NewKey("u1", "mastodon.social"),
			Platform:  model.PlatformMastodon,
			Content: db.StatusContent{
				Type: db.ContentMastodon,
				Mastodon: &mastodon.Status{
					ID:              testStatus.ID,
					FavouritesCount: favourites,
				},
			},
		}},
	}, true)
	if err != nil {
		t.Fatalf("failed to seed status: %v", err)
	}
}

func readFavourites(t *testing.T, cacheStore *store.Store) (int64, bool) {
	t.Helper()
	row, err := cacheStore.GetStatus(context.Background(), testAccount, testStatus)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if row == nil {
		t.Fatal("status disappeared from cache")
	}
	content, err := db.DecodeStatusContent(row.Content)
	if err != nil {
		t.Fatalf("DecodeStatusContent() error = %v", err)
	}
	return content.Mastodon.FavouritesCount, content.Mastodon.Favourited
}

func favouriteMutator(remote func(ctx context.Context) (*db.StatusContent, error)) Mutator {
	rewrite := func(delta int64, flag bool) func(db.StatusContent) (db.StatusContent, error) {
		return func(content db.StatusContent) (db.StatusContent, error) {
			if content.Type != db.ContentMastodon || content.Mastodon == nil {
				return content, fmt.Errorf("unexpected content type %q", content.Type)
			}
			updated := *content.Mastodon
			updated.FavouritesCount += delta
			if updated.FavouritesCount < 0 {
				updated.FavouritesCount = 0
			}
			updated.Favourited = flag
			return db.StatusContent{Type: db.ContentMastodon, Mastodon: &updated}, nil
		}
	}
	return Mutator{
		Name:   "favourite",
		Apply:  rewrite(1, true),
		Revert: rewrite(-1, false),
		Remote: remote,
	}
}

func TestApplyIsOptimistic(t *testing.T) {
	engine, cacheStore := newTestEngine(t)
	seedStatus(t, cacheStore, 3)

	remoteStarted := make(chan struct{})
	release := make(chan struct{})
	m := favouriteMutator(func(ctx context.Context) (*db.StatusContent, error) {
		close(remoteStarted)
		<-release
		return nil, nil
	})

	if err := engine.Apply(context.Background(), testAccount, testStatus, m); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	// The cache already shows the new state before the remote settles
	<-remoteStarted
	count, flagged := readFavourites(t, cacheStore)
	if count != 4 || !flagged {
		t.Errorf("got favourites=%d favourited=%v before remote completion, want 4 true", count, flagged)
	}

	close(release)
	engine.Wait()
	count, flagged = readFavourites(t, cacheStore)
	if count != 4 || !flagged {
		t.Errorf("got favourites=%d favourited=%v after remote success, want 4 true", count, flagged)
	}
}

func TestApplyRevertsOnRemoteFailure(t *testing.T) {
	engine, cacheStore := newTestEngine(t)
	seedStatus(t, cacheStore, 3)

	remoteErr := errors.New("rate limited")
	m := favouriteMutator(func(ctx context.Context) (*db.StatusContent, error) {
		return nil, remoteErr
	})

	if err := engine.Apply(context.Background(), testAccount, testStatus, m); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	engine.Wait()

	count, flagged := readFavourites(t, cacheStore)
	if count != 3 || flagged {
		t.Errorf("got favourites=%d favourited=%v after rollback, want 3 false", count, flagged)
	}

	select {
	case failure := <-engine.Failures():
		if failure.Name != "favourite" || !errors.Is(failure.Err, remoteErr) {
			t.Errorf("unexpected failure report: %+v", failure)
		}
		if failure.StatusKey != testStatus {
			t.Errorf("failure status key = %v, want %v", failure.StatusKey, testStatus)
		}
	case <-time.After(time.Second):
		t.Error("no failure report after remote error")
	}
}

func TestApplyReconcilesAuthoritativeContent(t *testing.T) {
	engine, cacheStore := newTestEngine(t)
	seedStatus(t, cacheStore, 3)

	// The backend reports a different count than the optimistic guess
	m := favouriteMutator(func(ctx context.Context) (*db.StatusContent, error) {
		return &db.StatusContent{
			Type: db.ContentMastodon,
			Mastodon: &mastodon.Status{
				ID:              testStatus.ID,
				FavouritesCount: 10,
				Favourited:      true,
			},
		}, nil
	})

	if err := engine.Apply(context.Background(), testAccount, testStatus, m); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	engine.Wait()

	count, flagged := readFavourites(t, cacheStore)
	if count != 10 || !flagged {
		t.Errorf("got favourites=%d favourited=%v after reconcile, want 10 true", count, flagged)
	}
}

func TestApplyUncachedStatusFailsSynchronously(t *testing.T) {
	engine, _ := newTestEngine(t)
	m := favouriteMutator(func(ctx context.Context) (*db.StatusContent, error) {
		t.Error("remote must not run when the optimistic apply fails")
		return nil, nil
	})
	if err := engine.Apply(context.Background(), testAccount, testStatus, m); err == nil {
		t.Fatal("Apply() on uncached status should fail")
	}
	engine.Wait()
}

func TestRevertClampsAtZero(t *testing.T) {
	engine, cacheStore := newTestEngine(t)
	seedStatus(t, cacheStore, 0)

	// Unfavourite a status whose count is already zero; the rollback
	// re-adds the one it subtracted and the count must not go negative
	// in between.
	remoteErr := errors.New("gone")
	rewrite := func(delta int64) func(db.StatusContent) (db.StatusContent, error) {
		return func(content db.StatusContent) (db.StatusContent, error) {
			updated := *content.Mastodon
			updated.FavouritesCount += delta
			if updated.FavouritesCount < 0 {
				updated.FavouritesCount = 0
			}
			return db.StatusContent{Type: db.ContentMastodon, Mastodon: &updated}, nil
		}
	}
	m := Mutator{
		Name:   "unfavourite",
		Apply:  rewrite(-1),
		Revert: rewrite(1),
		Remote: func(ctx context.Context) (*db.StatusContent, error) { return nil, remoteErr },
	}

	if err := engine.Apply(context.Background(), testAccount, testStatus, m); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	engine.Wait()

	count, _ := readFavourites(t, cacheStore)
	if count != 1 {
		t.Errorf("favourites = %d after clamped apply and revert, want 1", count)
	}
}

func TestDeleteIsCacheFirst(t *testing.T) {
	engine, cacheStore := newTestEngine(t)
	seedStatus(t, cacheStore, 3)

	remoteErr := errors.New("backend down")
	if err := engine.Delete(context.Background(), testAccount, testStatus, func(ctx context.Context) error {
		return remoteErr
	}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	engine.Wait()

	// The cache removal stands even though the remote call failed
	row, err := cacheStore.GetStatus(context.Background(), testAccount, testStatus)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if row != nil {
		t.Error("status still cached after Delete()")
	}

	select {
	case failure := <-engine.Failures():
		if failure.Name != "delete" || !errors.Is(failure.Err, remoteErr) {
			t.Errorf("unexpected failure report: %+v", failure)
		}
	case <-time.After(time.Second):
		t.Error("no failure report after remote delete error")
	}
}
