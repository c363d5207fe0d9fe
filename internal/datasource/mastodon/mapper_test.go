package mastodon

import (
	"testing"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	api "github.com/DimensionDev/Flare-sub003/internal/mastodon"
	"github.com/DimensionDev/Flare-sub003/internal/model"
)

func testSource() *DataSource {
	return New(nil, nil, nil, model.NewKey("me", "mastodon.social"))
}

func TestMapStatus(t *testing.T) {
	d := testSource()
	entry, users := d.mapStatus(api.Status{
		ID:      "101",
		Content: "<p>hello</p>",
		Account: &api.Account{ID: "u1", Acct: "alice", DisplayName: "Alice"},
	})

	if entry.StatusKey != model.NewKey("101", "mastodon.social") {
		t.Errorf("status key = %v", entry.StatusKey)
	}
	if entry.UserKey != model.NewKey("u1", "mastodon.social") {
		t.Errorf("user key = %v", entry.UserKey)
	}
	if entry.Platform != model.PlatformMastodon {
		t.Errorf("platform = %v", entry.Platform)
	}
	if entry.Content.Type != db.ContentMastodon || entry.Content.Mastodon.ID != "101" {
		t.Errorf("content = %+v", entry.Content)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1", len(users))
	}
	if users[0].Handle != "@alice" || users[0].Name != "Alice" {
		t.Errorf("user = %+v", users[0])
	}
}

func TestMapStatusReblogExtractsInnerAuthor(t *testing.T) {
	d := testSource()
	entry, users := d.mapStatus(api.Status{
		ID:      "200",
		Account: &api.Account{ID: "u1", Acct: "booster"},
		Reblog: &api.Status{
			ID:      "100",
			Account: &api.Account{ID: "u2", Acct: "original@other.tld"},
		},
	})

	// The outer status stays the timeline row
	if entry.StatusKey.ID != "200" {
		t.Errorf("status key id = %s, want 200", entry.StatusKey.ID)
	}
	if entry.Content.Mastodon.Reblog == nil || entry.Content.Mastodon.Reblog.ID != "100" {
		t.Error("reblog payload lost in mapping")
	}
	// Both authors get user rows
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if users[1].Handle != "@original@other.tld" {
		t.Errorf("inner author handle = %s", users[1].Handle)
	}
}

func TestMapNotification(t *testing.T) {
	d := testSource()
	entry, users := d.mapNotification(api.Notification{
		ID:      "n5",
		Type:    "favourite",
		Account: &api.Account{ID: "u3", Acct: "carol"},
		Status:  &api.Status{ID: "300", Account: &api.Account{ID: "u4", Acct: "dave"}},
	})

	// Notification keys are namespaced so they never collide with the
	// referenced status' own row
	if entry.StatusKey.ID != "notification-n5" {
		t.Errorf("status key id = %s, want notification-n5", entry.StatusKey.ID)
	}
	if entry.Content.Type != db.ContentMastodonNotification {
		t.Errorf("content type = %s", entry.Content.Type)
	}
	if entry.UserKey.ID != "u3" {
		t.Errorf("user key id = %s, want the notification actor", entry.UserKey.ID)
	}
	if len(users) != 2 {
		t.Errorf("got %d users, want actor and status author", len(users))
	}
}

func TestMapList(t *testing.T) {
	d := testSource()
	entry := d.mapList(api.List{ID: "l1", Title: "friends"})
	if entry.ListKey != model.NewKey("l1", "mastodon.social") {
		t.Errorf("list key = %v", entry.ListKey)
	}
	if entry.Content.Title != "friends" {
		t.Errorf("title = %s", entry.Content.Title)
	}
}
