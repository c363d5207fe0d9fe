package bluesky

import (
	"testing"

	api "github.com/DimensionDev/Flare-sub003/internal/bluesky"
	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/model"
)

const testPostURI = "at://did:plc:abc123/app.bsky.feed.post/3k44deefy"

func testSource() *DataSource {
	return New(nil, nil, nil, model.NewKey("did:plc:me", "bsky.social"))
}

func TestMapPostUsesATURIAsKey(t *testing.T) {
	d := testSource()
	entry, users := d.mapPost(api.PostView{
		URI: testPostURI,
		CID: "bafy123",
		Author: &api.Profile{
			DID:         "did:plc:abc123",
			Handle:      "alice.bsky.social",
			DisplayName: "Alice",
		},
	})

	if entry.StatusKey != model.NewKey(testPostURI, "bsky.social") {
		t.Errorf("status key = %v", entry.StatusKey)
	}
	if entry.UserKey != model.NewKey("did:plc:abc123", "bsky.social") {
		t.Errorf("user key = %v", entry.UserKey)
	}
	if entry.Content.Type != db.ContentBluesky || entry.Content.Bluesky.CID != "bafy123" {
		t.Errorf("content = %+v", entry.Content)
	}
	if len(users) != 1 || users[0].Handle != "@alice.bsky.social" {
		t.Errorf("users = %+v", users)
	}
}

// AT-URI keys contain '@' nowhere but do contain slashes and colons;
// the key codec must round-trip them.
func TestPostKeyRoundTrips(t *testing.T) {
	d := testSource()
	key := d.statusKey(testPostURI)
	parsed, err := model.ParseKey(key.String())
	if err != nil {
		t.Fatalf("ParseKey() error = %v", err)
	}
	if parsed != key {
		t.Errorf("round trip: got %v, want %v", parsed, key)
	}
}

func TestMapNotificationCarriesReferencedPost(t *testing.T) {
	d := testSource()
	entry, users := d.mapNotification(api.Notification{
		URI:    "at://did:plc:xyz/app.bsky.feed.like/3liked",
		Reason: "like",
		Author: &api.Profile{DID: "did:plc:xyz", Handle: "bob.bsky.social"},
		ReferencedPost: &api.PostView{
			URI:    testPostURI,
			Author: &api.Profile{DID: "did:plc:abc123", Handle: "alice.bsky.social"},
		},
	})

	if entry.Content.Type != db.ContentBlueskyNotification {
		t.Errorf("content type = %s", entry.Content.Type)
	}
	if entry.Content.BlueskyNotification.ReferencedPost == nil {
		t.Fatal("referenced post dropped in mapping")
	}
	if entry.Content.BlueskyNotification.ReferencedPost.URI != testPostURI {
		t.Errorf("referenced post uri = %s", entry.Content.BlueskyNotification.ReferencedPost.URI)
	}
	if len(users) != 2 {
		t.Errorf("got %d users, want actor and referenced author", len(users))
	}
}

func TestMapList(t *testing.T) {
	d := testSource()
	listURI := "at://did:plc:me/app.bsky.graph.list/3klist"
	entry := d.mapList(api.ListView{
		URI:         listURI,
		Name:        "gophers",
		Description: "go people",
	})
	if entry.ListKey.ID != listURI {
		t.Errorf("list key id = %s", entry.ListKey.ID)
	}
	if entry.Content.Title != "gophers" || entry.Content.Description != "go people" {
		t.Errorf("content = %+v", entry.Content)
	}
}
