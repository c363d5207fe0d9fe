package bluesky

import (
	"encoding/json"
	"time"
)

// Profile is an actor profile as embedded in feed views
type Profile struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Description string `json:"description"`
}

// Viewer carries the requesting account's relation to a post. Like and
// Repost hold the AT-URIs of the viewer's own like/repost records;
// those URIs are required to undo the action later.
type Viewer struct {
	Like   string `json:"like,omitempty"`
	Repost string `json:"repost,omitempty"`
}

// PostView is a hydrated post
type PostView struct {
	URI         string          `json:"uri"`
	CID         string          `json:"cid"`
	Author      *Profile        `json:"author"`
	Record      json.RawMessage `json:"record"`
	ReplyCount  int64           `json:"replyCount"`
	RepostCount int64           `json:"repostCount"`
	LikeCount   int64           `json:"likeCount"`
	IndexedAt   time.Time       `json:"indexedAt"`
	Viewer      *Viewer         `json:"viewer"`
}

// FeedViewPost is one timeline entry; Reason is set for reposts
type FeedViewPost struct {
	Post   PostView        `json:"post"`
	Reason json.RawMessage `json:"reason,omitempty"`
}

// ThreadViewPost is a recursive thread node
type ThreadViewPost struct {
	Post    *PostView        `json:"post"`
	Parent  *ThreadViewPost  `json:"parent"`
	Replies []ThreadViewPost `json:"replies"`
}

// Notification is an app.bsky notification. ReasonSubject points at
// the post a like/repost refers to; the post itself is not embedded
// and must be resolved with a secondary getPosts call.
type Notification struct {
	URI           string          `json:"uri"`
	CID           string          `json:"cid"`
	Author        *Profile        `json:"author"`
	Reason        string          `json:"reason"`
	ReasonSubject string          `json:"reasonSubject"`
	Record        json.RawMessage `json:"record"`
	IndexedAt     time.Time       `json:"indexedAt"`
	// ReferencedPost is filled in by the notification mediator after
	// the batched getPosts resolution; it is not part of the wire form.
	ReferencedPost *PostView `json:"referencedPost,omitempty"`
}

// ListView is an app.bsky.graph list descriptor
type ListView struct {
	URI         string   `json:"uri"`
	CID         string   `json:"cid"`
	Name        string   `json:"name"`
	Purpose     string   `json:"purpose"`
	Description string   `json:"description"`
	Avatar      string   `json:"avatar"`
	Creator     *Profile `json:"creator"`
}

// RecordRef identifies a created repo record
type RecordRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}
