package misskey

import "time"

// User is a Misskey user. Host is empty for local users.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Host        string `json:"host"`
	AvatarURL   string `json:"avatarUrl"`
	Description string `json:"description"`
}

// DriveFile is an attached file
type DriveFile struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Comment      string `json:"comment"`
}

// Note is a Misskey note. Renote without text is a boost; with text it
// is a quote. MyReaction is the viewer's reaction emoji, empty if none.
type Note struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"createdAt"`
	Text         string           `json:"text"`
	CW           string           `json:"cw"`
	Visibility   string           `json:"visibility"`
	UserID       string           `json:"userId"`
	User         *User            `json:"user"`
	ReplyID      string           `json:"replyId"`
	RenoteID     string           `json:"renoteId"`
	Renote       *Note            `json:"renote"`
	Reactions    map[string]int64 `json:"reactions"`
	MyReaction   string           `json:"myReaction"`
	RenoteCount  int64            `json:"renoteCount"`
	RepliesCount int64            `json:"repliesCount"`
	Files        []DriveFile      `json:"files"`
}

// Notification is a Misskey notification. Note is present for
// reaction/renote/reply/mention kinds and nil for follow.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId"`
	User      *User     `json:"user"`
	Note      *Note     `json:"note"`
	Reaction  string    `json:"reaction"`
}

// UserList is a Misskey user list descriptor
type UserList struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
	UserIDs   []string  `json:"userIds"`
}
