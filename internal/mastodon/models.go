package mastodon

import "time"

// Account is a Mastodon account as returned by the API
type Account struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Acct           string    `json:"acct"`
	DisplayName    string    `json:"display_name"`
	Note           string    `json:"note"`
	Avatar         string    `json:"avatar"`
	Header         string    `json:"header"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	StatusesCount  int64     `json:"statuses_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// MediaAttachment is an attached media object
type MediaAttachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url"`
	Description string `json:"description"`
}

// Status is a Mastodon status (toot)
type Status struct {
	ID                 string            `json:"id"`
	URI                string            `json:"uri"`
	URL                string            `json:"url"`
	CreatedAt          time.Time         `json:"created_at"`
	Content            string            `json:"content"`
	Visibility         string            `json:"visibility"`
	Sensitive          bool              `json:"sensitive"`
	SpoilerText        string            `json:"spoiler_text"`
	InReplyToID        string            `json:"in_reply_to_id"`
	InReplyToAccountID string            `json:"in_reply_to_account_id"`
	RepliesCount       int64             `json:"replies_count"`
	ReblogsCount       int64             `json:"reblogs_count"`
	FavouritesCount    int64             `json:"favourites_count"`
	Favourited         bool              `json:"favourited"`
	Reblogged          bool              `json:"reblogged"`
	Bookmarked         bool              `json:"bookmarked"`
	Account            *Account          `json:"account"`
	Reblog             *Status           `json:"reblog"`
	MediaAttachments   []MediaAttachment `json:"media_attachments"`
}

// Notification is a Mastodon notification. Status is present for
// mention/favourite/reblog kinds and nil for follow.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Account   *Account  `json:"account"`
	Status    *Status   `json:"status"`
}

// Context is a status thread: ancestors above, descendants below
type Context struct {
	Ancestors   []Status `json:"ancestors"`
	Descendants []Status `json:"descendants"`
}

// List is a Mastodon list descriptor
type List struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Relationship is the viewer's relation to an account
type Relationship struct {
	ID        string `json:"id"`
	Following bool   `json:"following"`
	Muting    bool   `json:"muting"`
	Blocking  bool   `json:"blocking"`
}

// SearchResult is the statuses slice of a v2 search response
type SearchResult struct {
	Statuses []Status  `json:"statuses"`
	Accounts []Account `json:"accounts"`
}
