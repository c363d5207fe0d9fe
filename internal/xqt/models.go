package xqt

// UserLegacy holds the classic user fields
type UserLegacy struct {
	ScreenName           string `json:"screen_name"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
	FollowersCount       int64  `json:"followers_count"`
	FriendsCount         int64  `json:"friends_count"`
	Following            bool   `json:"following"`
}

// User is a user wrapped in the GraphQL result envelope
type User struct {
	RestID string     `json:"rest_id"`
	Legacy UserLegacy `json:"legacy"`
}

// TweetLegacy holds the classic tweet fields
type TweetLegacy struct {
	FullText             string `json:"full_text"`
	CreatedAt            string `json:"created_at"`
	ConversationIDStr    string `json:"conversation_id_str"`
	InReplyToStatusIDStr string `json:"in_reply_to_status_id_str"`
	FavoriteCount        int64  `json:"favorite_count"`
	RetweetCount         int64  `json:"retweet_count"`
	ReplyCount           int64  `json:"reply_count"`
	QuoteCount           int64  `json:"quote_count"`
	BookmarkCount        int64  `json:"bookmark_count"`
	Favorited            bool   `json:"favorited"`
	Retweeted            bool   `json:"retweeted"`
	Bookmarked           bool   `json:"bookmarked"`
}

// Tweet is a tweet result with its author resolved
type Tweet struct {
	RestID        string      `json:"rest_id"`
	Legacy        TweetLegacy `json:"legacy"`
	User          *User       `json:"user"`
	QuotedStatus  *Tweet      `json:"quoted_status_result,omitempty"`
	RetweetedTweet *Tweet     `json:"retweeted_status_result,omitempty"`
}

// Notification is one notification entry. TweetIDs reference tweets
// carried alongside in the response's global objects.
type Notification struct {
	ID          string   `json:"id"`
	Message     string   `json:"message"`
	TimestampMS int64    `json:"timestampMs,string"`
	Icon        string   `json:"icon"`
	TweetIDs    []string `json:"tweetIds"`
	UserIDs     []string `json:"userIds"`
}

// Thread is a flattened tweet-detail response: ancestors oldest first,
// then the focal tweet, then replies.
type Thread struct {
	Ancestors []Tweet
	Focal     *Tweet
	Replies   []Tweet
	Cursor    string
}

// Conversation is a DM conversation summary
type Conversation struct {
	ConversationID string   `json:"conversation_id"`
	Participants   []string `json:"participants"`
	SortTimestamp  int64    `json:"sort_timestamp,string"`
	Name           string   `json:"name"`
}

// Message is one DM
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Text           string `json:"text"`
	TimeMS         int64  `json:"time,string"`
}
