package vvo

// User is a VVO user
type User struct {
	ID              int64  `json:"id"`
	ScreenName      string `json:"screen_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Description     string `json:"description"`
	FollowCount     int64  `json:"follow_count"`
	FollowersCount  int64  `json:"followers_count"`
	Following       bool   `json:"following"`
}

// Pic is an attached picture
type Pic struct {
	PID string `json:"pid"`
	URL string `json:"url"`
}

// Status is a VVO status. CreatedAt uses the platform's legacy
// "Mon Jan 2 15:04:05 -0700 2006" format.
type Status struct {
	ID              string  `json:"id"`
	MID             string  `json:"mid"`
	CreatedAt       string  `json:"created_at"`
	Text            string  `json:"text"`
	Source          string  `json:"source"`
	User            *User   `json:"user"`
	RepostsCount    int64   `json:"reposts_count"`
	CommentsCount   int64   `json:"comments_count"`
	AttitudesCount  int64   `json:"attitudes_count"`
	Favorited       bool    `json:"favorited"`
	RetweetedStatus *Status `json:"retweeted_status"`
	Pics            []Pic   `json:"pics"`
}

// Comment is a comment on a status. Status may be a stub carrying only
// the ID; the notification mediator resolves the full object.
type Comment struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"created_at"`
	Text      string  `json:"text"`
	User      *User   `json:"user"`
	Status    *Status `json:"status"`
}

// Attitude is a like notification entry; Status may be a stub
type Attitude struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"created_at"`
	User      *User   `json:"user"`
	Status    *Status `json:"status"`
}

// ChatSession is one DM conversation summary
type ChatSession struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	UnreadCount int64  `json:"unread_count"`
	UpdatedAt   int64  `json:"updated_at"`
	User        *User  `json:"user"`
}

// ChatMessage is one DM
type ChatMessage struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	SenderID  int64  `json:"sender_id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}
