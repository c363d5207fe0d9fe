package db

import (
	"time"
)

// Status is one cached status row, owned by the account context that
// fetched it. The content column is a tagged-union JSON blob holding
// the backend-specific payload.
type Status struct {
	ID           int64  `gorm:"primaryKey;autoIncrement;column:id"`
	StatusKey    string `gorm:"type:varchar(512);not null;uniqueIndex:flare_status_ux1,priority:1;column:status_key"`
	AccountKey   string `gorm:"type:varchar(512);not null;uniqueIndex:flare_status_ux1,priority:2;column:account_key"`
	UserKey      string `gorm:"type:varchar(512);not null;index;column:user_key"`
	PlatformType string `gorm:"type:varchar(16);not null;column:platform_type"`
	Content      string `gorm:"type:text;not null;column:content"`
}

// TableName specifies the table name for Status
func (Status) TableName() string {
	return "flare_status"
}

// User is one cached user row, shared across accounts and paging keys.
// Last write wins on refresh.
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement;column:id"`
	UserKey      string `gorm:"type:varchar(512);not null;uniqueIndex:flare_user_ux1;column:user_key"`
	PlatformType string `gorm:"type:varchar(16);not null;column:platform_type"`
	Name         string `gorm:"type:varchar(255);not null;column:name"`
	Handle       string `gorm:"type:varchar(255);not null;column:handle"`
	Host         string `gorm:"type:varchar(255);not null;column:host"`
	Content      string `gorm:"type:text;not null;column:content"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "flare_user"
}

// PagingTimeline orders statuses within one logical feed. SortID is
// assigned by the store in fetch order and is never the backend's own
// ordering field.
type PagingTimeline struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;column:id"`
	AccountKey string `gorm:"type:varchar(512);not null;uniqueIndex:flare_timeline_ux1,priority:1;column:account_key"`
	PagingKey  string `gorm:"type:varchar(255);not null;uniqueIndex:flare_timeline_ux1,priority:2;index;column:paging_key"`
	StatusKey  string `gorm:"type:varchar(512);not null;uniqueIndex:flare_timeline_ux1,priority:3;column:status_key"`
	SortID     int64  `gorm:"not null;index;column:sort_id"`
}

// TableName specifies the table name for PagingTimeline
func (PagingTimeline) TableName() string {
	return "flare_paging_timeline"
}

// List is a cached curated-list descriptor
type List struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;column:id"`
	ListKey    string `gorm:"type:varchar(512);not null;uniqueIndex:flare_list_ux1,priority:1;column:list_key"`
	AccountKey string `gorm:"type:varchar(512);not null;uniqueIndex:flare_list_ux1,priority:2;column:account_key"`
	Metadata   string `gorm:"type:text;not null;column:metadata"`
}

// TableName specifies the table name for List
func (List) TableName() string {
	return "flare_list"
}

// ListPaging maps a list onto the paging key it was loaded under
type ListPaging struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;column:id"`
	AccountKey string `gorm:"type:varchar(512);not null;uniqueIndex:flare_list_paging_ux1,priority:1;column:account_key"`
	PagingKey  string `gorm:"type:varchar(255);not null;uniqueIndex:flare_list_paging_ux1,priority:2;column:paging_key"`
	ListKey    string `gorm:"type:varchar(512);not null;uniqueIndex:flare_list_paging_ux1,priority:3;column:list_key"`
}

// TableName specifies the table name for ListPaging
func (ListPaging) TableName() string {
	return "flare_list_paging"
}

// MessageRoom is a cached direct-message conversation descriptor
type MessageRoom struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id"`
	RoomKey    string    `gorm:"type:varchar(512);not null;uniqueIndex:flare_room_ux1,priority:1;column:room_key"`
	AccountKey string    `gorm:"type:varchar(512);not null;uniqueIndex:flare_room_ux1,priority:2;column:account_key"`
	LastActive time.Time `gorm:"not null;column:last_active"`
	Content    string    `gorm:"type:text;not null;column:content"`
}

// TableName specifies the table name for MessageRoom
func (MessageRoom) TableName() string {
	return "flare_message_room"
}

// MessageItem is one cached direct message, ordered within its room by
// the same monotonic sort-id rule as timeline entries.
type MessageItem struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;column:id"`
	RoomKey    string `gorm:"type:varchar(512);not null;uniqueIndex:flare_message_ux1,priority:1;index;column:room_key"`
	AccountKey string `gorm:"type:varchar(512);not null;uniqueIndex:flare_message_ux1,priority:2;column:account_key"`
	MessageKey string `gorm:"type:varchar(512);not null;uniqueIndex:flare_message_ux1,priority:3;column:message_key"`
	SortID     int64  `gorm:"not null;index;column:sort_id"`
	Content    string `gorm:"type:text;not null;column:content"`
}

// TableName specifies the table name for MessageItem
func (MessageItem) TableName() string {
	return "flare_message_item"
}
