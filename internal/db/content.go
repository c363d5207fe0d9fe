package db

import (
	"encoding/json"
	"fmt"

	"github.com/DimensionDev/Flare-sub003/internal/bluesky"
	"github.com/DimensionDev/Flare-sub003/internal/mastodon"
	"github.com/DimensionDev/Flare-sub003/internal/misskey"
	"github.com/DimensionDev/Flare-sub003/internal/vvo"
	"github.com/DimensionDev/Flare-sub003/internal/xqt"
)

// Content type tags. An unrecognized tag decodes to ContentUnknown
// with the raw payload preserved, never to an error: one odd row must
// not break a whole page.
const (
	ContentMastodon             = "mastodon"
	ContentMastodonNotification = "mastodon_notification"
	ContentMisskey              = "misskey"
	ContentMisskeyNotification  = "misskey_notification"
	ContentBluesky              = "bluesky"
	ContentBlueskyNotification  = "bluesky_notification"
	ContentXQT                  = "xqt"
	ContentXQTNotification      = "xqt_notification"
	ContentVVO                  = "vvo"
	ContentVVONotification      = "vvo_notification"
	ContentUnknown              = "unknown"
)

// envelope is the stored form of every tagged-union blob
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// XQTNotificationContent bundles a notification with its resolved
// referenced tweet, since the wire form only carries tweet IDs.
type XQTNotificationContent struct {
	Notification xqt.Notification `json:"notification"`
	Tweet        *xqt.Tweet       `json:"tweet,omitempty"`
}

// VVONotificationContent is either a comment or an attitude entry,
// with the referenced status already resolved to its full form.
type VVONotificationContent struct {
	Comment  *vvo.Comment  `json:"comment,omitempty"`
	Attitude *vvo.Attitude `json:"attitude,omitempty"`
}

// StatusContent is the tagged union stored in the status content
// column. Exactly one variant is set; Type names it.
type StatusContent struct {
	Type                 string
	Mastodon             *mastodon.Status
	MastodonNotification *mastodon.Notification
	Misskey              *misskey.Note
	MisskeyNotification  *misskey.Notification
	Bluesky              *bluesky.PostView
	BlueskyNotification  *bluesky.Notification
	XQT                  *xqt.Tweet
	XQTNotification      *XQTNotificationContent
	VVO                  *vvo.Status
	VVONotification      *VVONotificationContent
	// Raw preserves the payload of an unknown variant
	Raw json.RawMessage
}

// Encode serializes the content for storage
func (c StatusContent) Encode() (string, error) {
	var data interface{}
	switch c.Type {
	case ContentMastodon:
		data = c.Mastodon
	case ContentMastodonNotification:
		data = c.MastodonNotification
	case ContentMisskey:
		data = c.Misskey
	case ContentMisskeyNotification:
		data = c.MisskeyNotification
	case ContentBluesky:
		data = c.Bluesky
	case ContentBlueskyNotification:
		data = c.BlueskyNotification
	case ContentXQT:
		data = c.XQT
	case ContentXQTNotification:
		data = c.XQTNotification
	case ContentVVO:
		data = c.VVO
	case ContentVVONotification:
		data = c.VVONotification
	case ContentUnknown:
		return encodeEnvelope(ContentUnknown, c.Raw)
	default:
		return "", fmt.Errorf("cannot encode status content type %q", c.Type)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s content: %w", c.Type, err)
	}
	return encodeEnvelope(c.Type, raw)
}

func encodeEnvelope(typ string, raw json.RawMessage) (string, error) {
	blob, err := json.Marshal(envelope{Type: typ, Data: raw})
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return string(blob), nil
}

// DecodeStatusContent deserializes a stored content blob. Unknown
// type tags yield a ContentUnknown variant with the payload intact.
func DecodeStatusContent(blob string) (StatusContent, error) {
	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return StatusContent{}, fmt.Errorf("failed to unmarshal content envelope: %w", err)
	}
	content := StatusContent{Type: env.Type}
	var target interface{}
	switch env.Type {
	case ContentMastodon:
		content.Mastodon = &mastodon.Status{}
		target = content.Mastodon
	case ContentMastodonNotification:
		content.MastodonNotification = &mastodon.Notification{}
		target = content.MastodonNotification
	case ContentMisskey:
		content.Misskey = &misskey.Note{}
		target = content.Misskey
	case ContentMisskeyNotification:
		content.MisskeyNotification = &misskey.Notification{}
		target = content.MisskeyNotification
	case ContentBluesky:
		content.Bluesky = &bluesky.PostView{}
		target = content.Bluesky
	case ContentBlueskyNotification:
		content.BlueskyNotification = &bluesky.Notification{}
		target = content.BlueskyNotification
	case ContentXQT:
		content.XQT = &xqt.Tweet{}
		target = content.XQT
	case ContentXQTNotification:
		content.XQTNotification = &XQTNotificationContent{}
		target = content.XQTNotification
	case ContentVVO:
		content.VVO = &vvo.Status{}
		target = content.VVO
	case ContentVVONotification:
		content.VVONotification = &VVONotificationContent{}
		target = content.VVONotification
	default:
		content.Type = ContentUnknown
		content.Raw = env.Data
		return content, nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		// A known tag with an undecodable payload degrades the same way
		content = StatusContent{Type: ContentUnknown, Raw: env.Data}
	}
	return content, nil
}

// User content type tags
const (
	UserMastodon = "mastodon"
	UserMisskey  = "misskey"
	UserBluesky  = "bluesky"
	UserXQT      = "xqt"
	UserVVO      = "vvo"
	UserUnknown  = "unknown"
)

// UserContent is the tagged union stored in the user content column
type UserContent struct {
	Type     string
	Mastodon *mastodon.Account
	Misskey  *misskey.User
	Bluesky  *bluesky.Profile
	XQT      *xqt.User
	VVO      *vvo.User
	Raw      json.RawMessage
}

// Encode serializes the content for storage
func (c UserContent) Encode() (string, error) {
	var data interface{}
	switch c.Type {
	case UserMastodon:
		data = c.Mastodon
	case UserMisskey:
		data = c.Misskey
	case UserBluesky:
		data = c.Bluesky
	case UserXQT:
		data = c.XQT
	case UserVVO:
		data = c.VVO
	case UserUnknown:
		return encodeEnvelope(UserUnknown, c.Raw)
	default:
		return "", fmt.Errorf("cannot encode user content type %q", c.Type)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s user content: %w", c.Type, err)
	}
	return encodeEnvelope(c.Type, raw)
}

// DecodeUserContent deserializes a stored user blob with the same
// unknown-variant fallback as DecodeStatusContent.
func DecodeUserContent(blob string) (UserContent, error) {
	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return UserContent{}, fmt.Errorf("failed to unmarshal user envelope: %w", err)
	}
	content := UserContent{Type: env.Type}
	var target interface{}
	switch env.Type {
	case UserMastodon:
		content.Mastodon = &mastodon.Account{}
		target = content.Mastodon
	case UserMisskey:
		content.Misskey = &misskey.User{}
		target = content.Misskey
	case UserBluesky:
		content.Bluesky = &bluesky.Profile{}
		target = content.Bluesky
	case UserXQT:
		content.XQT = &xqt.User{}
		target = content.XQT
	case UserVVO:
		content.VVO = &vvo.User{}
		target = content.VVO
	default:
		content.Type = UserUnknown
		content.Raw = env.Data
		return content, nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		content = UserContent{Type: UserUnknown, Raw: env.Data}
	}
	return content, nil
}

// ListContent is the normalized list descriptor stored in the list
// metadata column. Lists are uniform enough across backends that no
// per-platform variant is needed.
type ListContent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	MemberCount int64  `json:"member_count,omitempty"`
}

// Encode serializes the list metadata for storage
func (c ListContent) Encode() (string, error) {
	blob, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal list content: %w", err)
	}
	return string(blob), nil
}

// DecodeListContent deserializes a stored list metadata blob
func DecodeListContent(blob string) (ListContent, error) {
	var content ListContent
	if err := json.Unmarshal([]byte(blob), &content); err != nil {
		return ListContent{}, fmt.Errorf("failed to unmarshal list content: %w", err)
	}
	return content, nil
}

// Room and message content type tags
const (
	MessageXQT     = "xqt"
	MessageVVO     = "vvo"
	MessageUnknown = "unknown"
)

// RoomContent is the tagged union stored in the message room column
type RoomContent struct {
	Type string
	XQT  *xqt.Conversation
	VVO  *vvo.ChatSession
	Raw  json.RawMessage
}

// Encode serializes the room content for storage
func (c RoomContent) Encode() (string, error) {
	var data interface{}
	switch c.Type {
	case MessageXQT:
		data = c.XQT
	case MessageVVO:
		data = c.VVO
	default:
		return "", fmt.Errorf("cannot encode room content type %q", c.Type)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s room content: %w", c.Type, err)
	}
	return encodeEnvelope(c.Type, raw)
}

// DecodeRoomContent deserializes a stored room blob
func DecodeRoomContent(blob string) (RoomContent, error) {
	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return RoomContent{}, fmt.Errorf("failed to unmarshal room envelope: %w", err)
	}
	content := RoomContent{Type: env.Type}
	var target interface{}
	switch env.Type {
	case MessageXQT:
		content.XQT = &xqt.Conversation{}
		target = content.XQT
	case MessageVVO:
		content.VVO = &vvo.ChatSession{}
		target = content.VVO
	default:
		content.Type = MessageUnknown
		content.Raw = env.Data
		return content, nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		content = RoomContent{Type: MessageUnknown, Raw: env.Data}
	}
	return content, nil
}

// MessageContent is the tagged union stored in the message item column
type MessageContent struct {
	Type string
	XQT  *xqt.Message
	VVO  *vvo.ChatMessage
	Raw  json.RawMessage
}

// Encode serializes the message content for storage
func (c MessageContent) Encode() (string, error) {
	var data interface{}
	switch c.Type {
	case MessageXQT:
		data = c.XQT
	case MessageVVO:
		data = c.VVO
	default:
		return "", fmt.Errorf("cannot encode message content type %q", c.Type)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s message content: %w", c.Type, err)
	}
	return encodeEnvelope(c.Type, raw)
}

// DecodeMessageContent deserializes a stored message blob
func DecodeMessageContent(blob string) (MessageContent, error) {
	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return MessageContent{}, fmt.Errorf("failed to unmarshal message envelope: %w", err)
	}
	content := MessageContent{Type: env.Type}
	var target interface{}
	switch env.Type {
	case MessageXQT:
		content.XQT = &xqt.Message{}
		target = content.XQT
	case MessageVVO:
		content.VVO = &vvo.ChatMessage{}
		target = content.VVO
	default:
		content.Type = MessageUnknown
		content.Raw = env.Data
		return content, nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		content = MessageContent{Type: MessageUnknown, Raw: env.Data}
	}
	return content, nil
}
