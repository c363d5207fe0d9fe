package misskey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
	"github.com/DimensionDev/Flare-sub003/pkg/telemetry"
)

// Client calls a Misskey instance API on behalf of one account. Every
// Misskey endpoint is a POST with a JSON body carrying the token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the given instance
func NewClient(baseURL, token string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("misskey base URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    httpClient,
		logger:  logging.GetLogger().With(zap.String("component", "misskey-client")),
	}, nil
}

func (c *Client) post(ctx context.Context, operation, path string, params map[string]interface{}, out interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "misskey."+operation)
	defer span.End()

	if params == nil {
		params = map[string]interface{}{}
	}
	params["i"] = c.token

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return microblog.DoJSON(ctx, c.http, req, operation, out)
}

func pageParams(untilID, sinceID string, limit int) map[string]interface{} {
	params := map[string]interface{}{}
	if untilID != "" {
		params["untilId"] = untilID
	}
	if sinceID != "" {
		params["sinceId"] = sinceID
	}
	if limit > 0 {
		params["limit"] = limit
	}
	return params
}

// HomeTimeline fetches a page of the home timeline (untilId paging)
func (c *Client) HomeTimeline(ctx context.Context, untilID, sinceID string, limit int) ([]Note, error) {
	var notes []Note
	if err := c.post(ctx, "home_timeline", "/api/notes/timeline", pageParams(untilID, sinceID, limit), &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// Notifications fetches a page of the viewer's notifications
func (c *Client) Notifications(ctx context.Context, untilID string, limit int) ([]Notification, error) {
	var notifications []Notification
	if err := c.post(ctx, "notifications", "/api/i/notifications", pageParams(untilID, "", limit), &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// UserNotes fetches a page of one user's notes
func (c *Client) UserNotes(ctx context.Context, userID, untilID string, limit int) ([]Note, error) {
	params := pageParams(untilID, "", limit)
	params["userId"] = userID
	var notes []Note
	if err := c.post(ctx, "user_notes", "/api/users/notes", params, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// SearchNotes searches notes by text, untilId-paged
func (c *Client) SearchNotes(ctx context.Context, query, untilID string, limit int) ([]Note, error) {
	params := pageParams(untilID, "", limit)
	params["query"] = query
	var notes []Note
	if err := c.post(ctx, "search_notes", "/api/notes/search", params, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// ShowNote fetches a single note
func (c *Client) ShowNote(ctx context.Context, noteID string) (*Note, error) {
	var note Note
	if err := c.post(ctx, "show_note", "/api/notes/show", map[string]interface{}{"noteId": noteID}, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// NoteConversation fetches the ancestor chain of a note, nearest first
func (c *Client) NoteConversation(ctx context.Context, noteID string, limit int) ([]Note, error) {
	params := map[string]interface{}{"noteId": noteID}
	if limit > 0 {
		params["limit"] = limit
	}
	var notes []Note
	if err := c.post(ctx, "note_conversation", "/api/notes/conversation", params, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// NoteChildren fetches replies to a note
func (c *Client) NoteChildren(ctx context.Context, noteID, untilID string, limit int) ([]Note, error) {
	params := pageParams(untilID, "", limit)
	params["noteId"] = noteID
	var notes []Note
	if err := c.post(ctx, "note_children", "/api/notes/children", params, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// ListNotes fetches a page of a user list's timeline
func (c *Client) ListNotes(ctx context.Context, listID, untilID string, limit int) ([]Note, error) {
	params := pageParams(untilID, "", limit)
	params["listId"] = listID
	var notes []Note
	if err := c.post(ctx, "list_notes", "/api/notes/user-list-timeline", params, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// FavoriteNote adds a note to the viewer's favorites
func (c *Client) FavoriteNote(ctx context.Context, noteID string) error {
	return c.post(ctx, "favorite_note", "/api/notes/favorites/create", map[string]interface{}{"noteId": noteID}, nil)
}

// UnfavoriteNote removes a note from the viewer's favorites
func (c *Client) UnfavoriteNote(ctx context.Context, noteID string) error {
	return c.post(ctx, "unfavorite_note", "/api/notes/favorites/delete", map[string]interface{}{"noteId": noteID}, nil)
}

// CreateReaction reacts to a note with an emoji
func (c *Client) CreateReaction(ctx context.Context, noteID, reaction string) error {
	return c.post(ctx, "create_reaction", "/api/notes/reactions/create", map[string]interface{}{
		"noteId":   noteID,
		"reaction": reaction,
	}, nil)
}

// DeleteReaction removes the viewer's reaction from a note
func (c *Client) DeleteReaction(ctx context.Context, noteID string) error {
	return c.post(ctx, "delete_reaction", "/api/notes/reactions/delete", map[string]interface{}{"noteId": noteID}, nil)
}

// Renote boosts a note and returns the created renote
func (c *Client) Renote(ctx context.Context, noteID string) (*Note, error) {
	var response struct {
		CreatedNote Note `json:"createdNote"`
	}
	if err := c.post(ctx, "renote", "/api/notes/create", map[string]interface{}{"renoteId": noteID}, &response); err != nil {
		return nil, err
	}
	return &response.CreatedNote, nil
}

// Unrenote removes the viewer's renotes of a note
func (c *Client) Unrenote(ctx context.Context, noteID string) error {
	return c.post(ctx, "unrenote", "/api/notes/unrenote", map[string]interface{}{"noteId": noteID}, nil)
}

// DeleteNote deletes the viewer's own note
func (c *Client) DeleteNote(ctx context.Context, noteID string) error {
	return c.post(ctx, "delete_note", "/api/notes/delete", map[string]interface{}{"noteId": noteID}, nil)
}

// FollowUser follows a user
func (c *Client) FollowUser(ctx context.Context, userID string) error {
	return c.post(ctx, "follow_user", "/api/following/create", map[string]interface{}{"userId": userID}, nil)
}

// UnfollowUser unfollows a user
func (c *Client) UnfollowUser(ctx context.Context, userID string) error {
	return c.post(ctx, "unfollow_user", "/api/following/delete", map[string]interface{}{"userId": userID}, nil)
}

// UserLists fetches the viewer's user lists (unpaged)
func (c *Client) UserLists(ctx context.Context) ([]UserList, error) {
	var lists []UserList
	if err := c.post(ctx, "user_lists", "/api/users/lists/list", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// CreateUserList creates a user list
func (c *Client) CreateUserList(ctx context.Context, name string) (*UserList, error) {
	var list UserList
	if err := c.post(ctx, "create_user_list", "/api/users/lists/create", map[string]interface{}{"name": name}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpdateUserList renames a user list
func (c *Client) UpdateUserList(ctx context.Context, listID, name string) error {
	return c.post(ctx, "update_user_list", "/api/users/lists/update", map[string]interface{}{
		"listId": listID,
		"name":   name,
	}, nil)
}

// DeleteUserList deletes a user list
func (c *Client) DeleteUserList(ctx context.Context, listID string) error {
	return c.post(ctx, "delete_user_list", "/api/users/lists/delete", map[string]interface{}{"listId": listID}, nil)
}

// ListPush adds a user to a list
func (c *Client) ListPush(ctx context.Context, listID, userID string) error {
	return c.post(ctx, "list_push", "/api/users/lists/push", map[string]interface{}{
		"listId": listID,
		"userId": userID,
	}, nil)
}

// ListPull removes a user from a list
func (c *Client) ListPull(ctx context.Context, listID, userID string) error {
	return c.post(ctx, "list_pull", "/api/users/lists/pull", map[string]interface{}{
		"listId": listID,
		"userId": userID,
	}, nil)
}
