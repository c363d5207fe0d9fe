package vvo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
	"github.com/DimensionDev/Flare-sub003/pkg/telemetry"
)

// Client calls the VVO mobile gateway on behalf of one account.
// Feed endpoints page by number rather than by cursor; the mediator
// layer hides that behind the opaque cursor type.
type Client struct {
	baseURL string
	cookie  string
	xsrf    string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the given gateway
func NewClient(baseURL, cookie, xsrf string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("vvo base URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		cookie:  cookie,
		xsrf:    xsrf,
		http:    httpClient,
		logger:  logging.GetLogger().With(zap.String("component", "vvo-client")),
	}, nil
}

// envelope is the gateway's standard {ok, data} wrapper
type envelope struct {
	OK   int         `json:"ok"`
	Data interface{} `json:"data"`
}

func (c *Client) get(ctx context.Context, operation, path string, query url.Values, data interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "vvo."+operation)
	defer span.End()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.decorate(req)
	env := envelope{Data: data}
	if err := microblog.DoJSON(ctx, c.http, req, operation, &env); err != nil {
		return err
	}
	if env.OK != 1 {
		return &microblog.ProtocolError{Operation: operation, Detail: fmt.Sprintf("gateway returned ok=%d", env.OK)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, operation, path string, form url.Values, data interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "vvo."+operation)
	defer span.End()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.decorate(req)
	env := envelope{Data: data}
	if err := microblog.DoJSON(ctx, c.http, req, operation, &env); err != nil {
		return err
	}
	if env.OK != 1 {
		return &microblog.ProtocolError{Operation: operation, Detail: fmt.Sprintf("gateway returned ok=%d", env.OK)}
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	if c.xsrf != "" {
		req.Header.Set("x-xsrf-token", c.xsrf)
	}
}

func pageQuery(page int) url.Values {
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

// HomeTimeline fetches one page of the friends timeline
func (c *Client) HomeTimeline(ctx context.Context, page int) ([]Status, error) {
	var data struct {
		Statuses []Status `json:"statuses"`
	}
	if err := c.get(ctx, "home_timeline", "/feed/friends", pageQuery(page), &data); err != nil {
		return nil, err
	}
	return data.Statuses, nil
}

// UserTimeline fetches one page of a user's statuses
func (c *Client) UserTimeline(ctx context.Context, uid int64, page int) ([]Status, error) {
	q := pageQuery(page)
	q.Set("uid", strconv.FormatInt(uid, 10))
	var data struct {
		Statuses []Status `json:"statuses"`
	}
	if err := c.get(ctx, "user_timeline", "/profile/statuses", q, &data); err != nil {
		return nil, err
	}
	return data.Statuses, nil
}

// SearchStatuses fetches one page of status search results
func (c *Client) SearchStatuses(ctx context.Context, query string, page int) ([]Status, error) {
	q := pageQuery(page)
	q.Set("containerid", "100103type=1&q="+query)
	var data struct {
		Statuses []Status `json:"statuses"`
	}
	if err := c.get(ctx, "search_statuses", "/api/container/getIndex", q, &data); err != nil {
		return nil, err
	}
	return data.Statuses, nil
}

// ShowStatus fetches one full status by ID
func (c *Client) ShowStatus(ctx context.Context, id string) (*Status, error) {
	q := url.Values{}
	q.Set("id", id)
	var status Status
	if err := c.get(ctx, "show_status", "/statuses/show", q, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StatusComments fetches one page of comments below a status
func (c *Client) StatusComments(ctx context.Context, id string, page int) ([]Comment, error) {
	q := pageQuery(page)
	q.Set("id", id)
	var data struct {
		Comments []Comment `json:"data"`
	}
	if err := c.get(ctx, "status_comments", "/comments/hotflow", q, &data); err != nil {
		return nil, err
	}
	return data.Comments, nil
}

// MentionComments fetches one page of comment notifications
func (c *Client) MentionComments(ctx context.Context, page int) ([]Comment, error) {
	var comments []Comment
	if err := c.get(ctx, "mention_comments", "/message/cmt", pageQuery(page), &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Attitudes fetches one page of like notifications
func (c *Client) Attitudes(ctx context.Context, page int) ([]Attitude, error) {
	var attitudes []Attitude
	if err := c.get(ctx, "attitudes", "/message/attitude", pageQuery(page), &attitudes); err != nil {
		return nil, err
	}
	return attitudes, nil
}

// LikeStatus likes a status
func (c *Client) LikeStatus(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", id)
	form.Set("attitude", "heart")
	return c.post(ctx, "like_status", "/api/attitudes/create", form, nil)
}

// UnlikeStatus removes a like
func (c *Client) UnlikeStatus(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", id)
	return c.post(ctx, "unlike_status", "/api/attitudes/destroy", form, nil)
}

// Repost reposts a status and returns the created repost
func (c *Client) Repost(ctx context.Context, id, content string) (*Status, error) {
	form := url.Values{}
	form.Set("id", id)
	if content == "" {
		content = "转发"
	}
	form.Set("content", content)
	var status Status
	if err := c.post(ctx, "repost", "/api/statuses/repost", form, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// FavoriteStatus bookmarks a status
func (c *Client) FavoriteStatus(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", id)
	return c.post(ctx, "favorite_status", "/api/favorites/create", form, nil)
}

// UnfavoriteStatus removes a bookmark
func (c *Client) UnfavoriteStatus(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", id)
	return c.post(ctx, "unfavorite_status", "/api/favorites/destroy", form, nil)
}

// DeleteStatus deletes the viewer's own status
func (c *Client) DeleteStatus(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("mid", id)
	return c.post(ctx, "delete_status", "/api/statuses/destroy", form, nil)
}

// ChatList fetches one page of DM sessions
func (c *Client) ChatList(ctx context.Context, page int) ([]ChatSession, error) {
	var sessions []ChatSession
	if err := c.get(ctx, "chat_list", "/message/msglist", pageQuery(page), &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ChatMessages fetches one page of a session's messages
func (c *Client) ChatMessages(ctx context.Context, sessionID string, page int) ([]ChatMessage, error) {
	q := pageQuery(page)
	q.Set("session_id", sessionID)
	var messages []ChatMessage
	if err := c.get(ctx, "chat_messages", "/message/chat", q, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
