package xqt

import (
	"bytes"
	"context"
	"encoding/json"
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

// Client calls the XQT web API on behalf of one account. Timeline
// endpoints answer with instruction lists; the client flattens those
// into tweets plus a bottom cursor so mediators never see the envelope.
type Client struct {
	baseURL string
	token   string
	csrf    string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the given gateway
func NewClient(baseURL, token, csrf string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("xqt base URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		csrf:    csrf,
		http:    httpClient,
		logger:  logging.GetLogger().With(zap.String("component", "xqt-client")),
	}, nil
}

// timelinePage is the flattened shape of an instruction response
type timelinePage struct {
	Tweets       []Tweet `json:"tweets"`
	BottomCursor string  `json:"bottom_cursor"`
}

func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "xqt."+operation)
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
	return microblog.DoJSON(ctx, c.http, req, operation, out)
}

func (c *Client) post(ctx context.Context, operation, path string, payload interface{}, out interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "xqt."+operation)
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)
	return microblog.DoJSON(ctx, c.http, req, operation, out)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.csrf != "" {
		req.Header.Set("x-csrf-token", c.csrf)
	}
}

func cursorQuery(cursor string, count int) url.Values {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}
	return q
}

// HomeTimeline fetches a page of the home timeline
func (c *Client) HomeTimeline(ctx context.Context, cursor string, count int) ([]Tweet, string, error) {
	var page timelinePage
	if err := c.get(ctx, "home_timeline", "/graphql/HomeTimeline", cursorQuery(cursor, count), &page); err != nil {
		return nil, "", err
	}
	return page.Tweets, page.BottomCursor, nil
}

// UserTweets fetches a page of one user's tweets
func (c *Client) UserTweets(ctx context.Context, userID, cursor string, count int) ([]Tweet, string, error) {
	q := cursorQuery(cursor, count)
	q.Set("userId", userID)
	var page timelinePage
	if err := c.get(ctx, "user_tweets", "/graphql/UserTweets", q, &page); err != nil {
		return nil, "", err
	}
	return page.Tweets, page.BottomCursor, nil
}

// SearchTimeline fetches a page of search results
func (c *Client) SearchTimeline(ctx context.Context, query, cursor string, count int) ([]Tweet, string, error) {
	q := cursorQuery(cursor, count)
	q.Set("rawQuery", query)
	var page timelinePage
	if err := c.get(ctx, "search_timeline", "/graphql/SearchTimeline", q, &page); err != nil {
		return nil, "", err
	}
	return page.Tweets, page.BottomCursor, nil
}

// Bookmarks fetches a page of the viewer's bookmarks
func (c *Client) Bookmarks(ctx context.Context, cursor string, count int) ([]Tweet, string, error) {
	var page timelinePage
	if err := c.get(ctx, "bookmarks", "/graphql/Bookmarks", cursorQuery(cursor, count), &page); err != nil {
		return nil, "", err
	}
	return page.Tweets, page.BottomCursor, nil
}

// Likes fetches a page of a user's liked tweets
func (c *Client) Likes(ctx context.Context, userID, cursor string, count int) ([]Tweet, string, error) {
	q := cursorQuery(cursor, count)
	q.Set("userId", userID)
	var page timelinePage
	if err := c.get(ctx, "likes", "/graphql/Likes", q, &page); err != nil {
		return nil, "", err
	}
	return page.Tweets, page.BottomCursor, nil
}

// TweetDetail fetches the thread around a tweet, already flattened
// into ancestors, focal tweet and replies.
func (c *Client) TweetDetail(ctx context.Context, tweetID, cursor string) (*Thread, error) {
	q := url.Values{}
	q.Set("focalTweetId", tweetID)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var thread struct {
		Ancestors []Tweet `json:"ancestors"`
		Focal     *Tweet  `json:"focal"`
		Replies   []Tweet `json:"replies"`
		Cursor    string  `json:"cursor"`
	}
	if err := c.get(ctx, "tweet_detail", "/graphql/TweetDetail", q, &thread); err != nil {
		return nil, err
	}
	if thread.Focal == nil {
		return nil, &microblog.NotFoundError{Kind: "tweet", ID: tweetID}
	}
	return &Thread{
		Ancestors: thread.Ancestors,
		Focal:     thread.Focal,
		Replies:   thread.Replies,
		Cursor:    thread.Cursor,
	}, nil
}

// Notifications fetches a page of notifications plus the referenced
// tweets and users from the response's global objects.
func (c *Client) Notifications(ctx context.Context, cursor string, count int) ([]Notification, map[string]Tweet, map[string]User, string, error) {
	var response struct {
		Notifications []Notification   `json:"notifications"`
		Tweets        map[string]Tweet `json:"tweets"`
		Users         map[string]User  `json:"users"`
		BottomCursor  string           `json:"bottom_cursor"`
	}
	if err := c.get(ctx, "notifications", "/2/notifications/all.json", cursorQuery(cursor, count), &response); err != nil {
		return nil, nil, nil, "", err
	}
	return response.Notifications, response.Tweets, response.Users, response.BottomCursor, nil
}

// FavoriteTweet likes a tweet
func (c *Client) FavoriteTweet(ctx context.Context, tweetID string) error {
	return c.post(ctx, "favorite_tweet", "/graphql/FavoriteTweet", map[string]interface{}{
		"variables": map[string]string{"tweet_id": tweetID},
	}, nil)
}

// UnfavoriteTweet removes a like
func (c *Client) UnfavoriteTweet(ctx context.Context, tweetID string) error {
	return c.post(ctx, "unfavorite_tweet", "/graphql/UnfavoriteTweet", map[string]interface{}{
		"variables": map[string]string{"tweet_id": tweetID},
	}, nil)
}

// CreateRetweet retweets a tweet
func (c *Client) CreateRetweet(ctx context.Context, tweetID string) error {
	return c.post(ctx, "create_retweet", "/graphql/CreateRetweet", map[string]interface{}{
		"variables": map[string]string{"tweet_id": tweetID},
	}, nil)
}

// DeleteRetweet removes a retweet
func (c *Client) DeleteRetweet(ctx context.Context, tweetID string) error {
	return c.post(ctx, "delete_retweet", "/graphql/DeleteRetweet", map[string]interface{}{
		"variables": map[string]string{"source_tweet_id": tweetID},
	}, nil)
}

// CreateBookmark bookmarks a tweet
func (c *Client) CreateBookmark(ctx context.Context, tweetID string) error {
	return c.post(ctx, "create_bookmark", "/graphql/CreateBookmark", map[string]interface{}{
		"variables": map[string]string{"tweet_id": tweetID},
	}, nil)
}

// DeleteBookmark removes a bookmark
func (c *Client) DeleteBookmark(ctx context.Context, tweetID string) error {
	return c.post(ctx, "delete_bookmark", "/graphql/DeleteBookmark", map[string]interface{}{
		"variables": map[string]string{"tweet_id": tweetID},
	}, nil)
}

// DeleteTweet deletes the viewer's own tweet
func (c *Client) DeleteTweet(ctx context.Context, tweetID string) error {
	return c.post(ctx, "delete_tweet", "/graphql/DeleteTweet", map[string]interface{}{
		"variables": map[string]string{"tweet_id": tweetID},
	}, nil)
}

// Inbox fetches the DM conversation list
func (c *Client) Inbox(ctx context.Context) ([]Conversation, error) {
	var response struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.get(ctx, "inbox", "/1.1/dm/inbox_initial_state.json", nil, &response); err != nil {
		return nil, err
	}
	return response.Conversations, nil
}

// ConversationMessages fetches a page of one conversation's messages,
// max_id paged, newest first.
func (c *Client) ConversationMessages(ctx context.Context, conversationID, maxID string, count int) ([]Message, string, error) {
	q := url.Values{}
	if maxID != "" {
		q.Set("max_id", maxID)
	}
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}
	var response struct {
		Messages []Message `json:"messages"`
		MinEntry string    `json:"min_entry_id"`
	}
	path := "/1.1/dm/conversation/" + conversationID + ".json"
	if err := c.get(ctx, "conversation_messages", path, q, &response); err != nil {
		return nil, "", err
	}
	return response.Messages, response.MinEntry, nil
}
