package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
	"github.com/DimensionDev/Flare-sub003/pkg/telemetry"
)

// Client calls a Bluesky PDS/AppView over XRPC on behalf of one
// account. DID is the account's repo identifier, needed for record
// creation and deletion.
type Client struct {
	baseURL string
	token   string
	did     string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the given service
func NewClient(baseURL, token, did string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("bluesky base URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		did:     did,
		http:    httpClient,
		logger:  logging.GetLogger().With(zap.String("component", "bluesky-client")),
	}, nil
}

// DID returns the account's repo DID
func (c *Client) DID() string {
	return c.did
}

func (c *Client) query(ctx context.Context, operation, nsid string, params url.Values, out interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "bluesky."+operation)
	defer span.End()

	u := c.baseURL + "/xrpc/" + nsid
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return microblog.DoJSON(ctx, c.http, req, operation, out)
}

func (c *Client) procedure(ctx context.Context, operation, nsid string, input, out interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "bluesky."+operation)
	defer span.End()

	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/xrpc/"+nsid, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	return microblog.DoJSON(ctx, c.http, req, operation, out)
}

func cursorParams(cursor string, limit int) url.Values {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return params
}

// GetTimeline fetches a page of the following timeline
func (c *Client) GetTimeline(ctx context.Context, cursor string, limit int) ([]FeedViewPost, string, error) {
	var response struct {
		Cursor string         `json:"cursor"`
		Feed   []FeedViewPost `json:"feed"`
	}
	if err := c.query(ctx, "get_timeline", "app.bsky.feed.getTimeline", cursorParams(cursor, limit), &response); err != nil {
		return nil, "", err
	}
	return response.Feed, response.Cursor, nil
}

// GetAuthorFeed fetches a page of one actor's posts
func (c *Client) GetAuthorFeed(ctx context.Context, actor, cursor string, limit int) ([]FeedViewPost, string, error) {
	params := cursorParams(cursor, limit)
	params.Set("actor", actor)
	var response struct {
		Cursor string         `json:"cursor"`
		Feed   []FeedViewPost `json:"feed"`
	}
	if err := c.query(ctx, "get_author_feed", "app.bsky.feed.getAuthorFeed", params, &response); err != nil {
		return nil, "", err
	}
	return response.Feed, response.Cursor, nil
}

// GetActorLikes fetches a page of the actor's liked posts
func (c *Client) GetActorLikes(ctx context.Context, actor, cursor string, limit int) ([]FeedViewPost, string, error) {
	params := cursorParams(cursor, limit)
	params.Set("actor", actor)
	var response struct {
		Cursor string         `json:"cursor"`
		Feed   []FeedViewPost `json:"feed"`
	}
	if err := c.query(ctx, "get_actor_likes", "app.bsky.feed.getActorLikes", params, &response); err != nil {
		return nil, "", err
	}
	return response.Feed, response.Cursor, nil
}

// SearchPosts searches posts, cursor-paged
func (c *Client) SearchPosts(ctx context.Context, query, cursor string, limit int) ([]PostView, string, error) {
	params := cursorParams(cursor, limit)
	params.Set("q", query)
	var response struct {
		Cursor string     `json:"cursor"`
		Posts  []PostView `json:"posts"`
	}
	if err := c.query(ctx, "search_posts", "app.bsky.feed.searchPosts", params, &response); err != nil {
		return nil, "", err
	}
	return response.Posts, response.Cursor, nil
}

// GetPostThread fetches the thread around a post
func (c *Client) GetPostThread(ctx context.Context, uri string) (*ThreadViewPost, error) {
	params := url.Values{}
	params.Set("uri", uri)
	var response struct {
		Thread ThreadViewPost `json:"thread"`
	}
	if err := c.query(ctx, "get_post_thread", "app.bsky.feed.getPostThread", params, &response); err != nil {
		return nil, err
	}
	return &response.Thread, nil
}

// GetPosts hydrates up to 25 posts by URI in one call
func (c *Client) GetPosts(ctx context.Context, uris []string) ([]PostView, error) {
	if len(uris) == 0 {
		return nil, nil
	}
	if len(uris) > 25 {
		return nil, fmt.Errorf("too many uris: %d (max: 25)", len(uris))
	}
	params := url.Values{}
	for _, uri := range uris {
		params.Add("uris", uri)
	}
	var response struct {
		Posts []PostView `json:"posts"`
	}
	if err := c.query(ctx, "get_posts", "app.bsky.feed.getPosts", params, &response); err != nil {
		return nil, err
	}
	return response.Posts, nil
}

// ListNotifications fetches a page of notifications
func (c *Client) ListNotifications(ctx context.Context, cursor string, limit int) ([]Notification, string, error) {
	var response struct {
		Cursor        string         `json:"cursor"`
		Notifications []Notification `json:"notifications"`
	}
	if err := c.query(ctx, "list_notifications", "app.bsky.notification.listNotifications", cursorParams(cursor, limit), &response); err != nil {
		return nil, "", err
	}
	return response.Notifications, response.Cursor, nil
}

// GetListFeed fetches a page of a graph list's feed
func (c *Client) GetListFeed(ctx context.Context, listURI, cursor string, limit int) ([]FeedViewPost, string, error) {
	params := cursorParams(cursor, limit)
	params.Set("list", listURI)
	var response struct {
		Cursor string         `json:"cursor"`
		Feed   []FeedViewPost `json:"feed"`
	}
	if err := c.query(ctx, "get_list_feed", "app.bsky.feed.getListFeed", params, &response); err != nil {
		return nil, "", err
	}
	return response.Feed, response.Cursor, nil
}

// GetLists fetches the actor's graph lists
func (c *Client) GetLists(ctx context.Context, actor, cursor string, limit int) ([]ListView, string, error) {
	params := cursorParams(cursor, limit)
	params.Set("actor", actor)
	var response struct {
		Cursor string     `json:"cursor"`
		Lists  []ListView `json:"lists"`
	}
	if err := c.query(ctx, "get_lists", "app.bsky.graph.getLists", params, &response); err != nil {
		return nil, "", err
	}
	return response.Lists, response.Cursor, nil
}

// CreateRecord creates a record in the account's repo and returns its
// ref. Used for likes, reposts, list items and list definitions.
func (c *Client) CreateRecord(ctx context.Context, collection string, record map[string]interface{}) (*RecordRef, error) {
	record["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	input := map[string]interface{}{
		"repo":       c.did,
		"collection": collection,
		"record":     record,
	}
	var ref RecordRef
	if err := c.procedure(ctx, "create_record", "com.atproto.repo.createRecord", input, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// DeleteRecord deletes a record from the account's repo by AT-URI
func (c *Client) DeleteRecord(ctx context.Context, recordURI string) error {
	collection, rkey, err := splitRecordURI(recordURI)
	if err != nil {
		return err
	}
	input := map[string]interface{}{
		"repo":       c.did,
		"collection": collection,
		"rkey":       rkey,
	}
	return c.procedure(ctx, "delete_record", "com.atproto.repo.deleteRecord", input, nil)
}

// splitRecordURI splits "at://did/collection/rkey" into its parts
func splitRecordURI(uri string) (collection, rkey string, err error) {
	trimmed := strings.TrimPrefix(uri, "at://")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 3 {
		return "", "", fmt.Errorf("invalid record uri %q", uri)
	}
	return parts[1], parts[2], nil
}
