package mastodon

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

// Client calls a Mastodon-compatible REST API on behalf of one account
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the given instance
func NewClient(baseURL, token string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("mastodon base URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    httpClient,
		logger:  logging.GetLogger().With(zap.String("component", "mastodon-client")),
	}, nil
}

func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "mastodon."+operation)
	defer span.End()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return microblog.DoJSON(ctx, c.http, req, operation, out)
}

func (c *Client) submit(ctx context.Context, method, operation, path string, form url.Values, out interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "mastodon."+operation)
	defer span.End()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return microblog.DoJSON(ctx, c.http, req, operation, out)
}

func pageQuery(maxID, minID string, limit int) url.Values {
	q := url.Values{}
	if maxID != "" {
		q.Set("max_id", maxID)
	}
	if minID != "" {
		q.Set("min_id", minID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// HomeTimeline fetches a page of the home timeline (max_id paging)
func (c *Client) HomeTimeline(ctx context.Context, maxID, minID string, limit int) ([]Status, error) {
	var statuses []Status
	if err := c.get(ctx, "home_timeline", "/api/v1/timelines/home", pageQuery(maxID, minID, limit), &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Notifications fetches a page of notifications
func (c *Client) Notifications(ctx context.Context, maxID string, limit int) ([]Notification, error) {
	var notifications []Notification
	if err := c.get(ctx, "notifications", "/api/v1/notifications", pageQuery(maxID, "", limit), &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// AccountStatuses fetches a page of one account's statuses
func (c *Client) AccountStatuses(ctx context.Context, accountID, maxID string, limit int) ([]Status, error) {
	var statuses []Status
	path := "/api/v1/accounts/" + accountID + "/statuses"
	if err := c.get(ctx, "account_statuses", path, pageQuery(maxID, "", limit), &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// SearchStatuses runs a v2 search limited to statuses, offset-paged
func (c *Client) SearchStatuses(ctx context.Context, query string, offset, limit int) ([]Status, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "statuses")
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var result SearchResult
	if err := c.get(ctx, "search", "/api/v2/search", q, &result); err != nil {
		return nil, err
	}
	return result.Statuses, nil
}

// GetStatus fetches a single status
func (c *Client) GetStatus(ctx context.Context, id string) (*Status, error) {
	var status Status
	if err := c.get(ctx, "get_status", "/api/v1/statuses/"+id, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetContext fetches a status' thread (ancestors and descendants)
func (c *Client) GetContext(ctx context.Context, id string) (*Context, error) {
	var threadContext Context
	if err := c.get(ctx, "get_context", "/api/v1/statuses/"+id+"/context", nil, &threadContext); err != nil {
		return nil, err
	}
	return &threadContext, nil
}

// ListTimeline fetches a page of a list's timeline
func (c *Client) ListTimeline(ctx context.Context, listID, maxID string, limit int) ([]Status, error) {
	var statuses []Status
	if err := c.get(ctx, "list_timeline", "/api/v1/timelines/list/"+listID, pageQuery(maxID, "", limit), &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Bookmarks fetches a page of bookmarked statuses
func (c *Client) Bookmarks(ctx context.Context, maxID string, limit int) ([]Status, error) {
	var statuses []Status
	if err := c.get(ctx, "bookmarks", "/api/v1/bookmarks", pageQuery(maxID, "", limit), &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Favourites fetches a page of favourited statuses
func (c *Client) Favourites(ctx context.Context, maxID string, limit int) ([]Status, error) {
	var statuses []Status
	if err := c.get(ctx, "favourites", "/api/v1/favourites", pageQuery(maxID, "", limit), &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Favourite favourites a status and returns the authoritative object
func (c *Client) Favourite(ctx context.Context, id string) (*Status, error) {
	var status Status
	if err := c.submit(ctx, http.MethodPost, "favourite", "/api/v1/statuses/"+id+"/favourite", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Unfavourite removes a favourite
func (c *Client) Unfavourite(ctx context.Context, id string) (*Status, error) {
	var status Status
	if err := c.submit(ctx, http.MethodPost, "unfavourite", "/api/v1/statuses/"+id+"/unfavourite", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Reblog reblogs a status
func (c *Client) Reblog(ctx context.Context, id string) (*Status, error) {
	var status Status
	if err := c.submit(ctx, http.MethodPost, "reblog", "/api/v1/statuses/"+id+"/reblog", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Unreblog removes a reblog
func (c *Client) Unreblog(ctx context.Context, id string) (*Status, error) {
	var status Status
	if err := c.submit(ctx, http.MethodPost, "unreblog", "/api/v1/statuses/"+id+"/unreblog", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Bookmark bookmarks a status
func (c *Client) Bookmark(ctx context.Context, id string) (*Status, error) {
	var status Status
	if err := c.submit(ctx, http.MethodPost, "bookmark", "/api/v1/statuses/"+id+"/bookmark", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Unbookmark removes a bookmark
func (c *Client) Unbookmark(ctx context.Context, id string) (*Status, error) {
	var status Status
	if err := c.submit(ctx, http.MethodPost, "unbookmark", "/api/v1/statuses/"+id+"/unbookmark", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// DeleteStatus deletes the viewer's own status
func (c *Client) DeleteStatus(ctx context.Context, id string) error {
	return c.submit(ctx, http.MethodDelete, "delete_status", "/api/v1/statuses/"+id, nil, nil)
}

// Follow follows an account
func (c *Client) Follow(ctx context.Context, accountID string) (*Relationship, error) {
	var rel Relationship
	if err := c.submit(ctx, http.MethodPost, "follow", "/api/v1/accounts/"+accountID+"/follow", nil, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// Unfollow unfollows an account
func (c *Client) Unfollow(ctx context.Context, accountID string) (*Relationship, error) {
	var rel Relationship
	if err := c.submit(ctx, http.MethodPost, "unfollow", "/api/v1/accounts/"+accountID+"/unfollow", nil, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// Lists fetches all of the viewer's lists (the endpoint is unpaged)
func (c *Client) Lists(ctx context.Context) ([]List, error) {
	var lists []List
	if err := c.get(ctx, "lists", "/api/v1/lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// CreateList creates a list
func (c *Client) CreateList(ctx context.Context, title string) (*List, error) {
	form := url.Values{}
	form.Set("title", title)
	var list List
	if err := c.submit(ctx, http.MethodPost, "create_list", "/api/v1/lists", form, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpdateList renames a list
func (c *Client) UpdateList(ctx context.Context, id, title string) (*List, error) {
	form := url.Values{}
	form.Set("title", title)
	var list List
	if err := c.submit(ctx, http.MethodPut, "update_list", "/api/v1/lists/"+id, form, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteList deletes a list
func (c *Client) DeleteList(ctx context.Context, id string) error {
	return c.submit(ctx, http.MethodDelete, "delete_list", "/api/v1/lists/"+id, nil, nil)
}

// AddListAccounts adds accounts to a list
func (c *Client) AddListAccounts(ctx context.Context, id string, accountIDs []string) error {
	form := url.Values{}
	for _, accountID := range accountIDs {
		form.Add("account_ids[]", accountID)
	}
	return c.submit(ctx, http.MethodPost, "add_list_accounts", "/api/v1/lists/"+id+"/accounts", form, nil)
}

// RemoveListAccounts removes accounts from a list
func (c *Client) RemoveListAccounts(ctx context.Context, id string, accountIDs []string) error {
	form := url.Values{}
	for _, accountID := range accountIDs {
		form.Add("account_ids[]", accountID)
	}
	return c.submit(ctx, http.MethodDelete, "remove_list_accounts", "/api/v1/lists/"+id+"/accounts", form, nil)
}
