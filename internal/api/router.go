package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/cache"
	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/engine"
	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
)

const statusCacheTTL = 30 * time.Second

// Router exposes the sync engine over HTTP. Entity keys travel in
// request bodies and query strings rather than URL paths because
// Bluesky AT-URIs contain slashes.
type Router struct {
	engine *engine.Engine
	cache  *cache.Cache
	logger *zap.Logger
}

// NewRouter creates the API router over an engine and an optional
// Redis hot cache (nil when disabled).
func NewRouter(eng *engine.Engine, redisCache *cache.Cache) *Router {
	return &Router{
		engine: eng,
		cache:  redisCache,
		logger: logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes registers all API routes
func (r *Router) SetupRoutes(router *gin.Engine) {
	router.GET("/health", r.healthHandler)
	router.GET("/.well-known/healthcheck.json", r.healthHandler)

	router.GET("/accounts", r.listAccounts)

	feeds := router.Group("/feeds")
	{
		feeds.POST("/open", r.openFeed)
		feeds.GET("/items", r.feedItems)
		feeds.GET("/state", r.feedState)
		feeds.POST("/refresh", r.feedRefresh)
		feeds.POST("/load-more", r.feedLoadMore)
		feeds.POST("/load-newer", r.feedLoadNewer)
	}

	statuses := router.Group("/statuses")
	{
		statuses.GET("", r.getStatus)
		statuses.POST("/action", r.statusAction)
	}

	users := router.Group("/users")
	{
		users.GET("", r.getUser)
		users.POST("/action", r.userAction)
	}

	lists := router.Group("/lists")
	{
		lists.GET("", r.getLists)
		lists.GET("/capabilities", r.listCapabilities)
		lists.POST("/refresh", r.refreshLists)
		lists.POST("/create", r.createList)
		lists.POST("/update", r.updateList)
		lists.POST("/delete", r.deleteList)
		lists.POST("/members/add", r.addListMember)
		lists.POST("/members/remove", r.removeListMember)
	}

	rooms := router.Group("/rooms")
	{
		rooms.GET("", r.getRooms)
		rooms.POST("/refresh", r.refreshRooms)
		rooms.GET("/messages", r.getMessages)
		rooms.POST("/messages/load", r.loadMessages)
	}
}

func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "flare-engine",
	})
}

type accountResponse struct {
	AccountKey string `json:"account_key"`
	Platform   string `json:"platform"`
	HasLists   bool   `json:"has_lists"`
	HasRooms   bool   `json:"has_rooms"`
}

func (r *Router) listAccounts(c *gin.Context) {
	accounts := r.engine.Accounts()
	out := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, accountResponse{
			AccountKey: account.Key.String(),
			Platform:   string(account.Platform),
			HasLists:   account.Lists != nil,
			HasRooms:   account.RefreshRooms != nil,
		})
	}
	c.JSON(http.StatusOK, out)
}

type openFeedRequest struct {
	AccountKey string `json:"account_key" binding:"required"`
	Type       string `json:"type" binding:"required"`
	Value      string `json:"value" binding:"required"`
}

// openFeed registers an on-demand feed (user profile, search, status
// detail, list timeline) and returns its paging key. Opening the same
// feed twice is idempotent.
func (r *Router) openFeed(c *gin.Context) {
	var req openFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	var pagingKey string
	var err error
	switch req.Type {
	case "user":
		pagingKey, err = r.engine.OpenUserTimeline(req.AccountKey, req.Value)
	case "search":
		pagingKey, err = r.engine.OpenSearchTimeline(req.AccountKey, req.Value)
	case "status":
		pagingKey, err = r.engine.OpenStatusDetail(req.AccountKey, req.Value)
	case "list":
		pagingKey, err = r.engine.OpenListTimeline(req.AccountKey, req.Value)
	default:
		abortBadRequest(c, "type must be one of user, search, status, list")
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paging_key": pagingKey})
}

type timelineItemResponse struct {
	StatusKey string          `json:"status_key"`
	SortID    int64           `json:"sort_id"`
	Platform  string          `json:"platform"`
	Content   json.RawMessage `json:"content"`
	User      *userResponse   `json:"user,omitempty"`
}

type userResponse struct {
	UserKey string `json:"user_key"`
	Name    string `json:"name"`
	Handle  string `json:"handle"`
	Host    string `json:"host"`
}

func statusContentJSON(content db.StatusContent) json.RawMessage {
	encoded, err := content.Encode()
	if err != nil {
		return json.RawMessage(`null`)
	}
	return json.RawMessage(encoded)
}

func (r *Router) feedItems(c *gin.Context) {
	pagingKey := c.Query("paging_key")
	if pagingKey == "" {
		abortBadRequest(c, "paging_key is required")
		return
	}
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)

	timeline, err := r.engine.Paging().Timeline(pagingKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	items, err := timeline.Window(c.Request.Context(), limit, offset)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]timelineItemResponse, 0, len(items))
	for _, item := range items {
		resp := timelineItemResponse{
			StatusKey: item.StatusKey.String(),
			SortID:    item.SortID,
			Platform:  string(item.Platform),
			Content:   statusContentJSON(item.Content),
		}
		if item.User != nil {
			resp.User = &userResponse{
				UserKey: item.User.UserKey.String(),
				Name:    item.User.Name,
				Handle:  item.User.Handle,
				Host:    item.User.Host,
			}
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) feedState(c *gin.Context) {
	pagingKey := c.Query("paging_key")
	if pagingKey == "" {
		abortBadRequest(c, "paging_key is required")
		return
	}
	state := r.engine.Paging().State(pagingKey)
	resp := gin.H{
		"loading":           state.Loading,
		"end_of_pagination": state.EndOfPagination,
	}
	if state.Loading {
		resp["loading_kind"] = state.LoadingKind.String()
	}
	if state.Err != nil {
		status, code := statusForError(state.Err)
		resp["error"] = Error{Code: code, Message: state.Err.Error()}
		resp["error_status"] = status
	}
	c.JSON(http.StatusOK, resp)
}

type feedRequest struct {
	PagingKey string `json:"paging_key" binding:"required"`
}

func (r *Router) feedRefresh(c *gin.Context) {
	r.driveFeed(c, r.engine.Paging().Refresh)
}

func (r *Router) feedLoadMore(c *gin.Context) {
	r.driveFeed(c, r.engine.Paging().LoadMore)
}

func (r *Router) feedLoadNewer(c *gin.Context) {
	r.driveFeed(c, r.engine.Paging().LoadNewer)
}

func (r *Router) driveFeed(c *gin.Context, drive func(ctx context.Context, pagingKey string) error) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	if err := drive(c.Request.Context(), req.PagingKey); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// getStatus reads one cached status, consulting the Redis hot cache
// first. The cache only shortens repeated reads; SQLite stays the
// source of truth and mutations bypass Redis entirely, so entries
// carry a short TTL.
func (r *Router) getStatus(c *gin.Context) {
	accountKey, err := model.ParseKey(c.Query("account_key"))
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	statusKey, err := model.ParseKey(c.Query("status_key"))
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	cacheKey := cache.HashKey("status", accountKey.String(), statusKey.String())
	if r.cache != nil {
		var cached timelineItemResponse
		if err := r.cache.GetJSON(cacheKey, &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	row, err := r.engine.Store().GetStatus(c.Request.Context(), accountKey, statusKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if row == nil {
		abortWithError(c, &microblog.NotFoundError{Kind: "status", ID: statusKey.String()})
		return
	}
	content, err := db.DecodeStatusContent(row.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	resp := timelineItemResponse{
		StatusKey: statusKey.String(),
		Platform:  row.PlatformType,
		Content:   statusContentJSON(content),
	}
	if r.cache != nil {
		if err := r.cache.SetJSON(cacheKey, resp, statusCacheTTL); err != nil && err != cache.ErrCacheDisabled {
			r.logger.Warn("Failed to cache status", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, resp)
}

type statusActionRequest struct {
	AccountKey string `json:"account_key" binding:"required"`
	StatusKey  string `json:"status_key" binding:"required"`
	Action     string `json:"action" binding:"required"`
	// Argument carries action-specific input: the reaction emoji for
	// Misskey react, the repost text for VVO repost.
	Argument string `json:"argument"`
}

// statusAction dispatches a named mutation. The optimistic cache write
// completes before this returns; the remote call settles asynchronously.
func (r *Router) statusAction(c *gin.Context) {
	var req statusActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	account, err := r.engine.Account(req.AccountKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	statusKey, err := model.ParseKey(req.StatusKey)
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	if action, ok := account.Actions[req.Action]; ok {
		err = action(c.Request.Context(), statusKey)
	} else if argAction, ok := account.ArgActions[req.Action]; ok {
		err = argAction(c.Request.Context(), statusKey, req.Argument)
	} else {
		abortWithError(c, &microblog.UnsupportedError{
			Operation: req.Action,
			Platform:  string(account.Platform),
		})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	// Invalidate the hot-cache entry so the next read sees the
	// optimistic content.
	if r.cache != nil {
		_ = r.cache.Delete(cache.HashKey("status", req.AccountKey, req.StatusKey))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// getUser reads one cached user row
func (r *Router) getUser(c *gin.Context) {
	userKey, err := model.ParseKey(c.Query("user_key"))
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	user, err := r.engine.Store().GetUser(c.Request.Context(), userKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if user == nil {
		abortWithError(c, &microblog.NotFoundError{Kind: "user", ID: userKey.String()})
		return
	}
	encoded, err := user.Content.Encode()
	if err != nil {
		encoded = "null"
	}
	c.JSON(http.StatusOK, gin.H{
		"user_key": user.UserKey.String(),
		"platform": string(user.Platform),
		"name":     user.Name,
		"handle":   user.Handle,
		"host":     user.Host,
		"content":  json.RawMessage(encoded),
	})
}

type userActionRequest struct {
	AccountKey string `json:"account_key" binding:"required"`
	UserKey    string `json:"user_key" binding:"required"`
	Action     string `json:"action" binding:"required"`
}

// userAction dispatches a relation mutation (follow, unfollow)
func (r *Router) userAction(c *gin.Context) {
	var req userActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	account, err := r.engine.Account(req.AccountKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	action, ok := account.UserActions[req.Action]
	if !ok {
		abortWithError(c, &microblog.UnsupportedError{
			Operation: req.Action,
			Platform:  string(account.Platform),
		})
		return
	}
	userKey, err := model.ParseKey(req.UserKey)
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	if err := action(c.Request.Context(), userKey); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type listResponse struct {
	ListKey     string `json:"list_key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func (r *Router) getLists(c *gin.Context) {
	account, err := r.engine.Account(c.Query("account_key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	entries, err := r.engine.Store().Lists(c.Request.Context(), account.Key, "lists_"+account.Key.String())
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]listResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, listResponse{
			ListKey:     entry.ListKey.String(),
			Title:       entry.Content.Title,
			Description: entry.Content.Description,
			AvatarURL:   entry.Content.AvatarURL,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) listCapabilities(c *gin.Context) {
	loader, err := r.listLoader(c.Query("account_key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	fields := make([]string, 0, 3)
	for _, meta := range loader.SupportedMetaData() {
		switch meta {
		case microblog.ListMetaTitle:
			fields = append(fields, "title")
		case microblog.ListMetaDescription:
			fields = append(fields, "description")
		case microblog.ListMetaAvatar:
			fields = append(fields, "avatar")
		}
	}
	c.JSON(http.StatusOK, gin.H{"supported_metadata": fields})
}

func (r *Router) listLoader(accountKey string) (microblog.ListLoader, error) {
	account, err := r.engine.Account(accountKey)
	if err != nil {
		return nil, err
	}
	if account.Lists == nil {
		return nil, &microblog.UnsupportedError{Operation: "lists", Platform: string(account.Platform)}
	}
	return account.Lists, nil
}

type listRequest struct {
	AccountKey  string `json:"account_key" binding:"required"`
	ListID      string `json:"list_id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`
}

func (req listRequest) meta() microblog.ListMetaData {
	return microblog.ListMetaData{
		Title:       req.Title,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
	}
}

func (r *Router) refreshLists(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	loader, err := r.listLoader(req.AccountKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	result, err := loader.Load(c.Request.Context(), 20, microblog.Request{Kind: microblog.Refresh})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": result.Count})
}

func (r *Router) createList(c *gin.Context) {
	r.listMutation(c, func(ctx *gin.Context, loader microblog.ListLoader, req listRequest) error {
		if req.Title == "" {
			return &microblog.ProtocolError{Operation: "create list", Detail: "title is required"}
		}
		return loader.Create(ctx.Request.Context(), req.meta())
	})
}

func (r *Router) updateList(c *gin.Context) {
	r.listMutation(c, func(ctx *gin.Context, loader microblog.ListLoader, req listRequest) error {
		return loader.Update(ctx.Request.Context(), req.ListID, req.meta())
	})
}

func (r *Router) deleteList(c *gin.Context) {
	r.listMutation(c, func(ctx *gin.Context, loader microblog.ListLoader, req listRequest) error {
		return loader.Delete(ctx.Request.Context(), req.ListID)
	})
}

func (r *Router) addListMember(c *gin.Context) {
	r.listMutation(c, func(ctx *gin.Context, loader microblog.ListLoader, req listRequest) error {
		return loader.AddMember(ctx.Request.Context(), req.ListID, req.UserID)
	})
}

func (r *Router) removeListMember(c *gin.Context) {
	r.listMutation(c, func(ctx *gin.Context, loader microblog.ListLoader, req listRequest) error {
		return loader.RemoveMember(ctx.Request.Context(), req.ListID, req.UserID)
	})
}

func (r *Router) listMutation(c *gin.Context, mutate func(*gin.Context, microblog.ListLoader, listRequest) error) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	loader, err := r.listLoader(req.AccountKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := mutate(c, loader, req); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type roomResponse struct {
	RoomKey    string          `json:"room_key"`
	LastActive time.Time       `json:"last_active"`
	Content    json.RawMessage `json:"content"`
}

func (r *Router) getRooms(c *gin.Context) {
	account, err := r.engine.Account(c.Query("account_key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	rooms, err := r.engine.Store().Rooms(c.Request.Context(), account.Key)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		encoded, err := room.Content.Encode()
		if err != nil {
			encoded = "null"
		}
		out = append(out, roomResponse{
			RoomKey:    room.RoomKey.String(),
			LastActive: room.LastActive,
			Content:    json.RawMessage(encoded),
		})
	}
	c.JSON(http.StatusOK, out)
}

type roomRequest struct {
	AccountKey string `json:"account_key" binding:"required"`
	RoomKey    string `json:"room_key"`
	Cursor     string `json:"cursor"`
	PageSize   int    `json:"page_size"`
}

func (r *Router) refreshRooms(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	account, err := r.engine.Account(req.AccountKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if account.RefreshRooms == nil {
		abortWithError(c, &microblog.UnsupportedError{
			Operation: "direct messages",
			Platform:  string(account.Platform),
		})
		return
	}
	if err := account.RefreshRooms(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type messageResponse struct {
	MessageKey string          `json:"message_key"`
	Content    json.RawMessage `json:"content"`
}

func (r *Router) getMessages(c *gin.Context) {
	account, err := r.engine.Account(c.Query("account_key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	roomKey, err := model.ParseKey(c.Query("room_key"))
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	messages, err := r.engine.Store().Messages(c.Request.Context(), account.Key, roomKey, limit, offset)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]messageResponse, 0, len(messages))
	for _, message := range messages {
		encoded, err := message.Content.Encode()
		if err != nil {
			encoded = "null"
		}
		out = append(out, messageResponse{
			MessageKey: message.MessageKey.String(),
			Content:    json.RawMessage(encoded),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) loadMessages(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	account, err := r.engine.Account(req.AccountKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if account.LoadMessages == nil {
		abortWithError(c, &microblog.UnsupportedError{
			Operation: "direct messages",
			Platform:  string(account.Platform),
		})
		return
	}
	roomKey, err := model.ParseKey(req.RoomKey)
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	nextCursor, err := account.LoadMessages(c.Request.Context(), roomKey, req.Cursor, pageSize)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_cursor": nextCursor})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
