package engine

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/bluesky"
	dsbluesky "github.com/DimensionDev/Flare-sub003/internal/datasource/bluesky"
	dsmastodon "github.com/DimensionDev/Flare-sub003/internal/datasource/mastodon"
	dsmisskey "github.com/DimensionDev/Flare-sub003/internal/datasource/misskey"
	dsvvo "github.com/DimensionDev/Flare-sub003/internal/datasource/vvo"
	dsxqt "github.com/DimensionDev/Flare-sub003/internal/datasource/xqt"
	"github.com/DimensionDev/Flare-sub003/internal/mastodon"
	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/misskey"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/mutation"
	"github.com/DimensionDev/Flare-sub003/internal/paging"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	"github.com/DimensionDev/Flare-sub003/internal/vvo"
	"github.com/DimensionDev/Flare-sub003/internal/xqt"
	"github.com/DimensionDev/Flare-sub003/pkg/config"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
)

// StatusAction performs one named mutation on a cached status
type StatusAction func(ctx context.Context, statusKey model.Key) error

// ArgAction is a status mutation that needs an extra argument, like a
// Misskey reaction emoji or VVO repost text
type ArgAction func(ctx context.Context, statusKey model.Key, argument string) error

// UserAction performs one named mutation on a cached user
type UserAction func(ctx context.Context, userKey model.Key) error

// Account is one signed-in backend account with its capabilities
// resolved. Feeds not supported by the platform are simply absent:
// Lists is nil where the backend has no curated lists, Rooms is nil
// where it has no direct messages.
type Account struct {
	Key         model.Key
	Platform    model.PlatformType
	Actions     map[string]StatusAction
	ArgActions  map[string]ArgAction
	UserActions map[string]UserAction
	Lists       microblog.ListLoader

	RefreshRooms func(ctx context.Context) error
	LoadMessages func(ctx context.Context, roomKey model.Key, cursor string, pageSize int) (string, error)

	openUserTimeline   func(userID string) microblog.TimelineMediator
	openSearchTimeline func(query string) microblog.TimelineMediator
	openStatusDetail   func(statusID string) microblog.TimelineMediator
	openListTimeline   func(listID string) microblog.TimelineMediator
}

// Engine owns the full account roster: clients, datasources, the
// paging engine and the mutation engine, all over one cache store.
type Engine struct {
	store     *store.Store
	paging    *paging.Engine
	mutations *mutation.Engine
	logger    *zap.Logger

	mu       sync.Mutex
	accounts map[string]*Account
	opened   map[string]bool
}

// New wires every configured account into a running engine
func New(cfg *config.Config, cacheStore *store.Store) (*Engine, error) {
	e := &Engine{
		store:     cacheStore,
		paging:    paging.NewEngine(cacheStore, cfg.Paging.PageSize),
		mutations: mutation.NewEngine(cacheStore),
		logger:    logging.GetLogger().With(zap.String("component", "engine")),
		accounts:  make(map[string]*Account),
		opened:    make(map[string]bool),
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	for _, accountCfg := range cfg.Accounts {
		account, err := e.buildAccount(accountCfg, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to set up account %s@%s: %w", accountCfg.UserID, accountCfg.Host, err)
		}
		e.accounts[account.Key.String()] = account
		e.logger.Info("Account registered",
			zap.String("account", account.Key.String()),
			zap.String("platform", string(account.Platform)))
	}
	return e, nil
}

func (e *Engine) buildAccount(cfg config.AccountConfig, httpClient *http.Client) (*Account, error) {
	accountKey := model.NewKey(cfg.UserID, cfg.Host)
	baseURL := "https://" + cfg.Host

	switch model.PlatformType(cfg.Platform) {
	case model.PlatformMastodon:
		client, err := mastodon.NewClient(baseURL, cfg.Token, httpClient)
		if err != nil {
			return nil, err
		}
		source := dsmastodon.New(client, e.store, e.mutations, accountKey)
		e.paging.Register(accountKey, source.HomeTimeline())
		e.paging.Register(accountKey, source.NotificationTimeline())
		e.paging.Register(accountKey, source.BookmarkTimeline())
		e.paging.Register(accountKey, source.FavouriteTimeline())
		return &Account{
			Key:      accountKey,
			Platform: model.PlatformMastodon,
			Actions: map[string]StatusAction{
				"favourite":   source.Favourite,
				"unfavourite": source.Unfavourite,
				"reblog":      source.Reblog,
				"unreblog":    source.Unreblog,
				"bookmark":    source.Bookmark,
				"unbookmark":  source.Unbookmark,
				"delete":      source.Delete,
			},
			UserActions: map[string]UserAction{
				"follow":   source.Follow,
				"unfollow": source.Unfollow,
			},
			Lists:              source.ListLoader(),
			openUserTimeline:   source.UserTimeline,
			openSearchTimeline: source.SearchTimeline,
			openStatusDetail:   source.StatusDetail,
			openListTimeline:   source.ListTimeline,
		}, nil

	case model.PlatformMisskey:
		client, err := misskey.NewClient(baseURL, cfg.Token, httpClient)
		if err != nil {
			return nil, err
		}
		source := dsmisskey.New(client, e.store, e.mutations, accountKey)
		e.paging.Register(accountKey, source.HomeTimeline())
		e.paging.Register(accountKey, source.NotificationTimeline())
		return &Account{
			Key:      accountKey,
			Platform: model.PlatformMisskey,
			Actions: map[string]StatusAction{
				"renote":     source.Renote,
				"unrenote":   source.Unrenote,
				"favorite":   source.Favorite,
				"unfavorite": source.Unfavorite,
				"unreact":    source.Unreact,
				"delete":     source.Delete,
			},
			ArgActions: map[string]ArgAction{
				"react": source.React,
			},
			UserActions: map[string]UserAction{
				"follow":   source.Follow,
				"unfollow": source.Unfollow,
			},
			Lists:              source.ListLoader(),
			openUserTimeline:   source.UserTimeline,
			openSearchTimeline: source.SearchTimeline,
			openStatusDetail:   source.StatusDetail,
			openListTimeline:   source.ListTimeline,
		}, nil

	case model.PlatformBluesky:
		client, err := bluesky.NewClient(baseURL, cfg.Token, cfg.DID, httpClient)
		if err != nil {
			return nil, err
		}
		source := dsbluesky.New(client, e.store, e.mutations, accountKey)
		e.paging.Register(accountKey, source.HomeTimeline())
		e.paging.Register(accountKey, source.NotificationTimeline())
		e.paging.Register(accountKey, source.LikeTimeline())
		return &Account{
			Key:      accountKey,
			Platform: model.PlatformBluesky,
			Actions: map[string]StatusAction{
				"like":     source.Like,
				"unlike":   source.Unlike,
				"repost":   source.Repost,
				"unrepost": source.Unrepost,
				"delete":   source.Delete,
			},
			UserActions: map[string]UserAction{
				"follow": source.Follow,
				// Undoing a follow needs the follow record's AT-URI, which
				// the caller passes as the key ID.
				"unfollow": func(ctx context.Context, userKey model.Key) error {
					return source.Unfollow(ctx, userKey.ID)
				},
			},
			Lists:              source.ListLoader(),
			openUserTimeline:   source.UserTimeline,
			openSearchTimeline: source.SearchTimeline,
			openStatusDetail:   source.StatusDetail,
			openListTimeline:   source.ListTimeline,
		}, nil

	case model.PlatformXQT:
		client, err := xqt.NewClient(baseURL, cfg.Token, "", httpClient)
		if err != nil {
			return nil, err
		}
		source := dsxqt.New(client, e.store, e.mutations, accountKey)
		e.paging.Register(accountKey, source.HomeTimeline())
		e.paging.Register(accountKey, source.NotificationTimeline())
		e.paging.Register(accountKey, source.BookmarkTimeline())
		e.paging.Register(accountKey, source.LikeTimeline())
		return &Account{
			Key:      accountKey,
			Platform: model.PlatformXQT,
			Actions: map[string]StatusAction{
				"favorite":   source.Favorite,
				"unfavorite": source.Unfavorite,
				"retweet":    source.Retweet,
				"unretweet":  source.Unretweet,
				"bookmark":   source.Bookmark,
				"unbookmark": source.Unbookmark,
				"delete":     source.Delete,
			},
			RefreshRooms:       source.RefreshRooms,
			LoadMessages:       source.LoadMessages,
			openUserTimeline:   source.UserTimeline,
			openSearchTimeline: source.SearchTimeline,
			openStatusDetail:   source.StatusDetail,
		}, nil

	case model.PlatformVVO:
		client, err := vvo.NewClient(baseURL, cfg.Token, "", httpClient)
		if err != nil {
			return nil, err
		}
		source := dsvvo.New(client, e.store, e.mutations, accountKey)
		e.paging.Register(accountKey, source.HomeTimeline())
		e.paging.Register(accountKey, source.CommentNotificationTimeline())
		e.paging.Register(accountKey, source.AttitudeNotificationTimeline())
		return &Account{
			Key:      accountKey,
			Platform: model.PlatformVVO,
			Actions: map[string]StatusAction{
				"like":       source.Like,
				"unlike":     source.Unlike,
				"favorite":   source.Favorite,
				"unfavorite": source.Unfavorite,
				"delete":     source.Delete,
			},
			ArgActions: map[string]ArgAction{
				"repost": source.Repost,
			},
			RefreshRooms: source.RefreshRooms,
			LoadMessages: source.LoadMessages,
			openUserTimeline: func(userID string) microblog.TimelineMediator {
				uid, err := strconv.ParseInt(userID, 10, 64)
				if err != nil {
					return nil
				}
				return source.UserTimeline(uid)
			},
			openSearchTimeline: source.SearchTimeline,
			openStatusDetail:   source.StatusDetail,
		}, nil

	default:
		return nil, fmt.Errorf("unknown platform %q", cfg.Platform)
	}
}

// Account looks up a registered account by its key string
func (e *Engine) Account(accountKey string) (*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	account, ok := e.accounts[accountKey]
	if !ok {
		return nil, &microblog.NotFoundError{Kind: "account", ID: accountKey}
	}
	return account, nil
}

// Accounts lists the registered accounts
func (e *Engine) Accounts() []*Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	accounts := make([]*Account, 0, len(e.accounts))
	for _, account := range e.accounts {
		accounts = append(accounts, account)
	}
	return accounts
}

// Paging exposes the paging engine for refresh/load-more and state
func (e *Engine) Paging() *paging.Engine {
	return e.paging
}

// Mutations exposes the mutation engine's failure stream
func (e *Engine) Mutations() *mutation.Engine {
	return e.mutations
}

// Store exposes the cache store for reads and subscriptions
func (e *Engine) Store() *store.Store {
	return e.store
}

// register installs an on-demand mediator once per paging key
func (e *Engine) register(accountKey model.Key, mediator microblog.TimelineMediator) string {
	pagingKey := mediator.PagingKey()
	e.mu.Lock()
	already := e.opened[pagingKey]
	if !already {
		e.opened[pagingKey] = true
	}
	e.mu.Unlock()
	if !already {
		e.paging.Register(accountKey, mediator)
	}
	return pagingKey
}

// OpenUserTimeline registers (idempotently) the mediator for one
// profile's feed and returns its paging key.
func (e *Engine) OpenUserTimeline(accountKey, userID string) (string, error) {
	account, err := e.Account(accountKey)
	if err != nil {
		return "", err
	}
	mediator := account.openUserTimeline(userID)
	if mediator == nil {
		return "", fmt.Errorf("bad user id %q for platform %s", userID, account.Platform)
	}
	return e.register(account.Key, mediator), nil
}

// OpenSearchTimeline registers the mediator for a search feed
func (e *Engine) OpenSearchTimeline(accountKey, query string) (string, error) {
	account, err := e.Account(accountKey)
	if err != nil {
		return "", err
	}
	return e.register(account.Key, account.openSearchTimeline(query)), nil
}

// OpenStatusDetail registers the mediator for a status thread view
func (e *Engine) OpenStatusDetail(accountKey, statusID string) (string, error) {
	account, err := e.Account(accountKey)
	if err != nil {
		return "", err
	}
	return e.register(account.Key, account.openStatusDetail(statusID)), nil
}

// OpenListTimeline registers the mediator for a list feed
func (e *Engine) OpenListTimeline(accountKey, listID string) (string, error) {
	account, err := e.Account(accountKey)
	if err != nil {
		return "", err
	}
	if account.openListTimeline == nil {
		return "", &microblog.UnsupportedError{Operation: "list timeline", Platform: string(account.Platform)}
	}
	return e.register(account.Key, account.openListTimeline(listID)), nil
}
