package bluesky

import (
	"go.uber.org/zap"

	api "github.com/DimensionDev/Flare-sub003/internal/bluesky"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/mutation"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
)

// DataSource binds one Bluesky account to the cache store
type DataSource struct {
	client     *api.Client
	store      *store.Store
	mutations  *mutation.Engine
	accountKey model.Key
	logger     *zap.Logger
}

// New creates a data source for one signed-in Bluesky account
func New(client *api.Client, cacheStore *store.Store, mutations *mutation.Engine, accountKey model.Key) *DataSource {
	return &DataSource{
		client:     client,
		store:      cacheStore,
		mutations:  mutations,
		accountKey: accountKey,
		logger: logging.GetLogger().With(
			zap.String("component", "bluesky-datasource"),
			zap.String("account", accountKey.String())),
	}
}

// AccountKey identifies the signed-in account this source serves
func (d *DataSource) AccountKey() model.Key {
	return d.accountKey
}
