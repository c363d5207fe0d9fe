package vvo

import (
	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/mutation"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	api "github.com/DimensionDev/Flare-sub003/internal/vvo"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
)

// DataSource binds one VVO account to the cache store. VVO pages by
// number; the mediators encode the page number into the opaque cursor.
type DataSource struct {
	client     *api.Client
	store      *store.Store
	mutations  *mutation.Engine
	accountKey model.Key
	logger     *zap.Logger
}

// New creates a data source for one signed-in VVO account
func New(client *api.Client, cacheStore *store.Store, mutations *mutation.Engine, accountKey model.Key) *DataSource {
	return &DataSource{
		client:     client,
		store:      cacheStore,
		mutations:  mutations,
		accountKey: accountKey,
		logger: logging.GetLogger().With(
			zap.String("component", "vvo-datasource"),
			zap.String("account", accountKey.String())),
	}
}

// AccountKey identifies the signed-in account this source serves
func (d *DataSource) AccountKey() model.Key {
	return d.accountKey
}
