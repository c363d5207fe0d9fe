package xqt

import (
	"go.uber.org/zap"

	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/mutation"
	"github.com/DimensionDev/Flare-sub003/internal/store"
	api "github.com/DimensionDev/Flare-sub003/internal/xqt"
	"github.com/DimensionDev/Flare-sub003/pkg/logging"
)

// DataSource binds one XQT account to the cache store. XQT is the
// only backend besides VVO with direct message support.
type DataSource struct {
	client     *api.Client
	store      *store.Store
	mutations  *mutation.Engine
	accountKey model.Key
	logger     *zap.Logger
}

// New creates a data source for one signed-in XQT account
func New(client *api.Client, cacheStore *store.Store, mutations *mutation.Engine, accountKey model.Key) *DataSource {
	return &DataSource{
		client:     client,
		store:      cacheStore,
		mutations:  mutations,
		accountKey: accountKey,
		logger: logging.GetLogger().With(
			zap.String("component", "xqt-datasource"),
			zap.String("account", accountKey.String())),
	}
}

// AccountKey identifies the signed-in account this source serves
func (d *DataSource) AccountKey() model.Key {
	return d.accountKey
}
