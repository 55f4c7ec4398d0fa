package app

import (
	"fmt"

	"github.com/yungbote/neurobridge-adaptive/internal/clients/redis"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type Clients struct {
	ItemParamsCache *redis.ItemParamsCache
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	cache, err := redis.NewItemParamsCache(log, cfg.RedisAddr, cfg.ItemParamsCacheTTL)
	if err != nil {
		return Clients{}, fmt.Errorf("init item params cache: %w", err)
	}
	if cache == nil {
		log.Info("REDIS_ADDR not set; item params cache disabled")
	}
	return Clients{ItemParamsCache: cache}, nil
}

func (c Clients) Close() {
	_ = c.ItemParamsCache.Close()
}
