package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-adaptive/internal/learning/irt"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

const (
	itemParamsPrefix  = "irt:item:"
	SourceCache       = "cache"
	defaultItemTTL    = 10 * time.Minute
	invalidateBatchSz = 500
)

var ErrCacheMiss = errors.New("cache: key not found")

// ItemParamsCache is a read-through cache of resolved calibrated item
// parameters. A nil *ItemParamsCache is valid and always misses.
type ItemParamsCache struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	ttl time.Duration
}

// NewItemParamsCache dials addr and pings it. An empty addr disables caching
// and returns nil, nil.
func NewItemParamsCache(log *logger.Logger, addr string, ttl time.Duration) (*ItemParamsCache, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewItemParamsCacheFromClient(log, rdb, ttl), nil
}

func NewItemParamsCacheFromClient(log *logger.Logger, rdb goredis.UniversalClient, ttl time.Duration) *ItemParamsCache {
	if ttl <= 0 {
		ttl = defaultItemTTL
	}
	return &ItemParamsCache{
		log: log.With("service", "ItemParamsCache"),
		rdb: rdb,
		ttl: ttl,
	}
}

func ItemParamsKey(itemID uuid.UUID) string {
	return itemParamsPrefix + itemID.String()
}

type cachedItemParams struct {
	Difficulty     float64 `json:"b"`
	Discrimination float64 `json:"a"`
	Guessing       float64 `json:"c"`
}

func (c *ItemParamsCache) Get(ctx context.Context, itemID uuid.UUID) (*irt.ItemParams, error) {
	if c == nil || c.rdb == nil {
		return nil, ErrCacheMiss
	}
	raw, err := c.rdb.Get(ctx, ItemParamsKey(itemID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var v cachedItemParams
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode cached item params: %w", err)
	}
	return &irt.ItemParams{Difficulty: v.Difficulty, Discrimination: v.Discrimination, Guessing: v.Guessing}, nil
}

func (c *ItemParamsCache) Set(ctx context.Context, itemID uuid.UUID, p irt.ItemParams) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(cachedItemParams{Difficulty: p.Difficulty, Discrimination: p.Discrimination, Guessing: p.Guessing})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, ItemParamsKey(itemID), raw, c.ttl).Err()
}

// Invalidate drops cached entries after a calibration write.
func (c *ItemParamsCache) Invalidate(ctx context.Context, itemIDs []uuid.UUID) error {
	if c == nil || c.rdb == nil || len(itemIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		keys = append(keys, ItemParamsKey(id))
	}
	for lo := 0; lo < len(keys); lo += invalidateBatchSz {
		hi := min(lo+invalidateBatchSz, len(keys))
		if err := c.rdb.Del(ctx, keys[lo:hi]...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	c.log.Debug("Invalidated cached item params", "count", len(keys))
	return nil
}

// Source adapts the cache to the resolver chain. Misses and cache failures
// fall through to the next source.
func (c *ItemParamsCache) Source() irt.Source {
	return irt.SourceFunc(SourceCache, func(ctx context.Context, itemID uuid.UUID) (*irt.ItemParams, error) {
		p, err := c.Get(ctx, itemID)
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return p, err
	})
}

func (c *ItemParamsCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
