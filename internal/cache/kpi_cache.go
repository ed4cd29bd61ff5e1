// Package cache holds the optional Redis cache for analytics responses.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/marketlens/backend-go/internal/config"
)

const (
	kpiKeyPrefix        = "kpi"
	kpiGenerationPrefix = "kpigen"
	kpiScanBatchSize    = 100
	defaultKPITTL       = time.Minute
)

// KPICache stores JSON encoded responses per workspace and generation.
// Callers read the generation before computing a response and pass it to Get
// and Set. InvalidateWorkspace moves the workspace to a new generation, so a
// response computed from facts older than the invalidation is never served
// afterwards, even when its Set lands late.
type KPICache interface {
	Generation(ctx context.Context, workspaceID uuid.UUID) (int64, error)
	Get(ctx context.Context, workspaceID uuid.UUID, gen int64, name string, params map[string]string, dst interface{}) (bool, error)
	Set(ctx context.Context, workspaceID uuid.UUID, gen int64, name string, params map[string]string, value interface{}) error
	InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) error
}

type redisKPICache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopKPICache struct{}

// NewKPICache connects to Redis when caching is enabled and returns a noop
// cache otherwise.
func NewKPICache(cfg config.CacheConfig) (KPICache, error) {
	if !cfg.Enabled {
		return &noopKPICache{}, nil
	}

	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.KPITTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultKPITTL
	}
	return &redisKPICache{client: client, ttl: ttl}, nil
}

func NewNoopKPICache() KPICache {
	return &noopKPICache{}
}

func (c *redisKPICache) Generation(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(workspaceID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

func (c *redisKPICache) Get(ctx context.Context, workspaceID uuid.UUID, gen int64, name string, params map[string]string, dst interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, BuildKey(workspaceID, gen, name, params)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode %s cache: %w", name, err)
	}
	return true, nil
}

func (c *redisKPICache) Set(ctx context.Context, workspaceID uuid.UUID, gen int64, name string, params map[string]string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", name, err)
	}
	if err := c.client.Set(ctx, BuildKey(workspaceID, gen, name, params), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateWorkspace bumps the generation first, then drops the entries of
// earlier generations to free memory.
func (c *redisKPICache) InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	if err := c.client.Incr(ctx, generationKey(workspaceID)).Err(); err != nil {
		return fmt.Errorf("redis incr generation failed: %w", err)
	}

	iter := c.client.Scan(ctx, 0, workspacePrefix(workspaceID)+"*", kpiScanBatchSize).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= kpiScanBatchSize {
			if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis unlink failed: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
	}
	return nil
}

func (n *noopKPICache) Generation(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	return 0, nil
}

func (n *noopKPICache) Get(ctx context.Context, workspaceID uuid.UUID, gen int64, name string, params map[string]string, dst interface{}) (bool, error) {
	return false, nil
}

func (n *noopKPICache) Set(ctx context.Context, workspaceID uuid.UUID, gen int64, name string, params map[string]string, value interface{}) error {
	return nil
}

func (n *noopKPICache) InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	return nil
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func workspacePrefix(workspaceID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:", kpiKeyPrefix, workspaceID)
}

// generationKey lives outside the workspace prefix so that invalidation scans
// never delete it.
func generationKey(workspaceID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", kpiGenerationPrefix, workspaceID)
}

// BuildKey is kpi:<workspace>:g<gen>:<name>:<hash of params>. Params are
// normalized (trimmed, lowercased, empty values dropped) and sorted so
// equivalent requests share an entry.
func BuildKey(workspaceID uuid.UUID, gen int64, name string, params map[string]string) string {
	return fmt.Sprintf("%sg%d:%s:%s", workspacePrefix(workspaceID), gen, name, paramsHash(params))
}

func paramsHash(params map[string]string) string {
	parts := make([]string, 0, len(params))
	for k, v := range params {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		parts = append(parts, strings.ToLower(strings.TrimSpace(k))+"="+v)
	}
	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
