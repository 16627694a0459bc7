package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"socialpulse_backend/pkg/config"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// InitCache connects to Redis when CACHE_HOST is configured. The cache is
// strictly optional: every accessor is nil-safe so the app works without it,
// just with every tier lookup hitting the database.
func InitCache() {
	cfg := config.Get().Cache
	if cfg.Host == "" {
		log.Println("Cache not configured, tier lookups will not be cached")
		return
	}

	client = redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: could not connect to cache: %v", err)
		client = nil
		return
	}
	log.Println("Cache connected successfully!")
}

func Set(key, value string, expiration time.Duration) {
	if client == nil {
		return
	}
	if err := client.Set(ctx, key, value, expiration).Err(); err != nil {
		log.Printf("Cache set failed for %s: %v", key, err)
	}
}

func Get(key string) (string, bool) {
	if client == nil {
		return "", false
	}
	val, err := client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func Delete(key string) {
	if client == nil {
		return
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		log.Printf("Cache delete failed for %s: %v", key, err)
	}
}
