package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinevault/cinevault/pkg/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Video cache operations

// SetVideo caches a video record
func (c *Cache) SetVideo(ctx context.Context, video *models.Video, ttl time.Duration) error {
	data, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("failed to marshal video: %w", err)
	}

	key := fmt.Sprintf("video:%s", video.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetVideo retrieves a video record from cache
func (c *Cache) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	key := fmt.Sprintf("video:%s", videoID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get video from cache: %w", err)
	}

	var video models.Video
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video: %w", err)
	}

	return &video, nil
}

// DeleteVideo removes a video record from cache
func (c *Cache) DeleteVideo(ctx context.Context, videoID string) error {
	key := fmt.Sprintf("video:%s", videoID)
	return c.client.Del(ctx, key).Err()
}

// Location name cache operations
//
// Reverse-geocode results barely change and the upstream service is
// rate-limited, so resolved names are cached by coordinates rounded to four
// decimals (~11m).

func locationKey(latitude, longitude float64) string {
	return fmt.Sprintf("geocode:%.4f,%.4f", latitude, longitude)
}

// SetLocationName caches a resolved location name for coordinates
func (c *Cache) SetLocationName(ctx context.Context, latitude, longitude float64, name string, ttl time.Duration) error {
	return c.client.Set(ctx, locationKey(latitude, longitude), name, ttl).Err()
}

// GetLocationName retrieves a cached location name for coordinates. The
// second return value reports whether the lookup was a hit.
func (c *Cache) GetLocationName(ctx context.Context, latitude, longitude float64) (string, bool, error) {
	name, err := c.client.Get(ctx, locationKey(latitude, longitude)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil // Cache miss
		}
		return "", false, fmt.Errorf("failed to get location name from cache: %w", err)
	}
	return name, true, nil
}
