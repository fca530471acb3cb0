package vcard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const photoKeyPrefix = "contacts:photo:"

// RedisPhotoCache keeps resolved photos in Redis so that repeated exports do not download the
// same images again.
type RedisPhotoCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisPhotoCache creates a photo cache on top of a Redis client.
func NewRedisPhotoCache(client redis.Cmdable, ttl time.Duration) *RedisPhotoCache {
	return &RedisPhotoCache{client: client, ttl: ttl}
}

// Get returns the cached photo for imageURL. A cache miss is not an error.
func (c *RedisPhotoCache) Get(ctx context.Context, imageURL string) (*Photo, bool, error) {
	raw, err := c.client.Get(ctx, photoKey(imageURL)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var photo Photo
	if err := json.Unmarshal(raw, &photo); err != nil {
		return nil, false, err
	}
	return &photo, true, nil
}

// Set stores photo under imageURL for the configured TTL.
func (c *RedisPhotoCache) Set(ctx context.Context, imageURL string, photo *Photo) error {
	raw, err := json.Marshal(photo)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, photoKey(imageURL), raw, c.ttl).Err()
}

// photoKey hashes the URL to keep keys short and free of special characters.
func photoKey(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return photoKeyPrefix + hex.EncodeToString(sum[:])
}
