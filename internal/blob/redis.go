package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "reviewboard:photo:"

// Redis stores each blob as a hash holding the bytes and content type
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis store
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

// Put reads r fully and writes it under key
func (s *Redis) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}

	err = s.client.HSet(ctx, redisKey(key), map[string]any{
		"data":         data,
		"content_type": contentType,
		"size":         len(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", key, err)
	}
	return nil
}

// Get reads the blob stored under key
func (s *Redis) Get(ctx context.Context, key string) (*Object, error) {
	if !ValidKey(key) {
		return nil, ErrNotFound
	}

	fields, err := s.client.HGetAll(ctx, redisKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from redis: %w", key, err)
	}
	data, ok := fields["data"]
	if !ok {
		return nil, ErrNotFound
	}

	size, err := strconv.ParseInt(fields["size"], 10, 64)
	if err != nil {
		size = int64(len(data))
	}

	return &Object{
		Body:        io.NopCloser(bytes.NewReader([]byte(data))),
		ContentType: fields["content_type"],
		Size:        size,
	}, nil
}
