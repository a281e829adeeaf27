// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/videotube/internal/platform/constants"
)

// # Redis Profile Cache

// RedisProfileCache implements [ProfileCache] with one Redis hash per channel.
//
// Each hash field is a viewer id, so invalidating a channel is a single DEL
// whatever the number of viewers that read it.
type RedisProfileCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewProfileCache creates a new Redis-backed profile cache.
func NewProfileCache(client redis.Cmdable, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{client: client, ttl: ttl}
}

func channelKey(username string) string {
	return constants.RedisPrefixChannel + username
}

// Get returns the cached profile, or (nil, nil) on a miss.
func (cache *RedisProfileCache) Get(context context.Context, username, viewerID string) (*ChannelProfile, error) {
	raw, err := cache.client.HGet(context, channelKey(username), viewerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis_profile_cache_get_failed: %w", err)
	}

	var profile ChannelProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("redis_profile_cache_decode_failed: %w", err)
	}
	return &profile, nil
}

// Set stores the profile and (re)arms the channel's TTL.
func (cache *RedisProfileCache) Set(context context.Context, username, viewerID string, profile *ChannelProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("redis_profile_cache_encode_failed: %w", err)
	}

	key := channelKey(username)
	_, err = cache.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.HSet(context, key, viewerID, raw)
		pipe.Expire(context, key, cache.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_profile_cache_set_failed: %w", err)
	}
	return nil
}

// Invalidate drops every cached view of the channel.
func (cache *RedisProfileCache) Invalidate(context context.Context, username string) error {
	if err := cache.client.Del(context, channelKey(username)).Err(); err != nil {
		return fmt.Errorf("redis_profile_cache_invalidate_failed: %w", err)
	}
	return nil
}
