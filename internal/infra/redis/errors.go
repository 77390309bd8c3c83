package redis

import "errors"

var (
	// ErrKeyNotFound is returned when a key is absent or was already consumed.
	ErrKeyNotFound = errors.New("redis: key not found")

	// ErrCacheMiss is returned by Cache.Get when the key is not cached.
	ErrCacheMiss = errors.New("cache: key not found")
)
