// Package cache is a small key/value cache with TTLs. It runs in memory for
// single-process deployments and on Redis when one is configured.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

const keyNamespace = "veiculos"

// Store is implemented by Memory and Redis.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Key builds a namespaced key, skipping empty parts:
// Key("photo", "fiat uno") == "veiculos:photo:fiat uno".
func Key(parts ...string) string {
	clean := []string{keyNamespace}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, ":")
}
