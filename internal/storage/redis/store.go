// Package redis stores snapshots as plain Redis string keys.
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Store implements a key-value store on a Redis client.
type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewStore returns a Store using client. Every Set refreshes the key's expiry
// to ttl; zero keeps keys forever.
func NewStore(client *goredis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "get %q", key)
	}
	return v, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

// Scan calls fn for every key starting with prefix. Redis gives no ordering
// guarantee; keys that expire during the scan are skipped.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key, value string) error) error {
	iter := s.client.Scan(ctx, 0, escapeGlob(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		v, ok, err := s.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(key, v); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scan")
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// escapeGlob escapes the characters MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
