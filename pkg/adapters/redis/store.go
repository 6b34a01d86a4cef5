// Package redis publishes supervisor heartbeats and coordinates registration through Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the bootstrapper.
const DefaultPrefix = "nexus:bootstrap:"

// Store implements ports.HeartbeatSink using Redis.
// Each host owns one key holding its latest beat; an index ZSET scored by expiry lists live hosts.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ ports.HeartbeatSink = (*Store)(nil)

type Option func(*Store)

// WithTTL sets how long a beat stays visible without renewal.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewFromURL connects using a redis:// URL.
func NewFromURL(url string, opts ...Option) (*Store, error) {
	options, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(options), opts...), nil
}

// NewFromClient creates a Store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    3 * time.Minute,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(host string) string {
	return s.prefix + "heartbeat:" + host
}

func (s *Store) indexKey() string {
	return s.prefix + "heartbeats"
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Beat stores hb under its host and refreshes the index.
func (s *Store) Beat(ctx context.Context, hb ports.Heartbeat) error {
	data, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("failed to marshal heartbeat: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(hb.Host), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(time.Now().Add(s.ttl).Unix()),
		Member: hb.Host,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish heartbeat: %w", err)
	}
	return nil
}

// Last returns the most recent beat of host, or false when it expired.
func (s *Store) Last(ctx context.Context, host string) (ports.Heartbeat, bool, error) {
	val, err := s.client.Get(ctx, s.key(host)).Result()
	if err != nil {
		if err == backend.Nil {
			return ports.Heartbeat{}, false, nil
		}
		return ports.Heartbeat{}, false, fmt.Errorf("failed to get from redis: %w", err)
	}

	var hb ports.Heartbeat
	if err := json.Unmarshal([]byte(val), &hb); err != nil {
		return ports.Heartbeat{}, false, fmt.Errorf("failed to unmarshal heartbeat: %w", err)
	}
	return hb, true, nil
}

// Hosts lists hosts with an unexpired beat, pruning stale index entries first.
func (s *Store) Hosts(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("(%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired heartbeats: %w", err)
	}

	hosts, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list heartbeats: %w", err)
	}
	return hosts, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
