// Package cache stores served predictions keyed by coin, dataset version and horizon.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix = "pricecast"
	DefaultTTL    = 10 * time.Minute
)

var ErrCacheMiss = errors.New("cache: key not found")

// Entry is a cached prediction
type Entry struct {
	Coin           string    `json:"coin"`
	TimePeriod     int       `json:"time_period"`
	PredictedPrice float64   `json:"predicted_price"`
	Version        string    `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
}

// Cache looks up predictions. Version identifies the data a prediction was made from so a new
// dataset never reads stale entries.
type Cache interface {
	Get(ctx context.Context, coin, version string, timePeriod int) (*Entry, error)
	Set(ctx context.Context, e *Entry) error
	Close() error
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Redis keeps entries as JSON strings with a TTL
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(opt Options) *Redis {
	prefix := opt.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ttl := opt.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     opt.Addr,
			Password: opt.Password,
			DB:       opt.DB,
		}),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Ping checks the connection
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Key builds <prefix>:<COIN>:<version>:<time_period>
func (r *Redis) Key(coin, version string, timePeriod int) string {
	return strings.Join([]string{r.prefix, strings.ToUpper(coin), version, strconv.Itoa(timePeriod)}, ":")
}

func (r *Redis) Get(ctx context.Context, coin, version string, timePeriod int) (*Entry, error) {
	data, err := r.client.Get(ctx, r.Key(coin, version, timePeriod)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get prediction, %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unable to decode prediction, %w", err)
	}
	return &e, nil
}

func (r *Redis) Set(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("unable to encode prediction, %w", err)
	}
	if err := r.client.Set(ctx, r.Key(e.Coin, e.Version, e.TimePeriod), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("unable to set prediction, %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)

// Noop never stores anything
type Noop struct{}

func (Noop) Get(context.Context, string, string, int) (*Entry, error) {
	return nil, ErrCacheMiss
}

func (Noop) Set(context.Context, *Entry) error {
	return nil
}

func (Noop) Close() error {
	return nil
}
