package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pricesnapshot/internal/config"
	"pricesnapshot/internal/pricetable"
)

// UpdatedAtKey is appended to the key prefix to store the publish time in
// epoch milliseconds.
const UpdatedAtKey = "updated_at"

// RedisPublisher stores each entry as JSON under prefix+SYMBOL.
type RedisPublisher struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisPublisher(client redis.Cmdable, prefix string, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

// DialRedis connects using cfg and pings the server.
func DialRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (p *RedisPublisher) Name() string { return "redis" }

// Publish writes all entries in one pipeline. A zero ttl keeps keys forever.
func (p *RedisPublisher) Publish(ctx context.Context, table *pricetable.Table) error {
	pipe := p.client.TxPipeline()
	for _, sym := range table.Symbols() {
		e, _ := table.Get(sym)
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", sym, err)
		}
		pipe.Set(ctx, p.prefix+sym, data, p.ttl)
	}
	pipe.Set(ctx, p.prefix+UpdatedAtKey, strconv.FormatInt(p.now().UnixMilli(), 10), p.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}
