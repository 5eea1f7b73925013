package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cross/domain/book"
)

// TopOfBook is the published market-data summary: best prices, the spread,
// and the moment it was computed.
type TopOfBook struct {
	BestAsk   int64 `json:"bestAsk"`
	BestBid   int64 `json:"bestBid"`
	Spread    int64 `json:"spread"`
	Timestamp int64 `json:"timestamp"`
}

// Cache mirrors derived book state into Redis so read traffic (polling
// clients, dashboards) never touches the matching path. Writes are
// best-effort; the book is always the source of truth.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Cache{client: client, ttl: 10 * time.Second}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

const topKey = "book:top"

// PublishTop stores the current top of book.
func (c *Cache) PublishTop(ctx context.Context, b *book.Book) error {
	top := TopOfBook{
		BestAsk:   b.BestAsk(),
		BestBid:   b.BestBid(),
		Spread:    b.Spread(),
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(top)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, topKey, data, c.ttl).Err()
}

// Top returns the cached top of book, ok=false on miss or expiry.
func (c *Cache) Top(ctx context.Context) (TopOfBook, bool, error) {
	data, err := c.client.Get(ctx, topKey).Bytes()
	if err == redis.Nil {
		return TopOfBook{}, false, nil
	}
	if err != nil {
		return TopOfBook{}, false, err
	}

	var top TopOfBook
	if err := json.Unmarshal(data, &top); err != nil {
		return TopOfBook{}, false, err
	}
	return top, true, nil
}
