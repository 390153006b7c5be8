package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kaos-euy/backend-kaos/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// Line is a priced cart entry. UnitPriceCents and CustomFeeCents come from the
// catalog at add time and are refreshed on every quote, never from the client.
type Line struct {
	Key            string                `json:"key"`
	ProductID      string                `json:"product_id"`
	ProductName    string                `json:"product_name"`
	Size           string                `json:"size"`
	ColorCode      string                `json:"color_code"`
	ColorName      string                `json:"color_name"`
	Qty            int                   `json:"qty"`
	UnitPriceCents int64                 `json:"unit_price_cents"`
	CustomFeeCents int64                 `json:"custom_fee_cents"`
	Customization  pricing.Customization `json:"customization"`
}

// Cart is the server-side cart document stored in Redis.
type Cart struct {
	ID        string    `json:"id"`
	Lines     []Line    `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists carts. Implementations are injected so the service carries
// no process-wide state.
type Store interface {
	Get(ctx context.Context, id string) (Cart, error)
	Save(ctx context.Context, c Cart) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps carts as JSON documents with a sliding TTL.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *RedisStore) key(id string) string { return "cart:" + id }

func (s *RedisStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

// Get loads a cart by id.
func (s *RedisStore) Get(ctx context.Context, id string) (Cart, error) {
	data, err := s.Client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Save stores the cart and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, c Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(c.ID), data, s.ttl()).Err()
}

// Delete removes the cart.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.Client.Del(ctx, s.key(id)).Err()
}
