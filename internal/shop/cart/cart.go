// Package cart keeps shopping carts as Redis hashes keyed cart:{userId}.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/models"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 7 * 24 * time.Hour

var ErrInvalidQuantity = errors.New("quantity must be positive")

type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewStore returns a cart store. A zero ttl uses one week.
func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func key(userID string) string {
	return "cart:" + userID
}

// AddItem increments the quantity of productID in the user's cart.
func (s *Store) AddItem(ctx context.Context, userID string, item models.CartItem) error {
	if item.Quantity <= 0 {
		return apperrors.NewValidationError(ErrInvalidQuantity.Error())
	}

	k := key(userID)
	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, k, item.ProductID, int64(item.Quantity))
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewExternalServiceError("cart", err)
	}
	return nil
}

// GetCart returns the cart's items ordered by product ID. A missing cart is empty.
func (s *Store) GetCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	fields, err := s.rdb.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return nil, apperrors.NewExternalServiceError("cart", err)
	}

	items := make([]models.CartItem, 0, len(fields))
	for productID, raw := range fields {
		qty, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, apperrors.NewExternalServiceError("cart", fmt.Errorf("corrupt quantity for %s: %w", productID, err))
		}
		items = append(items, models.CartItem{ProductID: productID, Quantity: int32(qty)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

// ProductIDs returns the IDs of the items in the user's cart.
func (s *Store) ProductIDs(ctx context.Context, userID string) ([]string, error) {
	items, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	return ids, nil
}
