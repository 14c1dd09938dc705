// Package session provides the Redis-backed persistence collaborator for
// carts. One JSON record per session id holds the full cart snapshot; every
// save overwrites the record wholesale and refreshes its TTL, so an
// abandoned session expires on its own.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/webshop-works/checkout/internal/cart"
)

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "checkout:cart:"

// Store persists one cart snapshot per session id.
type Store struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

// NewStore builds a store bound to a session id.
func NewStore(client *redis.Client, sessionID string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, sessionID: sessionID, ttl: ttl}
}

// Load reads the persisted snapshot. A missing record is an empty cart, not
// an error.
func (s *Store) Load(ctx context.Context) (cart.State, error) {
	if s == nil || s.client == nil {
		return cart.State{}, errors.New("session store not configured")
	}
	data, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cart.State{}, nil
		}
		return cart.State{}, fmt.Errorf("load session %s: %w", s.sessionID, err)
	}
	var state cart.State
	if err := json.Unmarshal(data, &state); err != nil {
		return cart.State{}, fmt.Errorf("decode session %s: %w", s.sessionID, err)
	}
	return state, nil
}

// Save overwrites the snapshot and refreshes the session TTL.
func (s *Store) Save(ctx context.Context, state cart.State) error {
	if s == nil || s.client == nil {
		return errors.New("session store not configured")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.sessionID, err)
	}
	if err := s.client.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.sessionID, err)
	}
	return nil
}

func (s *Store) key() string {
	return keyPrefix + s.sessionID
}
