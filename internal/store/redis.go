package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"speedwordle/internal/logging"
)

// RedisStore is the production Store backend. Match state lives under
// "match:{id}" with a TTL on the order of an hour; the win-claim primitive
// uses a dedicated "winner:{id}" key written via SETNX so the first
// successful write — and only the first — wins, even under concurrent
// callers across processes.
type RedisStore struct {
	client *redis.Client
	logger *logging.Logger
}

func NewRedisStore(client *redis.Client, logger *logging.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string, out interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return fmt.Errorf("store: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("store: unmarshal %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) TryClaimWinner(ctx context.Context, matchID, playerID string, ttl time.Duration) (bool, error) {
	claim := WinnerClaim{PlayerID: playerID, ClaimedAt: time.Now()}
	data, err := json.Marshal(claim)
	if err != nil {
		return false, fmt.Errorf("store: marshal winner claim: %w", err)
	}

	ok, err := s.client.SetNX(ctx, winnerKey(matchID), data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("store: claim winner for %s: %w", matchID, err)
	}
	if s.logger != nil {
		s.logger.LogGameEvent(ctx, logging.GameEventFields{
			EventType: "win_claim_attempt",
			MatchID:   matchID,
			PlayerID:  playerID,
			GameState: fmt.Sprintf("claimed=%v", ok),
		})
	}
	return ok, nil
}

func (s *RedisStore) ReadWinner(ctx context.Context, matchID string) (*WinnerClaim, error) {
	var claim WinnerClaim
	if err := s.Get(ctx, winnerKey(matchID), &claim); err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}
