// Package matchmaking implements the rating-indexed pairing queue: on
// enqueue it tries an immediate pairing within ±INITIAL_BAND, then a
// background processor retries periodically with a linearly widening
// tolerance band until WAIT_BUDGET elapses, at which point it emits a
// BOT_SPAWN signal for that player.
package matchmaking

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"speedwordle/internal/bot"
	"speedwordle/internal/logging"
)

const (
	queueKey    = "matchmaking:queue"       // ZSET: member=playerID, score=rating
	queueLockKey = "matchmaking:lock"
	lockTimeout  = 3 * time.Second
	entryKeyFmt  = "matchmaking:entry:%s" // per-player JSON blob, TTL'd
)

// QueueEntry is one waiting player.
type QueueEntry struct {
	PlayerID   string    `json:"playerId"`
	Rating     int       `json:"rating"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Paired is emitted when two queued players are matched against each other.
type Paired struct {
	A QueueEntry
	B QueueEntry
}

// BotSpawn is emitted when a player's WAIT_BUDGET elapses without a pairing.
type BotSpawn struct {
	Entry      QueueEntry
	Difficulty bot.Difficulty
	BotRating  int
}

// Config holds the §4.D tuning constants.
type Config struct {
	InitialBand int
	MaxBand     int
	WaitBudget  time.Duration
	RetryEvery  time.Duration
}

// Queue is the Redis ZSET-backed matchmaking queue described by §4.D.
type Queue struct {
	client *redis.Client
	cfg    Config
	logger *logging.Logger

	paired    chan Paired
	botSpawns chan BotSpawn
	stopCh    chan struct{}
}

func NewQueue(client *redis.Client, cfg Config, logger *logging.Logger) *Queue {
	return &Queue{
		client:    client,
		cfg:       cfg,
		logger:    logger,
		paired:    make(chan Paired, 16),
		botSpawns: make(chan BotSpawn, 16),
		stopCh:    make(chan struct{}),
	}
}

func (q *Queue) Paired() <-chan Paired       { return q.paired }
func (q *Queue) BotSpawns() <-chan BotSpawn  { return q.botSpawns }

// Len reports how many players are currently waiting in the queue.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, queueKey).Result()
}

// Run drives the periodic re-pairing pass until ctx is cancelled or Stop is
// called. It is intended to run as a single background goroutine for the
// whole process, mirroring the teacher's ticker + context + done-channel
// background-service shape.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.RetryEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.processQueue(ctx)
		}
	}
}

func (q *Queue) Stop() {
	close(q.stopCh)
}

// Enqueue adds player to the queue and makes one immediate pairing attempt
// within ±InitialBand, per §4.D.
func (q *Queue) Enqueue(ctx context.Context, playerID string, rating int) error {
	entry := QueueEntry{PlayerID: playerID, Rating: rating, EnqueuedAt: time.Now()}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("matchmaking: marshal entry: %w", err)
	}

	ttl := q.cfg.WaitBudget + q.cfg.RetryEvery
	if err := q.client.Set(ctx, fmt.Sprintf(entryKeyFmt, playerID), data, ttl).Err(); err != nil {
		return fmt.Errorf("matchmaking: store entry: %w", err)
	}
	if err := q.client.ZAdd(ctx, queueKey, redis.Z{Score: float64(rating), Member: playerID}).Err(); err != nil {
		return fmt.Errorf("matchmaking: zadd: %w", err)
	}

	q.attemptImmediatePair(ctx, entry)
	return nil
}

// Cancel removes playerID from the queue and halts its retry schedule (the
// processor simply stops seeing it on the next pass).
func (q *Queue) Cancel(ctx context.Context, playerID string) error {
	if err := q.client.ZRem(ctx, queueKey, playerID).Err(); err != nil {
		return fmt.Errorf("matchmaking: zrem: %w", err)
	}
	return q.client.Del(ctx, fmt.Sprintf(entryKeyFmt, playerID)).Err()
}

func (q *Queue) attemptImmediatePair(ctx context.Context, entry QueueEntry) {
	opponent, ok, err := q.FindOpponent(ctx, entry, q.cfg.InitialBand)
	if err != nil || !ok {
		return
	}
	q.completePairing(ctx, entry, *opponent)
}

// FindOpponent looks for any other live queue entry within ±toleranceBand of
// player's rating.
func (q *Queue) FindOpponent(ctx context.Context, player QueueEntry, toleranceBand int) (*QueueEntry, bool, error) {
	min := float64(player.Rating - toleranceBand)
	max := float64(player.Rating + toleranceBand)

	results, err := q.client.ZRangeByScoreWithScores(ctx, queueKey, &redis.ZRangeBy{
		Min: fmt.Sprintf("%f", min),
		Max: fmt.Sprintf("%f", max),
	}).Result()
	if err != nil {
		return nil, false, fmt.Errorf("matchmaking: range by score: %w", err)
	}

	for _, z := range results {
		candidateID, _ := z.Member.(string)
		if candidateID == player.PlayerID {
			continue
		}
		candidate, live := q.loadLiveEntry(ctx, candidateID)
		if !live {
			continue
		}
		return candidate, true, nil
	}
	return nil, false, nil
}

// loadLiveEntry reads back a queue entry's data blob, treating a missing
// blob as a stale ZSET member (its owning connection vanished).
func (q *Queue) loadLiveEntry(ctx context.Context, playerID string) (*QueueEntry, bool) {
	data, err := q.client.Get(ctx, fmt.Sprintf(entryKeyFmt, playerID)).Bytes()
	if err != nil {
		return nil, false
	}
	var entry QueueEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

func (q *Queue) completePairing(ctx context.Context, a, b QueueEntry) {
	locked, err := q.client.SetNX(ctx, queueLockKey+":"+a.PlayerID+":"+b.PlayerID, "1", lockTimeout).Result()
	if err != nil || !locked {
		return
	}

	removedA, _ := q.client.ZRem(ctx, queueKey, a.PlayerID).Result()
	removedB, _ := q.client.ZRem(ctx, queueKey, b.PlayerID).Result()
	if removedA == 0 || removedB == 0 {
		// One side was already claimed by a concurrent pairing attempt;
		// put back whichever side we actually removed.
		if removedA > 0 {
			q.client.ZAdd(ctx, queueKey, redis.Z{Score: float64(a.Rating), Member: a.PlayerID})
		}
		if removedB > 0 {
			q.client.ZAdd(ctx, queueKey, redis.Z{Score: float64(b.Rating), Member: b.PlayerID})
		}
		return
	}

	q.client.Del(ctx, fmt.Sprintf(entryKeyFmt, a.PlayerID), fmt.Sprintf(entryKeyFmt, b.PlayerID))

	if q.logger != nil {
		q.logger.LogInfo(ctx, "matchmaking pair found", "player_a", a.PlayerID, "player_b", b.PlayerID)
	}
	q.paired <- Paired{A: a, B: b}
}

// processQueue implements the periodic retry pass: acquire a short-lived
// global lock, read every waiting entry, widen each one's tolerance band by
// elapsed wait time, and either pair it or, past WAIT_BUDGET, spawn a bot.
func (q *Queue) processQueue(ctx context.Context) {
	locked, err := q.client.SetNX(ctx, queueLockKey, "1", lockTimeout).Result()
	if err != nil || !locked {
		return
	}
	defer q.client.Del(ctx, queueLockKey)

	members, err := q.client.ZRangeWithScores(ctx, queueKey, 0, -1).Result()
	if err != nil {
		if q.logger != nil {
			q.logger.LogError(ctx, err, "matchmaking: failed to read queue")
		}
		return
	}

	for _, z := range members {
		playerID, _ := z.Member.(string)
		entry, live := q.loadLiveEntry(ctx, playerID)
		if !live {
			q.client.ZRem(ctx, queueKey, playerID)
			continue
		}

		waited := time.Since(entry.EnqueuedAt)
		if waited >= q.cfg.WaitBudget {
			q.spawnBot(ctx, *entry)
			continue
		}

		band := q.expandedBand(waited)
		opponent, ok, err := q.FindOpponent(ctx, *entry, band)
		if err != nil || !ok {
			continue
		}
		q.completePairing(ctx, *entry, *opponent)
	}
}

// expandedBand grows linearly from InitialBand to MaxBand over WaitBudget.
func (q *Queue) expandedBand(waited time.Duration) int {
	if q.cfg.WaitBudget <= 0 {
		return q.cfg.InitialBand
	}
	fraction := waited.Seconds() / q.cfg.WaitBudget.Seconds()
	fraction = math.Min(fraction, 1.0)
	band := float64(q.cfg.InitialBand) + fraction*float64(q.cfg.MaxBand-q.cfg.InitialBand)
	return int(band)
}

func (q *Queue) spawnBot(ctx context.Context, entry QueueEntry) {
	if err := q.client.ZRem(ctx, queueKey, entry.PlayerID).Err(); err != nil {
		return
	}
	q.client.Del(ctx, fmt.Sprintf(entryKeyFmt, entry.PlayerID))

	difficulty, botRating := bot.SelectForRating(entry.Rating)
	if q.logger != nil {
		q.logger.LogInfo(ctx, "matchmaking bot spawn", "player_id", entry.PlayerID, "difficulty", string(difficulty))
	}
	q.botSpawns <- BotSpawn{Entry: entry, Difficulty: difficulty, BotRating: botRating}
}
