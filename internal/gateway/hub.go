package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"

	"speedwordle/internal/config"
	"speedwordle/internal/logging"
	"speedwordle/internal/match"
	"speedwordle/internal/matchmaking"
	"speedwordle/internal/session"
)

// Hub owns the set of live connections and is the single place inbound
// messages are routed from and outbound events are routed to. It implements
// match.Publisher directly: every match lifecycle event reaches here and is
// fanned out to whichever client handles currently hold that player's
// session.
type Hub struct {
	cfg      config.SecurityConfig
	security *SecurityMiddleware
	auth     *TokenVerifier
	engine   *match.Engine
	queue    *matchmaking.Queue
	logger   *logging.Logger

	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(cfg config.SecurityConfig, security *SecurityMiddleware, auth *TokenVerifier, engine *match.Engine, queue *matchmaking.Queue, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:        cfg,
		security:   security,
		auth:       auth,
		engine:     engine,
		queue:      queue,
		logger:     logger,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[string]*Client),
	}
}

// SetEngine binds the match engine after construction. The engine and hub
// reference each other (the engine publishes through the hub, the hub
// dispatches into the engine), so one side has to be wired second; callers
// must call this before Run.
func (h *Hub) SetEngine(engine *match.Engine) {
	h.engine = engine
}

// Run drives connection lifecycle and matchmaking-outcome delivery until ctx
// is cancelled. Intended as a single long-lived background goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleClientRegister(c)
		case c := <-h.unregister:
			h.handleClientUnregister(ctx, c)
		case paired, ok := <-h.queue.Paired():
			if !ok {
				continue
			}
			h.handlePaired(ctx, paired)
		case spawn, ok := <-h.queue.BotSpawns():
			if !ok {
				continue
			}
			h.handleBotSpawn(ctx, spawn)
		}
	}
}

func (h *Hub) handleClientRegister(c *Client) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	h.mu.Unlock()
}

func (h *Hub) handleClientUnregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID())
	h.mu.Unlock()

	if h.security != nil {
		h.security.OnConnectionClosed(c.ID())
	}

	if playerID, nowEmpty := h.engine.Sessions().Unregister(c); nowEmpty && playerID != "" {
		h.engine.Disconnect(ctx, playerID)
	}
}

func (h *Hub) handlePaired(ctx context.Context, p matchmaking.Paired) {
	a := h.playerInitFor(p.A)
	b := h.playerInitFor(p.B)
	h.engine.CreateMatch(ctx, a, b)
}

func (h *Hub) handleBotSpawn(ctx context.Context, spawn matchmaking.BotSpawn) {
	human := h.playerInitFor(spawn.Entry)
	h.engine.CreateBotMatch(ctx, human, spawn.Difficulty, spawn.BotRating)
}

func (h *Hub) playerInitFor(entry matchmaking.QueueEntry) match.PlayerInit {
	name := entry.PlayerID
	for _, handle := range h.engine.Sessions().HandlesFor(entry.PlayerID) {
		if c, ok := handle.(*Client); ok && c.Username() != "" {
			name = c.Username()
			break
		}
	}
	return match.PlayerInit{ID: entry.PlayerID, DisplayName: name, RatingAtStart: entry.Rating}
}

// dispatch routes one decoded inbound envelope to its handler. Called from
// each client's own readPump goroutine, so handlers must not assume
// exclusive access to anything beyond the per-request work they do.
func (h *Hub) dispatch(c *Client, in inboundEnvelope) {
	switch in.Type {
	case inRegister:
		h.handleRegister(c, in.Payload)
	case inMatchmakingStart:
		h.handleMatchmakingStart(c, in.Payload)
	case inMatchmakingCancel:
		h.handleMatchmakingCancel(c)
	case inGameGuess:
		h.handleGuess(c, in.Payload)
	case inGameForfeit:
		h.handleForfeit(c, in.Payload)
	case inGameRejoin:
		h.handleRejoin(c, in.Payload)
	default:
		c.sendEnvelope(errorEnvelope("INVALID_MESSAGE", "unrecognized message type"))
	}
}

func (h *Hub) requireAuth(c *Client) (string, bool) {
	pid := c.PlayerID()
	if !c.isAuthenticated() || pid == "" {
		c.sendEnvelope(errorEnvelope("NOT_AUTHENTICATED", "this connection has no verified identity"))
		return "", false
	}
	return pid, true
}

func (h *Hub) handleRegister(c *Client, raw json.RawMessage) {
	if !c.isAuthenticated() {
		c.sendEnvelope(errorEnvelope("NOT_AUTHENTICATED", "handshake did not present a valid token"))
		return
	}
	var req registerPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendEnvelope(errorEnvelope("INVALID_MESSAGE", "malformed register payload"))
		return
	}
	// The token already fixed this connection's identity; the payload only
	// supplies display profile fields the token claims may not carry.
	c.setProfile(req.Username, req.Elo)
	h.engine.Sessions().Register(c.PlayerID(), c)
}

func (h *Hub) handleMatchmakingStart(c *Client, raw json.RawMessage) {
	pid, ok := h.requireAuth(c)
	if !ok {
		return
	}
	var req matchmakingStartPayload
	_ = json.Unmarshal(raw, &req)
	if req.Username != "" || req.Elo != 0 {
		c.setProfile(req.Username, req.Elo)
	}

	elo := c.Elo()
	if err := h.queue.Enqueue(context.Background(), pid, elo); err != nil {
		if h.logger != nil {
			h.logger.LogError(context.Background(), err, "gateway: matchmaking enqueue failed", "player_id", pid)
		}
		c.sendEnvelope(errorEnvelope("INTERNAL", "failed to enter matchmaking"))
		return
	}
	c.sendEnvelope(envelope(outMatchmakingSearching, nil))
}

func (h *Hub) handleMatchmakingCancel(c *Client) {
	pid, ok := h.requireAuth(c)
	if !ok {
		return
	}
	_ = h.queue.Cancel(context.Background(), pid)
	c.sendEnvelope(envelope(outMatchmakingCancelled, nil))
}

func (h *Hub) handleGuess(c *Client, raw json.RawMessage) {
	pid, ok := h.requireAuth(c)
	if !ok {
		return
	}
	var req guessPayload
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendEnvelope(errorEnvelope("INVALID_MESSAGE", "malformed guess payload"))
		return
	}
	if !h.verifyMatch(c, pid, req.GameID) {
		return
	}
	_ = h.engine.SubmitGuess(context.Background(), pid, req.Guess)
}

func (h *Hub) handleForfeit(c *Client, raw json.RawMessage) {
	pid, ok := h.requireAuth(c)
	if !ok {
		return
	}
	req, ok := decodeGameIDPayload(raw)
	if !ok {
		c.sendEnvelope(errorEnvelope("INVALID_MESSAGE", "malformed forfeit payload"))
		return
	}
	if !h.verifyMatch(c, pid, req.GameID) {
		return
	}
	_ = h.engine.Forfeit(context.Background(), pid)
}

func (h *Hub) handleRejoin(c *Client, raw json.RawMessage) {
	pid, ok := h.requireAuth(c)
	if !ok {
		return
	}
	req, ok := decodeGameIDPayload(raw)
	if !ok {
		c.sendEnvelope(errorEnvelope("INVALID_MESSAGE", "malformed rejoin payload"))
		return
	}
	if !h.verifyMatch(c, pid, req.GameID) {
		return
	}
	_ = h.engine.Rejoin(context.Background(), pid)
}

// decodeGameIDPayload treats a missing payload (no gameId supplied) as valid
// rather than malformed: forfeit/rejoin worked without a payload before gameId
// validation existed, and clients that still omit it just skip the check.
func decodeGameIDPayload(raw json.RawMessage) (gameIDPayload, bool) {
	var req gameIDPayload
	if len(raw) == 0 {
		return req, true
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, false
	}
	return req, true
}

// verifyMatch confirms a client-supplied gameId, when present, names the
// player's actual current match. An empty gameId is accepted as "whichever
// match I'm in" since a player holds at most one live match at a time.
func (h *Hub) verifyMatch(c *Client, playerID, gameID string) bool {
	if gameID == "" {
		return true
	}
	current, ok := h.engine.CurrentMatchID(playerID)
	if !ok || current != gameID {
		c.sendEnvelope(errorEnvelope("WRONG_MATCH", "gameId does not match your current match"))
		return false
	}
	return true
}

func (h *Hub) sendToPlayer(playerID string, env outboundEnvelope) {
	for _, handle := range h.engine.Sessions().HandlesFor(playerID) {
		if c, ok := handle.(*Client); ok {
			c.sendEnvelope(env)
		}
	}
}

// The following satisfy match.Publisher.

func (h *Hub) MatchStarted(playerID string, event match.MatchStartedEvent) {
	h.sendToPlayer(playerID, envelope(outGameStart, event))
}

func (h *Hub) GuessResult(playerID string, event match.GuessResultEvent) {
	h.sendToPlayer(playerID, envelope(outGameGuessResult, event))
}

func (h *Hub) GuessInvalid(playerID string, reason string) {
	h.sendToPlayer(playerID, envelope(outGameGuessInvalid, guessInvalidPayload{Error: reason}))
}

func (h *Hub) OpponentGuess(playerID string, event match.OpponentGuessEvent) {
	h.sendToPlayer(playerID, envelope(outGameOpponentGuess, event))
}

func (h *Hub) Rejoined(playerID string, event match.RejoinedEvent) {
	h.sendToPlayer(playerID, envelope(outGameRejoined, event))
}

func (h *Hub) MatchNotFound(playerID string) {
	h.sendToPlayer(playerID, envelope(outGameNotFound, nil))
}

func (h *Hub) MatchEnded(playerID string, event match.MatchEndedEvent) {
	h.sendToPlayer(playerID, envelope(outGameEnd, event))
}

var _ match.Publisher = (*Hub)(nil)
var _ session.Handle = (*Client)(nil)

func generateClientID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "client-fallback"
	}
	return hex.EncodeToString(buf)
}
