package gateway

import "encoding/json"

// Inbound message type names (client -> server), per the realtime protocol.
const (
	inRegister           = "register"
	inMatchmakingStart   = "matchmaking:start"
	inMatchmakingCancel  = "matchmaking:cancel"
	inGameGuess          = "game:guess"
	inGameForfeit        = "game:forfeit"
	inGameRejoin         = "game:rejoin"
)

// Outbound message type names (server -> client).
const (
	outMatchmakingSearching  = "matchmaking:searching"
	outMatchmakingCancelled  = "matchmaking:cancelled"
	outGameStart             = "game:start"
	outGameGuessResult       = "game:guess:result"
	outGameGuessInvalid      = "game:guess:invalid"
	outGameOpponentGuess     = "game:opponent:guess"
	outGameRejoined          = "game:rejoined"
	outGameNotFound          = "game:notfound"
	outGameEnd               = "game:end"
	outError                 = "error"
)

// inboundEnvelope is the wire shape of every client->server message: a type
// tag plus an opaque payload the dispatcher re-decodes per type.
type inboundEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// outboundEnvelope is the wire shape of every server->client message.
type outboundEnvelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func envelope(msgType string, payload interface{}) outboundEnvelope {
	return outboundEnvelope{Type: msgType, Payload: payload}
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorEnvelope(code, message string) outboundEnvelope {
	return envelope(outError, errorPayload{Message: code + ": " + message})
}

// guessInvalidPayload matches §6's game:guess:invalid shape, which names its
// field "error" rather than the generic error envelope's "message".
type guessInvalidPayload struct {
	Error string `json:"error"`
}

// registerPayload binds a connection to an identity. Per §4.H the connection
// is already authenticated at handshake; this just tells the gateway which
// profile fields (display name, current rating) to carry into matches.
type registerPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Elo      int    `json:"elo"`
}

type matchmakingStartPayload struct {
	Username string `json:"username"`
	Elo      int    `json:"elo"`
}

type guessPayload struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}

type gameIDPayload struct {
	GameID string `json:"gameId"`
}
