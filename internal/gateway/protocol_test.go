package gateway

import (
	"encoding/json"
	"testing"
)

func TestInboundEnvelopeDecode(t *testing.T) {
	raw := `{"type":"game:guess","payload":{"gameId":"abc123","guess":"crane"}}`

	var env inboundEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env.Type != inGameGuess {
		t.Errorf("Type = %q, want %q", env.Type, inGameGuess)
	}

	var payload guessPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if payload.GameID != "abc123" || payload.Guess != "crane" {
		t.Errorf("payload = %+v, want {GameID: abc123, Guess: crane}", payload)
	}
}

func TestOutboundEnvelopeEncode(t *testing.T) {
	env := envelope(outGameGuessResult, gameIDPayload{GameID: "xyz"})

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["type"] != outGameGuessResult {
		t.Errorf("type = %v, want %v", decoded["type"], outGameGuessResult)
	}
	payload, ok := decoded["payload"].(map[string]interface{})
	if !ok {
		t.Fatalf("payload is not an object: %v", decoded["payload"])
	}
	if payload["gameId"] != "xyz" {
		t.Errorf("payload.gameId = %v, want xyz", payload["gameId"])
	}
}

func TestErrorEnvelopeFormatsCodeAndMessage(t *testing.T) {
	env := errorEnvelope("NOT_AUTHENTICATED", "token missing")

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		Type    string `json:"type"`
		Payload errorPayload
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Type != outError {
		t.Errorf("type = %q, want %q", decoded.Type, outError)
	}
	want := "NOT_AUTHENTICATED: token missing"
	if decoded.Payload.Message != want {
		t.Errorf("message = %q, want %q", decoded.Payload.Message, want)
	}
}

func TestGuessInvalidPayloadUsesErrorField(t *testing.T) {
	p := guessInvalidPayload{Error: "not in word list"}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"error":"not in word list"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestRegisterPayloadRoundTrip(t *testing.T) {
	raw := `{"id":"player-1","username":"Alice","elo":1250}`

	var p registerPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.ID != "player-1" || p.Username != "Alice" || p.Elo != 1250 {
		t.Errorf("registerPayload = %+v, want {ID: player-1, Username: Alice, Elo: 1250}", p)
	}
}

func TestMatchmakingStartPayloadRoundTrip(t *testing.T) {
	raw := `{"username":"Bob","elo":900}`

	var p matchmakingStartPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Username != "Bob" || p.Elo != 900 {
		t.Errorf("matchmakingStartPayload = %+v, want {Username: Bob, Elo: 900}", p)
	}
}
