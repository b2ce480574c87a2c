package streaming

import (
	"encoding/json"

	"github.com/onthepitch/matchsim/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartMatch = "start_match"
	TypeEndMatch   = "end_match"
	TypeFrame      = "frame"
	TypeGoal       = "goal"
	TypeFoul       = "foul"
	TypePossession = "possession"
	TypeTelemetry  = "telemetry"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMatchPayload carries the match header.
type StartMatchPayload struct {
	Match *core.Match `json:"match"`
}

// EndMatchPayload carries the final score sheet.
type EndMatchPayload struct {
	Result *core.MatchResult `json:"result"`
}
