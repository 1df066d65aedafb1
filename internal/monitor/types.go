package monitor

import "encoding/json"

// Envelope WS envelope: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

const (
	TypeHello  = "hello"
	TypeFrame  = "frame"
	TypeResult = "result"
)

type HelloPayload struct {
	Games []string `json:"games"`
}

// FramePayload is one frame as it was sent to the bot, plus its board drawing.
type FramePayload struct {
	Game string `json:"game"`
	ID   int    `json:"id"`
	Wire string `json:"wire"`
	Text string `json:"text"`
}

type ResultPayload struct {
	Game      string `json:"game"`
	Result    string `json:"result"`
	Plies     int    `json:"plies"`
	Fallbacks int    `json:"fallbacks"`
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
