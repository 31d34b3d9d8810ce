package broadcast

import "encoding/json"

// Message is the envelope of every server-initiated websocket message.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}
