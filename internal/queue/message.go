package queue

import "encoding/json"

// CurrentVersion is the payload version written by Send.
const CurrentVersion = 1

// Message asks a worker to process one stored screening.
type Message struct {
	ScreeningID string `json:"screeningId"`
	RequestID   string `json:"requestId"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
