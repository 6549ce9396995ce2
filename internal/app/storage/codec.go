package storage

import (
	"encoding/json"
	"fmt"

	"chatcast/internal/app/message"
)

// encodeHistory serializes the history as a JSON array of [sender, body] records.
func encodeHistory(history []message.Message) ([]byte, error) {
	if history == nil {
		history = []message.Message{}
	}

	data, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return data, nil
}

// decodeHistory parses the record format written by encodeHistory.
func decodeHistory(data []byte) ([]message.Message, error) {
	var history []message.Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return history, nil
}
