package notify

import (
	"encoding/json"
	"time"
)

// NotificationMessage is the JSON body published for downstream push
// delivery.
type NotificationMessage struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Icon      string    `json:"icon"`
	Recipient string    `json:"recipient"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotificationMessage builds the wire message for n.
func NewNotificationMessage(n Notification) *NotificationMessage {
	return &NotificationMessage{
		Title:     n.Title,
		Body:      n.Body,
		Icon:      n.IconRef,
		Recipient: n.Recipient,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes a published message.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
