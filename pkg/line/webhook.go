package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidSignature reports a webhook body whose X-Line-Signature header
// does not match the channel secret.
var ErrInvalidSignature = errors.New("line: invalid signature")

// Event is one webhook event. Only text-message events matter here; other
// event types parse but carry an empty Message.
type Event struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken"`
	Timestamp  int64        `json:"timestamp"`
	Source     EventSource  `json:"source"`
	Message    EventMessage `json:"message"`
}

// EventSource identifies who sent the event.
type EventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
}

// EventMessage is the message part of a message event.
type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// IsText reports whether the event is an incoming text message.
func (e Event) IsText() bool {
	return e.Type == "message" && e.Message.Type == "text"
}

type webhookBody struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// ValidateSignature checks the X-Line-Signature header against the raw body:
// base64 of the body's HMAC-SHA256 under the channel secret.
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

// ParseWebhook verifies the signature and decodes the webhook events.
func ParseWebhook(channelSecret string, body []byte, signature string) ([]Event, error) {
	if !ValidateSignature(channelSecret, body, signature) {
		return nil, ErrInvalidSignature
	}
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, err
	}
	return wb.Events, nil
}
