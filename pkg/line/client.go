// Package line provides a minimal LINE Messaging API client: webhook
// signature verification, event parsing, and text/flex replies.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.line.me"

// Client sends reply messages through the LINE Messaging API.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewClient creates a Messaging API client with the channel access token.
func NewClient(accessToken string) *Client {
	return &Client{
		baseURL:     defaultAPIBase,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithBase overrides the API base URL. Used in tests.
func NewClientWithBase(accessToken, baseURL string) *Client {
	c := NewClient(accessToken)
	c.baseURL = baseURL
	return c
}

// Message is one outgoing message object in a reply.
type Message map[string]any

// TextMessage builds a plain text message.
func TextMessage(text string) Message {
	return Message{"type": "text", "text": text}
}

// FlexMessage builds a flex message with the given alt text and contents.
func FlexMessage(altText string, contents map[string]any) Message {
	return Message{"type": "flex", "altText": altText, "contents": contents}
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

// Reply sends up to five messages in response to a webhook event.
func (c *Client) Reply(ctx context.Context, replyToken string, messages ...Message) error {
	body, err := json.Marshal(replyRequest{ReplyToken: replyToken, Messages: messages})
	if err != nil {
		return fmt.Errorf("line: marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/bot/message/reply", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("line: reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("line: reply status %d", resp.StatusCode)
	}
	return nil
}
