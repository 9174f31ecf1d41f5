/**
 * @description
 * This package provides a client for the SMS gateway. The ledger sends
 * verification codes and settlement receipts through it; delivery is
 * best-effort and never blocks a money movement.
 */
package smsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sender delivers an SMS to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// Client is a client for the SMS gateway.
type Client struct {
	baseURL    string
	apiKey     string
	senderName string
	httpClient *http.Client
}

// NewClient creates a new SMS gateway client.
func NewClient(baseURL, apiKey, senderName string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		senderName: senderName,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// Send posts a message to the gateway. Returns an error on transport or
// gateway failure; callers decide whether delivery is critical.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	if c.baseURL == "" {
		return fmt.Errorf("sms gateway base url is empty")
	}

	url := fmt.Sprintf("%s/v1/messages", c.baseURL)

	body, err := json.Marshal(sendRequest{To: phone, From: c.senderName, Message: message})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sms gateway returned error status %d", resp.StatusCode)
	}
	return nil
}

// NoopSender drops messages, used when no gateway is configured.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, phone, message string) error {
	return nil
}
