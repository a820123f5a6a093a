package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client delivers rendered notifications to the external push gateway
// over HTTP. The gateway wraps the platform services (APNs/FCM) and is
// out of scope for the engine.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type deliverRequest struct {
	RecipientID string            `json:"recipient_id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

type deliverResponse struct {
	Accepted bool `json:"accepted"`
}

// Deliver sends one message to one recipient. A false return with nil
// error means the gateway rejected the recipient (unknown device, opted
// out); an error means the gateway itself was unreachable.
func (c *Client) Deliver(ctx context.Context, recipientID, title, body string, payload map[string]string) (bool, error) {
	reqBody, err := json.Marshal(deliverRequest{
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		Data:        payload,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode delivery request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/deliver", bytes.NewReader(reqBody))
	if err != nil {
		return false, fmt.Errorf("failed to build delivery request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("push gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return false, fmt.Errorf("push gateway error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		// 4xx: gateway refused this recipient
		return false, nil
	}

	var out deliverResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode delivery response: %v", err)
	}
	return out.Accepted, nil
}
