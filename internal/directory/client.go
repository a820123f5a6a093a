package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pakuni-app/notification-engine/internal/models"
)

// Client talks to the user/audience directory service. It backs both the
// targeting resolver (who matches a criterion, per-user template
// bindings) and the scheduler's reminder predicate (event dates for
// admission deadlines, entry tests and scholarships).
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

type matchRequest struct {
	TargetType models.TargetType `json:"target_type"`
	Criteria   map[string]string `json:"criteria,omitempty"`
}

type matchResponse struct {
	UserIDs []string `json:"user_ids"`
}

// MatchUsers returns the identities matching the targeting criterion.
func (c *Client) MatchUsers(ctx context.Context, targetType models.TargetType, criteria map[string]string) ([]string, error) {
	reqBody, err := json.Marshal(matchRequest{TargetType: targetType, Criteria: criteria})
	if err != nil {
		return nil, fmt.Errorf("failed to encode match request: %v", err)
	}

	var out matchResponse
	if err := c.post(ctx, "/v1/audience/match", reqBody, &out); err != nil {
		return nil, err
	}
	return out.UserIDs, nil
}

// Placeholders returns the per-recipient template bindings known to the
// directory (name, university, program, city).
func (c *Client) Placeholders(ctx context.Context, recipientID string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/users/"+recipientID+"/placeholders", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build placeholders request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return map[string]string{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory error: %s", resp.Status)
	}

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode placeholders: %v", err)
	}
	return out, nil
}

type eventDateRequest struct {
	TriggerType models.TriggerType `json:"trigger_type"`
	Criteria    map[string]string  `json:"criteria,omitempty"`
}

type eventDateResponse struct {
	EventDate time.Time `json:"event_date"`
}

// GetEventDate resolves the external event date a reminder trigger counts
// down to.
func (c *Client) GetEventDate(ctx context.Context, triggerType models.TriggerType, criteria map[string]string) (time.Time, error) {
	reqBody, err := json.Marshal(eventDateRequest{TriggerType: triggerType, Criteria: criteria})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to encode event date request: %v", err)
	}

	var out eventDateResponse
	if err := c.post(ctx, "/v1/events/date", reqBody, &out); err != nil {
		return time.Time{}, err
	}
	return out.EventDate, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build directory request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode directory response: %v", err)
	}
	return nil
}
