package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TikTokMessage is one chat event from the live connector sidecar. The
// connector provides no message identifier and no backlog.
type TikTokMessage struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// TikTokClient is the contract with the TikTok live connector sidecar.
type TikTokClient interface {
	// Connect asks the sidecar to join a user's live room. It fails when
	// the user is not currently live.
	Connect(ctx context.Context, username string) error
	// Messages drains chat events buffered by the sidecar since the last
	// call.
	Messages(ctx context.Context) ([]TikTokMessage, error)
}

// HTTPTikTokClient talks to the connector sidecar over HTTP.
type HTTPTikTokClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTikTokClient(baseURL string) *HTTPTikTokClient {
	return &HTTPTikTokClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPTikTokClient) Connect(ctx context.Context, username string) error {
	if c.baseURL == "" {
		return fmt.Errorf("tiktok connector not configured")
	}

	body, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tiktok/connect", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok connector request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("tiktok connector status %d", res.StatusCode)
	}

	var parsed struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode connect response: %w", err)
	}
	if !parsed.Success {
		return fmt.Errorf("tiktok connection failed")
	}
	return nil
}

func (c *HTTPTikTokClient) Messages(ctx context.Context) ([]TikTokMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tiktok/messages", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok connector request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("tiktok connector status %d", res.StatusCode)
	}

	var messages []TikTokMessage
	if err := json.NewDecoder(res.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

// tiktokDedupKey synthesizes a message identity for a source that issues
// none. Bucketing arrival time by the poll cadence means the same event
// seen across adjacent polls dedups, while a genuine repeat later gets
// spoken again.
func tiktokDedupKey(author, text string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = 2 * time.Second
	}
	return author + "|" + text + "|" + strconv.FormatInt(at.UnixNano()/int64(bucket), 10)
}
