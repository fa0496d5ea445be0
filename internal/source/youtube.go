package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// YouTubeMessage is one live chat item as returned by the Data API.
type YouTubeMessage struct {
	ID     string
	Author string
	Text   string
}

// YouTubeBatch is one page of live chat messages plus polling guidance.
type YouTubeBatch struct {
	Items              []YouTubeMessage
	NextPageToken      string
	PollIntervalMillis int
}

// YouTubeClient is the slice of the YouTube Data API the poller needs.
type YouTubeClient interface {
	// LiveChatID resolves a video's active live chat, failing when the
	// video is missing, not live, or has chat disabled.
	LiveChatID(ctx context.Context, videoID string) (string, error)
	// Messages fetches the next page of chat. An empty pageToken starts
	// from the backend's default window.
	Messages(ctx context.Context, liveChatID, pageToken string) (YouTubeBatch, error)
	// FindLiveVideoID searches a channel for a currently-live broadcast.
	FindLiveVideoID(ctx context.Context, channelIdentifier string) (string, error)
}

// HTTPYouTubeClient talks to the YouTube Data API v3.
type HTTPYouTubeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewHTTPYouTubeClient(apiKey, baseURL string) *HTTPYouTubeClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://www.googleapis.com/youtube/v3"
	}
	return &HTTPYouTubeClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPYouTubeClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("youtube api request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read youtube api response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("youtube api: %s", apiErr.Error.Message)
		}
		return fmt.Errorf("youtube api status %d", res.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode youtube api response: %w", err)
	}
	return nil
}

func (c *HTTPYouTubeClient) LiveChatID(ctx context.Context, videoID string) (string, error) {
	params := url.Values{}
	params.Set("part", "liveStreamingDetails")
	params.Set("id", videoID)

	var parsed struct {
		Items []struct {
			LiveStreamingDetails struct {
				ActiveLiveChatID string `json:"activeLiveChatId"`
			} `json:"liveStreamingDetails"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/videos", params, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Items) == 0 {
		return "", fmt.Errorf("video not found or not a live stream")
	}
	chatID := parsed.Items[0].LiveStreamingDetails.ActiveLiveChatID
	if chatID == "" {
		return "", fmt.Errorf("no active live chat found")
	}
	return chatID, nil
}

func (c *HTTPYouTubeClient) Messages(ctx context.Context, liveChatID, pageToken string) (YouTubeBatch, error) {
	params := url.Values{}
	params.Set("liveChatId", liveChatID)
	params.Set("part", "snippet,authorDetails")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var parsed struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				DisplayMessage string `json:"displayMessage"`
			} `json:"snippet"`
			AuthorDetails struct {
				DisplayName string `json:"displayName"`
			} `json:"authorDetails"`
		} `json:"items"`
		NextPageToken         string `json:"nextPageToken"`
		PollingIntervalMillis int    `json:"pollingIntervalMillis"`
	}
	if err := c.get(ctx, "/liveChat/messages", params, &parsed); err != nil {
		return YouTubeBatch{}, err
	}

	batch := YouTubeBatch{
		NextPageToken:      parsed.NextPageToken,
		PollIntervalMillis: parsed.PollingIntervalMillis,
	}
	for _, item := range parsed.Items {
		batch.Items = append(batch.Items, YouTubeMessage{
			ID:     item.ID,
			Author: item.AuthorDetails.DisplayName,
			Text:   item.Snippet.DisplayMessage,
		})
	}
	return batch, nil
}

func (c *HTTPYouTubeClient) FindLiveVideoID(ctx context.Context, channelIdentifier string) (string, error) {
	channelID := channelIdentifier

	if strings.HasPrefix(channelIdentifier, "@") {
		handle := strings.TrimPrefix(channelIdentifier, "@")

		id, err := c.channelID(ctx, "forHandle", handle)
		if err != nil {
			// Older channels are only resolvable by legacy username.
			id, err = c.channelID(ctx, "forUsername", handle)
			if err != nil {
				return "", fmt.Errorf("channel not found: %w", err)
			}
		}
		channelID = id
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("eventType", "live")
	params.Set("type", "video")

	var parsed struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/search", params, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Items) == 0 {
		return "", fmt.Errorf("no live streams found")
	}
	return parsed.Items[0].ID.VideoID, nil
}

func (c *HTTPYouTubeClient) channelID(ctx context.Context, param, value string) (string, error) {
	params := url.Values{}
	params.Set("part", "id")
	params.Set(param, value)

	var parsed struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/channels", params, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Items) == 0 {
		return "", fmt.Errorf("no channel matched %s=%s", param, value)
	}
	return parsed.Items[0].ID, nil
}

var (
	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`),
		regexp.MustCompile(`youtube\.com/live/([^&\n?#]+)`),
	}
	channelIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`@([^/?]+)`),
		regexp.MustCompile(`channel/([^/?]+)`),
	}
)

// ExtractVideoID pulls the video id out of a watch/short/live URL.
func ExtractVideoID(rawURL string) (string, bool) {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExtractChannelIdentifier pulls a handle or channel id out of a channel
// URL. Handles keep their "@" prefix so lookup knows which API to use.
func ExtractChannelIdentifier(rawURL string) (string, bool) {
	if m := channelIDPatterns[0].FindStringSubmatch(rawURL); m != nil {
		return "@" + m[1], true
	}
	if m := channelIDPatterns[1].FindStringSubmatch(rawURL); m != nil {
		return m[1], true
	}
	return "", false
}
