// Package youtube integrates with the YouTube Data API and the WebSub push
// hub that delivers upload notifications.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
)

const defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"

// Channel is a resolved source channel. UploadsPlaylistID is the immutable
// "latest content list" handle; it never changes for a channel and is safe
// to cache indefinitely.
type Channel struct {
	ID                string
	Title             string
	UploadsPlaylistID string
}

// Video is one uploaded item.
type Video struct {
	ID          string
	Title       string
	ChannelID   string
	Link        string
	PublishedAt time.Time
}

// Client talks to the YouTube Data API with an API key. Calls are rate
// limited to stay inside the daily quota.
type Client struct {
	apiKey     string
	baseURL    string // configurable for testing
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
}

// ResolveChannel resolves a channel id to its title and uploads playlist.
// Returns domain.ErrNotFoundUpstream when the channel does not exist.
func (c *Client) ResolveChannel(ctx context.Context, channelID string) (*Channel, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", channelID)

	var result struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
			ContentDetails struct {
				RelatedPlaylists struct {
					Uploads string `json:"uploads"`
				} `json:"relatedPlaylists"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/channels", params, &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, domain.ErrNotFoundUpstream
	}

	item := result.Items[0]
	return &Channel{
		ID:                item.ID,
		Title:             item.Snippet.Title,
		UploadsPlaylistID: item.ContentDetails.RelatedPlaylists.Uploads,
	}, nil
}

// LatestVideo fetches the most recent item of an uploads playlist. Returns
// (nil, nil) for an empty playlist.
func (c *Client) LatestVideo(ctx context.Context, playlistID string) (*Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", "1")

	var result struct {
		Items []struct {
			Snippet struct {
				Title       string    `json:"title"`
				ChannelID   string    `json:"channelId"`
				PublishedAt time.Time `json:"publishedAt"`
				ResourceID  struct {
					VideoID string `json:"videoId"`
				} `json:"resourceId"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/playlistItems", params, &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	sn := result.Items[0].Snippet
	return &Video{
		ID:          sn.ResourceID.VideoID,
		Title:       sn.Title,
		ChannelID:   sn.ChannelID,
		Link:        WatchURL(sn.ResourceID.VideoID),
		PublishedAt: sn.PublishedAt,
	}, nil
}

// WatchURL is the canonical link for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read api response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFoundUpstream
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse api response: %w", err)
	}
	return nil
}
