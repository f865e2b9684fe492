package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmorowitz/media-monitor/internal/config"
	"github.com/mmorowitz/media-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	youtubeAPIURL    = "https://www.googleapis.com/youtube/v3"
	youtubePageLimit = 50
)

// YouTubeSource polls channel uploads via the YouTube Data API.
// Sub-sources are channel ids; display uses the resolved channel name,
// falling back to the raw id when resolution fails.
type YouTubeSource struct {
	cfg          config.SourceConfig
	set          subsourceSet
	client       *resty.Client
	baseURL      string
	channelNames map[string]string // channel id -> display name, cached per run
}

var _ Source = (*YouTubeSource)(nil)

type youtubeChannelsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			ChannelID   string `json:"channelId"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// NewYouTube creates a YouTube source from its configuration block.
func NewYouTube(cfg config.SourceConfig) *YouTubeSource {
	return &YouTubeSource{
		cfg:          cfg,
		set:          newSubsourceSet(cfg),
		client:       resty.New().SetTimeout(30 * time.Second),
		baseURL:      youtubeAPIURL,
		channelNames: make(map[string]string),
	}
}

func (y *YouTubeSource) Name() string {
	return "youtube"
}

func (y *YouTubeSource) Enabled() bool {
	return y.cfg.Enabled && y.cfg.APIKey != ""
}

func (y *YouTubeSource) NewItemsSince(ctx context.Context, cutoff time.Time) ([]models.Item, error) {
	return collectItems(ctx, y.Name(), y, y.set, cutoff), nil
}

// prefetch resolves channel display names in one bulk request instead
// of one lookup per channel. Failures are logged and leave the raw id
// as the display value.
func (y *YouTubeSource) prefetch(ctx context.Context, channelIDs []string) {
	var missing []string
	for _, id := range channelIDs {
		if _, ok := y.channelNames[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "snippet",
			"id":   strings.Join(missing, ","),
			"key":  y.cfg.APIKey,
		}).
		Get(y.baseURL + "/channels")

	if err != nil {
		logrus.Errorf("Failed to resolve YouTube channel names: %v", err)
		return
	}
	if resp.StatusCode() != 200 {
		logrus.Errorf("YouTube channels API returned status %d", resp.StatusCode())
		return
	}

	var channels youtubeChannelsResponse
	if err := json.Unmarshal(resp.Body(), &channels); err != nil {
		logrus.Errorf("Failed to parse YouTube channels response: %v", err)
		return
	}

	for _, channel := range channels.Items {
		if channel.Snippet.Title != "" {
			y.channelNames[channel.ID] = channel.Snippet.Title
		}
	}
}

func (y *YouTubeSource) fetchSince(ctx context.Context, channelID string, cutoff time.Time) ([]models.Item, error) {
	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part":           "snippet",
			"channelId":      channelID,
			"publishedAfter": cutoff.UTC().Format(time.RFC3339),
			"maxResults":     fmt.Sprintf("%d", youtubePageLimit),
			"order":          "date",
			"type":           "video",
			"key":            y.cfg.APIKey,
		}).
		Get(y.baseURL + "/search")

	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("youtube API returned status %d for channel %s", resp.StatusCode(), channelID)
	}

	var search youtubeSearchResponse
	if err := json.Unmarshal(resp.Body(), &search); err != nil {
		return nil, fmt.Errorf("failed to parse YouTube response for channel %s: %w", channelID, err)
	}

	display := y.displayName(channelID)

	var items []models.Item
	for _, video := range search.Items {
		published, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt)
		if err != nil {
			logrus.Warnf("Skipping video with malformed timestamp on channel %s: %v", channelID, err)
			continue
		}

		// publishedAfter is a hint only; the API does not guarantee an
		// exact filter, so re-check against the cutoff.
		if !published.After(cutoff) {
			continue
		}

		items = append(items, models.Item{
			ID:          video.ID.VideoID,
			Source:      y.Name(),
			Subsource:   display,
			Title:       video.Snippet.Title,
			URL:         "https://www.youtube.com/watch?v=" + url.QueryEscape(video.ID.VideoID),
			PublishedAt: published.UTC(),
			Author:      display,
		})
	}

	return items, nil
}

func (y *YouTubeSource) displayName(channelID string) string {
	if name, ok := y.channelNames[channelID]; ok {
		return name
	}
	return channelID
}
