package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmorowitz/media-monitor/internal/config"
	"github.com/mmorowitz/media-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	blueskyFeedURL   = "https://public.api.bsky.app/xrpc/app.bsky.feed.getAuthorFeed"
	blueskyPageLimit = 50
	blueskyTitleMax  = 100
)

// BlueskySource polls author feeds on the public Bluesky API.
// Sub-sources are user handles; no credentials are required.
type BlueskySource struct {
	cfg     config.SourceConfig
	set     subsourceSet
	client  *resty.Client
	baseURL string
}

var _ Source = (*BlueskySource)(nil)

type blueskyFeedResponse struct {
	Feed []struct {
		Post blueskyPost `json:"post"`
	} `json:"feed"`
}

type blueskyPost struct {
	URI    string `json:"uri"`
	Record struct {
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
	} `json:"record"`
	ReplyCount  int `json:"replyCount"`
	RepostCount int `json:"repostCount"`
	LikeCount   int `json:"likeCount"`
}

// NewBluesky creates a Bluesky source from its configuration block.
func NewBluesky(cfg config.SourceConfig) *BlueskySource {
	return &BlueskySource{
		cfg:     cfg,
		set:     newSubsourceSet(cfg),
		client:  resty.New().SetTimeout(30 * time.Second),
		baseURL: blueskyFeedURL,
	}
}

func (b *BlueskySource) Name() string {
	return "bluesky"
}

func (b *BlueskySource) Enabled() bool {
	return b.cfg.Enabled
}

func (b *BlueskySource) NewItemsSince(ctx context.Context, cutoff time.Time) ([]models.Item, error) {
	return collectItems(ctx, b.Name(), b, b.set, cutoff), nil
}

// prefetch is a no-op; handles need no resolution.
func (b *BlueskySource) prefetch(ctx context.Context, subsources []string) {}

func (b *BlueskySource) fetchSince(ctx context.Context, handle string, cutoff time.Time) ([]models.Item, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"actor": handle,
			"limit": fmt.Sprintf("%d", blueskyPageLimit),
		}).
		Get(b.baseURL)

	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("bluesky API returned status %d for %s", resp.StatusCode(), handle)
	}

	var feed blueskyFeedResponse
	if err := json.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("failed to parse bluesky feed for %s: %w", handle, err)
	}

	var items []models.Item
	for _, entry := range feed.Feed {
		item, ok := b.normalizePost(handle, entry.Post)
		if !ok {
			continue
		}
		if !item.PublishedAt.After(cutoff) {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

// normalizePost turns a raw feed post into an Item, skipping malformed
// posts so their siblings still go through.
func (b *BlueskySource) normalizePost(handle string, post blueskyPost) (models.Item, bool) {
	if post.URI == "" || post.Record.CreatedAt == "" {
		logrus.Warnf("Skipping malformed post for user '%s': missing uri or timestamp", handle)
		return models.Item{}, false
	}

	createdAt, err := time.Parse(time.RFC3339, post.Record.CreatedAt)
	if err != nil {
		logrus.Warnf("Skipping malformed post for user '%s': %v", handle, err)
		return models.Item{}, false
	}

	segments := strings.Split(post.URI, "/")
	postID := segments[len(segments)-1]

	return models.Item{
		ID:          postID,
		Source:      b.Name(),
		Subsource:   handle,
		Title:       truncateTitle(post.Record.Text, blueskyTitleMax),
		URL:         fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, postID),
		PublishedAt: createdAt.UTC(),
		Author:      handle,
		FullText:    post.Record.Text,
		ReplyCount:  post.ReplyCount,
		RepostCount: post.RepostCount,
		LikeCount:   post.LikeCount,
	}, true
}

func truncateTitle(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
