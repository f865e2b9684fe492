package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmorowitz/media-monitor/internal/config"
	"github.com/mmorowitz/media-monitor/internal/models"
)

const (
	redditAuthURL   = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL    = "https://oauth.reddit.com"
	redditPageLimit = 100
)

// RedditSource polls subreddit new-post listings via the Reddit API.
type RedditSource struct {
	cfg         config.SourceConfig
	set         subsourceSet
	client      *resty.Client
	authURL     string
	baseURL     string
	accessToken string
}

var _ Source = (*RedditSource)(nil)

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListingResponse struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Created     float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	IsSelf      bool    `json:"is_self"`
}

// NewReddit creates a Reddit source from its configuration block.
func NewReddit(cfg config.SourceConfig) *RedditSource {
	return &RedditSource{
		cfg:     cfg,
		set:     newSubsourceSet(cfg),
		client:  resty.New().SetTimeout(30 * time.Second),
		authURL: redditAuthURL,
		baseURL: redditAPIURL,
	}
}

func (r *RedditSource) Name() string {
	return "reddit"
}

func (r *RedditSource) Enabled() bool {
	return r.cfg.Enabled && r.cfg.ClientID != "" && r.cfg.ClientSecret != ""
}

func (r *RedditSource) NewItemsSince(ctx context.Context, cutoff time.Time) ([]models.Item, error) {
	if err := r.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}
	return collectItems(ctx, r.Name(), r, r.set, cutoff), nil
}

func (r *RedditSource) authenticate(ctx context.Context) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.cfg.UserAgent).
		SetBasicAuth(r.cfg.ClientID, r.cfg.ClientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post(r.authURL)

	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("reddit token endpoint returned status %d", resp.StatusCode())
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return err
	}
	if authResp.AccessToken == "" {
		return fmt.Errorf("reddit token endpoint returned no access token")
	}

	r.accessToken = authResp.AccessToken
	return nil
}

// prefetch is a no-op; subreddit names need no resolution.
func (r *RedditSource) prefetch(ctx context.Context, subsources []string) {}

func (r *RedditSource) fetchSince(ctx context.Context, subreddit string, cutoff time.Time) ([]models.Item, error) {
	listingURL := fmt.Sprintf("%s/r/%s/new.json?limit=%d", r.baseURL, subreddit, redditPageLimit)

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.accessToken).
		SetHeader("User-Agent", r.cfg.UserAgent).
		Get(listingURL)

	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d for r/%s", resp.StatusCode(), subreddit)
	}

	var listing redditListingResponse
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("failed to parse reddit listing for r/%s: %w", subreddit, err)
	}

	minScore, hasThreshold := r.cfg.MinScore[subreddit]

	var items []models.Item
	for _, child := range listing.Data.Children {
		post := child.Data

		created := time.Unix(int64(post.Created), 0).UTC()
		if !created.After(cutoff) {
			continue
		}
		if hasThreshold && post.Score < minScore {
			continue
		}

		redditURL := "https://reddit.com" + post.Permalink
		item := models.Item{
			ID:           post.ID,
			Source:       r.Name(),
			Subsource:    subreddit,
			Title:        post.Title,
			PublishedAt:  created,
			Author:       post.Author,
			Score:        post.Score,
			CommentCount: post.NumComments,
			RedditURL:    redditURL,
		}

		// Link posts point at the external target; self posts point
		// back at the discussion.
		if post.IsSelf {
			item.PostType = "self"
			item.URL = redditURL
		} else {
			item.PostType = "link"
			item.URL = post.URL
			item.ExternalURL = post.URL
		}

		items = append(items, item)
	}

	return items, nil
}
