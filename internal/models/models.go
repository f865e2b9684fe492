package models

import "time"

// Item is a normalized content record returned by any source client.
// ID is unique within a source only, never across sources.
type Item struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`    // "reddit", "youtube", "bluesky", "feeds"
	Subsource   string    `json:"subsource"` // subreddit, channel name, handle, feed title
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Category    string    `json:"category,omitempty"` // empty unless the source config is categorized

	// Provider-specific fields, opaque to the orchestrator and
	// consumed only by report formatting.
	Author       string `json:"author,omitempty"`
	Score        int    `json:"score,omitempty"`
	CommentCount int    `json:"comment_count,omitempty"`
	PostType     string `json:"post_type,omitempty"` // reddit: "link" or "self"
	RedditURL    string `json:"reddit_url,omitempty"`
	ExternalURL  string `json:"external_url,omitempty"`
	FullText     string `json:"full_text,omitempty"` // bluesky: untruncated post body
	ReplyCount   int    `json:"reply_count,omitempty"`
	RepostCount  int    `json:"repost_count,omitempty"`
	LikeCount    int    `json:"like_count,omitempty"`
}

// Report aggregates one run's results across all sources.
type Report struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Items       map[string][]Item `json:"items"` // keyed by source name
	TotalItems  int               `json:"total_items"`
}

// HasItems reports whether any source contributed at least one item.
func (r *Report) HasItems() bool {
	for _, items := range r.Items {
		if len(items) > 0 {
			return true
		}
	}
	return false
}
