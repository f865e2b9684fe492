package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmorowitz/media-monitor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blueskyTestConfig() config.SourceConfig {
	return config.SourceConfig{
		Enabled: true,
		Users:   []string{"alice.bsky.social"},
	}
}

func newBlueskyTestServer(t *testing.T, feedJSON string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice.bsky.social", r.URL.Query().Get("actor"))
		fmt.Fprint(w, feedJSON)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBlueskySource_NameAndEnabled(t *testing.T) {
	source := NewBluesky(blueskyTestConfig())
	assert.Equal(t, "bluesky", source.Name())
	assert.True(t, source.Enabled())

	cfg := blueskyTestConfig()
	cfg.Enabled = false
	assert.False(t, NewBluesky(cfg).Enabled())
}

func TestBlueskySource_NormalizesPosts(t *testing.T) {
	longText := strings.Repeat("x", 150)

	server := newBlueskyTestServer(t, `{"feed":[
		{"post":{
			"uri":"at://did:plc:abc/app.bsky.feed.post/short1",
			"record":{"text":"a short post","createdAt":"2024-03-15T12:00:01Z"},
			"replyCount":1,"repostCount":2,"likeCount":3
		}},
		{"post":{
			"uri":"at://did:plc:abc/app.bsky.feed.post/long1",
			"record":{"text":"`+longText+`","createdAt":"2024-03-15T12:00:02Z"}
		}}
	]}`)

	source := NewBluesky(blueskyTestConfig())
	source.baseURL = server.URL

	items, err := source.NewItemsSince(context.Background(), time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, items, 2)

	short := items[0]
	assert.Equal(t, "short1", short.ID)
	assert.Equal(t, "a short post", short.Title)
	assert.Equal(t, "a short post", short.FullText)
	assert.Equal(t, "https://bsky.app/profile/alice.bsky.social/post/short1", short.URL)
	assert.Equal(t, 1, short.ReplyCount)
	assert.Equal(t, 2, short.RepostCount)
	assert.Equal(t, 3, short.LikeCount)

	long := items[1]
	assert.Equal(t, strings.Repeat("x", 100)+"...", long.Title)
	assert.Equal(t, longText, long.FullText)
	// Engagement counts default to zero when absent.
	assert.Equal(t, 0, long.ReplyCount)
	assert.Equal(t, 0, long.LikeCount)
}

func TestBlueskySource_SkipsMalformedPosts(t *testing.T) {
	server := newBlueskyTestServer(t, `{"feed":[
		{"post":{"uri":"","record":{"text":"no uri","createdAt":"2024-03-15T12:00:01Z"}}},
		{"post":{"uri":"at://x/post/p1","record":{"text":"no timestamp","createdAt":""}}},
		{"post":{"uri":"at://x/post/p2","record":{"text":"bad timestamp","createdAt":"yesterday"}}},
		{"post":{"uri":"at://x/post/good","record":{"text":"fine","createdAt":"2024-03-15T12:00:01Z"}}}
	]}`)

	source := NewBluesky(blueskyTestConfig())
	source.baseURL = server.URL

	items, err := source.NewItemsSince(context.Background(), time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "good", items[0].ID)
}

func TestBlueskySource_CutoffIsStrictlyGreaterThan(t *testing.T) {
	server := newBlueskyTestServer(t, `{"feed":[
		{"post":{"uri":"at://x/post/boundary","record":{"text":"at cutoff","createdAt":"2024-03-15T12:00:00Z"}}},
		{"post":{"uri":"at://x/post/fresh","record":{"text":"after cutoff","createdAt":"2024-03-15T12:00:00.001Z"}}}
	]}`)

	source := NewBluesky(blueskyTestConfig())
	source.baseURL = server.URL

	items, err := source.NewItemsSince(context.Background(), time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].ID)
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"shorter than limit", "hello", "hello"},
		{"exactly at limit", strings.Repeat("a", 100), strings.Repeat("a", 100)},
		{"over limit", strings.Repeat("a", 101), strings.Repeat("a", 100) + "..."},
		{"multibyte runes", strings.Repeat("é", 120), strings.Repeat("é", 100) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncateTitle(tt.input, 100))
		})
	}
}
