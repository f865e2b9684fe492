package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmorowitz/media-monitor/internal/config"
	"github.com/mmorowitz/media-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// FeedsSource polls generic RSS/Atom feeds. Sub-sources are feed URLs;
// display uses the feed title when the feed declares one.
type FeedsSource struct {
	cfg    config.SourceConfig
	set    subsourceSet
	parser *gofeed.Parser
}

var _ Source = (*FeedsSource)(nil)

// NewFeeds creates an RSS/Atom source from its configuration block.
func NewFeeds(cfg config.SourceConfig) *FeedsSource {
	return &FeedsSource{
		cfg:    cfg,
		set:    newSubsourceSet(cfg),
		parser: gofeed.NewParser(),
	}
}

func (f *FeedsSource) Name() string {
	return "feeds"
}

func (f *FeedsSource) Enabled() bool {
	return f.cfg.Enabled
}

func (f *FeedsSource) NewItemsSince(ctx context.Context, cutoff time.Time) ([]models.Item, error) {
	return collectItems(ctx, f.Name(), f, f.set, cutoff), nil
}

// prefetch is a no-op; feed URLs need no resolution.
func (f *FeedsSource) prefetch(ctx context.Context, subsources []string) {}

func (f *FeedsSource) fetchSince(ctx context.Context, feedURL string, cutoff time.Time) ([]models.Item, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	display := feed.Title
	if display == "" {
		display = feedURL
	}

	var items []models.Item
	for _, entry := range feed.Items {
		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}
		if published == nil {
			logrus.Warnf("Skipping entry without timestamp in feed %s: %s", feedURL, entry.Title)
			continue
		}
		if !published.After(cutoff) {
			continue
		}

		id := entry.GUID
		if id == "" {
			id = entry.Link
		}

		item := models.Item{
			ID:          id,
			Source:      f.Name(),
			Subsource:   display,
			Title:       entry.Title,
			URL:         entry.Link,
			PublishedAt: published.UTC(),
		}
		if entry.Author != nil {
			item.Author = entry.Author.Name
		}

		items = append(items, item)
	}

	return items, nil
}
