package sources

import (
	"context"
	"sort"
	"time"

	"github.com/mmorowitz/media-monitor/internal/config"
	"github.com/mmorowitz/media-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// uncategorized is the category assigned to items whose sub-source is
// not listed in a categorized configuration.
const uncategorized = "uncategorized"

// subsourceSet resolves the two configuration forms into a flat list
// of sub-sources plus, for the categorized form, a sub-source to
// category lookup table.
type subsourceSet struct {
	subsources []string
	categories map[string]string // nil for the simple form
}

func newSubsourceSet(cfg config.SourceConfig) subsourceSet {
	if len(cfg.Categories) == 0 {
		return subsourceSet{subsources: cfg.Simple()}
	}

	names := make([]string, 0, len(cfg.Categories))
	for name := range cfg.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	set := subsourceSet{categories: make(map[string]string)}
	for _, name := range names {
		for _, sub := range cfg.Categories[name] {
			set.subsources = append(set.subsources, sub)
			set.categories[sub] = name
		}
	}
	return set
}

func (s subsourceSet) categorized() bool {
	return s.categories != nil
}

func (s subsourceSet) categoryFor(sub string) string {
	if category, ok := s.categories[sub]; ok {
		return category
	}
	return uncategorized
}

// tag stamps every item fetched from sub with its category. No-op for
// the simple form.
func (s subsourceSet) tag(items []models.Item, sub string) {
	if !s.categorized() {
		return
	}
	category := s.categoryFor(sub)
	for i := range items {
		items[i].Category = category
	}
}

// subsourceFetcher is the per-provider half of the fetch loop.
type subsourceFetcher interface {
	// prefetch lets a provider batch an expensive per-sub-source
	// lookup into one bulk request. Safe to call with an empty or
	// fully cached input.
	prefetch(ctx context.Context, subsources []string)

	// fetchSince returns one bounded page of items from a single
	// sub-source, filtered to timestamps strictly after cutoff.
	fetchSince(ctx context.Context, subsource string, cutoff time.Time) ([]models.Item, error)
}

// collectItems drives prefetch once and fetchSince per sub-source,
// concatenating results in iteration order. A failing sub-source is
// logged and skipped so its siblings still contribute.
func collectItems(ctx context.Context, name string, f subsourceFetcher, set subsourceSet, cutoff time.Time) []models.Item {
	f.prefetch(ctx, set.subsources)

	var all []models.Item
	for _, sub := range set.subsources {
		items, err := f.fetchSince(ctx, sub, cutoff)
		if err != nil {
			logrus.Errorf("Failed to fetch %s items from %s: %v", name, sub, err)
			continue
		}
		set.tag(items, sub)
		all = append(all, items...)
	}
	return all
}
