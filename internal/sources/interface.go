package sources

import (
	"context"
	"time"

	"github.com/mmorowitz/media-monitor/internal/models"
)

// Source is the contract every content provider implements.
type Source interface {
	// Name identifies the source ("reddit", "youtube", ...). It is the
	// key the orchestrator uses for watermark records.
	Name() string

	// Enabled reports whether the source is configured to be polled.
	Enabled() bool

	// NewItemsSince returns items published strictly after cutoff,
	// concatenated in sub-source iteration order. Errors scoped to a
	// single sub-source are logged and absorbed; an error returned
	// here means the whole fetch failed and the watermark must not
	// advance.
	NewItemsSince(ctx context.Context, cutoff time.Time) ([]models.Item, error)
}
