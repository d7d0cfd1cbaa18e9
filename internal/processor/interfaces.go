package processor

import (
	"context"

	"github.com/mutige-mungos/mungo-shift/internal/models"
	"github.com/mutige-mungos/mungo-shift/internal/upstream"
)

// CodeSource abstracts the upstream fetcher.
type CodeSource interface {
	Fetch(ctx context.Context, force bool) (*upstream.Result, error)
}

// SeenStore abstracts the storage layer for the seen set.
type SeenStore interface {
	GetSeen(ctx context.Context) (map[string]struct{}, error)
	SaveSeen(ctx context.Context, codes []string) error
}

// CodeNotifier abstracts the notification layer.
type CodeNotifier interface {
	Notify(ctx context.Context, codes []models.SanitizedCode) (bool, error)
}

// DatasetLoader produces the current dataset of active codes.
type DatasetLoader interface {
	LoadActive(ctx context.Context, opts LoadOptions) (*models.Dataset, error)
}
