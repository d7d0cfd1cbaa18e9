package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mutige-mungos/mungo-shift/internal/metrics"
	"github.com/mutige-mungos/mungo-shift/internal/models"
	"github.com/mutige-mungos/mungo-shift/internal/storage"
)

const saveTimeout = 30 * time.Second

// RunResult is what a scheduled run reports back to its caller.
type RunResult struct {
	UpdatedAt string   `json:"updatedAt"`
	Count     int      `json:"count"`
	NewCodes  []string `json:"newCodes"`
	Notified  bool     `json:"notified"`
}

// Trigger detects codes not seen by earlier runs and announces them.
type Trigger struct {
	loader   DatasetLoader
	store    SeenStore
	notifier CodeNotifier
	metrics  *metrics.Metrics
}

func NewTrigger(loader DatasetLoader, store SeenStore, n CodeNotifier, m *metrics.Metrics) *Trigger {
	return &Trigger{
		loader:   loader,
		store:    store,
		notifier: n,
		metrics:  m,
	}
}

// Run loads a fresh dataset, notifies about new codes and then records every
// current code as seen. The seen set is saved even when notification fails.
func (t *Trigger) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	logger := slog.With("run_id", runID)

	dataset, err := t.loader.LoadActive(ctx, LoadOptions{Force: true})
	if err != nil {
		logger.Error("Scheduled run failed to load codes", "error", err)
		return nil, err
	}

	codes := dataset.Codes()
	newCodes, err := storage.DiffNew(ctx, t.store, codes)
	if err != nil {
		logger.Error("Scheduled run failed to read seen codes", "error", err)
		return nil, fmt.Errorf("failed to diff seen codes: %w", err)
	}
	t.metrics.RecordNewCodes(len(newCodes))

	result := &RunResult{
		UpdatedAt: dataset.UpdatedAt,
		Count:     dataset.Count,
		NewCodes:  newCodes,
	}

	var notifyErr error
	if len(newCodes) > 0 {
		fresh := make(map[string]struct{}, len(newCodes))
		for _, code := range newCodes {
			fresh[code] = struct{}{}
		}
		items := make([]models.SanitizedCode, 0, len(newCodes))
		for _, item := range dataset.Items {
			if _, ok := fresh[item.Code]; ok {
				items = append(items, item)
			}
		}

		result.Notified, notifyErr = t.notifier.Notify(ctx, items)
		t.metrics.RecordNotify(notifyErr)
		if notifyErr != nil {
			logger.Warn("Failed to notify about new codes", "count", len(items), "error", notifyErr)
			notifyErr = fmt.Errorf("failed to notify: %w", notifyErr)
		}
	}

	// The save must outlive a cancelled or timed-out notification.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	var saveErr error
	if err := t.store.SaveSeen(saveCtx, codes); err != nil {
		logger.Error("Failed to save seen codes", "error", err)
		saveErr = fmt.Errorf("failed to save seen codes: %w", err)
	}

	logger.Info("Scheduled run finished",
		"count", result.Count,
		"new", len(newCodes),
		"notified", result.Notified)

	if err := errors.Join(notifyErr, saveErr); err != nil {
		return result, err
	}
	return result, nil
}
