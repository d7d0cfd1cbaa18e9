package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mutige-mungos/mungo-shift/internal/filter"
	"github.com/mutige-mungos/mungo-shift/internal/metrics"
	"github.com/mutige-mungos/mungo-shift/internal/models"
	"github.com/mutige-mungos/mungo-shift/internal/util"
)

// Drop reasons reported to metrics.
const (
	dropOtherGame = "other_game"
	dropInactive  = "inactive"
	dropNoCode    = "no_code"
	dropInvalid   = "invalid"
)

type LoadOptions struct {
	// Force bypasses the upstream cache.
	Force bool
	// Now is the instant used for the activity window. Zero means time.Now
	// in the pipeline's location.
	Now time.Time
}

// Pipeline turns the upstream feed into the published dataset.
type Pipeline struct {
	source   CodeSource
	metrics  *metrics.Metrics
	location *time.Location
}

func NewPipeline(source CodeSource, m *metrics.Metrics, loc *time.Location) *Pipeline {
	if loc == nil {
		loc = time.Local
	}
	return &Pipeline{
		source:   source,
		metrics:  m,
		location: loc,
	}
}

// LoadActive fetches, filters, dedupes and sorts the active codes.
func (p *Pipeline) LoadActive(ctx context.Context, opts LoadOptions) (*models.Dataset, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().In(p.location)
	}

	result, err := p.source.Fetch(ctx, opts.Force)
	if err != nil {
		return nil, fmt.Errorf("failed to load upstream codes: %w", err)
	}

	dropped := make(map[string]int)
	byCode := make(map[string]models.SanitizedCode)

	for _, record := range result.List {
		if !filter.IsTargetGame(record) {
			dropped[dropOtherGame]++
			continue
		}
		if !filter.IsActive(record, now) {
			dropped[dropInactive]++
			continue
		}
		code, ok := filter.ExtractCode(record)
		if !ok {
			dropped[dropNoCode]++
			continue
		}
		sanitized, ok := filter.Sanitize(record, code)
		if !ok {
			dropped[dropInvalid]++
			continue
		}
		// Later records overwrite earlier ones with the same code.
		byCode[code] = sanitized
	}

	items := make([]models.SanitizedCode, 0, len(byCode))
	for _, item := range byCode {
		items = append(items, item)
	}
	SortCodes(items)

	for reason, n := range dropped {
		p.metrics.RecordDropped(reason, n)
	}
	p.metrics.SetActiveCodes(len(items))

	dataset := &models.Dataset{
		UpdatedAt: util.FormatISO(result.FetchedAt),
		Count:     len(items),
		Items:     items,
	}
	if generated, ok := util.NormalizeTimestamp(result.GeneratedAt); ok {
		dataset.GeneratedAt = generated
	}

	slog.Debug("Loaded active codes",
		"upstream", len(result.List),
		"active", len(items),
		"dropped", dropped,
		"forced", opts.Force)
	return dataset, nil
}

// SortCodes orders codes with an archived timestamp first, newest first,
// then the undated ones. Ties fall back to the code, ascending.
func SortCodes(items []models.SanitizedCode) {
	archived := make(map[string]time.Time, len(items))
	for _, item := range items {
		if t, ok := util.ParseTimestamp(item.Archived); ok {
			archived[item.Code] = t
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		ti, iDated := archived[items[i].Code]
		tj, jDated := archived[items[j].Code]
		switch {
		case iDated && jDated:
			if !ti.Equal(tj) {
				return ti.After(tj)
			}
		case iDated != jDated:
			return iDated
		}
		return items[i].Code < items[j].Code
	})
}
