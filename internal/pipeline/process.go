package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"angebot/internal"
	"angebot/internal/ai"
	"angebot/internal/config"
	"angebot/internal/storage"
	"angebot/internal/textsource"
)

// Processor is the single-threaded orchestrator: source file in, priced
// quotation out. Per-item and per-page failures are logged on the run
// state; only missing input or a broken store abort a run.
type Processor struct {
	cfg config.Config
	db  *storage.DB
	ai  ai.Completer
}

func NewProcessor(cfg config.Config, db *storage.DB, completer ai.Completer) *Processor {
	return &Processor{cfg: cfg, db: db, ai: completer}
}

// Run executes the full pipeline for one tender document.
func (p *Processor) Run(ctx context.Context, sourcePath string, useAI bool) (*internal.PipelineState, error) {
	state := &internal.PipelineState{
		Stage:      internal.StageUploaded,
		SourceFile: filepath.Base(sourcePath),
	}

	pages, err := textsource.Pages(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	if useAI && p.ai != nil && len(pages) > 0 {
		state.Recipient, state.ProjectName = ExtractMetadata(ctx, p.ai, pages[0])
	}

	extractor := NewExtractor(p.cfg, p.ai)
	items, log := extractor.Extract(ctx, pages, useAI)
	state.Items = items
	state.Log = append(state.Log, log...)
	state.Stage = internal.StageExtracted

	catalog, err := p.db.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	state.Results = p.matchAll(items, catalog, state)
	state.Stage = internal.StageReviewed

	zap.L().Info("pipeline run finished",
		zap.String("source", state.SourceFile),
		zap.Int("items", len(state.Items)),
		zap.Int("logEntries", len(state.Log)),
	)

	return state, nil
}

// matchAll resolves every item, preferring a reviewer-confirmed mapping
// over fuzzy scoring. A failed mapping lookup degrades that one item to
// the fuzzy path.
func (p *Processor) matchAll(items []internal.LineItem, catalog []internal.CatalogEntry, state *internal.PipelineState) []internal.PricedItem {
	byID := make(map[int]internal.CatalogEntry, len(catalog))
	for _, e := range catalog {
		byID[e.ID] = e
	}

	matcher := NewMatcher(p.cfg)
	results := make([]internal.PricedItem, 0, len(items))
	for _, item := range items {
		mapping, err := p.db.LookupMapping(item.Description)
		if err != nil {
			state.Log = append(state.Log, internal.LogEntry{
				Severity: internal.SeverityWarning,
				Message:  fmt.Sprintf("mapping lookup for %q failed: %v", item.PositionCode, err),
			})
		}
		if mapping != nil {
			if entry, ok := byID[mapping.PriceID]; ok {
				results = append(results, internal.PricedItem{
					Item: item,
					Match: internal.MatchedItem{
						MatchedDescription: entry.Description,
						Price:              entry.PriceMin,
						MatchScore:         100,
						CatalogID:          entry.ID,
						Tier:               internal.TierHigh,
					},
				})
				continue
			}
			// Confirmed target no longer in the catalog.
			state.Log = append(state.Log, internal.LogEntry{
				Severity: internal.SeverityWarning,
				Message:  fmt.Sprintf("confirmed mapping for %q points to missing catalog id %d", item.PositionCode, mapping.PriceID),
			})
		}

		results = append(results, internal.PricedItem{
			Item:  item,
			Match: matcher.Match(item.Description, catalog),
		})
	}
	return results
}

// TotalPrice sums the derived line totals of a result set.
func TotalPrice(results []internal.PricedItem) float64 {
	var total float64
	for _, r := range results {
		total += r.Total()
	}
	return total
}

// SaveHistory records the finished run in the offer history.
func (p *Processor) SaveHistory(state *internal.PipelineState) error {
	return p.db.SaveOffer(state.SourceFile, state.ProjectName, TotalPrice(state.Results), len(state.Results))
}
