package pipeline

import (
	"angebot/internal"
	"angebot/internal/config"
	"angebot/internal/util"
)

// Matcher resolves extracted line items against the in-memory catalog by
// exhaustive fuzzy scoring. Pure and deterministic for a fixed catalog.
type Matcher struct {
	cfg config.Config
}

func NewMatcher(cfg config.Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Match scores the description against every catalog entry with the
// partial-token-sort ratio and returns the first maximum. A best score
// below the low threshold counts as no match at all.
func (m *Matcher) Match(description string, catalog []internal.CatalogEntry) internal.MatchedItem {
	if len(catalog) == 0 {
		return noMatch(0)
	}

	bestScore := -1
	var best internal.CatalogEntry
	for _, entry := range catalog {
		score := util.PartialTokenSortRatio(description, entry.Description)
		if score > bestScore {
			bestScore = score
			best = entry
		}
	}

	if bestScore < m.cfg.MatchLowThreshold {
		return noMatch(bestScore)
	}

	// Defensive: a malformed catalog row degrades to sentinels instead of
	// breaking the batch. A price is never attributed without a catalog
	// link.
	id := best.ID
	price := best.PriceMin
	if id <= 0 {
		id = -1
		price = 0
	}
	if price < 0 {
		price = 0
	}

	return internal.MatchedItem{
		MatchedDescription: best.Description,
		Price:              price,
		MatchScore:         bestScore,
		CatalogID:          id,
		Tier:               m.Tier(bestScore),
	}
}

// Tier buckets a 0..100 score: below the low threshold NONE, above the
// high threshold HIGH, LOW in between (both boundaries inclusive to LOW).
func (m *Matcher) Tier(score int) internal.ConfidenceTier {
	switch {
	case score < m.cfg.MatchLowThreshold:
		return internal.TierNone
	case score > m.cfg.MatchHighThreshold:
		return internal.TierHigh
	default:
		return internal.TierLow
	}
}

func noMatch(score int) internal.MatchedItem {
	return internal.MatchedItem{
		MatchedDescription: internal.NoMatchDescription,
		Price:              0,
		MatchScore:         score,
		CatalogID:          -1,
		Tier:               internal.TierNone,
	}
}
