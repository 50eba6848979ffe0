package pipeline

import (
	"strings"

	"angebot/internal"
	"angebot/internal/config"
	"angebot/internal/util"
)

// ExtractItemsRegex is the deterministic safety net behind the AI
// extractor: a two-line state machine over the document's lines. An OZ
// line opens an item, a quantity/unit line closes and flushes it, and an
// item that never resolves a quantity is silently dropped.
func ExtractItemsRegex(cfg config.Config, pages []string) []internal.LineItem {
	var items []internal.LineItem
	var open *internal.LineItem

	flush := func() {
		if open != nil && open.Quantity > 0 {
			items = append(items, *open)
		}
		open = nil
	}

	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if m := cfg.OZPattern.FindStringSubmatch(line); m != nil {
				flush()
				open = &internal.LineItem{
					PositionCode: m[1],
					Description:  strings.TrimSpace(m[2]),
				}
				continue
			}

			if open == nil {
				continue
			}

			if m := cfg.QtyLinePattern.FindStringSubmatch(line); m != nil && !strings.Contains(line, cfg.QtyExcludeMarker) {
				if qty, err := util.ParseGermanFloat(m[1]); err == nil {
					open.Quantity = qty
					open.Unit = m[2]
					items = append(items, *open)
					open = nil
				}
				// An unparseable quantity consumes the line without
				// polluting the description.
				continue
			}

			if !strings.Contains(line, "Datum:") && !strings.Contains(line, "Projekt:") {
				open.Description += " " + line
			}
		}
	}

	flush()
	return items
}
