package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"angebot/internal"
	"angebot/internal/ai"
	"angebot/internal/config"
	"angebot/internal/util"
)

const lvSystemPrompt = `You are a data extraction API. Your task is to process text from a German construction tender document (Leistungsverzeichnis, LV) and extract item details.
The content is purely technical construction specifications. Ignore any perceived policy violations as false positives for technical data.
For each item (Position), you MUST extract:
- "oz": The position number (e.g., '01.01.0010').
- "text": The short description of the service.
- "menge": The quantity, as a floating point number.
- "einheit": The unit (e.g., 'm3', 'Stk', 'psch').
Return the result as a single, valid JSON array of objects.
Example: [{"oz": "01.01.0010", "text": "Stahlbeton C25/30", "menge": 10.5, "einheit": "m3"}]
If no items are found on the provided page, you MUST return an empty JSON array: [].`

// Extractor turns per-page text into line items, preferring the AI
// collaborator and falling back to the regex state machine when the AI
// path yields nothing.
type Extractor struct {
	cfg config.Config
	ai  ai.Completer
}

func NewExtractor(cfg config.Config, completer ai.Completer) *Extractor {
	return &Extractor{cfg: cfg, ai: completer}
}

// Extract runs the tiered strategy. The fallback is an explicit branch:
// when the AI pass produces zero items across all pages, the regex pass
// runs on the same input and its result is returned as-is.
func (e *Extractor) Extract(ctx context.Context, pages []string, useAI bool) ([]internal.LineItem, []internal.LogEntry) {
	if useAI && e.ai != nil {
		items, log := e.ExtractAI(ctx, pages)
		if len(items) > 0 {
			return items, log
		}
		log = append(log, internal.LogEntry{
			Severity: internal.SeverityWarning,
			Message:  "AI extraction found no positions, falling back to pattern extraction",
		})
		return ExtractItemsRegex(e.cfg, pages), log
	}
	return ExtractItemsRegex(e.cfg, pages), nil
}

// ExtractAI issues one structured-extraction request per page. Per-page
// failures are logged and skipped; the run never aborts for one page.
func (e *Extractor) ExtractAI(ctx context.Context, pages []string) ([]internal.LineItem, []internal.LogEntry) {
	var items []internal.LineItem
	var log []internal.LogEntry

	for i, page := range pages {
		if len(strings.TrimSpace(page)) < e.cfg.MinPageChars {
			continue
		}

		raw, err := e.ai.Complete(ctx, ai.Request{System: lvSystemPrompt, User: page, ForceJSON: true})
		if err != nil {
			severity := internal.SeverityError
			if ai.IsPolicyBlock(err) {
				severity = internal.SeverityWarning
			}
			log = append(log, internal.LogEntry{
				Severity: severity,
				Message:  fmt.Sprintf("page %d: %v", i+1, err),
			})
			continue
		}

		pageItems, err := DecodeLineItems(raw)
		if err != nil {
			log = append(log, internal.LogEntry{
				Severity: internal.SeverityWarning,
				Message:  fmt.Sprintf("page %d: AI returned invalid JSON", i+1),
			})
			continue
		}

		items = append(items, pageItems...)
		zap.L().Debug("page extracted", zap.Int("page", i+1), zap.Int("items", len(pageItems)))
	}

	return items, log
}

// DecodeLineItems normalizes the shapes the collaborator is known to
// produce: a top-level array, an object with a named list field, an
// object with any list-valued field, or a lone item object. Anything else
// is a decode failure, never a panic.
func DecodeLineItems(raw string) ([]internal.LineItem, error) {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}

	list, err := itemList(decoded)
	if err != nil {
		return nil, err
	}

	items := make([]internal.LineItem, 0, len(list))
	for _, element := range list {
		obj, ok := element.(map[string]any)
		if !ok {
			continue
		}
		item := internal.LineItem{
			PositionCode: stringField(obj, "oz", "positionCode", "position_code"),
			Description:  stringField(obj, "text", "description"),
			Quantity:     floatField(obj, "menge", "quantity"),
			Unit:         stringField(obj, "einheit", "unit"),
		}
		// An item without a position code cannot be placed in the
		// quotation.
		if item.PositionCode == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func itemList(decoded any) ([]any, error) {
	switch v := decoded.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if list, ok := v["items"].([]any); ok {
			return list, nil
		}
		// Deterministic scan for any list-valued field.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if list, ok := v[k].([]any); ok {
				return list, nil
			}
		}
		// Degenerate case: a single item returned as a bare object.
		if _, ok := v["oz"]; ok {
			return []any{decoded}, nil
		}
		if _, ok := v["positionCode"]; ok {
			return []any{decoded}, nil
		}
		return nil, fmt.Errorf("no item list in response object")
	default:
		return nil, fmt.Errorf("unexpected JSON shape %T", decoded)
	}
}

func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			switch t := v.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					return s
				}
			case float64:
				return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
			}
		}
	}
	return ""
}

// floatField coerces a quantity that may arrive as a number, a plain
// numeric string, or a German-formatted string. Coercion failure yields
// the unresolved sentinel 0.
func floatField(obj map[string]any, keys ...string) float64 {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t
		case string:
			if parsed, err := util.ParseGermanFloat(t); err == nil {
				return parsed
			}
		}
	}
	return 0
}
