package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"angebot/internal"
	"angebot/internal/ai"
	"angebot/internal/config"
	"angebot/internal/util"
)

// Provenance tags recorded on every imported catalog row.
const (
	CategoryAIExcelImport   = "AI Excel Import"
	CategoryExcelImport     = "Import"
	CategoryAIPDFImport     = "AI PDF Import"
	CategoryPDFImport       = "PDF Standard Import"
	CategoryHTMLImport      = "HTML Table Import"
	CategoryPriceLineImport = "Rahmenvereinbarung Import"
)

const columnMappingPrompt = `You are a data import assistant. Analyze this CSV snippet of a price list.
Identify the column names that correspond to:
1. 'description' (Artikel, Text, Bezeichnung, Leistung)
2. 'price' (Preis, EP, Einheitspreis, Betrag - look for numeric columns)
3. 'unit' (Einheit, ME, Mengeneinheit - e.g., m2, Stk)

Return a JSON object mapping the keys 'description', 'price', 'unit' to the EXACT column names found in the CSV.
If a column is missing, set it to null.
Example: {"description": "Kurztext", "price": "EP Euro", "unit": "ME"}`

const priceListPrompt = `You are a data extraction API.
Your task is to extract price list items from the German text provided inside <source_text> tags.
Ignore headers, footers, and noise.
For each item, extract:
- "description": The item text/name (Material, Service).
- "price": The unit price (numeric, float).
- "unit": The unit (e.g., m2, Stk, psch).
Return ONLY a JSON array of objects. Example: [{"description": "Item", "price": 12.50, "unit": "m2"}]
If no items found, return [].`

// Header aliases for the deterministic tabular fallback, lower-cased.
var (
	descriptionAliases = []string{"beschreibung", "description", "text", "artikel"}
	priceAliases       = []string{"preis", "price", "betrag", "ep"}
	unitAliases        = []string{"einheit", "unit", "mengeneinheit", "me"}
)

// Line shape of free-text price lists: description, price with two
// decimals, optional unit/currency tail.
var priceLineFallback = regexp.MustCompile(`^(.*?)\s+(\d+[.,]\d{2})\s*([a-zA-Z€/].*)?$`)

// Framework-agreement shape: "Perimeterdämmung einbauen: 3,00-5,00 €/m²".
var rahmenLine = regexp.MustCompile(`^(.*?)(?::\s*|\s+)(\d+(?:,\d+)?)(?:\s*-\s*(\d+(?:,\d+)?))?\s*€\s*/\s*([a-zA-Z²³]+)`)

// Importer normalizes external price-list sources into catalog rows.
// Every strategy tags its rows with a provenance category.
type Importer struct {
	cfg config.Config
	ai  ai.Completer
}

func NewImporter(cfg config.Config, completer ai.Completer) *Importer {
	return &Importer{cfg: cfg, ai: completer}
}

// Tabular maps spreadsheet rows to catalog entries: AI column-role
// mapping when available, case-insensitive header aliasing otherwise.
// Rows without a description or with an uncoercible price are dropped,
// never inserted with a zero price.
func (im *Importer) Tabular(ctx context.Context, headers []string, rows [][]string, useAI bool) ([]internal.CatalogEntry, []internal.LogEntry) {
	var log []internal.LogEntry

	if useAI && im.ai != nil {
		descIdx, priceIdx, unitIdx, err := im.mapColumnsAI(ctx, headers, rows)
		if err != nil {
			log = append(log, internal.LogEntry{
				Severity: internal.SeverityWarning,
				Message:  fmt.Sprintf("AI column mapping unavailable: %v", err),
			})
		} else if descIdx >= 0 && priceIdx >= 0 {
			return mapRows(rows, descIdx, priceIdx, unitIdx, CategoryAIExcelImport), log
		} else {
			log = append(log, internal.LogEntry{
				Severity: internal.SeverityWarning,
				Message:  "AI could not identify description/price columns, using header aliases",
			})
		}
	}

	descIdx := headerIndex(headers, descriptionAliases)
	priceIdx := headerIndex(headers, priceAliases)
	unitIdx := headerIndex(headers, unitAliases)
	if descIdx < 0 || priceIdx < 0 {
		log = append(log, internal.LogEntry{
			Severity: internal.SeverityError,
			Message:  "no description/price columns recognized",
		})
		return nil, log
	}
	return mapRows(rows, descIdx, priceIdx, unitIdx, CategoryExcelImport), log
}

// TextPages normalizes a free-text price list (one string per page):
// AI item arrays per page, line-regex fallback when the AI pass yields
// nothing in aggregate.
func (im *Importer) TextPages(ctx context.Context, pages []string, useAI bool) ([]internal.CatalogEntry, []internal.LogEntry) {
	var entries []internal.CatalogEntry
	var log []internal.LogEntry

	if useAI && im.ai != nil {
		for i, page := range pages {
			if len(strings.TrimSpace(page)) < im.cfg.MinPageChars {
				continue
			}
			pageEntries, err := im.priceItemsAI(ctx, page)
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
			entries = append(entries, pageEntries...)
		}
		if len(entries) > 0 {
			return entries, log
		}
		log = append(log, internal.LogEntry{
			Severity: internal.SeverityWarning,
			Message:  "AI import found no price rows, falling back to pattern import",
		})
	}

	return extractPriceLines(pages), log
}

// HTMLTable scans table markup for description/price/unit columns, for
// supplier price lists saved from the web.
func (im *Importer) HTMLTable(html string) []internal.CatalogEntry {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []internal.CatalogEntry
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		tableRows := table.Find("tr")
		if tableRows.Length() < 2 {
			return
		}

		var headers []string
		tableRows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})

		descIdx := headerIndex(headers, descriptionAliases)
		priceIdx := headerIndex(headers, priceAliases)
		unitIdx := headerIndex(headers, unitAliases)
		if descIdx < 0 || priceIdx < 0 {
			return
		}

		tableRows.Slice(1, tableRows.Length()).Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if descIdx >= len(cells) || priceIdx >= len(cells) {
				return
			}
			description := cells[descIdx]
			price, err := util.ParsePrice(cells[priceIdx])
			if description == "" || err != nil {
				return
			}
			entry := internal.CatalogEntry{
				ID:          -1,
				Description: description,
				PriceMin:    price,
				PriceMax:    price,
				Category:    CategoryHTMLImport,
			}
			if unitIdx >= 0 && unitIdx < len(cells) {
				entry.Unit = cells[unitIdx]
			}
			out = append(out, entry)
		})
	})

	return out
}

// PriceLines parses framework-agreement text where each line carries an
// explicit euro-per-unit price, optionally as a min-max range.
func (im *Importer) PriceLines(text string) []internal.CatalogEntry {
	var out []internal.CatalogEntry
	for _, line := range strings.Split(text, "\n") {
		if entry, ok := ParsePriceLine(line); ok {
			out = append(out, entry)
		}
	}
	return out
}

// ParsePriceLine reads one "description: 3,00-5,00 €/m²" line. Single
// prices set PriceMin == PriceMax.
func ParsePriceLine(line string) (internal.CatalogEntry, bool) {
	m := rahmenLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return internal.CatalogEntry{}, false
	}

	priceMin, err := util.ParseGermanFloat(m[2])
	if err != nil {
		return internal.CatalogEntry{}, false
	}
	priceMax := priceMin
	if m[3] != "" {
		if parsed, err := util.ParseGermanFloat(m[3]); err == nil {
			priceMax = parsed
		}
	}

	description := strings.TrimSpace(m[1])
	if description == "" {
		return internal.CatalogEntry{}, false
	}

	return internal.CatalogEntry{
		ID:          -1,
		Description: description,
		Unit:        strings.TrimSpace(m[4]),
		PriceMin:    priceMin,
		PriceMax:    priceMax,
		Category:    CategoryPriceLineImport,
	}, true
}

// mapColumnsAI asks the collaborator for a column-role mapping based on a
// small CSV sample and resolves the answer back to column indexes.
func (im *Importer) mapColumnsAI(ctx context.Context, headers []string, rows [][]string) (descIdx, priceIdx, unitIdx int, err error) {
	sample := rows
	if len(sample) > 10 {
		sample = sample[:10]
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(headers)
	for _, row := range sample {
		_ = w.Write(row)
	}
	w.Flush()

	raw, err := im.ai.Complete(ctx, ai.Request{System: columnMappingPrompt, User: sb.String(), ForceJSON: true})
	if err != nil {
		return -1, -1, -1, err
	}

	var mapping struct {
		Description *string `json:"description"`
		Price       *string `json:"price"`
		Unit        *string `json:"unit"`
	}
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return -1, -1, -1, fmt.Errorf("invalid mapping JSON: %w", err)
	}

	find := func(name *string) int {
		if name == nil {
			return -1
		}
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(*name)) {
				return i
			}
		}
		return -1
	}

	zap.L().Info("AI column mapping",
		zap.Stringp("description", mapping.Description),
		zap.Stringp("price", mapping.Price),
		zap.Stringp("unit", mapping.Unit),
	)

	return find(mapping.Description), find(mapping.Price), find(mapping.Unit), nil
}

func (im *Importer) priceItemsAI(ctx context.Context, page string) ([]internal.CatalogEntry, error) {
	raw, err := im.ai.Complete(ctx, ai.Request{
		System:    priceListPrompt,
		User:      "<source_text>\n" + page + "\n</source_text>",
		ForceJSON: true,
	})
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	list, err := itemList(decoded)
	if err != nil {
		return nil, err
	}

	out := make([]internal.CatalogEntry, 0, len(list))
	for _, element := range list {
		obj, ok := element.(map[string]any)
		if !ok {
			continue
		}
		description := stringField(obj, "description", "text")
		price := floatField(obj, "price", "preis")
		if description == "" || price <= 0 {
			continue
		}
		out = append(out, internal.CatalogEntry{
			ID:          -1,
			Description: description,
			Unit:        stringField(obj, "unit", "einheit"),
			PriceMin:    price,
			PriceMax:    price,
			Category:    CategoryAIPDFImport,
		})
	}
	return out, nil
}

// extractPriceLines is the deterministic text-page fallback: lines ending
// in a two-decimal price, filtered by description length and a plausible
// price range so page numbers and dates don't become catalog rows.
func extractPriceLines(pages []string) []internal.CatalogEntry {
	var out []internal.CatalogEntry
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)
			if len(line) < 5 {
				continue
			}
			m := priceLineFallback.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			description := strings.TrimSpace(m[1])
			price, err := util.ParseGermanFloat(m[2])
			if err != nil || len(description) <= 3 || price <= 0.1 || price >= 100000 {
				continue
			}
			unit := strings.TrimSpace(strings.NewReplacer("€", "", "/", "").Replace(m[3]))
			out = append(out, internal.CatalogEntry{
				ID:          -1,
				Description: description,
				Unit:        unit,
				PriceMin:    price,
				PriceMax:    price,
				Category:    CategoryPDFImport,
			})
		}
	}
	return out
}

func mapRows(rows [][]string, descIdx, priceIdx, unitIdx int, category string) []internal.CatalogEntry {
	out := make([]internal.CatalogEntry, 0, len(rows))
	for _, row := range rows {
		if descIdx >= len(row) || priceIdx >= len(row) {
			continue
		}
		description := strings.TrimSpace(row[descIdx])
		price, err := util.ParsePrice(row[priceIdx])
		if description == "" || err != nil {
			continue
		}
		entry := internal.CatalogEntry{
			ID:          -1,
			Description: description,
			PriceMin:    price,
			PriceMax:    price,
			Category:    category,
		}
		if unitIdx >= 0 && unitIdx < len(row) {
			entry.Unit = strings.TrimSpace(row[unitIdx])
		}
		out = append(out, entry)
	}
	return out
}

func headerIndex(headers []string, aliases []string) int {
	for i, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		for _, alias := range aliases {
			if lower == alias {
				return i
			}
		}
	}
	return -1
}
