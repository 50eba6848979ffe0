package pipeline

import (
	"context"
	"testing"

	"angebot/internal/ai"
	"angebot/internal/config"
)

func TestImporterTabularAliases(t *testing.T) {
	cfg, _ := config.Load()
	im := NewImporter(cfg, nil)

	headers := []string{"Pos", "Artikel", "EP", "ME"}
	rows := [][]string{
		{"1", "Beton C25/30", "85,50 €", "m3"},
		{"2", "", "10,00", "m2"},
		{"3", "Kies 0/32", "N/A", "t"},
	}

	entries, _ := im.Tabular(context.Background(), headers, rows, false)
	if len(entries) != 1 {
		t.Fatalf("len=%d", len(entries))
	}
	e := entries[0]
	if e.Description != "Beton C25/30" || e.PriceMin != 85.5 || e.Unit != "m3" {
		t.Fatalf("entry=%+v", e)
	}
	if e.Category != CategoryExcelImport {
		t.Fatalf("category=%q", e.Category)
	}
}

func TestImporterTabularAIMapping(t *testing.T) {
	cfg, _ := config.Load()
	completer := stubCompleter{fn: func(req ai.Request) (string, error) {
		return `{"description": "Kurztext", "price": "EP Euro", "unit": "Mengeneinheit"}`, nil
	}}
	im := NewImporter(cfg, completer)

	headers := []string{"Kurztext", "EP Euro", "Mengeneinheit"}
	rows := [][]string{{"Estrich schwimmend", "24,90", "m2"}}

	entries, _ := im.Tabular(context.Background(), headers, rows, true)
	if len(entries) != 1 {
		t.Fatalf("len=%d", len(entries))
	}
	if entries[0].Category != CategoryAIExcelImport {
		t.Fatalf("category=%q", entries[0].Category)
	}
	if entries[0].PriceMin != 24.9 {
		t.Fatalf("price=%v", entries[0].PriceMin)
	}
}

func TestImporterTabularNoColumns(t *testing.T) {
	cfg, _ := config.Load()
	im := NewImporter(cfg, nil)

	entries, log := im.Tabular(context.Background(), []string{"A", "B"}, [][]string{{"x", "y"}}, false)
	if entries != nil {
		t.Fatalf("entries=%+v", entries)
	}
	if len(log) == 0 {
		t.Fatal("expected error log entry")
	}
}

func TestImporterTextPagesFallback(t *testing.T) {
	cfg, _ := config.Load()
	im := NewImporter(cfg, nil)

	page := "Preisliste 2026\nBetonschalung herstellen 12,50 €/m2\nSeite 2\nx 0,05\n"
	entries, _ := im.TextPages(context.Background(), []string{page}, false)
	if len(entries) != 1 {
		t.Fatalf("entries=%+v", entries)
	}
	e := entries[0]
	if e.Description != "Betonschalung herstellen" || e.PriceMin != 12.5 || e.Unit != "m2" {
		t.Fatalf("entry=%+v", e)
	}
	if e.Category != CategoryPDFImport {
		t.Fatalf("category=%q", e.Category)
	}
}

func TestImporterTextPagesAI(t *testing.T) {
	cfg, _ := config.Load()
	completer := stubCompleter{fn: func(ai.Request) (string, error) {
		return `[{"description": "Trapezblech liefern", "price": 18.9, "unit": "m2"}]`, nil
	}}
	im := NewImporter(cfg, completer)

	page := "Trapezblech liefern und montieren, verzinkt, inkl. Befestigung 18,90 €/m2"
	entries, log := im.TextPages(context.Background(), []string{page}, true)
	if len(log) != 0 {
		t.Fatalf("log=%+v", log)
	}
	if len(entries) != 1 || entries[0].Category != CategoryAIPDFImport {
		t.Fatalf("entries=%+v", entries)
	}
}

func TestParsePriceLine(t *testing.T) {
	entry, ok := ParsePriceLine("Perimeterdämmung einbauen: 3,00-5,00 €/m²")
	if !ok {
		t.Fatal("no match")
	}
	if entry.Description != "Perimeterdämmung einbauen" {
		t.Fatalf("desc=%q", entry.Description)
	}
	if entry.PriceMin != 3 || entry.PriceMax != 5 || entry.Unit != "m²" {
		t.Fatalf("entry=%+v", entry)
	}

	entry, ok = ParsePriceLine("Estrich 25,00 €/m2")
	if !ok {
		t.Fatal("no match")
	}
	if entry.PriceMin != 25 || entry.PriceMax != 25 {
		t.Fatalf("entry=%+v", entry)
	}

	if _, ok := ParsePriceLine("Allgemeine Vorbemerkungen"); ok {
		t.Fatal("matched prose line")
	}
}

func TestImporterHTMLTable(t *testing.T) {
	cfg, _ := config.Load()
	im := NewImporter(cfg, nil)

	html := `<html><body><table>
<tr><th>Beschreibung</th><th>Preis</th><th>Einheit</th></tr>
<tr><td>Dachrinne Zink</td><td>22,40 €</td><td>lfm</td></tr>
<tr><td></td><td>5,00</td><td>Stk</td></tr>
</table></body></html>`

	entries := im.HTMLTable(html)
	if len(entries) != 1 {
		t.Fatalf("entries=%+v", entries)
	}
	if entries[0].Description != "Dachrinne Zink" || entries[0].PriceMin != 22.4 || entries[0].Unit != "lfm" {
		t.Fatalf("entry=%+v", entries[0])
	}
	if entries[0].Category != CategoryHTMLImport {
		t.Fatalf("category=%q", entries[0].Category)
	}
}
