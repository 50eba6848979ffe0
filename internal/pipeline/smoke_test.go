package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"angebot/internal"
	"angebot/internal/config"
	"angebot/internal/storage"
)

const smokeLV = `01.01.0010 Beton C25/30 liefern und einbauen
3,50 m3
01.01.0020 Mauerwerk KS 17,5 erstellen
10,00 m2
01.01.0030 Spezialarbeiten Sonderverfahren
1,00 psch
`

func TestSmokeLVToXLSX(t *testing.T) {
	tmp := t.TempDir()

	db, err := storage.Open(filepath.Join(tmp, "prices.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.AppendAll(testCatalog()); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(tmp, "lv.txt")
	if err := os.WriteFile(src, []byte(smokeLV), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _ := config.Load()
	proc := NewProcessor(cfg, db, nil)
	state, err := proc.Run(context.Background(), src, false)
	if err != nil {
		t.Fatal(err)
	}
	if state.Stage != internal.StageReviewed {
		t.Fatalf("stage=%s", state.Stage)
	}
	if len(state.Results) != 3 {
		t.Fatalf("results=%d", len(state.Results))
	}

	first := state.Results[0]
	if first.Match.CatalogID != 1 || first.Match.MatchScore != 100 {
		t.Fatalf("first=%+v", first.Match)
	}
	if got := first.Total(); got != 3.5*85 {
		t.Fatalf("total=%v", got)
	}

	last := state.Results[2]
	if last.Match.MatchedDescription != internal.NoMatchDescription || last.Match.Price != 0 {
		t.Fatalf("last=%+v", last.Match)
	}

	want := 3.5*85 + 10*45
	if got := TotalPrice(state.Results); got != want {
		t.Fatalf("total=%v want %v", got, want)
	}

	out := filepath.Join(tmp, "angebot.xlsx")
	if err := ExportXLSX(state, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
	if state.Stage != internal.StageExported {
		t.Fatalf("stage=%s", state.Stage)
	}

	if err := proc.SaveHistory(state); err != nil {
		t.Fatal(err)
	}
	offers, err := db.ListOffers(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(offers) != 1 || offers[0].TotalPrice != want {
		t.Fatalf("offers=%+v", offers)
	}
}

func TestConfirmedMappingShortCircuit(t *testing.T) {
	tmp := t.TempDir()

	db, err := storage.Open(filepath.Join(tmp, "prices.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.AppendAll(testCatalog()); err != nil {
		t.Fatal(err)
	}
	// A reviewer confirmed this text against entry 2 although fuzzy
	// matching would prefer entry 1.
	if err := db.ConfirmMapping("Beton C25/30 liefern und einbauen", 2); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(tmp, "lv.txt")
	if err := os.WriteFile(src, []byte("01.01.0010 Beton C25/30 liefern und einbauen\n3,50 m3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _ := config.Load()
	state, err := NewProcessor(cfg, db, nil).Run(context.Background(), src, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Results) != 1 {
		t.Fatalf("results=%d", len(state.Results))
	}

	match := state.Results[0].Match
	if match.CatalogID != 2 || match.MatchScore != 100 || match.Tier != internal.TierHigh {
		t.Fatalf("match=%+v", match)
	}
	if match.Price != 45 {
		t.Fatalf("price=%v", match.Price)
	}
}

func TestExportCSVSmoke(t *testing.T) {
	tmp := t.TempDir()

	state := &internal.PipelineState{
		Stage: internal.StageReviewed,
		Results: []internal.PricedItem{{
			Item:  internal.LineItem{PositionCode: "01.01.0010", Description: "Beton", Quantity: 2, Unit: "m3"},
			Match: internal.MatchedItem{MatchedDescription: "Beton C25/30", Price: 85, MatchScore: 95, CatalogID: 1, Tier: internal.TierHigh},
		}},
	}

	out := filepath.Join(tmp, "angebot.csv")
	if err := ExportCSV(state, out); err != nil {
		t.Fatal(err)
	}
	blob, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(blob) == 0 {
		t.Fatal("empty export")
	}
	if state.Stage != internal.StageExported {
		t.Fatalf("stage=%s", state.Stage)
	}
}
