package storage

import (
	"path/filepath"
	"testing"

	"angebot/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "prices.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCatalogRoundTrip(t *testing.T) {
	db := openTestDB(t)

	entries := []internal.CatalogEntry{
		{Description: "Beton C25/30", Unit: "m3", PriceMin: 85, PriceMax: 95, Category: "Import"},
		{Description: "Mauerwerk", Unit: "m2", PriceMin: 45, PriceMax: 45, Category: "Import"},
	}
	if err := db.AppendAll(entries); err != nil {
		t.Fatal(err)
	}

	loaded, err := db.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len=%d", len(loaded))
	}
	if loaded[0].ID != 1 || loaded[1].ID != 2 {
		t.Fatalf("ids=%d,%d", loaded[0].ID, loaded[1].ID)
	}
	if loaded[0].Description != "Beton C25/30" || loaded[0].PriceMax != 95 {
		t.Fatalf("entry=%+v", loaded[0])
	}
}

func TestReplaceAllResetsIDs(t *testing.T) {
	db := openTestDB(t)

	if err := db.AppendAll([]internal.CatalogEntry{{Description: "alt", PriceMin: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceAll([]internal.CatalogEntry{{Description: "neu", PriceMin: 2}}); err != nil {
		t.Fatal(err)
	}

	loaded, err := db.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].ID != 1 || loaded[0].Description != "neu" {
		t.Fatalf("loaded=%+v", loaded)
	}
}

func TestClear(t *testing.T) {
	db := openTestDB(t)

	if err := db.AppendAll([]internal.CatalogEntry{{Description: "Beton", PriceMin: 85}}); err != nil {
		t.Fatal(err)
	}
	if err := db.ConfirmMapping("Beton liefern", 1); err != nil {
		t.Fatal(err)
	}
	if err := db.Clear(); err != nil {
		t.Fatal(err)
	}

	loaded, err := db.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Fatalf("len=%d", len(loaded))
	}
	mapping, err := db.LookupMapping("Beton liefern")
	if err != nil {
		t.Fatal(err)
	}
	if mapping != nil {
		t.Fatalf("mapping=%+v", mapping)
	}
}

func TestOfferHistory(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveOffer("lv.pdf", "Neubau West", 747.5, 2); err != nil {
		t.Fatal(err)
	}
	offers, err := db.ListOffers(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(offers) != 1 {
		t.Fatalf("len=%d", len(offers))
	}
	o := offers[0]
	if o.FileName != "lv.pdf" || o.ProjectName != "Neubau West" || o.TotalPrice != 747.5 || o.ItemCount != 2 {
		t.Fatalf("offer=%+v", o)
	}
}

func TestConfirmMapping(t *testing.T) {
	db := openTestDB(t)

	if err := db.AppendAll([]internal.CatalogEntry{{Description: "Beton", PriceMin: 85}}); err != nil {
		t.Fatal(err)
	}
	if err := db.ConfirmMapping("Beton C25/30 liefern", 1); err != nil {
		t.Fatal(err)
	}
	if err := db.ConfirmMapping("Beton C25/30 liefern", 1); err != nil {
		t.Fatal(err)
	}

	mapping, err := db.LookupMapping("beton c25/30 liefern")
	if err != nil {
		t.Fatal(err)
	}
	if mapping == nil {
		t.Fatal("mapping not found")
	}
	if mapping.PriceID != 1 || mapping.ConfirmedCount != 2 {
		t.Fatalf("mapping=%+v", mapping)
	}
}

func TestLookupMappingMiss(t *testing.T) {
	db := openTestDB(t)
	mapping, err := db.LookupMapping("unbekannt")
	if err != nil {
		t.Fatal(err)
	}
	if mapping != nil {
		t.Fatalf("mapping=%+v", mapping)
	}
}
