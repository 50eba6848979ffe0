package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"angebot/internal"
)

// DB is the catalog, offer-history and learned-mapping store. The
// matching pipeline only reads from it; imports and manual edits write.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  description TEXT NOT NULL,
  unit TEXT,
  price_min REAL,
  price_max REAL,
  category TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_prices_description ON prices(description);

CREATE TABLE IF NOT EXISTS offers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  fileName TEXT NOT NULL,
  projectName TEXT,
  totalPrice REAL NOT NULL,
  itemCount INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mappings (
  lvTextHash TEXT PRIMARY KEY,
  lvTextRaw TEXT NOT NULL,
  priceId INTEGER NOT NULL,
  confirmedCount INTEGER NOT NULL DEFAULT 1,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(priceId) REFERENCES prices(id)
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// LoadAll reads the whole catalog into memory. Catalogs stay small
// (hundreds to low thousands of rows), so the matcher scans them in full.
func (d *DB) LoadAll() ([]internal.CatalogEntry, error) {
	rows, err := d.conn.Query(`SELECT id, description, unit, price_min, price_max, category FROM prices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CatalogEntry
	for rows.Next() {
		var e internal.CatalogEntry
		var unit, category sql.NullString
		var priceMin, priceMax sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.Description, &unit, &priceMin, &priceMax, &category); err != nil {
			return nil, err
		}
		e.Unit = unit.String
		e.Category = category.String
		e.PriceMin = priceMin.Float64
		e.PriceMax = priceMax.Float64
		out = append(out, e)
	}

	return out, rows.Err()
}

// AppendAll inserts entries, assigning each a fresh stable id.
func (d *DB) AppendAll(entries []internal.CatalogEntry) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO prices (description, unit, price_min, price_max, category) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Description, e.Unit, e.PriceMin, e.PriceMax, e.Category); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReplaceAll swaps the catalog wholesale, as the manual-edit flow does.
func (d *DB) ReplaceAll(entries []internal.CatalogEntry) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM prices`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sqlite_sequence WHERE name = 'prices'`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO prices (description, unit, price_min, price_max, category) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Description, e.Unit, e.PriceMin, e.PriceMax, e.Category); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) Clear() error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM mappings`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM prices`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sqlite_sequence WHERE name = 'prices'`); err != nil {
		return err
	}

	return tx.Commit()
}

// SaveOffer records a finished quotation in the history.
func (d *DB) SaveOffer(fileName, projectName string, totalPrice float64, itemCount int) error {
	_, err := d.conn.Exec(`INSERT INTO offers (fileName, projectName, totalPrice, itemCount) VALUES (?, ?, ?, ?)`,
		fileName, projectName, totalPrice, itemCount)
	return err
}

func (d *DB) ListOffers(limit int) ([]internal.OfferRecord, error) {
	rows, err := d.conn.Query(`SELECT id, fileName, projectName, totalPrice, itemCount, createdAt FROM offers ORDER BY createdAt DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.OfferRecord
	for rows.Next() {
		var r internal.OfferRecord
		var project sql.NullString
		if err := rows.Scan(&r.ID, &r.FileName, &project, &r.TotalPrice, &r.ItemCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ProjectName = project.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ConfirmMapping records that a reviewer assigned an LV text to a catalog
// entry. Repeated confirmations bump the counter.
func (d *DB) ConfirmMapping(lvText string, priceID int) error {
	_, err := d.conn.Exec(`
INSERT INTO mappings (lvTextHash, lvTextRaw, priceId)
VALUES (?, ?, ?)
ON CONFLICT(lvTextHash) DO UPDATE SET
  priceId = excluded.priceId,
  confirmedCount = confirmedCount + 1,
  updatedAt = CURRENT_TIMESTAMP
`, HashText(lvText), lvText, priceID)
	return err
}

// LookupMapping returns the confirmed catalog id for an LV text, or nil
// when no reviewer has confirmed one yet.
func (d *DB) LookupMapping(lvText string) (*internal.MappingRecord, error) {
	var r internal.MappingRecord
	err := d.conn.QueryRow(`SELECT lvTextHash, lvTextRaw, priceId, confirmedCount FROM mappings WHERE lvTextHash = ?`, HashText(lvText)).
		Scan(&r.TextHash, &r.TextRaw, &r.PriceID, &r.ConfirmedCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// HashText keys a mapping on the trimmed, case-folded LV description.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}
