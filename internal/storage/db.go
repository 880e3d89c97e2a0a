package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"skumatch/internal"
	"skumatch/internal/util"
)

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
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY,
  code TEXT,
  name TEXT NOT NULL,
  listPrice REAL NOT NULL DEFAULT 0,
  standardPrice REAL NOT NULL DEFAULT 0,
  category TEXT,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_code ON products(code);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  reference TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'received',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(reference)
);

CREATE TABLE IF NOT EXISTS line_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  orderId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  name TEXT NOT NULL,
  code TEXT,
  qty REAL,
  unitPrice REAL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(orderId, lineNo),
  FOREIGN KEY(orderId) REFERENCES orders(id)
);

CREATE TABLE IF NOT EXISTS matches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  lineItemId INTEGER NOT NULL UNIQUE,
  method TEXT NOT NULL,
  confidence REAL NOT NULL,
  requiresReview INTEGER NOT NULL DEFAULT 0,
  productId INTEGER,
  candidatesJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(lineItemId) REFERENCES line_items(id),
  FOREIGN KEY(productId) REFERENCES products(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  orderId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(orderId) REFERENCES orders(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertProducts(products []internal.CatalogProduct) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO products (id, code, name, listPrice, standardPrice, category, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  code=excluded.code,
  name=excluded.name,
  listPrice=excluded.listPrice,
  standardPrice=excluded.standardPrice,
  category=excluded.category,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.Exec(p.ID, p.Code, p.Name, p.ListPrice, p.StandardPrice, p.Category); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListProducts() ([]internal.CatalogProduct, error) {
	rows, err := d.conn.Query(`
SELECT id, code, name, listPrice, standardPrice, category
FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CatalogProduct
	for rows.Next() {
		var p internal.CatalogProduct
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.ListPrice, &p.StandardPrice, &p.Category); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (d *DB) UpsertOrder(reference string) (internal.OrderRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO orders (reference) VALUES (?)
ON CONFLICT(reference) DO UPDATE SET updatedAt = CURRENT_TIMESTAMP
`, reference)
	if err != nil {
		return internal.OrderRow{}, err
	}

	row, err := d.GetOrderByReference(reference)
	if err != nil {
		return internal.OrderRow{}, err
	}
	if row == nil {
		return internal.OrderRow{}, errors.New("failed to upsert order")
	}
	return *row, nil
}

func (d *DB) GetOrderByReference(reference string) (*internal.OrderRow, error) {
	var row internal.OrderRow
	err := d.conn.QueryRow(`
SELECT id, reference, status, createdAt FROM orders WHERE reference = ?
`, reference).Scan(&row.ID, &row.Reference, &row.Status, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustOrderByReference(reference string) (internal.OrderRow, error) {
	row, err := d.GetOrderByReference(reference)
	if err != nil {
		return internal.OrderRow{}, err
	}
	if row == nil {
		return internal.OrderRow{}, fmt.Errorf("order not found: reference=%s", reference)
	}
	return *row, nil
}

func (d *DB) UpdateOrderStatus(orderID int, status string) error {
	_, err := d.conn.Exec(`UPDATE orders SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, orderID)
	return err
}

// ClearOrderProcessing drops line items and their matches so an order can
// be re-run from scratch.
func (d *DB) ClearOrderProcessing(orderID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`SELECT id FROM line_items WHERE orderId = ?`, orderID)
	if err != nil {
		return err
	}
	var lineItemIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		lineItemIDs = append(lineItemIDs, id)
	}
	_ = rows.Close()

	for _, id := range lineItemIDs {
		if _, err := tx.Exec(`DELETE FROM matches WHERE lineItemId = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM line_items WHERE id = ?`, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) InsertLineItem(orderID int, item internal.ExtractedLineItem) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO line_items (orderId, lineNo, name, code, qty, unitPrice)
VALUES (?, ?, ?, ?, ?, ?)
`, orderID, item.LineNo, item.Name, item.Code, item.Quantity, item.UnitPrice)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) InsertMatch(lineItemID int64, result internal.MatchResult) error {
	candidatesJSON, _ := json.Marshal(result.Candidates)
	var productID *int
	if result.Match != nil {
		productID = util.IntPtr(result.Match.ID)
	}

	_, err := d.conn.Exec(`
INSERT INTO matches (lineItemId, method, confidence, requiresReview, productId, candidatesJson)
VALUES (?, ?, ?, ?, ?, ?)
`, lineItemID, string(result.Method), result.Confidence, result.RequiresReview, productID, string(candidatesJSON))
	return err
}

func (d *DB) InsertRun(traceID string, orderID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, orderId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, orderID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// GetExportRows returns the order's lines joined with their match and the
// matched product: clean matches first, review lines after, no-match last.
func (d *DB) GetExportRows(orderID int) ([]internal.LineExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  l.lineNo,
  l.name,
  l.code,
  l.qty,
  l.unitPrice,
  m.method,
  m.confidence,
  m.requiresReview,
  p.id,
  p.code,
  p.name,
  p.category,
  p.listPrice,
  m.candidatesJson
FROM line_items l
JOIN matches m ON m.lineItemId = l.id
LEFT JOIN products p ON p.id = m.productId
WHERE l.orderId = ?
ORDER BY m.requiresReview ASC,
  CASE m.method WHEN 'no_match' THEN 2 ELSE 1 END,
  l.lineNo ASC
`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.LineExportRow
	for rows.Next() {
		var row internal.LineExportRow
		var candidatesJSON string
		if err := rows.Scan(
			&row.LineNo,
			&row.InputName,
			&row.InputCode,
			&row.InputQty,
			&row.InputUnitPrice,
			&row.Method,
			&row.Confidence,
			&row.RequiresReview,
			&row.ProductID,
			&row.ProductCode,
			&row.ProductName,
			&row.ProductCategory,
			&row.ProductListPrice,
			&candidatesJSON,
		); err != nil {
			return nil, err
		}

		var candidates []internal.MatchCandidate
		_ = json.Unmarshal([]byte(candidatesJSON), &candidates)
		if len(candidates) > 1 {
			row.Candidate2Name = util.StringPtr(candidates[1].Product.Name)
			row.Candidate2Score = util.FloatPtr(candidates[1].Score)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}
