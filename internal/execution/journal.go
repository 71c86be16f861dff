package execution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Record is one orchestrated operation as persisted in the journal: a swap,
// one dust item, an approval, or a rule submission. The full payload is kept
// as JSON so the schema stays stable while result shapes evolve.
type Record struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Status    string          `json:"status"`
	ChainID   int64           `json:"chain_id"`
	Wallet    string          `json:"wallet"`
	TxHash    string          `json:"tx_hash,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func NewRecord(id, kind string, chainID int64, walletAddr string) Record {
	now := time.Now().UTC().Format(time.RFC3339)
	return Record{
		ID:        id,
		Kind:      kind,
		Status:    string(StatusPending),
		ChainID:   chainID,
		Wallet:    walletAddr,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Record) Touch() {
	r.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

// Journal is a sqlite-backed log of orchestrated operations, primarily for
// operator debugging of timed-out submissions. A nil *Journal is a valid
// no-op sink.
type Journal struct {
	db   *sql.DB
	lock *flock.Flock
}

func OpenJournal(path, lockPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			chain_id INTEGER NOT NULL,
			wallet TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_orders_status_updated ON orders(status, updated_at DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init journal schema: %w", err)
		}
	}
	return &Journal{db: db, lock: flock.New(lockPath)}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) Save(record Record) error {
	if j == nil || j.db == nil {
		return nil
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("save order: missing id")
	}
	locked, err := j.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock journal: timeout acquiring lock")
	}
	defer func() { _ = j.lock.Unlock() }()

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal order record: %w", err)
	}
	createdUnix := rfc3339Unix(record.CreatedAt)
	updatedUnix := rfc3339Unix(record.UpdatedAt)

	_, err = j.db.Exec(`
		INSERT INTO orders (id, kind, status, chain_id, wallet, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind,
			status=excluded.status,
			chain_id=excluded.chain_id,
			wallet=excluded.wallet,
			updated_at=excluded.updated_at,
			payload=excluded.payload
	`, record.ID, record.Kind, record.Status, record.ChainID, record.Wallet, createdUnix, updatedUnix, payload)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

func (j *Journal) Get(id string) (Record, error) {
	if j == nil || j.db == nil {
		return Record{}, fmt.Errorf("journal is not open")
	}
	var payload []byte
	err := j.db.QueryRow("SELECT payload FROM orders WHERE id = ?", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("order not found: %s", id)
		}
		return Record{}, fmt.Errorf("read order: %w", err)
	}
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return Record{}, fmt.Errorf("decode order payload: %w", err)
	}
	return record, nil
}

func (j *Journal) List(status string, limit int) ([]Record, error) {
	if j == nil || j.db == nil {
		return nil, fmt.Errorf("journal is not open")
	}
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if strings.TrimSpace(status) == "" {
		rows, err = j.db.Query("SELECT payload FROM orders ORDER BY updated_at DESC LIMIT ?", limit)
	} else {
		rows, err = j.db.Query("SELECT payload FROM orders WHERE status = ? ORDER BY updated_at DESC LIMIT ?", status, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		var record Record
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decode order row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return records, nil
}

func rfc3339Unix(v string) int64 {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Now().UTC().Unix()
	}
	return t.UTC().Unix()
}
