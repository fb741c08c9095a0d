package cache

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"anchorlink/internal/markdown"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Filecache is a Store backed by a SQLite database.
type Filecache struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewFilecache opens (or creates) the SQLite database at dbPath, enables
// WAL mode and initializes the schema.
func NewFilecache(dbPath string) (*Filecache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Filecache{db: db}, nil
}

// withTx runs fn inside a transaction.
func (fc *Filecache) withTx(fn func(tx *sql.Tx) error) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.closed {
		return ErrClosed
	}

	tx, err := fc.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (fc *Filecache) Load(path string) (Entry, bool, error) {
	fc.mu.Lock()
	closed := fc.closed
	fc.mu.Unlock()
	if closed {
		return Entry{}, false, ErrClosed
	}

	var modTime int64
	var data []byte
	err := fc.db.QueryRow(
		`SELECT mod_time, data FROM indexes WHERE path = ?`, path,
	).Scan(&modTime, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var ix markdown.Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return Entry{}, false, fmt.Errorf("corrupt index for %s: %w", path, err)
	}
	return Entry{ModTime: time.Unix(0, modTime), Index: &ix}, true, nil
}

func (fc *Filecache) Save(path string, entry Entry) error {
	data, err := json.Marshal(entry.Index)
	if err != nil {
		return err
	}
	return fc.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
            INSERT INTO indexes (path, mod_time, data) VALUES (?, ?, ?)
            ON CONFLICT(path) DO UPDATE SET mod_time = excluded.mod_time, data = excluded.data
        `, path, entry.ModTime.UnixNano(), data)
		return err
	})
}

func (fc *Filecache) Delete(path string) error {
	return fc.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM indexes WHERE path = ?`, path)
		return err
	})
}

// Paths lists every persisted path.
func (fc *Filecache) Paths() ([]string, error) {
	rows, err := fc.db.Query(`SELECT path FROM indexes ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (fc *Filecache) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.closed {
		return nil
	}
	fc.closed = true
	return fc.db.Close()
}
