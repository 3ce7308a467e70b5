package shared

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStorage is a durable Storage implementation: instances in separate
// processes rendezvous through one database file.
//
// Each Update runs inside a single immediate transaction, which is the
// critical section the lock semantics rely on: the staleness check and the
// write commit together or not at all, and concurrent writers queue on the
// database's write lock.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLite creates or opens the shared database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for write-lock contention
//   - Foreign key enforcement
//   - Immediate transactions, so a writer holds the write lock from BEGIN
//     instead of failing a mid-transaction lock upgrade under contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time; a single connection
	// avoids SQLITE_BUSY between this process's own operations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Update implements Storage. The namespace is loaded, fn mutates it, and
// the namespace is written back, all inside one immediate transaction.
func (s *SQLiteStorage) Update(namespace, version string, fn func(*Namespace) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if _, err := tx.Exec(
		`INSERT INTO namespaces (name, version) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		namespace, version,
	); err != nil {
		return fmt.Errorf("ensure namespace %s: %w", namespace, err)
	}

	ns, err := loadNamespace(tx, namespace)
	if err != nil {
		return err
	}

	if err := fn(ns); err != nil {
		return err
	}

	if err := writeNamespace(tx, namespace, ns); err != nil {
		return err
	}
	return tx.Commit()
}

// View implements Storage. Viewing an absent namespace sees empty state
// without creating it.
func (s *SQLiteStorage) View(namespace string, fn func(*Namespace) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin view: %w", err)
	}
	defer tx.Rollback()

	ns, err := loadNamespace(tx, namespace)
	if err != nil {
		return err
	}
	return fn(ns)
}

// loadNamespace materializes a Namespace from its rows. An absent
// namespace loads as empty state.
func loadNamespace(tx *sql.Tx, namespace string) (*Namespace, error) {
	ns := newNamespace("")
	err := tx.QueryRow(
		`SELECT version FROM namespaces WHERE name = ?`, namespace,
	).Scan(&ns.Version)
	if err == sql.ErrNoRows {
		return ns, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read namespace %s: %w", namespace, err)
	}

	rows, err := tx.Query(
		`SELECT name, owner_id, acquired_at_ns, metadata FROM locks WHERE namespace = ?`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("read locks for %s: %w", namespace, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name, ownerID string
			acquiredNS    int64
			metadataJSON  sql.NullString
		)
		if err := rows.Scan(&name, &ownerID, &acquiredNS, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan lock: %w", err)
		}
		lock := Lock{OwnerID: ownerID, AcquiredAt: time.Unix(0, acquiredNS).UTC()}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &lock.Metadata); err != nil {
				return nil, fmt.Errorf("decode lock metadata: %w", err)
			}
		}
		ns.Locks[name] = lock
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locks: %w", err)
	}

	dataRows, err := tx.Query(
		`SELECT key, value FROM shared_data WHERE namespace = ?`, namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("read data for %s: %w", namespace, err)
	}
	defer dataRows.Close()
	for dataRows.Next() {
		var key, valueJSON string
		if err := dataRows.Scan(&key, &valueJSON); err != nil {
			return nil, fmt.Errorf("scan data: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(valueJSON), &value); err != nil {
			return nil, fmt.Errorf("decode data value for %q: %w", key, err)
		}
		ns.Data[key] = value
	}
	if err := dataRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data: %w", err)
	}

	return ns, nil
}

// writeNamespace replaces a namespace's lock and data rows with the
// namespace's current state. Maps are small (named locks and settings, not
// bulk data), so rewrite-on-update keeps the diffing logic out of SQL.
func writeNamespace(tx *sql.Tx, namespace string, ns *Namespace) error {
	if _, err := tx.Exec(`DELETE FROM locks WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("clear locks for %s: %w", namespace, err)
	}
	for name, lock := range ns.Locks {
		var metadataJSON any
		if lock.Metadata != nil {
			encoded, err := json.Marshal(lock.Metadata)
			if err != nil {
				return fmt.Errorf("encode lock metadata for %q: %w", name, err)
			}
			metadataJSON = string(encoded)
		}
		if _, err := tx.Exec(
			`INSERT INTO locks (namespace, name, owner_id, acquired_at_ns, metadata) VALUES (?, ?, ?, ?, ?)`,
			namespace, name, lock.OwnerID, lock.AcquiredAt.UnixNano(), metadataJSON,
		); err != nil {
			return fmt.Errorf("write lock %q: %w", name, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM shared_data WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("clear data for %s: %w", namespace, err)
	}
	for key, value := range ns.Data {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode data value for %q: %w", key, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO shared_data (namespace, key, value) VALUES (?, ?, ?)`,
			namespace, key, string(encoded),
		); err != nil {
			return fmt.Errorf("write data %q: %w", key, err)
		}
	}
	return nil
}
