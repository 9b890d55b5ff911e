// Package resultstore persists build results to SQLite so a batch's
// LastTxInfo records survive process restarts and can be looked up later
// by an external RBF rebuilder or a support tool.
package resultstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chainscribe/chainscribe/internal/model"
)

// Store provides persistent storage for batch build results.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Config holds result-store configuration.
type Config struct {
	DataDir string
}

// Open creates or opens the result store's database, initializing its
// schema on first use.
func Open(cfg *Config) (*Store, error) {
	dataDir := expandPath(cfg.DataDir)

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "chainscribe.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		batch_id TEXT PRIMARY KEY,
		network TEXT NOT NULL,
		total_fee INTEGER NOT NULL,
		chain_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chains (
		batch_id TEXT NOT NULL,
		chain_index INTEGER NOT NULL,
		chain_id TEXT NOT NULL,
		commit_txid TEXT NOT NULL,
		commit_hex TEXT NOT NULL,
		reveal_txids TEXT NOT NULL,
		reveal_hex TEXT NOT NULL,
		total_fee INTEGER NOT NULL,
		last_tx TEXT NOT NULL,

		PRIMARY KEY (batch_id, chain_index),
		FOREIGN KEY (batch_id) REFERENCES batches(batch_id)
	);

	CREATE INDEX IF NOT EXISTS idx_chains_batch ON chains(batch_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveResult persists a completed build result under createdAt (a Unix
// timestamp supplied by the caller, since the store itself never reads
// the clock).
func (s *Store) SaveResult(result *model.Result, createdAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !result.Success {
		return fmt.Errorf("resultstore: refusing to persist a failed result")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO batches (batch_id, network, total_fee, chain_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		result.BatchID, networkOf(result), result.TotalEstimatedFee, len(result.Chains), createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for i, chain := range result.Chains {
		revealTxIDs, err := json.Marshal(chain.RevealTxIDs)
		if err != nil {
			return fmt.Errorf("marshal reveal txids: %w", err)
		}
		revealHex, err := json.Marshal(chain.RevealHex)
		if err != nil {
			return fmt.Errorf("marshal reveal hex: %w", err)
		}
		lastTx, err := json.Marshal(chain.LastTx)
		if err != nil {
			return fmt.Errorf("marshal last tx: %w", err)
		}

		_, err = tx.Exec(
			`INSERT OR REPLACE INTO chains (batch_id, chain_index, chain_id, commit_txid, commit_hex, reveal_txids, reveal_hex, total_fee, last_tx)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.BatchID, i, chain.ChainID, chain.CommitTxID, chain.CommitHex,
			string(revealTxIDs), string(revealHex), chain.TotalFee, string(lastTx),
		)
		if err != nil {
			return fmt.Errorf("insert chain %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadLastTx fetches the persisted LastTxInfo for one chain within a batch.
func (s *Store) LoadLastTx(batchID string, chainIndex int) (*model.LastTxInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRow(
		`SELECT last_tx FROM chains WHERE batch_id = ? AND chain_index = ?`,
		batchID, chainIndex,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("resultstore: no chain %d in batch %s", chainIndex, batchID)
	}
	if err != nil {
		return nil, err
	}

	var info model.LastTxInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("unmarshal last tx: %w", err)
	}
	return &info, nil
}

func networkOf(result *model.Result) string {
	for _, c := range result.Chains {
		return c.LastTx.Network
	}
	return "unknown"
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
