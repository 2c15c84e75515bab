package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/memescan/pkg/analyzer"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    token_address TEXT NOT NULL,
    token_symbol TEXT,
    total_buyers INTEGER DEFAULT 0,
    holding_buyers INTEGER DEFAULT 0,
    cleared_buyers INTEGER DEFAULT 0,
    result TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_token ON analysis_runs(token_address);
CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_at);
`

// Store persists finished analysis results. This is the only state that
// outlives a run; the pipeline itself keeps everything in memory.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RunSummary is a stored run without the full result payload.
type RunSummary struct {
	ID            int64
	TokenAddress  string
	TokenSymbol   string
	TotalBuyers   int
	HoldingBuyers int
	ClearedBuyers int
	CreatedAt     time.Time
}

// SaveRun stores a finished result as JSON and returns the run id.
func (s *Store) SaveRun(result *analyzer.Result) (int64, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("marshal result: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO analysis_runs (token_address, token_symbol, total_buyers, holding_buyers, cleared_buyers, result)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.Token.Address, result.Token.Symbol,
		result.Stats.TotalBuyers, result.Stats.HoldingBuyers, result.Stats.ClearedBuyers,
		string(payload))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// GetRun loads a stored result by id.
func (s *Store) GetRun(id int64) (*analyzer.Result, error) {
	var payload string
	err := s.db.QueryRow(`SELECT result FROM analysis_runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		return nil, err
	}
	var result analyzer.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// ListRuns returns recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, token_address, COALESCE(token_symbol, ''), total_buyers, holding_buyers, cleared_buyers, created_at
		FROM analysis_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.TokenAddress, &r.TokenSymbol, &r.TotalBuyers, &r.HoldingBuyers, &r.ClearedBuyers, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneOlderThan removes runs past the retention window.
func (s *Store) PruneOlderThan(ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	res, err := s.db.Exec(`DELETE FROM analysis_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
