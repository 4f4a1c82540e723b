package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Begin() (*sql.Tx, error)
	Close() error
}

type Store struct {
	db  DB
	now func() time.Time
}

// OpenSQLite opens dsn with a single connection; sqlite serializes writers anyway
// and ":memory:" databases are per connection.
func OpenSQLite(dsn string) (DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(db DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_cache(
			cache_key TEXT PRIMARY KEY, payload BLOB NOT NULL, created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs(
			id TEXT PRIMARY KEY, chat_id INTEGER, created_at INTEGER, method TEXT, target REAL,
			span TEXT, seed TEXT, variance REAL, expected_return REAL, tickers TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_positions(
			run_id TEXT, ticker TEXT, mean REAL, variance REAL, position REAL
		)`,
		`CREATE INDEX IF NOT EXISTS runs_chat_ts ON runs(chat_id, created_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func NewStore(db DB) *Store { return &Store{db: db, now: time.Now} }

// LoadPrices returns the cached payload for key. maxAge <= 0 accepts any age.
func (s *Store) LoadPrices(key string, maxAge time.Duration) ([]byte, bool, error) {
	var payload []byte
	var createdAt int64
	err := s.db.QueryRow(`SELECT payload, created_at FROM price_cache WHERE cache_key=?`, key).Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if maxAge > 0 && s.now().Sub(time.Unix(createdAt, 0)) > maxAge {
		return nil, false, nil
	}
	return payload, true, nil
}

func (s *Store) SavePrices(key string, payload []byte) error {
	_, err := s.db.Exec(`INSERT INTO price_cache(cache_key,payload,created_at) VALUES(?,?,?)
		ON CONFLICT(cache_key) DO UPDATE SET payload=excluded.payload, created_at=excluded.created_at`,
		key, payload, s.now().Unix())
	return err
}

type PositionRecord struct {
	Ticker   string
	Mean     float64
	Variance float64
	Position float64 // percent
}

// RunRecord is one optimization kept for /history. ChatID 0 marks the CLI.
type RunRecord struct {
	ID             string
	ChatID         int64
	CreatedAt      time.Time
	Method         string
	Target         float64
	Span           string
	Seed           uint64
	Variance       float64
	ExpectedReturn float64
	Positions      []PositionRecord
}

// SaveRun stores rec and its positions in one transaction, assigning an ID if missing.
func (s *Store) SaveRun(rec RunRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	tickers := make([]string, len(rec.Positions))
	for i, p := range rec.Positions {
		tickers[i] = p.Ticker
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs(id,chat_id,created_at,method,target,span,seed,variance,expected_return,tickers)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.ChatID, rec.CreatedAt.Unix(), rec.Method, rec.Target, rec.Span,
		strconv.FormatUint(rec.Seed, 10), rec.Variance, rec.ExpectedReturn, strings.Join(tickers, ",")); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	for _, p := range rec.Positions {
		if _, err := tx.Exec(`INSERT INTO run_positions(run_id,ticker,mean,variance,position) VALUES(?,?,?,?,?)`,
			rec.ID, p.Ticker, p.Mean, p.Variance, p.Position); err != nil {
			return "", fmt.Errorf("failed to insert position %s: %w", p.Ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// RecentRuns returns up to limit runs for chatID, newest first, with positions.
func (s *Store) RecentRuns(chatID int64, limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT id,created_at,method,target,span,seed,variance,expected_return
		FROM runs WHERE chat_id=? ORDER BY created_at DESC, rowid DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, err
	}
	var out []RunRecord
	for rows.Next() {
		r := RunRecord{ChatID: chatID}
		var ts int64
		var seed string
		if err := rows.Scan(&r.ID, &ts, &r.Method, &r.Target, &r.Span, &seed, &r.Variance, &r.ExpectedReturn); err != nil {
			rows.Close()
			return nil, err
		}
		r.CreatedAt = time.Unix(ts, 0)
		r.Seed, _ = strconv.ParseUint(seed, 10, 64)
		out = append(out, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Positions, err = s.positions(out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) positions(runID string) ([]PositionRecord, error) {
	rows, err := s.db.Query(`SELECT ticker,mean,variance,position FROM run_positions WHERE run_id=? ORDER BY position DESC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PositionRecord
	for rows.Next() {
		var p PositionRecord
		if err := rows.Scan(&p.Ticker, &p.Mean, &p.Variance, &p.Position); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
