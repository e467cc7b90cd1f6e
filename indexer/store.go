package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cosmicpool/cosmicpool/types"
)

const maxBusyTimeoutMs = 5000

const schema = `
CREATE TABLE IF NOT EXISTS deposits (
	seq        INTEGER PRIMARY KEY,
	commitment TEXT    NOT NULL UNIQUE,
	amount     TEXT    NOT NULL,
	indexed_at INTEGER NOT NULL
)`

var ErrSequenceGap = errors.New("deposit sequence gap")

type (
	// Store keeps indexed deposit events in a SQLite database.
	Store struct {
		db *sql.DB
	}

	Record struct {
		Seq        uint64
		Commitment types.Commitment
		Amount     string // wei
		IndexedAt  time.Time
	}
)

// OpenStore opens (creating when needed) the index database, ":memory:" is
// accepted for a throwaway index.
func OpenStore(file string) (*Store, error) {
	connStr := file
	if file != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		connStr = fmt.Sprintf("file:%s", filepath.Clean(file))
	}
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single connection, otherwise every ":memory:" connection is a new database
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping sqlite: %w", err), db.Close())
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		return nil, errors.Join(fmt.Errorf("set busy timeout: %w", err), db.Close())
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Join(fmt.Errorf("create schema: %w", err), db.Close())
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LastSeq returns the sequence number of the last indexed event, 0 when empty.
func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM deposits`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last sequence: %w", err)
	}
	return uint64(seq.Int64), nil
}

/*
Add indexes the event. Events already indexed are ignored, events must be added
in sequence order without gaps.
*/
func (s *Store) Add(ctx context.Context, ev *types.DepositEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM deposits`).Scan(&last); err != nil {
		return fmt.Errorf("query last sequence: %w", err)
	}
	switch {
	case ev.DepositCount <= uint64(last.Int64):
		return nil
	case ev.DepositCount != uint64(last.Int64)+1:
		return fmt.Errorf("%w: last indexed %d, got %d", ErrSequenceGap, last.Int64, ev.DepositCount)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO deposits (seq, commitment, amount, indexed_at) VALUES (?, ?, ?, ?)`,
		int64(ev.DepositCount), ev.Commitment.String(), types.FormatWei(ev.Amount), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("insert deposit %d: %w", ev.DepositCount, err)
	}
	return tx.Commit()
}

// Commitment looks up the indexed deposit of commitment c.
func (s *Store) Commitment(ctx context.Context, c types.Commitment) (*Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT seq, commitment, amount, indexed_at FROM deposits WHERE commitment = ?`, c.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Records returns at most limit records starting from sequence number from.
func (s *Store) Records(ctx context.Context, from uint64, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT seq, commitment, amount, indexed_at FROM deposits WHERE seq >= ? ORDER BY seq LIMIT ?`, int64(from), limit)
	if err != nil {
		return nil, fmt.Errorf("query deposits: %w", err)
	}
	defer rows.Close()
	var res []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		seq        int64
		commitment string
		indexedAt  int64
		rec        = &Record{}
	)
	if err := row.Scan(&seq, &commitment, &rec.Amount, &indexedAt); err != nil {
		return nil, err
	}
	c, err := types.ParseCommitment(commitment)
	if err != nil {
		return nil, fmt.Errorf("indexed commitment %q: %w", commitment, err)
	}
	rec.Seq = uint64(seq)
	rec.Commitment = c
	rec.IndexedAt = time.Unix(indexedAt, 0)
	return rec, nil
}
