// Package storage persists the exchange's append-only order log and
// fill log, plus account and balance-snapshot records, to Postgres.
// It is durability for audit, not a second source of truth: the
// in-memory core and ledger registry remain authoritative while the
// exchange is open.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store wraps a PostgreSQL connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

// New opens a connection pool against connString.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create connection pool: %w", err)
	}
	return &Store{Pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.Pool.Close()
}

// Account is the durable record behind a participant's login.
type Account struct {
	ParticipantID uuid.UUID
	Username      string
	PasswordHash  string
	InitialCash   decimal.Decimal
	CreatedAt     time.Time
}

// CreateAccount inserts a new account row, keyed by the participant's
// in-memory ledger id so the two stay correlated.
func (s *Store) CreateAccount(ctx context.Context, participantID uuid.UUID, username, passwordHash string, initialCash decimal.Decimal) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO accounts (participant_id, username, password_hash, initial_cash) VALUES ($1, $2, $3, $4)`,
		participantID, username, passwordHash, initialCash)
	if err != nil {
		return fmt.Errorf("storage: failed to create account: %w", err)
	}
	return nil
}

// GetAccountByUsername retrieves an account by username.
func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*Account, error) {
	a := &Account{}
	err := s.Pool.QueryRow(ctx,
		`SELECT participant_id, username, password_hash, initial_cash, created_at FROM accounts WHERE username = $1`,
		username).Scan(&a.ParticipantID, &a.Username, &a.PasswordHash, &a.InitialCash, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("storage: account not found")
		}
		return nil, fmt.Errorf("storage: failed to get account: %w", err)
	}
	return a, nil
}

// AppendOrderLog inserts one order-log entry.
func (s *Store) AppendOrderLog(ctx context.Context, entry string) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO order_log (entry) VALUES ($1)`, entry)
	if err != nil {
		return fmt.Errorf("storage: failed to append order log: %w", err)
	}
	return nil
}

// AppendFillLog inserts one fill-log entry.
func (s *Store) AppendFillLog(ctx context.Context, entry string) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO fill_log (entry) VALUES ($1)`, entry)
	if err != nil {
		return fmt.Errorf("storage: failed to append fill log: %w", err)
	}
	return nil
}

// OrderLog returns every order-log entry in insertion order.
func (s *Store) OrderLog(ctx context.Context) ([]string, error) {
	return s.readLog(ctx, "order_log")
}

// FillLog returns every fill-log entry in insertion order.
func (s *Store) FillLog(ctx context.Context) ([]string, error) {
	return s.readLog(ctx, "fill_log")
}

func (s *Store) readLog(ctx context.Context, table string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, fmt.Sprintf(`SELECT entry FROM %s ORDER BY id ASC`, table))
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read %s: %w", table, err)
	}
	defer rows.Close()

	var entries []string
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return nil, fmt.Errorf("storage: failed to scan %s row: %w", table, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SnapshotBalance records a participant's balance at a point in time,
// the durable form of the in-memory margin history.
func (s *Store) SnapshotBalance(ctx context.Context, participantID uuid.UUID, balance decimal.Decimal, at time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO balance_snapshots (participant_id, balance, taken_at) VALUES ($1, $2, $3)`,
		participantID, balance, at)
	if err != nil {
		return fmt.Errorf("storage: failed to snapshot balance: %w", err)
	}
	return nil
}
