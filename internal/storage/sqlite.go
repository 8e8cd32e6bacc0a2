package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"giftomatic/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle so sibling packages (the dedup registry)
// can share one database file.
func (s *Store) DB() *sql.DB { return s.db }

// ---- users / balance ledger ----

func (s *Store) UpsertUser(ctx context.Context, id int64, username string, vip bool) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, username, vip, created_at, updated_at) VALUES(?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET username=excluded.username, vip=excluded.vip, updated_at=excluded.updated_at`,
		id, username, boolInt(vip), now, now,
	)
	return err
}

// ListEligibleUsers returns users eligible for delivery. vipOnly=false means
// everyone (vip subscribers included); vipOnly=true restricts to the vip tier.
func (s *Store) ListEligibleUsers(ctx context.Context, vipOnly bool) ([]User, error) {
	q := `SELECT id, username, vip, balance FROM users WHERE enabled = 1`
	if vipOnly {
		q += ` AND vip = 1`
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var vip int
		if err := rows.Scan(&u.ID, &u.Username, &vip, &u.Balance); err != nil {
			return nil, err
		}
		u.VIP = vip != 0
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) Balance(ctx context.Context, userID int64) (int64, error) {
	var b int64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, userID).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnknownUser
	}
	return b, err
}

func (s *Store) Credit(ctx context.Context, userID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?`,
		amount, time.Now().UnixMilli(), userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUnknownUser
	}
	return nil
}

// Debit withdraws amount from the user's balance if it suffices.
// It reports false (no error) on insufficient funds; that is a business
// precondition, not a failure.
func (s *Store) Debit(ctx context.Context, userID, amount int64) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("debit amount must be >= 0, got %d", amount)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET balance = balance - ?, updated_at = ? WHERE id = ? AND balance >= ?`,
		amount, time.Now().UnixMilli(), userID, amount,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, ErrUnknownUser
	}
	return false, nil
}

// ---- delivery records ----

func (s *Store) IsDelivered(ctx context.Context, giftID, userID int64) (bool, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM deliveries WHERE gift_id = ? AND user_id = ?`, giftID, userID,
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return state == DeliveryDelivered, nil
}

// EnsurePendingDelivery records intent to deliver. The upsert is keyed by
// (gift,user): repeated calls return the same row, and a delivered row is
// never downgraded back to pending.
func (s *Store) EnsurePendingDelivery(ctx context.Context, giftID, userID int64) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries(gift_id, user_id, state, created_at) VALUES(?,?,?,?)
		 ON CONFLICT(gift_id, user_id) DO NOTHING`,
		giftID, userID, DeliveryPending, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM deliveries WHERE gift_id = ? AND user_id = ?`, giftID, userID,
	).Scan(&id)
	return id, err
}

// MarkDelivered finalizes a pending record. Already-delivered rows are left
// untouched (delivered is terminal).
func (s *Store) MarkDelivered(ctx context.Context, deliveryID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE deliveries SET state = ?, delivered_at = ? WHERE id = ? AND state = ?`,
		DeliveryDelivered, time.Now().UnixMilli(), deliveryID, DeliveryPending,
	)
	return err
}

// ReleaseStalePending drops pending rows older than maxAge so a later scan
// can retry them from scratch. Delivered rows are never touched.
func (s *Store) ReleaseStalePending(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM deliveries WHERE state = ? AND created_at < ?`, DeliveryPending, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- invoices ----

func (s *Store) CreateInvoice(ctx context.Context, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("invoice amount must be positive, got %d", amount)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices(user_id, amount, state, created_at) VALUES(?,?,?,?)`,
		userID, amount, InvoiceCreated, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkInvoicePaid flips the invoice to paid and credits the user's balance in
// one transaction. Paying an invoice twice is a no-op.
func (s *Store) MarkInvoicePaid(ctx context.Context, invoiceID int64, chargeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var userID, amount int64
	var state string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, amount, state FROM invoices WHERE id = ?`, invoiceID,
	).Scan(&userID, &amount, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUnknownInvoice
	}
	if err != nil {
		return err
	}
	if state != InvoiceCreated {
		return nil
	}

	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx,
		`UPDATE invoices SET state = ?, charge_id = ?, paid_at = ? WHERE id = ?`,
		InvoicePaid, chargeID, now, invoiceID,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?`,
		amount, now, userID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ExpireInvoicesBefore closes unpaid invoices created before cutoff.
func (s *Store) ExpireInvoicesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET state = ? WHERE state = ? AND created_at < ?`,
		InvoiceExpired, InvoiceCreated, cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
