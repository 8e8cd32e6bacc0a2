// Package dedup is the persistent seen-set that keeps the bot from
// re-announcing a catalog gift it already processed. Membership is
// partitioned by the vip flag: the same gift id is tracked independently for
// the vip and the default scan.
package dedup

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// Registry is the seen-set capability consumed by the gift scheduler.
// TestAndInsert must be atomic under concurrent callers.
type Registry interface {
	// TestAndInsert marks (giftID, vip) as seen and reports whether it was
	// newly added. The registry never forgets an entry on its own.
	TestAndInsert(ctx context.Context, giftID int64, vip bool) (bool, error)
}

// ---- SQLite-backed registry ----

type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLite prepares the seen-set table on an already-open database handle
// (shared with the main store).
func OpenSQLite(ctx context.Context, db *sql.DB) (*SQLiteRegistry, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS seen_gifts (
		    gift_id  INTEGER NOT NULL,
		    vip      INTEGER NOT NULL,
		    seen_at  INTEGER NOT NULL,
		    PRIMARY KEY (gift_id, vip)
		)`)
	if err != nil {
		return nil, err
	}
	return &SQLiteRegistry{db: db}, nil
}

func (r *SQLiteRegistry) TestAndInsert(ctx context.Context, giftID int64, vip bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO seen_gifts(gift_id, vip, seen_at) VALUES(?,?,?)
		 ON CONFLICT(gift_id, vip) DO NOTHING`,
		giftID, boolInt(vip), time.Now().UnixMilli(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ---- In-memory registry (tests, dry runs) ----

type MemoryRegistry struct {
	mu   sync.Mutex
	seen map[memKey]struct{}
}

type memKey struct {
	giftID int64
	vip    bool
}

func NewMemory() *MemoryRegistry {
	return &MemoryRegistry{seen: map[memKey]struct{}{}}
}

func (r *MemoryRegistry) TestAndInsert(_ context.Context, giftID int64, vip bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memKey{giftID: giftID, vip: vip}
	if _, ok := r.seen[k]; ok {
		return false, nil
	}
	r.seen[k] = struct{}{}
	return true, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
