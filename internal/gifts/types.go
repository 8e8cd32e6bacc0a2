package gifts

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExhausted is the terminal state of the per-user purchase loop:
// the user's balance never became sufficient within the retry budget.
var ErrAttemptsExhausted = errors.New("delivery attempts exhausted")

// abundantSupply stands in for "unlimited" so ordering by scarcity places
// unlimited gifts last among unequal counts.
const abundantSupply = 1_000_000

// User is one eligible delivery target.
type User struct {
	ID  int64
	VIP bool
}

// Store is the slice of the persistence layer the scheduler needs.
// Implementations must make Debit and the delivery transitions atomic under
// concurrent callers; the fan-out calls them from multiple goroutines.
type Store interface {
	ListEligibleUsers(ctx context.Context, vipOnly bool) ([]User, error)
	IsDelivered(ctx context.Context, giftID, userID int64) (bool, error)
	EnsurePendingDelivery(ctx context.Context, giftID, userID int64) (int64, error)
	Debit(ctx context.Context, userID, amount int64) (bool, error)
	MarkDelivered(ctx context.Context, deliveryID int64) error
}

// Config tunes the scheduler.
type Config struct {
	// VIPPollInterval and DefaultPollInterval are the two scan cadences.
	// The loop ticks at gcd(vip, default).
	VIPPollInterval     time.Duration
	DefaultPollInterval time.Duration

	// BatchSize is the fan-out partition width (users per concurrent batch).
	BatchSize int

	// CallTimeout bounds every external call; a stalled gateway expires into
	// the transient-failure path instead of stalling the tick loop.
	CallTimeout time.Duration

	// MaxAttempts bounds the per-user purchase retry loop; RetryBase and
	// RetryMaxDelay shape the backoff between attempts.
	MaxAttempts   int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 15 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 250 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 10 * time.Second
	}
	return c
}

// gift is the per-scan snapshot used for ordering and purchase. Discarded
// when the scan's deliveries finish; nothing is cached across scans.
type gift struct {
	id     int64
	count  int64 // remaining supply, or abundantSupply for unlimited
	amount int64 // unit price in stars
}
