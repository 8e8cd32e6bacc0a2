// Package transport holds the platform-neutral types and gateway interfaces
// the rest of the bot is written against. The telegram subpackage is the only
// concrete implementation today.
package transport

import "context"

// Gift is a catalog item snapshot as reported by the platform.
type Gift struct {
	ID        int64
	Name      string
	StarCount int64 // unit price in stars

	// TotalCount is the total supply; 0 means unlimited.
	TotalCount int64
	// Remaining is how many are left; meaningful only for limited gifts.
	Remaining int64
}

// Unlimited reports whether the gift has no supply cap.
func (g Gift) Unlimited() bool { return g.TotalCount == 0 }

// Catalog lists currently purchasable gifts.
type Catalog interface {
	AvailableGifts(ctx context.Context) ([]Gift, error)
}

// Messenger is the outbound side: channel announcements and gift fulfillment.
type Messenger interface {
	// Announce broadcasts a new-gift notice to the configured channel.
	// Best-effort: callers treat failures as non-fatal.
	Announce(ctx context.Context, g Gift) error

	// DeliverGift sends the gift to the user (the purchase fulfillment action).
	DeliverGift(ctx context.Context, userID, giftID int64) error
}
