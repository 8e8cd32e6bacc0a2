package storage

import (
	"errors"
	"time"
)

var (
	ErrUnknownUser    = errors.New("unknown user")
	ErrUnknownInvoice = errors.New("unknown invoice")
)

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// User is a subscriber eligible for gift delivery.
type User struct {
	ID       int64
	Username string
	VIP      bool
	Balance  int64 // stars
}

// Delivery states. Absence of a row means delivery was never attempted.
// A delivered row never transitions again.
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
)

// Invoice states.
const (
	InvoiceCreated = "created"
	InvoicePaid    = "paid"
	InvoiceExpired = "expired"
)
