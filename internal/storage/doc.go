// Package storage is giftomatic's persistence layer: subscriber records with
// their star balances, per-(gift,user) delivery records and top-up invoices.
//
// A single SQLite database backs everything. Writers are serialized by the
// connection pool (max 1 open conn), so the conditional-update operations
// (Debit, MarkDelivered) are atomic under concurrent callers.
package storage
