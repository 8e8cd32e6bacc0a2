package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"giftomatic/pkg/logx"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestDebitAndCredit(t *testing.T) {
	t.Parallel()
	st := openTest(t)
	ctx := context.Background()

	if err := st.UpsertUser(ctx, 1, "alice", false); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := st.Credit(ctx, 1, 100); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	ok, err := st.Debit(ctx, 1, 60)
	if err != nil || !ok {
		t.Fatalf("Debit(60) = %v, %v; want true, nil", ok, err)
	}
	ok, err = st.Debit(ctx, 1, 60)
	if err != nil || ok {
		t.Fatalf("Debit(60) on 40 balance = %v, %v; want false, nil", ok, err)
	}
	b, err := st.Balance(ctx, 1)
	if err != nil || b != 40 {
		t.Fatalf("Balance = %d, %v; want 40, nil", b, err)
	}

	if _, err := st.Debit(ctx, 999, 1); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("Debit unknown user err = %v, want ErrUnknownUser", err)
	}
	if err := st.Credit(ctx, 999, 1); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("Credit unknown user err = %v, want ErrUnknownUser", err)
	}
}

func TestListEligibleUsers(t *testing.T) {
	t.Parallel()
	st := openTest(t)
	ctx := context.Background()

	for _, u := range []struct {
		id  int64
		vip bool
	}{{1, false}, {2, true}, {3, true}, {4, false}} {
		if err := st.UpsertUser(ctx, u.id, "", u.vip); err != nil {
			t.Fatalf("UpsertUser(%d): %v", u.id, err)
		}
	}

	all, err := st.ListEligibleUsers(ctx, false)
	if err != nil {
		t.Fatalf("ListEligibleUsers(false): %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("default listing has %d users, want 4 (vip included)", len(all))
	}

	vips, err := st.ListEligibleUsers(ctx, true)
	if err != nil {
		t.Fatalf("ListEligibleUsers(true): %v", err)
	}
	if len(vips) != 2 || !vips[0].VIP || !vips[1].VIP {
		t.Fatalf("vip listing = %+v, want users 2 and 3", vips)
	}
}

func TestDeliveryLifecycle(t *testing.T) {
	t.Parallel()
	st := openTest(t)
	ctx := context.Background()

	done, err := st.IsDelivered(ctx, 7, 1)
	if err != nil || done {
		t.Fatalf("IsDelivered before any record = %v, %v; want false, nil", done, err)
	}

	id1, err := st.EnsurePendingDelivery(ctx, 7, 1)
	if err != nil {
		t.Fatalf("EnsurePendingDelivery: %v", err)
	}
	id2, err := st.EnsurePendingDelivery(ctx, 7, 1)
	if err != nil {
		t.Fatalf("EnsurePendingDelivery (repeat): %v", err)
	}
	if id1 != id2 {
		t.Fatalf("repeated upsert returned new handle: %d != %d", id1, id2)
	}

	if err := st.MarkDelivered(ctx, id1); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	done, err = st.IsDelivered(ctx, 7, 1)
	if err != nil || !done {
		t.Fatalf("IsDelivered after mark = %v, %v; want true, nil", done, err)
	}

	// Delivered is terminal: a later upsert must not resurrect pending state.
	id3, err := st.EnsurePendingDelivery(ctx, 7, 1)
	if err != nil || id3 != id1 {
		t.Fatalf("upsert after delivered = %d, %v; want %d, nil", id3, err, id1)
	}
	done, _ = st.IsDelivered(ctx, 7, 1)
	if !done {
		t.Fatal("delivered record transitioned back to pending")
	}
}

func TestReleaseStalePending(t *testing.T) {
	t.Parallel()
	st := openTest(t)
	ctx := context.Background()

	pendingID, err := st.EnsurePendingDelivery(ctx, 7, 1)
	if err != nil {
		t.Fatalf("EnsurePendingDelivery: %v", err)
	}
	deliveredID, err := st.EnsurePendingDelivery(ctx, 7, 2)
	if err != nil {
		t.Fatalf("EnsurePendingDelivery: %v", err)
	}
	if err := st.MarkDelivered(ctx, deliveredID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	// maxAge < 0 puts the cutoff in the future, so every pending row is stale.
	n, err := st.ReleaseStalePending(ctx, -time.Second)
	if err != nil {
		t.Fatalf("ReleaseStalePending: %v", err)
	}
	if n != 1 {
		t.Fatalf("released %d rows, want 1 (delivered rows must survive)", n)
	}
	done, err := st.IsDelivered(ctx, 7, 2)
	if err != nil || !done {
		t.Fatalf("delivered row vanished: %v, %v", done, err)
	}

	// The released pair can be recorded again under a fresh handle.
	again, err := st.EnsurePendingDelivery(ctx, 7, 1)
	if err != nil {
		t.Fatalf("EnsurePendingDelivery after release: %v", err)
	}
	if again == pendingID {
		t.Fatalf("released row was not actually removed: handle %d reused", again)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	t.Parallel()
	st := openTest(t)
	ctx := context.Background()

	if err := st.UpsertUser(ctx, 1, "alice", false); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	invID, err := st.CreateInvoice(ctx, 1, 500)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if err := st.MarkInvoicePaid(ctx, invID, "charge-1"); err != nil {
		t.Fatalf("MarkInvoicePaid: %v", err)
	}
	b, err := st.Balance(ctx, 1)
	if err != nil || b != 500 {
		t.Fatalf("Balance after paid invoice = %d, %v; want 500, nil", b, err)
	}

	// Paying twice must not double-credit.
	if err := st.MarkInvoicePaid(ctx, invID, "charge-1"); err != nil {
		t.Fatalf("MarkInvoicePaid (repeat): %v", err)
	}
	b, _ = st.Balance(ctx, 1)
	if b != 500 {
		t.Fatalf("Balance after duplicate pay = %d, want 500", b)
	}

	if err := st.MarkInvoicePaid(ctx, 999, "x"); !errors.Is(err, ErrUnknownInvoice) {
		t.Fatalf("MarkInvoicePaid unknown err = %v, want ErrUnknownInvoice", err)
	}

	// A fresh unpaid invoice expires; the paid one stays paid.
	if _, err := st.CreateInvoice(ctx, 1, 100); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	n, err := st.ExpireInvoicesBefore(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("ExpireInvoicesBefore = %d, %v; want 1, nil", n, err)
	}
}
