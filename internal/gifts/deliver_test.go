package gifts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"giftomatic/internal/dedup"
	"giftomatic/pkg/logx"
)

func newTestService(st *fakeStore, msg *fakeMessenger) *Service {
	return New(testConfig(), &fakeCatalog{}, msg, st, dedup.NewMemory(), logx.Nop())
}

func TestDeliverOneHappyPath(t *testing.T) {
	t.Parallel()
	st := newFakeStore([]User{{ID: 1}}, map[int64]int64{1: 100})
	msg := &fakeMessenger{}
	svc := newTestService(st, msg)

	if err := svc.deliverOne(context.Background(), gift{id: 7, count: 2, amount: 50}, 1); err != nil {
		t.Fatalf("deliverOne: %v", err)
	}
	if !st.isDelivered(7, 1) {
		t.Fatal("delivery not recorded")
	}
	if st.debitOK[1] != 1 {
		t.Fatalf("successful debits = %d, want exactly 1", st.debitOK[1])
	}
	if st.balances[1] != 50 {
		t.Fatalf("balance = %d, want 50", st.balances[1])
	}
}

func TestDeliverOneIdempotentAfterCompletion(t *testing.T) {
	t.Parallel()
	st := newFakeStore([]User{{ID: 1}}, map[int64]int64{1: 100})
	msg := &fakeMessenger{}
	svc := newTestService(st, msg)

	g := gift{id: 7, count: 2, amount: 50}
	if err := svc.deliverOne(context.Background(), g, 1); err != nil {
		t.Fatalf("first deliverOne: %v", err)
	}
	debits := st.debitCalls[1]
	sends := len(msg.delivered)

	// A second invocation must observe completion and do nothing.
	if err := svc.deliverOne(context.Background(), g, 1); err != nil {
		t.Fatalf("second deliverOne: %v", err)
	}
	if st.debitCalls[1] != debits {
		t.Fatal("completed delivery must not debit again")
	}
	if len(msg.delivered) != sends {
		t.Fatal("completed delivery must not send again")
	}
}

func TestDeliverOneExhaustsRetriesOnInsufficientBalance(t *testing.T) {
	t.Parallel()
	st := newFakeStore([]User{{ID: 1}}, map[int64]int64{1: 10}) // can't afford 50
	svc := newTestService(st, &fakeMessenger{})

	err := svc.deliverOne(context.Background(), gift{id: 7, count: 2, amount: 50}, 1)
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("err = %v, want ErrAttemptsExhausted", err)
	}
	if got, want := st.debitCalls[1], svc.cfg.MaxAttempts; got != want {
		t.Fatalf("debit attempts = %d, want %d", got, want)
	}
	if st.isDelivered(7, 1) {
		t.Fatal("exhausted delivery must not be marked delivered")
	}
}

func TestDeliverOneReusesPendingRecord(t *testing.T) {
	t.Parallel()
	st := newFakeStore([]User{{ID: 1}}, map[int64]int64{1: 0})
	svc := newTestService(st, &fakeMessenger{})

	_ = svc.deliverOne(context.Background(), gift{id: 7, count: 2, amount: 50}, 1)
	// Every retry upserts, but at most one pending record may exist.
	if got := len(st.pending); got != 1 {
		t.Fatalf("pending records = %d, want 1", got)
	}
}

func TestBatchFailureIsolation(t *testing.T) {
	t.Parallel()
	users := []User{{ID: 1}, {ID: 2}, {ID: 3}}
	st := newFakeStore(users, map[int64]int64{1: 100, 2: 100, 3: 100})
	msg := &fakeMessenger{
		deliverErr: func(userID, _ int64) error {
			if userID == 2 {
				return errors.New("blocked the bot")
			}
			return nil
		},
	}
	svc := newTestService(st, msg)

	svc.fanout(context.Background(), gift{id: 7, count: 3, amount: 50}, users)

	if !st.isDelivered(7, 1) || !st.isDelivered(7, 3) {
		t.Fatal("users 1 and 3 must be delivered despite user 2 failing")
	}
	if st.isDelivered(7, 2) {
		t.Fatal("user 2's failed send must not be marked delivered")
	}
}

func TestFanoutRunsBatchesConcurrently(t *testing.T) {
	t.Parallel()
	users := []User{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	st := newFakeStore(users, map[int64]int64{1: 100, 2: 100, 3: 100, 4: 100})

	// Batch size 2 over 4 users gives 2 batches; their first users (1 and 3)
	// must both be in flight at once or this barrier never opens.
	var barrier sync.WaitGroup
	barrier.Add(2)
	st.onIsDeliv = func(userID int64) {
		if userID == 1 || userID == 3 {
			barrier.Done()
			barrier.Wait()
		}
	}

	cfg := testConfig()
	cfg.BatchSize = 2
	svc := New(cfg, &fakeCatalog{}, &fakeMessenger{}, st, dedup.NewMemory(), logx.Nop())

	done := make(chan struct{})
	go func() {
		svc.fanout(context.Background(), gift{id: 7, count: 4, amount: 50}, users)
		close(done)
	}()
	<-done

	for _, u := range users {
		if !st.isDelivered(7, u.ID) {
			t.Fatalf("user %d not delivered", u.ID)
		}
	}
}
