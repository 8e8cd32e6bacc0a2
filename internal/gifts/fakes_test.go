package gifts

import (
	"context"
	"sync"

	"giftomatic/internal/transport"
)

type fakeCatalog struct {
	mu    sync.Mutex
	gifts []transport.Gift
	err   error
	calls int
}

func (f *fakeCatalog) AvailableGifts(context.Context) ([]transport.Gift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]transport.Gift(nil), f.gifts...), nil
}

type fakeMessenger struct {
	mu          sync.Mutex
	announced   []int64
	delivered   []delivery // in send order
	announceErr error
	deliverErr  func(userID, giftID int64) error
}

type delivery struct {
	userID int64
	giftID int64
}

func (f *fakeMessenger) Announce(_ context.Context, g transport.Gift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, g.ID)
	return f.announceErr
}

func (f *fakeMessenger) DeliverGift(_ context.Context, userID, giftID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deliverErr != nil {
		if err := f.deliverErr(userID, giftID); err != nil {
			return err
		}
	}
	f.delivered = append(f.delivered, delivery{userID: userID, giftID: giftID})
	return nil
}

func (f *fakeMessenger) deliveredGiftOrder() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0, len(f.delivered))
	for _, d := range f.delivered {
		out = append(out, d.giftID)
	}
	return out
}

type pairKey struct{ giftID, userID int64 }

// fakeStore is an in-memory Store with the same atomicity contract as the
// SQLite one: all operations are safe under concurrent batch goroutines.
type fakeStore struct {
	mu        sync.Mutex
	users     []User
	balances  map[int64]int64
	pending   map[pairKey]int64
	delivered map[pairKey]bool
	nextID    int64

	debitCalls  map[int64]int // per user, attempts
	debitOK     map[int64]int // per user, successes
	listCalls   int
	listErr     error
	isDelivErr  error
	onIsDeliv   func(userID int64) // barrier hook, called outside lock
	ensureCalls map[pairKey]int
}

func newFakeStore(users []User, balances map[int64]int64) *fakeStore {
	if balances == nil {
		balances = map[int64]int64{}
	}
	return &fakeStore{
		users:       users,
		balances:    balances,
		pending:     map[pairKey]int64{},
		delivered:   map[pairKey]bool{},
		debitCalls:  map[int64]int{},
		debitOK:     map[int64]int{},
		ensureCalls: map[pairKey]int{},
	}
}

func (f *fakeStore) ListEligibleUsers(_ context.Context, vipOnly bool) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []User
	for _, u := range f.users {
		if vipOnly && !u.VIP {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) IsDelivered(_ context.Context, giftID, userID int64) (bool, error) {
	if f.onIsDeliv != nil {
		f.onIsDeliv(userID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isDelivErr != nil {
		return false, f.isDelivErr
	}
	return f.delivered[pairKey{giftID, userID}], nil
}

func (f *fakeStore) EnsurePendingDelivery(_ context.Context, giftID, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := pairKey{giftID, userID}
	f.ensureCalls[k]++
	if id, ok := f.pending[k]; ok {
		return id, nil
	}
	f.nextID++
	f.pending[k] = f.nextID
	return f.nextID, nil
}

func (f *fakeStore) Debit(_ context.Context, userID, amount int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debitCalls[userID]++
	if f.balances[userID] < amount {
		return false, nil
	}
	f.balances[userID] -= amount
	f.debitOK[userID]++
	return true, nil
}

func (f *fakeStore) MarkDelivered(_ context.Context, deliveryID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, id := range f.pending {
		if id == deliveryID {
			f.delivered[k] = true
			return nil
		}
	}
	return nil
}

func (f *fakeStore) isDelivered(giftID, userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered[pairKey{giftID, userID}]
}
