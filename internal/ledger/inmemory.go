package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mada-pay/mada_pay/internal/domain"
)

type memState struct {
	wallets      map[int64]domain.Wallet
	transactions map[int64]domain.Transaction
	investments  map[int64]domain.Investment
	nextWallet   int64
	nextTx       int64
	nextInv      int64
}

func (s memState) clone() memState {
	c := s
	c.wallets = make(map[int64]domain.Wallet, len(s.wallets))
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	c.transactions = make(map[int64]domain.Transaction, len(s.transactions))
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	c.investments = make(map[int64]domain.Investment, len(s.investments))
	for k, v := range s.investments {
		c.investments[k] = v
	}
	return c
}

type inMemoryStore struct {
	mu    sync.Mutex
	state memState
	now   func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests
// and local development. Units of work are serialized.
func NewInMemory() Store {
	return &inMemoryStore{
		state: memState{
			wallets:      make(map[int64]domain.Wallet),
			transactions: make(map[int64]domain.Transaction),
			investments:  make(map[int64]domain.Investment),
		},
		now: time.Now,
	}
}

func (s *inMemoryStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memTx{state: &s.state, now: s.now}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *inMemoryStore) read() *memTx {
	return &memTx{state: &s.state, now: s.now}
}

func (s *inMemoryStore) Wallet(ctx context.Context, id int64) (domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().Wallet(ctx, id)
}

func (s *inMemoryStore) WalletsByOwner(ctx context.Context, ownerID int64) ([]domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().WalletsByOwner(ctx, ownerID)
}

func (s *inMemoryStore) Transaction(ctx context.Context, id int64) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().Transaction(ctx, id)
}

func (s *inMemoryStore) RecentTransactions(ctx context.Context, walletIDs []int64, limit int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().RecentTransactions(ctx, walletIDs, limit)
}

func (s *inMemoryStore) Investment(ctx context.Context, id int64) (domain.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().Investment(ctx, id)
}

func (s *inMemoryStore) InvestmentsByOwner(ctx context.Context, ownerID int64, status domain.InvestmentStatus) ([]domain.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InvestmentsByOwner(ctx, ownerID, status)
}

// memTx operates on the store state while the store mutex is held.
type memTx struct {
	state *memState
	now   func() time.Time
}

func (t *memTx) Wallet(_ context.Context, id int64) (domain.Wallet, error) {
	w, ok := t.state.wallets[id]
	if !ok {
		return domain.Wallet{}, domain.Fail(domain.ErrNotFound, "wallet %d", id)
	}
	return w, nil
}

func (t *memTx) WalletsByOwner(_ context.Context, ownerID int64) ([]domain.Wallet, error) {
	out := make([]domain.Wallet, 0)
	for _, w := range t.state.wallets {
		if w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) Transaction(_ context.Context, id int64) (domain.Transaction, error) {
	tr, ok := t.state.transactions[id]
	if !ok {
		return domain.Transaction{}, domain.Fail(domain.ErrNotFound, "transaction %d", id)
	}
	return tr, nil
}

func (t *memTx) RecentTransactions(_ context.Context, walletIDs []int64, limit int) ([]domain.Transaction, error) {
	wanted := make(map[int64]struct{}, len(walletIDs))
	for _, id := range walletIDs {
		wanted[id] = struct{}{}
	}
	touches := func(ref *int64) bool {
		if ref == nil {
			return false
		}
		_, ok := wanted[*ref]
		return ok
	}

	out := make([]domain.Transaction, 0)
	for _, tr := range t.state.transactions {
		if touches(tr.FromWalletID) || touches(tr.ToWalletID) {
			out = append(out, tr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) Investment(_ context.Context, id int64) (domain.Investment, error) {
	inv, ok := t.state.investments[id]
	if !ok {
		return domain.Investment{}, domain.Fail(domain.ErrNotFound, "investment %d", id)
	}
	return inv, nil
}

func (t *memTx) InvestmentsByOwner(_ context.Context, ownerID int64, status domain.InvestmentStatus) ([]domain.Investment, error) {
	out := make([]domain.Investment, 0)
	for _, inv := range t.state.investments {
		if inv.OwnerID != ownerID {
			continue
		}
		if status != "" && inv.Status != status {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (t *memTx) LockWallet(ctx context.Context, id int64) (domain.Wallet, error) {
	return t.Wallet(ctx, id)
}

func (t *memTx) LockWalletByKind(_ context.Context, ownerID int64, kind domain.WalletKind) (domain.Wallet, bool, error) {
	for _, w := range t.state.wallets {
		if w.OwnerID == ownerID && w.Kind == kind && w.Status != domain.WalletClosed {
			return w, true, nil
		}
	}
	return domain.Wallet{}, false, nil
}

func (t *memTx) InsertWallet(ctx context.Context, w *domain.Wallet) error {
	if _, exists, _ := t.LockWalletByKind(ctx, w.OwnerID, w.Kind); exists {
		return domain.Fail(domain.ErrConflict, "owner %d already has a %s wallet", w.OwnerID, w.Kind)
	}
	for _, existing := range t.state.wallets {
		if existing.AccountNumber == w.AccountNumber {
			return domain.Fail(domain.ErrConflict, "account number %s taken", w.AccountNumber)
		}
	}
	now := t.now().UTC()
	t.state.nextWallet++
	w.ID = t.state.nextWallet
	w.CreatedAt = now
	w.UpdatedAt = now
	t.state.wallets[w.ID] = *w
	return nil
}

func (t *memTx) UpdateWallet(_ context.Context, w domain.Wallet) error {
	if _, ok := t.state.wallets[w.ID]; !ok {
		return domain.Fail(domain.ErrNotFound, "wallet %d", w.ID)
	}
	w.UpdatedAt = t.now().UTC()
	t.state.wallets[w.ID] = w
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, tr *domain.Transaction) error {
	now := t.now().UTC()
	t.state.nextTx++
	tr.ID = t.state.nextTx
	tr.CreatedAt = now
	tr.UpdatedAt = now
	tr.Metadata = copyMetadata(tr.Metadata)
	t.state.transactions[tr.ID] = *tr
	return nil
}

func (t *memTx) LockTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return t.Transaction(ctx, id)
}

func (t *memTx) UpdateTransaction(_ context.Context, tr domain.Transaction) error {
	if _, ok := t.state.transactions[tr.ID]; !ok {
		return domain.Fail(domain.ErrNotFound, "transaction %d", tr.ID)
	}
	tr.UpdatedAt = t.now().UTC()
	tr.Metadata = copyMetadata(tr.Metadata)
	t.state.transactions[tr.ID] = tr
	return nil
}

func (t *memTx) InsertInvestment(_ context.Context, inv *domain.Investment) error {
	now := t.now().UTC()
	t.state.nextInv++
	inv.ID = t.state.nextInv
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	t.state.investments[inv.ID] = *inv
	return nil
}

func (t *memTx) LockInvestment(ctx context.Context, id int64) (domain.Investment, error) {
	return t.Investment(ctx, id)
}

func (t *memTx) UpdateInvestment(_ context.Context, inv domain.Investment) error {
	if _, ok := t.state.investments[inv.ID]; !ok {
		return domain.Fail(domain.ErrNotFound, "investment %d", inv.ID)
	}
	inv.UpdatedAt = t.now().UTC()
	t.state.investments[inv.ID] = inv
	return nil
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
