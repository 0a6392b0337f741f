// store/memory_store.go
package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"recycle-rewards-system/models"
)

// MemoryStore is an in-process Store. A single mutex makes every method
// atomic, which gives the same guarantees as the conditional SQL updates.
// Used by tests and when the service runs without DATABASE_URL.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	prizes   map[string]*models.PrizeListing
	events   []models.LedgerEvent
	nextID   uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*models.Account),
		prizes:   make(map[string]*models.PrizeListing),
		nextID:   1,
	}
}

func (m *MemoryStore) CreateAccount(ctx context.Context, acct *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[acct.UserID]; ok {
		return ErrDuplicate
	}
	now := time.Now()
	acct.CreatedAt, acct.UpdatedAt = now, now
	cp := *acct
	m.accounts[acct.UserID] = &cp
	return nil
}

func (m *MemoryStore) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (m *MemoryStore) IncrementPoints(ctx context.Context, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return ErrNotFound
	}
	// Lifetime never trails spendable, so bounding it bounds both.
	if amount > math.MaxInt64-acct.LifetimePoints {
		return ErrConditionFailed
	}
	acct.SpendablePoints += amount
	acct.LifetimePoints += amount
	acct.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DecrementSpendable(ctx context.Context, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return ErrNotFound
	}
	if acct.SpendablePoints < amount {
		return ErrConditionFailed
	}
	acct.SpendablePoints -= amount
	acct.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) RestoreSpendable(ctx context.Context, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return ErrNotFound
	}
	if amount > math.MaxInt64-acct.SpendablePoints {
		return ErrConditionFailed
	}
	acct.SpendablePoints += amount
	acct.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ListPrizes(ctx context.Context) ([]models.PrizeListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.PrizeListing, 0, len(m.prizes))
	for _, p := range m.prizes {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetPrize(ctx context.Context, name string) (*models.PrizeListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prizes[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetPrizeBySlug(ctx context.Context, slug string) (*models.PrizeListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.prizes {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) DecrementStock(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.prizes[name]
	if !ok {
		return ErrNotFound
	}
	if p.Stock < 1 {
		return ErrConditionFailed
	}
	p.Stock--
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) UpsertPrize(ctx context.Context, prize *models.PrizeListing) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.prizes[prize.Name]; ok {
		existing.Description = prize.Description
		existing.ImageURL = prize.ImageURL
		existing.UpdatedAt = now
		return false, nil
	}
	for _, p := range m.prizes {
		if p.Slug == prize.Slug {
			return false, ErrDuplicate
		}
	}
	prize.CreatedAt, prize.UpdatedAt = now, now
	cp := *prize
	m.prizes[prize.Name] = &cp
	return true, nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, ev *models.LedgerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev.ID = m.nextID
	m.nextID++
	m.events = append(m.events, *ev)
	return nil
}

func (m *MemoryStore) EventsFor(ctx context.Context, userID string) ([]models.LedgerEvent, error) {
	m.mu.RLock()
	var out []models.LedgerEvent
	for _, ev := range m.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	m.mu.RUnlock()

	SortNewestFirst(out)
	return out, nil
}

// BackfillLegacyAccounts has nothing to fix: the map never holds NULL columns.
func (m *MemoryStore) BackfillLegacyAccounts(ctx context.Context) (int64, error) {
	return 0, nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*GormStore)(nil)
