package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"recycle-rewards-system/models"
	"recycle-rewards-system/store"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type ledger struct {
	store      store.Store
	accounts   *AccountService
	catalog    *CatalogService
	history    *HistoryService
	redemption *RedemptionService
	awards     *AwardService
}

func newLedger(t *testing.T, st store.Store) *ledger {
	t.Helper()
	m := NewMetrics(nil)
	accounts := NewAccountService(st, nil, m)
	accounts.BcryptCost = bcrypt.MinCost
	catalog := NewCatalogService(st, nil)
	history := NewHistoryService(st, nil, m)
	history.Now = steppingClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	return &ledger{
		store:      st,
		accounts:   accounts,
		catalog:    catalog,
		history:    history,
		redemption: NewRedemptionService(accounts, catalog, history, nil, m),
		awards:     NewAwardService(accounts, history, nil, nil, nil, m),
	}
}

// steppingClock returns a clock that advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func (l *ledger) register(t *testing.T, userID string, points int64) {
	t.Helper()
	ctx := context.Background()
	_, err := l.accounts.Register(ctx, userID, "Tester", "s3cret")
	require.NoError(t, err)
	if points > 0 {
		require.NoError(t, l.store.IncrementPoints(ctx, NormalizeUserID(userID), points))
	}
}

func (l *ledger) listPrize(t *testing.T, name string, cost, stock int64) {
	t.Helper()
	n, err := l.catalog.SeedListings(context.Background(), []models.PrizeListing{
		{Name: name, PointsRequired: cost, Stock: stock},
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func (l *ledger) events(t *testing.T, userID string) []models.LedgerEvent {
	t.Helper()
	events, err := Collect(l.history.HistoryFor(context.Background(), userID))
	require.NoError(t, err)
	return events
}

var errStoreDown = errors.New("store unavailable")

// flakyStore wraps a MemoryStore and lets a test inject failures or
// interleavings into single methods.
type flakyStore struct {
	*store.MemoryStore
	appendErr      error
	beforeDecStock func(ctx context.Context, name string) error
	restoreErr     error
}

func (f *flakyStore) AppendEvent(ctx context.Context, ev *models.LedgerEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.MemoryStore.AppendEvent(ctx, ev)
}

func (f *flakyStore) DecrementStock(ctx context.Context, name string) error {
	if f.beforeDecStock != nil {
		hook := f.beforeDecStock
		f.beforeDecStock = nil
		if err := hook(ctx, name); err != nil {
			return err
		}
	}
	return f.MemoryStore.DecrementStock(ctx, name)
}

func (f *flakyStore) RestoreSpendable(ctx context.Context, userID string, amount int64) error {
	if f.restoreErr != nil {
		return f.restoreErr
	}
	return f.MemoryStore.RestoreSpendable(ctx, userID, amount)
}
