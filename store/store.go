// Package store persists accounts, the prize catalog and the ledger history.
//
// Every mutation that guards a balance or a stock level is a single
// conditional update on one record, so concurrent callers can never drive a
// value below zero. Nothing here spans more than one record atomically.
package store

import (
	"context"
	"errors"
	"sort"

	"recycle-rewards-system/models"
)

var (
	// ErrNotFound is returned when the addressed account or listing is absent.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when creating a record whose key already exists.
	ErrDuplicate = errors.New("record already exists")
	// ErrConditionFailed is returned when a guarded update matched the record
	// but its precondition (enough points, stock left) did not hold.
	ErrConditionFailed = errors.New("update precondition failed")
)

// Store is the document store the ledger services are built on.
type Store interface {
	CreateAccount(ctx context.Context, acct *models.Account) error
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	// IncrementPoints adds amount to both spendable and lifetime points. It
	// fails with ErrConditionFailed when the sum would overflow int64.
	IncrementPoints(ctx context.Context, userID string, amount int64) error
	// DecrementSpendable subtracts amount only if spendable_points >= amount.
	DecrementSpendable(ctx context.Context, userID string, amount int64) error
	// RestoreSpendable adds amount back to spendable points only, with the
	// same overflow guard.
	RestoreSpendable(ctx context.Context, userID string, amount int64) error

	ListPrizes(ctx context.Context) ([]models.PrizeListing, error)
	GetPrize(ctx context.Context, name string) (*models.PrizeListing, error)
	GetPrizeBySlug(ctx context.Context, slug string) (*models.PrizeListing, error)
	// DecrementStock removes one unit only if stock >= 1.
	DecrementStock(ctx context.Context, name string) error
	// UpsertPrize inserts a new listing, or refreshes the descriptive fields of
	// an existing one. Stock and cost of an existing listing are left alone.
	UpsertPrize(ctx context.Context, prize *models.PrizeListing) (created bool, err error)

	AppendEvent(ctx context.Context, ev *models.LedgerEvent) error
	// EventsFor returns the user's events newest first; events without a
	// timestamp come last.
	EventsFor(ctx context.Context, userID string) ([]models.LedgerEvent, error)

	// BackfillLegacyAccounts zeroes point columns left NULL by imports and
	// reports how many columns were fixed.
	BackfillLegacyAccounts(ctx context.Context) (int64, error)
}

// SortNewestFirst orders events by timestamp descending, then by insertion
// order descending. A nil timestamp sorts as the earliest possible time.
func SortNewestFirst(events []models.LedgerEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].OccurredAt, events[j].OccurredAt
		switch {
		case a == nil && b == nil:
			return events[i].ID > events[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return events[i].ID > events[j].ID
		}
	})
}
