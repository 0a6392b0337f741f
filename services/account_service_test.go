package services

import (
	"context"
	"math"
	"testing"

	"recycle-rewards-system/models"
	"recycle-rewards-system/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUserID(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeUserID("  A@X.Com "))
	assert.Equal(t, "", NormalizeUserID("   "))
}

func TestRegisterStartsAtZero(t *testing.T) {
	l := newLedger(t, store.NewMemoryStore())
	ctx := context.Background()

	acct, err := l.accounts.Register(ctx, "A@x.com", " Ana ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", acct.UserID)
	assert.Equal(t, "Ana", acct.DisplayName)
	assert.NotEqual(t, "pw", acct.PasswordHash)

	bal, err := l.accounts.GetBalance(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Spendable: 0, Lifetime: 0}, bal)
}

func TestRegisterRejectsDuplicatesAndBlanks(t *testing.T) {
	l := newLedger(t, store.NewMemoryStore())
	ctx := context.Background()

	_, err := l.accounts.Register(ctx, "a@x.com", "A", "pw")
	require.NoError(t, err)

	_, err = l.accounts.Register(ctx, "A@X.COM", "Again", "pw")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = l.accounts.Register(ctx, " ", "Nobody", "pw")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.accounts.Register(ctx, "b@x.com", "B", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthenticate(t *testing.T) {
	l := newLedger(t, store.NewMemoryStore())
	ctx := context.Background()
	l.register(t, "a@x.com", 40)

	bal, err := l.accounts.Authenticate(ctx, "A@x.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Spendable: 40, Lifetime: 40}, bal)

	_, err = l.accounts.Authenticate(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = l.accounts.Authenticate(ctx, "ghost@x.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetBalanceUnknownUser(t *testing.T) {
	l := newLedger(t, store.NewMemoryStore())

	_, err := l.accounts.GetBalance(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreditAddsToBothBalances(t *testing.T) {
	l := newLedger(t, store.NewMemoryStore())
	ctx := context.Background()
	l.register(t, "a@x.com", 0)

	want := models.Balance{}
	for _, amount := range []int64{0, 1, 7, 50, 1000} {
		bal, err := l.accounts.Credit(ctx, "a@x.com", amount)
		require.NoError(t, err)
		want.Spendable += amount
		want.Lifetime += amount
		assert.Equal(t, want, bal)

		got, err := l.accounts.GetBalance(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCreditRejectsNegativeAndUnknown(t *testing.T) {
	l := newLedger(t, store.NewMemoryStore())
	ctx := context.Background()
	l.register(t, "a@x.com", 5)

	_, err := l.accounts.Credit(ctx, "a@x.com", -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.accounts.Credit(ctx, "ghost@x.com", 5)
	assert.ErrorIs(t, err, ErrUserNotFound)

	bal, err := l.accounts.GetBalance(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Spendable: 5, Lifetime: 5}, bal)
}

func TestCreditRejectsOverflow(t *testing.T) {
	l := newLedger(t, store.NewMemoryStore())
	ctx := context.Background()
	l.register(t, "a@x.com", 0)

	_, err := l.accounts.Credit(ctx, "a@x.com", math.MaxInt64)
	require.NoError(t, err)

	_, err = l.accounts.Credit(ctx, "a@x.com", 1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	bal, err := l.accounts.GetBalance(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Spendable: math.MaxInt64, Lifetime: math.MaxInt64}, bal)
}

func TestDebitSpendableLeavesLifetime(t *testing.T) {
	l := newLedger(t, store.NewMemoryStore())
	ctx := context.Background()
	l.register(t, "a@x.com", 30)

	require.NoError(t, l.accounts.DebitSpendable(ctx, "a@x.com", 20))
	assert.ErrorIs(t, l.accounts.DebitSpendable(ctx, "a@x.com", 11), ErrInsufficientBalance)
	assert.ErrorIs(t, l.accounts.DebitSpendable(ctx, "a@x.com", -1), ErrInvalidAmount)
	assert.ErrorIs(t, l.accounts.DebitSpendable(ctx, "ghost@x.com", 1), ErrUserNotFound)

	bal, err := l.accounts.GetBalance(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Spendable: 10, Lifetime: 30}, bal)

	require.NoError(t, l.accounts.RestoreSpendable(ctx, "a@x.com", 20))
	bal, err = l.accounts.GetBalance(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Spendable: 30, Lifetime: 30}, bal)
}
