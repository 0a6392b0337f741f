// services/account_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recycle-rewards-system/models"
	"recycle-rewards-system/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
)

// AccountService owns registration, login and every change to an
// account's point balances.
type AccountService struct {
	Store      store.Store
	Log        *zap.SugaredLogger
	Metrics    *Metrics
	BcryptCost int
}

func NewAccountService(st store.Store, log *zap.SugaredLogger, m *Metrics) *AccountService {
	return &AccountService{
		Store:      st,
		Log:        loggerOrNop(log),
		Metrics:    metricsOrDefault(m),
		BcryptCost: bcrypt.DefaultCost,
	}
}

// NormalizeUserID trims and case-folds an email so lookups are
// case-insensitive.
func NormalizeUserID(raw string) string {
	return cases.Fold().String(strings.TrimSpace(raw))
}

// Register creates an account with zero spendable and lifetime points.
func (s *AccountService) Register(ctx context.Context, userID, displayName, password string) (*models.Account, error) {
	userID = NormalizeUserID(userID)
	if userID == "" || password == "" {
		return nil, fmt.Errorf("%w: user id and password are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	acct := &models.Account{
		UserID:          userID,
		DisplayName:     strings.TrimSpace(displayName),
		PasswordHash:    string(hash),
		SpendablePoints: 0,
		LifetimePoints:  0,
	}
	if err := s.Store.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create account %s: %w", userID, err)
	}

	s.Log.Infof("🆕 Account registered: %s", userID)
	return acct, nil
}

// Authenticate checks the credential and returns the balance snapshot.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *AccountService) Authenticate(ctx context.Context, userID, password string) (models.Balance, error) {
	acct, err := s.Store.GetAccount(ctx, NormalizeUserID(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Balance{}, ErrInvalidCredentials
		}
		return models.Balance{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return models.Balance{}, ErrInvalidCredentials
	}
	return acct.Balance(), nil
}

func (s *AccountService) GetBalance(ctx context.Context, userID string) (models.Balance, error) {
	acct, err := s.Store.GetAccount(ctx, NormalizeUserID(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Balance{}, ErrUserNotFound
		}
		return models.Balance{}, err
	}
	return acct.Balance(), nil
}

// Credit adds amount to both spendable and lifetime points in one atomic
// update and returns the new balance.
func (s *AccountService) Credit(ctx context.Context, userID string, amount int64) (models.Balance, error) {
	if amount < 0 {
		return models.Balance{}, ErrInvalidAmount
	}
	userID = NormalizeUserID(userID)
	if err := s.Store.IncrementPoints(ctx, userID, amount); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return models.Balance{}, ErrUserNotFound
		case errors.Is(err, store.ErrConditionFailed):
			return models.Balance{}, fmt.Errorf("%w: crediting %d would overflow the balance", ErrInvalidAmount, amount)
		default:
			return models.Balance{}, fmt.Errorf("credit %s: %w", userID, err)
		}
	}
	s.Metrics.PointsCredited.Add(float64(amount))
	return s.GetBalance(ctx, userID)
}

// DebitSpendable removes amount from spendable points only if enough are
// available at the moment of the update. Lifetime points are untouched.
func (s *AccountService) DebitSpendable(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	userID = NormalizeUserID(userID)
	if err := s.Store.DecrementSpendable(ctx, userID, amount); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrUserNotFound
		case errors.Is(err, store.ErrConditionFailed):
			return ErrInsufficientBalance
		default:
			return fmt.Errorf("debit %s: %w", userID, err)
		}
	}
	return nil
}

// RestoreSpendable hands back points taken by DebitSpendable when the rest
// of a redemption could not be applied.
func (s *AccountService) RestoreSpendable(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	userID = NormalizeUserID(userID)
	if err := s.Store.RestoreSpendable(ctx, userID, amount); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("restore %s: %w", userID, err)
	}
	return nil
}

func loggerOrNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log
}
