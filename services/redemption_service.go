// services/redemption_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"recycle-rewards-system/models"

	"go.uber.org/zap"
)

// redeemAttempts bounds the validate-then-mutate loop: one pass plus one
// retry after losing a race on the debit or the stock decrement.
const redeemAttempts = 2

// RedemptionService exchanges spendable points for one unit of a prize.
// It keeps no state; every call works on the store's current snapshot.
type RedemptionService struct {
	Accounts *AccountService
	Catalog  *CatalogService
	History  *HistoryService
	Log      *zap.SugaredLogger
	Metrics  *Metrics
}

func NewRedemptionService(accounts *AccountService, catalog *CatalogService, history *HistoryService, log *zap.SugaredLogger, m *Metrics) *RedemptionService {
	return &RedemptionService{
		Accounts: accounts,
		Catalog:  catalog,
		History:  history,
		Log:      loggerOrNop(log),
		Metrics:  metricsOrDefault(m),
	}
}

// Redeem validates the account and listing, then debits points before
// taking stock. If the process dies between the two updates the user has
// paid without the stock moving; the reverse order could hand out stock
// for free.
//
// Validation is only a pre-check. The guarded updates decide: a lost race
// is retried once with fresh reads before its failure is returned.
//
// A stock decrement that loses its race refunds the debit before the
// retry. Only a failed refund leaves points taken (ErrInconsistentState).
func (s *RedemptionService) Redeem(ctx context.Context, userID, prizeName string) (models.Balance, error) {
	userID = NormalizeUserID(userID)

	var lastErr error
	for attempt := 1; attempt <= redeemAttempts; attempt++ {
		bal, err := s.redeemOnce(ctx, userID, prizeName)
		if err == nil {
			s.Metrics.Redemptions.WithLabelValues("success").Inc()
			return bal, nil
		}
		var race *raceLost
		if !errors.As(err, &race) {
			s.Metrics.Redemptions.WithLabelValues(outcomeLabel(err)).Inc()
			return models.Balance{}, err
		}
		s.Log.Warnf("🔁 Redemption race lost for %s on %q (attempt %d): %v", userID, prizeName, attempt, race.err)
		lastErr = race.err
	}
	s.Metrics.Redemptions.WithLabelValues(outcomeLabel(lastErr)).Inc()
	return models.Balance{}, lastErr
}

// raceLost marks a guarded update that failed after validation passed.
type raceLost struct{ err error }

func (r *raceLost) Error() string { return r.err.Error() }
func (r *raceLost) Unwrap() error { return r.err }

func (s *RedemptionService) redeemOnce(ctx context.Context, userID, prizeName string) (models.Balance, error) {
	bal, err := s.Accounts.GetBalance(ctx, userID)
	if err != nil {
		return models.Balance{}, err
	}
	prize, err := s.Catalog.GetListing(ctx, prizeName)
	if err != nil {
		return models.Balance{}, err
	}
	if !prize.InStock() {
		return models.Balance{}, ErrOutOfStock
	}
	if bal.Spendable < prize.PointsRequired {
		return models.Balance{}, ErrInsufficientBalance
	}

	if err := s.Accounts.DebitSpendable(ctx, userID, prize.PointsRequired); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return models.Balance{}, &raceLost{err: err}
		}
		return models.Balance{}, err
	}

	if err := s.Catalog.DecrementStock(ctx, prize.Name); err != nil {
		if rerr := s.Accounts.RestoreSpendable(ctx, userID, prize.PointsRequired); rerr != nil {
			s.Log.Errorw("🚨 Points debited without stock decrement, manual reconciliation required",
				"user_id", userID, "prize", prize.Name, "points", prize.PointsRequired,
				"stock_error", err, "restore_error", rerr)
			return models.Balance{}, fmt.Errorf("%w: %d points debited from %s for %q: %v",
				ErrInconsistentState, prize.PointsRequired, userID, prize.Name, err)
		}
		if errors.Is(err, ErrOutOfStock) {
			return models.Balance{}, &raceLost{err: err}
		}
		return models.Balance{}, err
	}

	s.History.Record(ctx, userID, models.LedgerActionRedemption,
		fmt.Sprintf("Spent %d pts on: %s", prize.PointsRequired, prize.Name))
	s.Log.Infof("🎉 %s redeemed %q for %d pts", userID, prize.Name, prize.PointsRequired)

	return s.Accounts.GetBalance(ctx, userID)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrPrizeNotFound):
		return "prize_not_found"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInconsistentState):
		return "inconsistent_state"
	default:
		return "error"
	}
}
