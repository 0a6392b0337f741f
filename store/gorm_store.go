// store/gorm_store.go
package store

import (
	"context"
	"errors"
	"math"

	"recycle-rewards-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps the three collections in Postgres through gorm.
// The *gorm.DB must be opened with TranslateError enabled so unique
// violations surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Migrate creates or updates the tables. Legacy NULL point columns are
// zeroed first, since AutoMigrate adds NOT NULL to both.
func (s *GormStore) Migrate() error {
	if err := s.prepareLegacyAccounts(); err != nil {
		return err
	}
	return s.DB.AutoMigrate(
		&models.Account{},
		&models.PrizeListing{},
		&models.LedgerEvent{},
	)
}

// prepareLegacyAccounts zeroes NULL point columns on an existing accounts
// table. Columns the table does not have yet are skipped.
func (s *GormStore) prepareLegacyAccounts() error {
	m := s.DB.Migrator()
	if !m.HasTable(&models.Account{}) {
		return nil
	}
	for _, column := range legacyPointColumns {
		if !m.HasColumn(&models.Account{}, column) {
			continue
		}
		if err := s.DB.Exec("UPDATE accounts SET " + column + " = 0 WHERE " + column + " IS NULL").Error; err != nil {
			return err
		}
	}
	return nil
}

var legacyPointColumns = []string{"spendable_points", "lifetime_points"}

func (s *GormStore) CreateAccount(ctx context.Context, acct *models.Account) error {
	if err := s.DB.WithContext(ctx).Create(acct).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *GormStore) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	var acct models.Account
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func (s *GormStore) IncrementPoints(ctx context.Context, userID string, amount int64) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ? AND lifetime_points <= ?", userID, math.MaxInt64-amount).
		Updates(map[string]interface{}{
			"spendable_points": gorm.Expr("spendable_points + ?", amount),
			"lifetime_points":  gorm.Expr("lifetime_points + ?", amount),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, &models.Account{}, "user_id = ?", userID)
	}
	return nil
}

func (s *GormStore) DecrementSpendable(ctx context.Context, userID string, amount int64) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ? AND spendable_points >= ?", userID, amount).
		Update("spendable_points", gorm.Expr("spendable_points - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, &models.Account{}, "user_id = ?", userID)
	}
	return nil
}

func (s *GormStore) RestoreSpendable(ctx context.Context, userID string, amount int64) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ? AND spendable_points <= ?", userID, math.MaxInt64-amount).
		Update("spendable_points", gorm.Expr("spendable_points + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, &models.Account{}, "user_id = ?", userID)
	}
	return nil
}

func (s *GormStore) ListPrizes(ctx context.Context) ([]models.PrizeListing, error) {
	var prizes []models.PrizeListing
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&prizes).Error; err != nil {
		return nil, err
	}
	return prizes, nil
}

func (s *GormStore) GetPrize(ctx context.Context, name string) (*models.PrizeListing, error) {
	return s.firstPrize(ctx, "name = ?", name)
}

func (s *GormStore) GetPrizeBySlug(ctx context.Context, slug string) (*models.PrizeListing, error) {
	return s.firstPrize(ctx, "slug = ?", slug)
}

func (s *GormStore) firstPrize(ctx context.Context, query string, arg string) (*models.PrizeListing, error) {
	var prize models.PrizeListing
	if err := s.DB.WithContext(ctx).Where(query, arg).First(&prize).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prize, nil
}

func (s *GormStore) DecrementStock(ctx context.Context, name string) error {
	res := s.DB.WithContext(ctx).
		Model(&models.PrizeListing{}).
		Where("name = ? AND stock >= 1", name).
		Update("stock", gorm.Expr("stock - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, &models.PrizeListing{}, "name = ?", name)
	}
	return nil
}

func (s *GormStore) UpsertPrize(ctx context.Context, prize *models.PrizeListing) (bool, error) {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(prize)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Existing listing: only the descriptive fields follow the feed.
	err := s.DB.WithContext(ctx).
		Model(&models.PrizeListing{}).
		Where("name = ?", prize.Name).
		Updates(map[string]interface{}{
			"description": prize.Description,
			"image_url":   prize.ImageURL,
		}).Error
	return false, err
}

func (s *GormStore) AppendEvent(ctx context.Context, ev *models.LedgerEvent) error {
	return s.DB.WithContext(ctx).Create(ev).Error
}

func (s *GormStore) EventsFor(ctx context.Context, userID string) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC NULLS LAST").
		Order("id DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *GormStore) BackfillLegacyAccounts(ctx context.Context) (int64, error) {
	var fixed int64
	for _, column := range legacyPointColumns {
		res := s.DB.WithContext(ctx).
			Model(&models.Account{}).
			Where(column+" IS NULL").
			Update(column, 0)
		if res.Error != nil {
			return fixed, res.Error
		}
		fixed += res.RowsAffected
	}
	return fixed, nil
}

// missOrConflict runs after a guarded update touched no rows and decides
// whether the record is missing or its precondition failed.
func (s *GormStore) missOrConflict(ctx context.Context, model interface{}, query string, arg string) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(model).Where(query, arg).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConditionFailed
}
