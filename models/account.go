package models

import "time"

// Account is a user's points wallet. Identity is the normalized email.
// Both point columns are required; legacy rows are fixed by the backfill job
// rather than defaulted on read.
type Account struct {
	UserID          string    `gorm:"primaryKey;type:varchar(320)" json:"user_id"`
	DisplayName     string    `gorm:"not null" json:"display_name"`
	PasswordHash    string    `gorm:"not null" json:"-"`
	SpendablePoints int64     `gorm:"not null;default:0;check:spendable_points >= 0" json:"spendable_points"`
	LifetimePoints  int64     `gorm:"not null;default:0;check:lifetime_points >= 0" json:"lifetime_points"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Balance is the snapshot returned by every balance-affecting operation.
// Lifetime is cumulative earned and is never reduced by redemption.
type Balance struct {
	Spendable int64 `json:"spendable_points"`
	Lifetime  int64 `json:"lifetime_points"`
}

// Balance returns the account's current points snapshot.
func (a *Account) Balance() Balance {
	return Balance{Spendable: a.SpendablePoints, Lifetime: a.LifetimePoints}
}
