package models

import "time"

// LedgerAction names the kind of balance-affecting event.
type LedgerAction string

const (
	LedgerActionAccrual    LedgerAction = "accrual"
	LedgerActionRedemption LedgerAction = "redemption"
)

// LedgerEvent is an append-only audit record. Rows are never updated or
// deleted. OccurredAt is nullable because imported history may lack it.
type LedgerEvent struct {
	ID         uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string       `gorm:"index;not null;type:varchar(320)" json:"user_id"`
	Action     LedgerAction `gorm:"type:varchar(32);not null" json:"action"`
	Detail     string       `gorm:"type:text" json:"detail"`
	OccurredAt *time.Time   `gorm:"index" json:"timestamp,omitempty"`
}
