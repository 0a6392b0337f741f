package models

import "time"

// PrizeListing is one catalog entry. Name is the identity used by redemption;
// Slug is the URL-safe key derived from it.
type PrizeListing struct {
	Name           string    `gorm:"primaryKey;type:varchar(255)" json:"name"`
	Slug           string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description    string    `gorm:"type:text" json:"description,omitempty"`
	ImageURL       string    `gorm:"type:text" json:"image_url,omitempty"`
	PointsRequired int64     `gorm:"not null;check:points_required >= 0" json:"points_required"`
	Stock          int64     `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// InStock reports whether at least one unit can be redeemed.
func (p *PrizeListing) InStock() bool {
	return p.Stock >= 1
}
