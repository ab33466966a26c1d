package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// QuoteVersion is an immutable snapshot of a quote taken before a mutation.
type QuoteVersion struct {
	ID         uint `gorm:"primaryKey" json:"-"`
	QuoteID    uint `gorm:"not null;uniqueIndex:idx_quote_versions_quote_num" json:"quote_id"`
	VersionNum int  `gorm:"not null;uniqueIndex:idx_quote_versions_quote_num" json:"version"`

	Name        string            `gorm:"size:255;not null" json:"name"`
	Total       decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"total"`
	Notes       *string           `gorm:"type:text" json:"notes,omitempty"`
	ClientNotes *string           `gorm:"type:text" json:"client_notes,omitempty"`
	Config      datatypes.JSONMap `json:"config,omitempty"`

	ChangeSummary string    `gorm:"type:text" json:"change_summary"`
	CreatedAt     time.Time `json:"created_at"`

	Items []QuoteVersionItem `gorm:"foreignKey:VersionID;constraint:OnDelete:CASCADE" json:"items"`
}

// LineItems returns deep copies of the snapshot items in position order.
func (v *QuoteVersion) LineItems() []LineItem {
	out := make([]LineItem, len(v.Items))
	for i, it := range v.Items {
		out[i] = it.LineItem.Clone()
	}
	return out
}

// QuoteVersionItem is a line of a snapshot.
type QuoteVersionItem struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	VersionID uint `gorm:"index;not null" json:"-"`
	Position  int  `gorm:"not null;default:0" json:"position"`

	LineItem `gorm:"embedded"`
}
