package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// QuoteStatus is the workflow label of a quote. It is not versioned.
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusSent      QuoteStatus = "sent"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusRejected  QuoteStatus = "rejected"
	QuoteStatusCompleted QuoteStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusCompleted:
		return true
	}
	return false
}

// Quote is the live, editable cost estimate.
// Implements the Ownable interface for ownership-based authorization.
type Quote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this quote
	UserID uint `gorm:"index;not null" json:"user_id"`

	Name        string            `gorm:"size:255;not null" json:"name"`
	Total       decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"total"`
	Notes       *string           `gorm:"type:text" json:"notes,omitempty"`
	ClientNotes *string           `gorm:"type:text" json:"client_notes,omitempty"`
	Config      datatypes.JSONMap `json:"config,omitempty"`

	Status QuoteStatus `gorm:"size:20;default:'draft';index" json:"status"`

	// CurrentVersion is the version number the live state represents.
	// Stored snapshots always cover 1..CurrentVersion-1.
	CurrentVersion int `gorm:"not null;default:1" json:"current_version"`

	Items []QuoteItem `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items"`
}

// GetUserID implements the Ownable interface for authorization.
func (q *Quote) GetUserID() uint {
	return q.UserID
}

// LineItems returns deep copies of the quote items in position order.
func (q *Quote) LineItems() []LineItem {
	out := make([]LineItem, len(q.Items))
	for i, it := range q.Items {
		out[i] = it.LineItem.Clone()
	}
	return out
}

// QuoteItem is a line of a live quote.
type QuoteItem struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	QuoteID  uint `gorm:"index;not null" json:"quote_id"`
	Position int  `gorm:"not null;default:0" json:"position"`

	LineItem `gorm:"embedded"`
}

// NewQuoteItems builds persisted items from line items, numbering positions from 0.
func NewQuoteItems(quoteID uint, items []LineItem) []QuoteItem {
	out := make([]QuoteItem, len(items))
	for i, it := range items {
		out[i] = QuoteItem{QuoteID: quoteID, Position: i, LineItem: it.Clone()}
	}
	return out
}
