package models

import (
	"github.com/shopspring/decimal"
)

// Column scales of stored amounts.
const (
	MoneyScale    = 2
	QuantityScale = 3
)

// LineItem holds the priced fields shared by live quote items and snapshot items.
// It is a value type: copying a LineItem never shares mutable state except
// through TemplateID, which Clone copies.
type LineItem struct {
	Category      string              `gorm:"size:100" json:"category,omitempty"`
	Room          string              `gorm:"size:255" json:"room,omitempty" validate:"max=255"`
	Job           string              `gorm:"size:500;not null" json:"job" validate:"required,max=500"`
	Quantity      decimal.Decimal     `gorm:"type:decimal(14,3);not null" json:"quantity" validate:"gte=0"`
	UnitPrice     decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"unit_price" validate:"gte=0"`
	Total         decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"total"`
	MaterialPrice decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"material_price"`
	LaborPrice    decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"labor_price"`
	TemplateID    *uint               `json:"template_id,omitempty"`
}

// Clone returns a copy of the item that owns its own TemplateID.
func (l LineItem) Clone() LineItem {
	c := l
	if l.TemplateID != nil {
		id := *l.TemplateID
		c.TemplateID = &id
	}
	return c
}

// Round rounds the amounts in place to their column scale.
func (l *LineItem) Round() {
	l.Quantity = l.Quantity.Round(QuantityScale)
	l.UnitPrice = l.UnitPrice.Round(MoneyScale)
	l.Total = l.Total.Round(MoneyScale)
	if l.MaterialPrice.Valid {
		l.MaterialPrice.Decimal = l.MaterialPrice.Decimal.Round(MoneyScale)
	}
	if l.LaborPrice.Valid {
		l.LaborPrice.Decimal = l.LaborPrice.Decimal.Round(MoneyScale)
	}
}

// Equal reports whether both items carry the same values.
// Decimals are compared numerically, so 10 and 10.00 are equal.
func (l LineItem) Equal(o LineItem) bool {
	if l.Category != o.Category || l.Room != o.Room || l.Job != o.Job {
		return false
	}
	if !l.Quantity.Equal(o.Quantity) || !l.UnitPrice.Equal(o.UnitPrice) || !l.Total.Equal(o.Total) {
		return false
	}
	if !nullDecimalEqual(l.MaterialPrice, o.MaterialPrice) || !nullDecimalEqual(l.LaborPrice, o.LaborPrice) {
		return false
	}
	switch {
	case l.TemplateID == nil && o.TemplateID == nil:
		return true
	case l.TemplateID == nil || o.TemplateID == nil:
		return false
	default:
		return *l.TemplateID == *o.TemplateID
	}
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// CloneLineItems deep-copies a list of line items.
func CloneLineItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
