package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type lineInput struct {
	Job      string              `json:"job" validate:"required,max=10"`
	Quantity decimal.Decimal     `json:"quantity" validate:"gte=0"`
	Labor    decimal.NullDecimal `json:"labor_price" validate:"gte=0"`
}

type docInput struct {
	Name   string      `json:"name" validate:"required"`
	Status string      `json:"status,omitempty" validate:"omitempty,oneof=draft sent"`
	Items  []lineInput `json:"items" validate:"dive"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name string
		in   docInput
		want Violations
	}{
		{
			name: "valid",
			in:   docInput{Name: "Kitchen", Items: []lineInput{{Job: "Tiling", Quantity: decimal.NewFromInt(1)}}},
			want: Violations{},
		},
		{
			name: "missing name and bad status",
			in:   docInput{Status: "paid"},
			want: Violations{"name": "required", "status": "invalid_value"},
		},
		{
			name: "item paths use json names",
			in: docInput{Name: "x", Items: []lineInput{
				{Job: "ok", Quantity: decimal.NewFromInt(1)},
				{Job: "", Quantity: decimal.NewFromInt(-1), Labor: decimal.NewNullDecimal(decimal.NewFromInt(-5))},
			}},
			want: Violations{
				"items[1].job":         "required",
				"items[1].quantity":    "must_be_non_negative",
				"items[1].labor_price": "must_be_non_negative",
			},
		},
		{
			name: "job too long",
			in:   docInput{Name: "x", Items: []lineInput{{Job: "abcdefghijk"}}},
			want: Violations{"items[0].job": "too_long"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Struct(tt.in))
		})
	}
}

func TestStruct_NonStruct(t *testing.T) {
	assert.Equal(t, Violations{"_": "invalid"}, Struct(42))
}

func TestHelpers(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	NonNegative("total", decimal.NewFromInt(-1), v)
	NonNegative("zero", decimal.Zero, v)
	PositiveInt("limit", 0, v)

	assert.Equal(t, Violations{
		"name":  "required",
		"total": "must_be_non_negative",
		"limit": "must_be_positive",
	}, v)
	assert.False(t, v.Empty())
	assert.True(t, Violations{}.Empty())
}
