// Package versioning holds the pure parts of the quote version engine:
// change summaries, item diffs, version comparison and the per-quote lock.
// Nothing in this package touches the database.
package versioning

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/diewo77/go-quotes/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// State is the versioned content of a quote: header fields plus items.
// Status and ownership are not part of it.
type State struct {
	Name        string
	Total       decimal.Decimal
	Notes       *string
	ClientNotes *string
	Config      datatypes.JSONMap
	Items       []models.LineItem
}

// QuoteState captures the live state of a quote. Items are deep copies.
func QuoteState(q *models.Quote) State {
	return State{
		Name:        q.Name,
		Total:       q.Total,
		Notes:       cloneString(q.Notes),
		ClientNotes: cloneString(q.ClientNotes),
		Config:      q.Config,
		Items:       q.LineItems(),
	}
}

// VersionState captures the content stored in a snapshot. Items are deep copies.
func VersionState(v *models.QuoteVersion) State {
	return State{
		Name:        v.Name,
		Total:       v.Total,
		Notes:       cloneString(v.Notes),
		ClientNotes: cloneString(v.ClientNotes),
		Config:      v.Config,
		Items:       v.LineItems(),
	}
}

// CloneConfig returns an independent copy of a config blob.
// The copy goes through JSON, which is also how the blob is persisted.
func CloneConfig(cfg datatypes.JSONMap) (datatypes.JSONMap, error) {
	if cfg == nil {
		return nil, nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	out := datatypes.JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return out, nil
}

// ConfigEqual compares two config blobs by their canonical JSON encoding.
// A nil blob and an empty blob are equal.
func ConfigEqual(a, b datatypes.JSONMap) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func stringPtrEqual(a, b *string) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		// an absent note and an empty note read the same to the user
		return (a == nil && *b == "") || (b == nil && *a == "")
	default:
		return *a == *b
	}
}
