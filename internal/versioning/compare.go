package versioning

import (
	"github.com/shopspring/decimal"
)

// HeaderDiff describes header field differences between two states.
type HeaderDiff struct {
	NameChanged        bool            `json:"name_changed"`
	OldName            string          `json:"old_name"`
	NewName            string          `json:"new_name"`
	TotalChanged       bool            `json:"total_changed"`
	TotalDelta         decimal.Decimal `json:"total_delta"`
	NotesChanged       bool            `json:"notes_changed"`
	ClientNotesChanged bool            `json:"client_notes_changed"`
	ConfigChanged      bool            `json:"config_changed"`
	ItemCountDelta     int             `json:"item_count_delta"`
}

// Empty reports whether no header field differs.
func (h HeaderDiff) Empty() bool {
	return !h.NameChanged && !h.TotalChanged && !h.NotesChanged &&
		!h.ClientNotesChanged && !h.ConfigChanged && h.ItemCountDelta == 0
}

// Comparison is the structured difference from state A to state B.
type Comparison struct {
	Header HeaderDiff `json:"header"`
	Items  ItemDiff   `json:"items"`
}

// Compare diffs a (older) against b (newer).
func Compare(a, b State) Comparison {
	delta := b.Total.Sub(a.Total)
	return Comparison{
		Header: HeaderDiff{
			NameChanged:        a.Name != b.Name,
			OldName:            a.Name,
			NewName:            b.Name,
			TotalChanged:       !delta.IsZero(),
			TotalDelta:         delta,
			NotesChanged:       !stringPtrEqual(a.Notes, b.Notes),
			ClientNotesChanged: !stringPtrEqual(a.ClientNotes, b.ClientNotes),
			ConfigChanged:      !ConfigEqual(a.Config, b.Config),
			ItemCountDelta:     len(b.Items) - len(a.Items),
		},
		Items: DiffItems(a.Items, b.Items),
	}
}
