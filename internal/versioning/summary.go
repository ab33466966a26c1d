package versioning

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// InitialSummary labels the first snapshot of a quote.
	InitialSummary = "Initial version"
	// DefaultSummary is used when none of the tracked fields changed.
	DefaultSummary = "Details changed"
)

// Summarize describes what changed from previous to current in one short line.
// A nil previous means current is the first snapshot.
func Summarize(previous *State, current State) string {
	if previous == nil {
		return InitialSummary
	}

	var clauses []string
	if previous.Name != current.Name {
		clauses = append(clauses, fmt.Sprintf("Name: %q → %q", previous.Name, current.Name))
	}
	if !previous.Total.Equal(current.Total) {
		clauses = append(clauses, "Total: "+SignedAmount(current.Total.Sub(previous.Total)))
	}
	if delta := len(current.Items) - len(previous.Items); delta != 0 {
		clauses = append(clauses, fmt.Sprintf("Items: %+d", delta))
	}

	if len(clauses) == 0 {
		return DefaultSummary
	}
	return strings.Join(clauses, "; ")
}

// SignedAmount formats d with two decimals and an explicit sign for positive values.
func SignedAmount(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}
