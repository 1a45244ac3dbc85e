package risk

import (
	"fmt"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
)

// ExpansionGate scales position size up for sessions after the first one,
// but only when the day's first session closed strictly positive. A flat or
// losing first session leaves the day unexpanded. State resets every day.
type ExpansionGate struct {
	factor   float64
	observed bool
	expanded bool
}

// NewExpansionGate creates a gate with the given expansion factor (> 1).
func NewExpansionGate(factor float64) (*ExpansionGate, error) {
	if factor <= 1 {
		return nil, simerrors.NewConfigError("expansion_gate", "new",
			fmt.Sprintf("expansion factor must exceed 1, got %v", factor))
	}
	return &ExpansionGate{factor: factor}, nil
}

// Reset clears the gate for a new trading day.
func (g *ExpansionGate) Reset() {
	g.observed = false
	g.expanded = false
}

// ObserveFirstSession records the day's first session return. Only a strictly
// positive return arms expansion; zero does not.
func (g *ExpansionGate) ObserveFirstSession(ret float64) {
	g.observed = true
	g.expanded = ret > 0
}

// Multiplier returns the size multiplier for the session at the given
// 1-based sequence position. Session 1 is never expanded.
func (g *ExpansionGate) Multiplier(sequence int) float64 {
	if sequence <= 1 || !g.observed || !g.expanded {
		return 1.0
	}
	return g.factor
}
