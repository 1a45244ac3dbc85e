package risk

import (
	"fmt"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
)

// Sizer computes the notional committed to a session:
// balance x base fraction x regime multiplier x expansion multiplier,
// clamped at leverageCap x balance.
type Sizer struct {
	baseFraction float64
	leverageCap  float64
}

// NewSizer validates the sizing parameters. baseFraction is a fraction of
// balance (may exceed 1 for leveraged futures); leverageCap bounds the final
// notional as a multiple of balance.
func NewSizer(baseFraction, leverageCap float64) (*Sizer, error) {
	if baseFraction <= 0 {
		return nil, simerrors.NewConfigError("sizer", "new",
			fmt.Sprintf("base fraction must be positive, got %v", baseFraction))
	}
	if leverageCap <= 0 {
		return nil, simerrors.NewConfigError("sizer", "new",
			fmt.Sprintf("leverage cap must be positive, got %v", leverageCap))
	}
	return &Sizer{baseFraction: baseFraction, leverageCap: leverageCap}, nil
}

// Size returns the notional for one session given the balance at session
// start and the day's regime and expansion multipliers.
func (s *Sizer) Size(balance, regimeMult, expansionMult float64) float64 {
	if balance <= 0 {
		return 0
	}
	notional := balance * s.baseFraction * regimeMult * expansionMult
	limit := s.leverageCap * balance
	if notional > limit {
		notional = limit
	}
	return notional
}
