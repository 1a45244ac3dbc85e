package config

import "fmt"

// Validate fails fast on the first out-of-range value. Values are never
// clamped; a bad config aborts the run before any simulation starts.
func (c *Config) Validate() error {
	if c.InitialBalance <= 0 {
		return fmt.Errorf("initial balance must be positive, got: %.2f", c.InitialBalance)
	}

	if c.BaseFraction <= 0 {
		return fmt.Errorf("base fraction must be positive, got: %.4f", c.BaseFraction)
	}

	if c.LeverageCap <= 0 {
		return fmt.Errorf("leverage cap must be positive, got: %.2f", c.LeverageCap)
	}

	if c.ExpansionFactor <= 1 {
		return fmt.Errorf("expansion factor must be greater than 1, got: %.4f", c.ExpansionFactor)
	}

	if c.DailyLossCap <= 0 || c.DailyLossCap >= 1 {
		return fmt.Errorf("daily loss cap must be within (0, 1), got: %.4f", c.DailyLossCap)
	}

	if c.StopLossPct <= 0 || c.StopLossPct >= 1 {
		return fmt.Errorf("stop loss must be within (0, 1), got: %.4f", c.StopLossPct)
	}

	if c.TakeProfitPct <= 0 {
		return fmt.Errorf("take profit must be positive, got: %.4f", c.TakeProfitPct)
	}

	if c.CommissionRate < 0 || c.CommissionRate > 0.01 {
		return fmt.Errorf("commission rate must be within [0, 0.01], got: %.6f", c.CommissionRate)
	}

	if c.SlippageRate < 0 || c.SlippageRate > 0.01 {
		return fmt.Errorf("slippage rate must be within [0, 0.01], got: %.6f", c.SlippageRate)
	}

	if c.From == "" || c.To == "" {
		return fmt.Errorf("from and to dates are required")
	}
	from, err := c.FromDate()
	if err != nil {
		return err
	}
	to, err := c.ToDate()
	if err != nil {
		return err
	}
	if to.Before(from) {
		return fmt.Errorf("to date %s is before from date %s", c.To, c.From)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got: %d", c.Workers)
	}

	if !c.Data.Synthetic && len(c.Data.MarketFiles) == 0 {
		return fmt.Errorf("market data files are required unless synthetic data is enabled")
	}

	if err := c.validateMonteCarlo(); err != nil {
		return err
	}
	return c.validateWalkForward()
}

func (c *Config) validateMonteCarlo() error {
	if !c.MonteCarlo.Enabled {
		return nil
	}
	mc := c.MonteCarlo
	if mc.Paths <= 0 {
		return fmt.Errorf("monte carlo paths must be positive, got: %d", mc.Paths)
	}
	if mc.Horizon <= 0 {
		return fmt.Errorf("monte carlo horizon must be positive, got: %d", mc.Horizon)
	}
	if mc.Method != "bootstrap" && mc.Method != "parametric" {
		return fmt.Errorf("monte carlo method must be bootstrap or parametric, got: %q", mc.Method)
	}
	if mc.RuinFloor < 0 || mc.RuinFloor >= 1 {
		return fmt.Errorf("monte carlo ruin floor must be within [0, 1), got: %.4f", mc.RuinFloor)
	}
	return nil
}

func (c *Config) validateWalkForward() error {
	if !c.WalkForward.Enabled {
		return nil
	}
	wf := c.WalkForward
	if wf.InSampleDays <= 0 {
		return fmt.Errorf("walk-forward in-sample days must be positive, got: %d", wf.InSampleDays)
	}
	if wf.OutSampleDays <= 0 {
		return fmt.Errorf("walk-forward out-of-sample days must be positive, got: %d", wf.OutSampleDays)
	}
	if len(wf.Grid) == 0 {
		return fmt.Errorf("walk-forward grid must not be empty")
	}
	for param, values := range wf.Grid {
		if len(values) == 0 {
			return fmt.Errorf("walk-forward grid parameter %q has no values", param)
		}
	}
	return nil
}
