package match

import "fmt"

// Ruleset holds the per-league ceilings the engine enforces
type Ruleset struct {
	Name            string `yaml:"name" json:"name"`
	MaxTimeouts     int    `yaml:"max_timeouts" json:"maxTimeouts"`
	BonusFouls      int    `yaml:"bonus_fouls" json:"bonusFouls"`
	ShotClockResets []int  `yaml:"shot_clock_resets" json:"shotClockResets"`
	// OvertimeMinutes overrides the period duration for overtime periods when non-zero.
	OvertimeMinutes int `yaml:"overtime_minutes" json:"overtimeMinutes"`
}

// DefaultRuleset mirrors the friendly-game defaults the scoreboard ships with
func DefaultRuleset() Ruleset {
	return Ruleset{
		Name:            "friendly",
		MaxTimeouts:     7,
		BonusFouls:      5,
		ShotClockResets: []int{24, 14},
	}
}

// Validate checks the ruleset for values the engine cannot honour
func (r Ruleset) Validate() error {
	if r.MaxTimeouts < 0 {
		return fmt.Errorf("max_timeouts must not be negative, got %d", r.MaxTimeouts)
	}
	if r.BonusFouls < 1 {
		return fmt.Errorf("bonus_fouls must be positive, got %d", r.BonusFouls)
	}
	if r.OvertimeMinutes < 0 {
		return fmt.Errorf("overtime_minutes must not be negative, got %d", r.OvertimeMinutes)
	}
	for _, v := range r.ShotClockResets {
		if v <= 0 {
			return fmt.Errorf("shot_clock_resets must be positive, got %d", v)
		}
	}
	return nil
}

// AllowsShotClockReset reports whether seconds is one of the configured reset values.
// An empty set accepts any positive value.
func (r Ruleset) AllowsShotClockReset(seconds int) bool {
	if seconds <= 0 {
		return false
	}
	if len(r.ShotClockResets) == 0 {
		return true
	}
	for _, v := range r.ShotClockResets {
		if v == seconds {
			return true
		}
	}
	return false
}
