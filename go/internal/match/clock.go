package match

import (
	"time"

	"github.com/mcdev12/courtside/go/internal/models"
)

// DefaultTickUnit is the cadence of the running game clock
const DefaultTickUnit = 100 * time.Millisecond

// TickResult reports the side effects of a single tick
type TickResult struct {
	Expired          bool
	ShotClockExpired bool
}

// ClockEngine owns the start/stop state machine and the per-tick decay of both clocks.
// The game clock and the shot clock are decremented by the same tick so they never drift
// relative to each other.
type ClockEngine struct {
	unit            time.Duration
	unitTenths      int
	overtimeMinutes int
}

// NewClockEngine creates a clock engine decrementing by unit on every tick
func NewClockEngine(unit time.Duration) *ClockEngine {
	if unit <= 0 {
		unit = DefaultTickUnit
	}
	tenths := int(unit / (100 * time.Millisecond))
	if tenths < 1 {
		tenths = 1
	}
	return &ClockEngine{unit: unit, unitTenths: tenths}
}

// WithOvertime sets the overtime length used to clamp referee adjustments
func (e *ClockEngine) WithOvertime(minutes int) *ClockEngine {
	e.overtimeMinutes = minutes
	return e
}

// TickUnit returns the wall-clock interval between ticks
func (e *ClockEngine) TickUnit() time.Duration {
	return e.unit
}

// Toggle starts or stops the game clock, with the shot clock in lockstep
func (e *ClockEngine) Toggle(doc *models.MatchDocument) {
	running := !doc.Clock.GameRunning
	doc.Clock.GameRunning = running
	doc.Clock.ShotClockRunning = running
}

// ToggleShotClock starts or stops the shot clock on its own
func (e *ClockEngine) ToggleShotClock(doc *models.MatchDocument) {
	doc.Clock.ShotClockRunning = !doc.Clock.ShotClockRunning
}

// Tick applies one unit of time decay. It is a no-op when the game clock is stopped.
func (e *ClockEngine) Tick(doc *models.MatchDocument) TickResult {
	var res TickResult
	clock := &doc.Clock
	if !clock.GameRunning {
		return res
	}

	remaining := clock.GameTime.TotalTenths()
	if remaining <= 0 {
		clock.GameTime = models.GameTime{}
		e.stop(clock)
		res.Expired = true
		return res
	}

	if clock.ShotClockRunning {
		shot := clock.ShotClockTotalTenths()
		if shot > 0 {
			shot -= e.unitTenths
			if shot <= 0 {
				shot = 0
				res.ShotClockExpired = true
			}
			clock.SetShotClockTenths(shot)
		}
	}

	remaining -= e.unitTenths
	clock.GameTime = models.GameTimeFromTenths(remaining)
	if remaining <= 0 {
		e.stop(clock)
		res.Expired = true
	}
	return res
}

// AdjustGameTime nudges the game clock by deltaSeconds, clamped to the current period's length
func (e *ClockEngine) AdjustGameTime(doc *models.MatchDocument, deltaSeconds int) {
	limit := PeriodMinutes(doc.Settings, doc.Clock.Period, e.overtimeMinutes) * 600
	tenths := doc.Clock.GameTime.TotalTenths() + deltaSeconds*10
	if tenths > limit {
		tenths = limit
	}
	doc.Clock.GameTime = models.GameTimeFromTenths(tenths)
	if doc.Clock.GameTime.IsZero() {
		e.stop(&doc.Clock)
	}
}

// ResetShotClock sets the shot clock to a whole number of seconds
func (e *ClockEngine) ResetShotClock(doc *models.MatchDocument, seconds int) {
	doc.Clock.ShotClock = clamp(seconds, 0, doc.Settings.ShotClockSeconds)
	doc.Clock.ShotClockTenths = 0
}

// SetTime replaces both clocks outright without touching the running flags
func (e *ClockEngine) SetTime(doc *models.MatchDocument, minutes, seconds, shotClock int) {
	if minutes < 0 {
		minutes = 0
	}
	doc.Clock.GameTime = models.GameTime{
		Minutes: minutes,
		Seconds: clamp(seconds, 0, 59),
	}
	doc.Clock.ShotClock = clamp(shotClock, 0, doc.Settings.ShotClockSeconds)
	doc.Clock.ShotClockTenths = 0
}

func (e *ClockEngine) stop(clock *models.ClockState) {
	clock.GameRunning = false
	clock.ShotClockRunning = false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
