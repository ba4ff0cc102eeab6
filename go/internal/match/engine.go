package match

import (
	"fmt"
	"time"

	"github.com/mcdev12/courtside/go/internal/models"
)

// Effects describes what a command did beyond mutating counters
type Effects struct {
	ClockStarted     bool
	ClockStopped     bool
	Expired          bool
	ShotClockExpired bool
	Ended            bool
}

// Engine routes commands to the clock, action and period components. It holds no
// per-match state and never touches transport.
type Engine struct {
	Clock   *ClockEngine
	Actions *ActionDispatcher
	Periods *PeriodController
	Rules   Ruleset
}

// NewEngine wires the three components for a ruleset and tick unit
func NewEngine(rules Ruleset, tickUnit time.Duration) *Engine {
	return &Engine{
		Clock:   NewClockEngine(tickUnit).WithOvertime(rules.OvertimeMinutes),
		Actions: NewActionDispatcher(rules),
		Periods: NewPeriodController(rules),
		Rules:   rules,
	}
}

// NewMatch builds the opening document for a match
func (e *Engine) NewMatch(code string, settings models.MatchSettings, teamA, teamB models.Team) *models.MatchDocument {
	opening := func(t models.Team) models.Team {
		t.Score, t.Fouls = 0, 0
		t.Timeouts = e.Rules.MaxTimeouts
		t.Roster = append([]models.Player{}, t.Roster...)
		for i := range t.Roster {
			t.Roster[i].Points, t.Roster[i].Fouls = 0, 0
		}
		return t
	}
	return &models.MatchDocument{
		Code:     code,
		Status:   models.MatchStatusLive,
		Settings: settings,
		TeamA:    opening(teamA),
		TeamB:    opening(teamB),
		Clock: models.ClockState{
			Period:     1,
			GameTime:   models.GameTime{Minutes: settings.PeriodDurationMinutes},
			ShotClock:  settings.ShotClockSeconds,
			Possession: models.SideA,
		},
	}
}

// Apply executes one command against doc
func (e *Engine) Apply(doc *models.MatchDocument, cmd Command) (Effects, error) {
	var fx Effects
	if doc.IsFinal() {
		return fx, ErrMatchFinal
	}
	wasRunning := doc.Clock.GameRunning

	switch cmd.Kind {
	case KindPoints:
		if err := e.Actions.ApplyPoints(doc, cmd.Team, cmd.Points, cmd.PlayerID); err != nil {
			return fx, err
		}
	case KindFoul:
		if err := e.Actions.ApplyFoul(doc, cmd.Team, cmd.Count, cmd.PlayerID); err != nil {
			return fx, err
		}
	case KindTimeout:
		e.Actions.ApplyTimeout(doc, cmd.Team, cmd.Count)
	case KindPossession:
		e.Actions.TogglePossession(doc)
	case KindToggleClock:
		e.Clock.Toggle(doc)
	case KindToggleShotClock:
		e.Clock.ToggleShotClock(doc)
	case KindAdjustTime:
		e.Clock.AdjustGameTime(doc, cmd.DeltaSeconds)
	case KindResetShotClock:
		if !e.Rules.AllowsShotClockReset(cmd.ShotClock) {
			return fx, fmt.Errorf("%w: shot clock reset to %d, allowed %v", ErrInvalidCommand, cmd.ShotClock, e.Rules.ShotClockResets)
		}
		e.Clock.ResetShotClock(doc, cmd.ShotClock)
	case KindSetTime:
		e.Clock.SetTime(doc, cmd.Minutes, cmd.Seconds, cmd.ShotClock)
	case KindAdvancePeriod:
		if err := e.Periods.Advance(doc, cmd.Choice); err != nil {
			return fx, err
		}
	case KindEndMatch:
		doc.Clock.GameRunning = false
		doc.Clock.ShotClockRunning = false
		doc.Status = models.MatchStatusFinal
		fx.Ended = true
	default:
		return fx, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, cmd.Kind)
	}

	fx.ClockStarted = !wasRunning && doc.Clock.GameRunning
	fx.ClockStopped = wasRunning && !doc.Clock.GameRunning
	return fx, nil
}

// Tick applies one clock tick and reports its effects
func (e *Engine) Tick(doc *models.MatchDocument) Effects {
	if doc.IsFinal() {
		return Effects{}
	}
	res := e.Clock.Tick(doc)
	return Effects{
		ClockStopped:     res.Expired,
		Expired:          res.Expired,
		ShotClockExpired: res.ShotClockExpired,
	}
}
