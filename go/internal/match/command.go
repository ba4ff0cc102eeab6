package match

import (
	"fmt"

	"github.com/mcdev12/courtside/go/internal/models"
)

// CommandKind names an operator action
type CommandKind string

const (
	KindPoints          CommandKind = "points"
	KindFoul            CommandKind = "foul"
	KindTimeout         CommandKind = "timeout"
	KindPossession      CommandKind = "possession"
	KindToggleClock     CommandKind = "toggle_clock"
	KindToggleShotClock CommandKind = "toggle_shot_clock"
	KindAdjustTime      CommandKind = "adjust_time"
	KindResetShotClock  CommandKind = "reset_shot_clock"
	KindSetTime         CommandKind = "set_time"
	KindAdvancePeriod   CommandKind = "advance_period"
	KindEndMatch        CommandKind = "end_match"
)

// Command is a validated operator action ready for the engine
type Command struct {
	Kind         CommandKind
	Team         models.Side
	Points       PointsDelta
	Count        CountDelta
	PlayerID     string
	DeltaSeconds int
	Minutes      int
	Seconds      int
	ShotClock    int
	Choice       PeriodChoice
}

// CommandPayload is the wire form of a command, as sent by tablets and the control API
type CommandPayload struct {
	Kind         string `json:"kind"`
	Team         string `json:"team,omitempty"`
	Delta        int    `json:"delta,omitempty"`
	PlayerID     string `json:"playerId,omitempty"`
	DeltaSeconds int    `json:"deltaSeconds,omitempty"`
	Minutes      int    `json:"minutes,omitempty"`
	Seconds      int    `json:"seconds,omitempty"`
	ShotClock    int    `json:"shotClock,omitempty"`
	Choice       string `json:"choice,omitempty"`
}

// ParseCommand turns a wire payload into a Command. This is the only place raw deltas
// are checked against the enumerated sets.
func ParseCommand(p CommandPayload) (Command, error) {
	cmd := Command{Kind: CommandKind(p.Kind)}

	switch cmd.Kind {
	case KindPoints, KindFoul, KindTimeout:
		side, err := models.ParseSide(p.Team)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		cmd.Team = side
		cmd.PlayerID = p.PlayerID
		if cmd.Kind == KindPoints {
			cmd.Points, err = ParsePointsDelta(p.Delta)
		} else {
			cmd.Count, err = ParseCountDelta(p.Delta)
		}
		if err != nil {
			return Command{}, err
		}
	case KindAdjustTime:
		cmd.DeltaSeconds = p.DeltaSeconds
	case KindResetShotClock:
		if p.ShotClock <= 0 {
			return Command{}, fmt.Errorf("%w: reset_shot_clock needs a shotClock value", ErrInvalidCommand)
		}
		cmd.ShotClock = p.ShotClock
	case KindSetTime:
		cmd.Minutes = p.Minutes
		cmd.Seconds = p.Seconds
		cmd.ShotClock = p.ShotClock
	case KindAdvancePeriod:
		choice, err := ParsePeriodChoice(p.Choice)
		if err != nil {
			return Command{}, err
		}
		cmd.Choice = choice
	case KindPossession, KindToggleClock, KindToggleShotClock, KindEndMatch:
	default:
		return Command{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, p.Kind)
	}
	return cmd, nil
}
