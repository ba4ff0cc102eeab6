package match

import (
	"fmt"

	"github.com/mcdev12/courtside/go/internal/models"
)

// PointsDelta is the closed set of score changes an operator can issue
type PointsDelta int

const (
	PointsCorrection PointsDelta = -1
	PointsFreeThrow  PointsDelta = 1
	PointsTwo        PointsDelta = 2
	PointsThree      PointsDelta = 3
)

// ParsePointsDelta converts a wire integer into a PointsDelta
func ParsePointsDelta(v int) (PointsDelta, error) {
	switch d := PointsDelta(v); d {
	case PointsCorrection, PointsFreeThrow, PointsTwo, PointsThree:
		return d, nil
	}
	return 0, fmt.Errorf("%w: points delta %d", ErrInvalidDelta, v)
}

// CountDelta is a single-step change to a foul or timeout counter
type CountDelta int

const (
	Decrement CountDelta = -1
	Increment CountDelta = 1
)

// ParseCountDelta converts a wire integer into a CountDelta
func ParseCountDelta(v int) (CountDelta, error) {
	switch d := CountDelta(v); d {
	case Decrement, Increment:
		return d, nil
	}
	return 0, fmt.Errorf("%w: count delta %d", ErrInvalidDelta, v)
}

// ActionDispatcher applies discrete operator actions to team and player counters.
// Out-of-range results are clamped, never rejected.
type ActionDispatcher struct {
	maxTimeouts int
	bonusFouls  int
}

// NewActionDispatcher creates a dispatcher bound to a ruleset
func NewActionDispatcher(rules Ruleset) *ActionDispatcher {
	return &ActionDispatcher{
		maxTimeouts: rules.MaxTimeouts,
		bonusFouls:  rules.BonusFouls,
	}
}

// ApplyPoints changes a team score. Positive deltas may be credited to a roster player.
func (d *ActionDispatcher) ApplyPoints(doc *models.MatchDocument, side models.Side, delta PointsDelta, playerID string) error {
	team := doc.Team(side)
	if delta > 0 && playerID != "" {
		player, ok := team.Player(playerID)
		if !ok {
			return fmt.Errorf("%w: %s on team %s", ErrPlayerNotFound, playerID, side)
		}
		player.Points += int(delta)
	}
	team.Score = max(0, team.Score+int(delta))
	return nil
}

// ApplyFoul changes a team foul count. Positive deltas may be charged to a roster player.
func (d *ActionDispatcher) ApplyFoul(doc *models.MatchDocument, side models.Side, delta CountDelta, playerID string) error {
	team := doc.Team(side)
	if delta > 0 && playerID != "" {
		player, ok := team.Player(playerID)
		if !ok {
			return fmt.Errorf("%w: %s on team %s", ErrPlayerNotFound, playerID, side)
		}
		player.Fouls += int(delta)
	}
	team.Fouls = max(0, team.Fouls+int(delta))
	return nil
}

// ApplyTimeout changes a team's remaining timeouts within [0, MaxTimeouts]
func (d *ActionDispatcher) ApplyTimeout(doc *models.MatchDocument, side models.Side, delta CountDelta) {
	team := doc.Team(side)
	team.Timeouts = clamp(team.Timeouts+int(delta), 0, d.maxTimeouts)
}

// TogglePossession flips the possession arrow
func (d *ActionDispatcher) TogglePossession(doc *models.MatchDocument) {
	doc.Clock.Possession = doc.Clock.Possession.Other()
}

// InBonus reports whether a team's foul count has crossed the display-only bonus threshold
func (d *ActionDispatcher) InBonus(team models.Team) bool {
	return team.Fouls >= d.bonusFouls
}
