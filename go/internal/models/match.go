package models

import (
	"errors"
	"fmt"
)

// MatchStatus represents the lifecycle status of a match
type MatchStatus string

const (
	MatchStatusLive  MatchStatus = "live"
	MatchStatusFinal MatchStatus = "final"
)

// PeriodType selects quarters or halves as the regulation period
type PeriodType string

const (
	PeriodTypeQuarter PeriodType = "quarter"
	PeriodTypeHalf    PeriodType = "half"
)

// RegulationPeriods returns how many periods make up regulation play
func (p PeriodType) RegulationPeriods() int {
	if p == PeriodTypeHalf {
		return 2
	}
	return 4
}

// Valid reports whether the period type is known
func (p PeriodType) Valid() bool {
	return p == PeriodTypeQuarter || p == PeriodTypeHalf
}

// MatchSettings are fixed when the match is created
type MatchSettings struct {
	GameName              string     `json:"gameName"`
	PeriodDurationMinutes int        `json:"periodDurationMinutes"`
	ShotClockSeconds      int        `json:"shotClockSeconds"`
	PeriodType            PeriodType `json:"periodType"`
}

// MatchDocument is the single shared record of one match
type MatchDocument struct {
	Code        string        `json:"code"`
	HostSession string        `json:"hostSession,omitempty"`
	Status      MatchStatus   `json:"status"`
	Settings    MatchSettings `json:"settings"`
	TeamA       Team          `json:"teamA"`
	TeamB       Team          `json:"teamB"`
	Clock       ClockState    `json:"clockState"`
	LastUpdate  int64         `json:"lastUpdate"`
}

// Team returns a pointer to the team playing on the given side
func (m *MatchDocument) Team(side Side) *Team {
	if side == SideB {
		return &m.TeamB
	}
	return &m.TeamA
}

// IsFinal reports whether the match no longer accepts mutations
func (m *MatchDocument) IsFinal() bool {
	return m.Status == MatchStatusFinal
}

// Clone returns a deep copy safe to hand to another goroutine
func (m *MatchDocument) Clone() *MatchDocument {
	if m == nil {
		return nil
	}
	c := *m
	c.TeamA = m.TeamA.clone()
	c.TeamB = m.TeamB.clone()
	return &c
}

var (
	ErrInvalidSettings = errors.New("invalid match settings")
	ErrInvalidRoster   = errors.New("invalid roster")
)

// ValidateSettings checks the creation-time settings bounds
func ValidateSettings(s MatchSettings) error {
	if s.PeriodDurationMinutes < 1 || s.PeriodDurationMinutes > 60 {
		return fmt.Errorf("%w: period duration must be between 1 and 60 minutes", ErrInvalidSettings)
	}
	if s.ShotClockSeconds < 1 || s.ShotClockSeconds > 60 {
		return fmt.Errorf("%w: shot clock must be between 1 and 60 seconds", ErrInvalidSettings)
	}
	if !s.PeriodType.Valid() {
		return fmt.Errorf("%w: unknown period type %q", ErrInvalidSettings, s.PeriodType)
	}
	return nil
}

// ValidateRoster checks that player ids and jersey numbers are unique within one roster
func ValidateRoster(roster []Player) error {
	ids := make(map[string]bool, len(roster))
	jerseys := make(map[int]bool, len(roster))
	for _, p := range roster {
		if p.ID == "" {
			return fmt.Errorf("%w: player %q has no id", ErrInvalidRoster, p.Name)
		}
		if ids[p.ID] {
			return fmt.Errorf("%w: duplicate player id %s", ErrInvalidRoster, p.ID)
		}
		if jerseys[p.JerseyNumber] {
			return fmt.Errorf("%w: duplicate jersey number %d", ErrInvalidRoster, p.JerseyNumber)
		}
		ids[p.ID] = true
		jerseys[p.JerseyNumber] = true
	}
	return nil
}

// ValidateNewMatch checks everything a match must satisfy before it is created
func ValidateNewMatch(settings MatchSettings, teamA, teamB Team) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	if err := ValidateRoster(teamA.Roster); err != nil {
		return fmt.Errorf("team A: %w", err)
	}
	if err := ValidateRoster(teamB.Roster); err != nil {
		return fmt.Errorf("team B: %w", err)
	}
	return nil
}
