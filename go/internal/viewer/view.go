package viewer

import (
	"fmt"

	"github.com/mcdev12/courtside/go/internal/match"
	"github.com/mcdev12/courtside/go/internal/models"
)

// ShotClockWarningSeconds is the point at which viewers flag the shot clock
const ShotClockWarningSeconds = 5

// View is the read-only rendering of a match that every viewer role displays
type View struct {
	Code             string             `json:"code"`
	GameName         string             `json:"game_name"`
	Status           models.MatchStatus `json:"status"`
	Period           int                `json:"period"`
	PeriodName       string             `json:"period_name"`
	EndOfRegulation  bool               `json:"end_of_regulation"`
	GameClock        string             `json:"game_clock"`
	ShotClock        string             `json:"shot_clock"`
	ShotClockWarning bool               `json:"shot_clock_warning"`
	GameRunning      bool               `json:"game_running"`
	ShotClockRunning bool               `json:"shot_clock_running"`
	Possession       models.Side        `json:"possession"`
	TeamA            TeamView           `json:"team_a"`
	TeamB            TeamView           `json:"team_b"`
	ShotClockResets  []int              `json:"shot_clock_resets"`
	MaxTimeouts      int                `json:"max_timeouts"`
	LastUpdate       int64              `json:"last_update"`
}

// TeamView is one side of the scoreboard
type TeamView struct {
	Name          string       `json:"name"`
	Color         string       `json:"color"`
	Score         int          `json:"score"`
	Fouls         int          `json:"fouls"`
	Timeouts      int          `json:"timeouts"`
	Bonus         bool         `json:"bonus"`
	HasPossession bool         `json:"has_possession"`
	Players       []PlayerView `json:"players"`
}

type PlayerView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	JerseyNumber int    `json:"jersey_number"`
	Points       int    `json:"points"`
	Fouls        int    `json:"fouls"`
}

// Project renders doc for display. It never mutates doc.
func Project(doc *models.MatchDocument, rules match.Ruleset) View {
	c := doc.Clock
	shotTenths := c.ShotClockTotalTenths()

	return View{
		Code:             doc.Code,
		GameName:         doc.Settings.GameName,
		Status:           doc.Status,
		Period:           c.Period,
		PeriodName:       match.PeriodName(c.Period, doc.Settings.PeriodType),
		EndOfRegulation:  c.Period >= doc.Settings.PeriodType.RegulationPeriods(),
		GameClock:        FormatGameClock(c.GameTime),
		ShotClock:        FormatShotClock(shotTenths),
		ShotClockWarning: shotTenths <= ShotClockWarningSeconds*10,
		GameRunning:      c.GameRunning,
		ShotClockRunning: c.ShotClockRunning,
		Possession:       c.Possession,
		TeamA:            projectTeam(doc.TeamA, rules, c.Possession == models.SideA),
		TeamB:            projectTeam(doc.TeamB, rules, c.Possession == models.SideB),
		ShotClockResets:  append([]int{}, rules.ShotClockResets...),
		MaxTimeouts:      rules.MaxTimeouts,
		LastUpdate:       doc.LastUpdate,
	}
}

func projectTeam(t models.Team, rules match.Ruleset, possession bool) TeamView {
	players := make([]PlayerView, 0, len(t.Roster))
	for _, p := range t.Roster {
		players = append(players, PlayerView{
			ID:           p.ID,
			Name:         p.Name,
			JerseyNumber: p.JerseyNumber,
			Points:       p.Points,
			Fouls:        p.Fouls,
		})
	}
	return TeamView{
		Name:          t.Name,
		Color:         t.Color,
		Score:         t.Score,
		Fouls:         t.Fouls,
		Timeouts:      t.Timeouts,
		Bonus:         t.Fouls >= rules.BonusFouls,
		HasPossession: possession,
		Players:       players,
	}
}

// FormatGameClock renders MM:SS, switching to M:SS.t in the final minute
func FormatGameClock(g models.GameTime) string {
	if g.Minutes == 0 {
		return fmt.Sprintf("0:%02d.%d", g.Seconds, g.Tenths)
	}
	return fmt.Sprintf("%02d:%02d", g.Minutes, g.Seconds)
}

// FormatShotClock renders whole seconds rounded up, or S.t at 9.9 and below
func FormatShotClock(tenths int) string {
	if tenths < 0 {
		tenths = 0
	}
	if tenths > 90 {
		return fmt.Sprintf("%d", (tenths+9)/10)
	}
	return fmt.Sprintf("%d.%d", tenths/10, tenths%10)
}
