package match

import (
	"fmt"

	"github.com/mcdev12/courtside/go/internal/models"
)

// PeriodChoice is the operator's answer at the end of regulation or of an overtime
type PeriodChoice string

const (
	ChoiceNone     PeriodChoice = ""
	ChoiceOvertime PeriodChoice = "overtime"
	ChoiceReset    PeriodChoice = "reset"
)

// ParsePeriodChoice converts a wire value into a PeriodChoice
func ParsePeriodChoice(v string) (PeriodChoice, error) {
	switch c := PeriodChoice(v); c {
	case ChoiceNone, ChoiceOvertime, ChoiceReset:
		return c, nil
	}
	return "", fmt.Errorf("%w: period choice %q", ErrInvalidCommand, v)
}

// PeriodController advances the period counter through regulation and overtime
type PeriodController struct {
	overtimeMinutes int
}

// NewPeriodController creates a period controller bound to a ruleset
func NewPeriodController(rules Ruleset) *PeriodController {
	return &PeriodController{overtimeMinutes: rules.OvertimeMinutes}
}

// NeedsDecision reports whether advancing requires an overtime/reset choice
func (p *PeriodController) NeedsDecision(doc *models.MatchDocument) bool {
	return doc.Clock.Period >= doc.Settings.PeriodType.RegulationPeriods()
}

// Advance moves to the next period. At or beyond the end of regulation the caller
// must pass ChoiceOvertime or ChoiceReset; ChoiceNone yields ErrDecisionRequired.
func (p *PeriodController) Advance(doc *models.MatchDocument, choice PeriodChoice) error {
	if !p.NeedsDecision(doc) {
		p.startPeriod(doc, doc.Clock.Period+1)
		return nil
	}

	switch choice {
	case ChoiceOvertime:
		p.startPeriod(doc, doc.Clock.Period+1)
	case ChoiceReset:
		p.startPeriod(doc, 1)
		doc.Clock.Possession = models.SideA
	default:
		return fmt.Errorf("%w: period %d", ErrDecisionRequired, doc.Clock.Period)
	}
	return nil
}

func (p *PeriodController) startPeriod(doc *models.MatchDocument, period int) {
	if period < 1 {
		period = 1
	}
	doc.Clock.Period = period
	doc.Clock.GameTime = models.GameTime{Minutes: PeriodMinutes(doc.Settings, period, p.overtimeMinutes)}
	doc.Clock.ShotClock = doc.Settings.ShotClockSeconds
	doc.Clock.ShotClockTenths = 0
	doc.Clock.GameRunning = false
	doc.Clock.ShotClockRunning = false
}

// PeriodMinutes is the full length of a period. Overtime periods use overtimeMinutes
// when it is set.
func PeriodMinutes(settings models.MatchSettings, period, overtimeMinutes int) int {
	if period > settings.PeriodType.RegulationPeriods() && overtimeMinutes > 0 {
		return overtimeMinutes
	}
	return settings.PeriodDurationMinutes
}

// PeriodName derives the label viewers show for a period
func PeriodName(period int, periodType models.PeriodType) string {
	regulation := periodType.RegulationPeriods()
	if period > regulation {
		return fmt.Sprintf("OT%d", period-regulation)
	}
	if periodType == models.PeriodTypeHalf {
		return fmt.Sprintf("H%d", period)
	}
	return fmt.Sprintf("Q%d", period)
}
