package match

import (
	"errors"
	"testing"
	"time"

	"github.com/mcdev12/courtside/go/internal/models"
)

func mustParse(t *testing.T, p CommandPayload) Command {
	t.Helper()
	cmd, err := ParseCommand(p)
	if err != nil {
		t.Fatalf("ParseCommand(%+v): %v", p, err)
	}
	return cmd
}

func TestEngineNewMatchOpeningState(t *testing.T) {
	doc := testMatch()

	if doc.Status != models.MatchStatusLive || doc.Clock.Period != 1 || doc.Clock.Possession != models.SideA {
		t.Fatalf("unexpected opening state %+v", doc.Clock)
	}
	if doc.Clock.GameTime != (models.GameTime{Minutes: 10}) || doc.Clock.ShotClock != 24 {
		t.Fatalf("clocks not full: %+v", doc.Clock)
	}
	if doc.TeamA.Timeouts != 7 || doc.TeamB.Timeouts != 7 {
		t.Fatalf("expected 7 timeouts each")
	}
	if doc.TeamB.Roster == nil {
		t.Fatalf("empty roster should encode as a list")
	}
}

func TestEngineRoutesCommands(t *testing.T) {
	e := NewEngine(DefaultRuleset(), time.Second)
	doc := testMatch()

	fx, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "toggle_clock"}))
	if err != nil || !fx.ClockStarted {
		t.Fatalf("expected clock started, got %+v (%v)", fx, err)
	}
	if _, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "points", Team: "teamB", Delta: 3})); err != nil {
		t.Fatalf("points: %v", err)
	}
	if _, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "foul", Team: "A", Delta: 1, PlayerID: "p1"})); err != nil {
		t.Fatalf("foul: %v", err)
	}
	if _, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "timeout", Team: "A", Delta: -1})); err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if _, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "possession"})); err != nil {
		t.Fatalf("possession: %v", err)
	}
	if _, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "reset_shot_clock", ShotClock: 14})); err != nil {
		t.Fatalf("reset_shot_clock: %v", err)
	}

	if doc.TeamB.Score != 3 || doc.TeamA.Fouls != 1 || doc.TeamA.Timeouts != 6 {
		t.Fatalf("counters not applied: A=%+v B=%+v", doc.TeamA, doc.TeamB)
	}
	if doc.Clock.Possession != models.SideB || doc.Clock.ShotClock != 14 {
		t.Fatalf("clock state not applied: %+v", doc.Clock)
	}

	fx, err = e.Apply(doc, mustParse(t, CommandPayload{Kind: "toggle_clock"}))
	if err != nil || !fx.ClockStopped {
		t.Fatalf("expected clock stopped, got %+v (%v)", fx, err)
	}
}

func TestEngineEndMatchFreezesDocument(t *testing.T) {
	e := NewEngine(DefaultRuleset(), time.Second)
	doc := testMatch()
	e.Clock.Toggle(doc)

	fx, err := e.Apply(doc, Command{Kind: KindEndMatch})
	if err != nil || !fx.Ended || !fx.ClockStopped {
		t.Fatalf("unexpected end effects %+v (%v)", fx, err)
	}
	if !doc.IsFinal() || doc.Clock.GameRunning {
		t.Fatalf("expected final and stopped")
	}
	if _, err := e.Apply(doc, Command{Kind: KindPossession}); !errors.Is(err, ErrMatchFinal) {
		t.Fatalf("expected ErrMatchFinal, got %v", err)
	}
	if fx := e.Tick(doc); fx != (Effects{}) {
		t.Fatalf("final match ticked: %+v", fx)
	}
}

func TestEngineAdvanceNeedsChoice(t *testing.T) {
	e := NewEngine(DefaultRuleset(), time.Second)
	doc := testMatch()
	doc.Clock.Period = 4

	if _, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "advance_period"})); !errors.Is(err, ErrDecisionRequired) {
		t.Fatalf("expected ErrDecisionRequired, got %v", err)
	}
	if _, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "advance_period", Choice: "overtime"})); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if doc.Clock.Period != 5 {
		t.Fatalf("expected OT1, got %d", doc.Clock.Period)
	}
}

func TestEngineTickReportsExpiry(t *testing.T) {
	e := NewEngine(DefaultRuleset(), time.Second)
	doc := testMatch()
	e.Clock.SetTime(doc, 0, 1, 24)
	e.Clock.Toggle(doc)

	fx := e.Tick(doc)
	if !fx.Expired || !fx.ClockStopped {
		t.Fatalf("expected expiry, got %+v", fx)
	}
}

func TestParseCommandRejectsBadInput(t *testing.T) {
	cases := []CommandPayload{
		{Kind: "dunk"},
		{Kind: "points", Team: "C", Delta: 2},
		{Kind: "points", Team: "A", Delta: 5},
		{Kind: "foul", Team: "B", Delta: 2},
		{Kind: "advance_period", Choice: "sudden_death"},
	}
	for _, p := range cases {
		_, err := ParseCommand(p)
		if !errors.Is(err, ErrInvalidCommand) && !errors.Is(err, ErrInvalidDelta) {
			t.Fatalf("ParseCommand(%+v): expected rejection, got %v", p, err)
		}
	}
}

func TestEngineShotClockResetMustMatchRuleset(t *testing.T) {
	e := NewEngine(DefaultRuleset(), time.Second)
	doc := testMatch()
	doc.Clock.ShotClock = 9

	if _, err := ParseCommand(CommandPayload{Kind: "reset_shot_clock"}); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand for a missing value, got %v", err)
	}
	if _, err := e.Apply(doc, Command{Kind: KindResetShotClock}); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand for zero, got %v", err)
	}
	if _, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "reset_shot_clock", ShotClock: 17})); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand for 17, got %v", err)
	}
	if doc.Clock.ShotClock != 9 {
		t.Fatalf("rejected reset changed the shot clock to %d", doc.Clock.ShotClock)
	}
	if _, err := e.Apply(doc, mustParse(t, CommandPayload{Kind: "reset_shot_clock", ShotClock: 24})); err != nil {
		t.Fatalf("reset to 24: %v", err)
	}
	if doc.Clock.ShotClock != 24 {
		t.Fatalf("expected 24, got %d", doc.Clock.ShotClock)
	}
}
