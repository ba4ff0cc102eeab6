package match

import (
	"testing"
	"time"

	"github.com/mcdev12/courtside/go/internal/models"
)

func testMatch() *models.MatchDocument {
	engine := NewEngine(DefaultRuleset(), time.Second)
	return engine.NewMatch("ABC123", models.MatchSettings{
		GameName:              "Friday League",
		PeriodDurationMinutes: 10,
		ShotClockSeconds:      24,
		PeriodType:            models.PeriodTypeQuarter,
	}, models.Team{
		Name:  "Hawks",
		Color: "#ff0000",
		Roster: []models.Player{
			{ID: "p1", Name: "Ana", JerseyNumber: 4},
			{ID: "p2", Name: "Ben", JerseyNumber: 7},
		},
	}, models.Team{Name: "Owls", Color: "#0000ff"})
}

func TestClockFullPeriodAtOneSecondResolution(t *testing.T) {
	clock := NewClockEngine(time.Second)
	doc := testMatch()
	clock.Toggle(doc)

	expiries := 0
	for i := 0; i < 600; i++ {
		if clock.Tick(doc).Expired {
			expiries++
		}
	}

	if !doc.Clock.GameTime.IsZero() {
		t.Fatalf("expected 00:00, got %+v", doc.Clock.GameTime)
	}
	if doc.Clock.GameRunning || doc.Clock.ShotClockRunning {
		t.Fatalf("expected both clocks stopped after expiry")
	}
	if doc.Clock.ShotClock != 0 || doc.Clock.ShotClockTenths != 0 {
		t.Fatalf("expected shot clock 0, got %d.%d", doc.Clock.ShotClock, doc.Clock.ShotClockTenths)
	}
	if expiries != 1 {
		t.Fatalf("expected exactly one expiry, got %d", expiries)
	}
}

func TestClockTickIsMonotonic(t *testing.T) {
	clock := NewClockEngine(DefaultTickUnit)
	doc := testMatch()
	doc.Clock.GameTime = models.GameTime{Seconds: 3, Tenths: 4}
	clock.Toggle(doc)

	prev := doc.Clock.GameTime.TotalTenths()
	for i := 0; i < 100; i++ {
		clock.Tick(doc)
		cur := doc.Clock.GameTime.TotalTenths()
		if cur > prev || cur < 0 {
			t.Fatalf("tick %d: game time went from %d to %d tenths", i, prev, cur)
		}
		prev = cur
	}
	if prev != 0 {
		t.Fatalf("expected clock to reach zero, got %d tenths", prev)
	}
}

func TestClockExpiresOnlyOnce(t *testing.T) {
	clock := NewClockEngine(time.Second)
	doc := testMatch()
	doc.Clock.GameTime = models.GameTime{Seconds: 2}
	clock.Toggle(doc)

	var expired []int
	for i := 0; i < 10; i++ {
		if clock.Tick(doc).Expired {
			expired = append(expired, i)
		}
	}
	if len(expired) != 1 || expired[0] != 1 {
		t.Fatalf("expected a single expiry on the second tick, got %v", expired)
	}
}

func TestClockStartedAtZeroStopsOnNextTick(t *testing.T) {
	clock := NewClockEngine(DefaultTickUnit)
	doc := testMatch()
	doc.Clock.GameTime = models.GameTime{}

	clock.Toggle(doc)
	if !doc.Clock.GameRunning {
		t.Fatalf("starting at 0:00 should be allowed")
	}
	res := clock.Tick(doc)
	if !res.Expired || doc.Clock.GameRunning {
		t.Fatalf("expected expiry and stop, got %+v running=%v", res, doc.Clock.GameRunning)
	}
}

func TestClockTickWhileStoppedIsNoop(t *testing.T) {
	clock := NewClockEngine(DefaultTickUnit)
	doc := testMatch()
	before := doc.Clock

	if res := clock.Tick(doc); res.Expired || res.ShotClockExpired {
		t.Fatalf("unexpected effects %+v", res)
	}
	if doc.Clock != before {
		t.Fatalf("stopped clock changed: %+v -> %+v", before, doc.Clock)
	}
}

func TestShotClockExpiryKeepsGameClockRunning(t *testing.T) {
	clock := NewClockEngine(DefaultTickUnit)
	doc := testMatch()
	doc.Clock.ShotClock = 0
	doc.Clock.ShotClockTenths = 2
	clock.Toggle(doc)

	if res := clock.Tick(doc); res.ShotClockExpired {
		t.Fatalf("shot clock expired a tick early")
	}
	res := clock.Tick(doc)
	if !res.ShotClockExpired {
		t.Fatalf("expected shot clock expiry")
	}
	if !doc.Clock.GameRunning {
		t.Fatalf("shot clock expiry must not stop the game clock")
	}
	if res := clock.Tick(doc); res.ShotClockExpired {
		t.Fatalf("shot clock expiry reported twice")
	}
	if got := doc.Clock.GameTime.TotalTenths(); got != 6000-3 {
		t.Fatalf("expected game clock to keep decaying, got %d tenths", got)
	}
}

func TestToggleShotClockLeavesGameClock(t *testing.T) {
	clock := NewClockEngine(time.Second)
	doc := testMatch()
	clock.Toggle(doc)
	clock.ToggleShotClock(doc)

	if !doc.Clock.GameRunning || doc.Clock.ShotClockRunning {
		t.Fatalf("expected game running and shot clock stopped")
	}
	clock.Tick(doc)
	if doc.Clock.ShotClock != 24 {
		t.Fatalf("stopped shot clock decayed to %d", doc.Clock.ShotClock)
	}
	if doc.Clock.GameTime != (models.GameTime{Minutes: 9, Seconds: 59}) {
		t.Fatalf("unexpected game time %+v", doc.Clock.GameTime)
	}
}

func TestSetTimeRoundTrip(t *testing.T) {
	clock := NewClockEngine(DefaultTickUnit)
	doc := testMatch()
	doc.Clock.GameTime.Tenths = 7
	doc.Clock.ShotClockTenths = 3

	for _, tc := range []struct{ m, s, shot int }{{0, 0, 0}, {7, 30, 14}, {12, 59, 24}, {0, 1, 1}} {
		clock.SetTime(doc, tc.m, tc.s, tc.shot)
		want := models.GameTime{Minutes: tc.m, Seconds: tc.s}
		if doc.Clock.GameTime != want || doc.Clock.ShotClock != tc.shot || doc.Clock.ShotClockTenths != 0 {
			t.Fatalf("SetTime(%d,%d,%d) produced %+v shot=%d.%d", tc.m, tc.s, tc.shot,
				doc.Clock.GameTime, doc.Clock.ShotClock, doc.Clock.ShotClockTenths)
		}
	}
}

func TestSetTimeClampsAndKeepsRunningFlag(t *testing.T) {
	clock := NewClockEngine(DefaultTickUnit)
	doc := testMatch()
	clock.Toggle(doc)

	clock.SetTime(doc, -3, 75, 99)
	if doc.Clock.GameTime != (models.GameTime{Seconds: 59}) {
		t.Fatalf("unexpected clamped game time %+v", doc.Clock.GameTime)
	}
	if doc.Clock.ShotClock != 24 {
		t.Fatalf("expected shot clock clamped to 24, got %d", doc.Clock.ShotClock)
	}
	if !doc.Clock.GameRunning {
		t.Fatalf("SetTime must not change the running flag")
	}

	clock.SetTime(doc, 1, -5, -1)
	if doc.Clock.GameTime != (models.GameTime{Minutes: 1}) || doc.Clock.ShotClock != 0 {
		t.Fatalf("unexpected clamp %+v shot=%d", doc.Clock.GameTime, doc.Clock.ShotClock)
	}
}

func TestAdjustGameTimeClamps(t *testing.T) {
	clock := NewClockEngine(DefaultTickUnit)
	doc := testMatch()

	clock.AdjustGameTime(doc, 30)
	if doc.Clock.GameTime != (models.GameTime{Minutes: 10}) {
		t.Fatalf("expected clamp at period length, got %+v", doc.Clock.GameTime)
	}

	clock.AdjustGameTime(doc, -1)
	if doc.Clock.GameTime != (models.GameTime{Minutes: 9, Seconds: 59}) {
		t.Fatalf("unexpected adjusted time %+v", doc.Clock.GameTime)
	}

	doc.Clock.GameTime = models.GameTime{Seconds: 3, Tenths: 5}
	clock.Toggle(doc)
	clock.AdjustGameTime(doc, -10)
	if !doc.Clock.GameTime.IsZero() || doc.Clock.GameRunning {
		t.Fatalf("expected zero and stopped, got %+v running=%v", doc.Clock.GameTime, doc.Clock.GameRunning)
	}
}

func TestResetShotClock(t *testing.T) {
	clock := NewClockEngine(DefaultTickUnit)
	doc := testMatch()
	doc.Clock.ShotClock = 3
	doc.Clock.ShotClockTenths = 6

	clock.ResetShotClock(doc, 14)
	if doc.Clock.ShotClock != 14 || doc.Clock.ShotClockTenths != 0 {
		t.Fatalf("expected 14.0, got %d.%d", doc.Clock.ShotClock, doc.Clock.ShotClockTenths)
	}
	clock.ResetShotClock(doc, 30)
	if doc.Clock.ShotClock != 24 {
		t.Fatalf("expected clamp to 24, got %d", doc.Clock.ShotClock)
	}
}

func TestAdjustGameTimeClampsToOvertimeLength(t *testing.T) {
	rules := DefaultRuleset()
	rules.OvertimeMinutes = 5
	e := NewEngine(rules, DefaultTickUnit)
	doc := testMatch()
	doc.Clock.Period = 4

	if err := e.Periods.Advance(doc, ChoiceOvertime); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if doc.Clock.GameTime != (models.GameTime{Minutes: 5}) {
		t.Fatalf("expected OT1 to open at 5:00, got %+v", doc.Clock.GameTime)
	}

	e.Clock.AdjustGameTime(doc, 120)
	if doc.Clock.GameTime != (models.GameTime{Minutes: 5}) {
		t.Fatalf("expected clamp at overtime length, got %+v", doc.Clock.GameTime)
	}

	doc.Clock.GameTime = models.GameTime{Minutes: 4, Seconds: 50}
	e.Clock.AdjustGameTime(doc, 5)
	if doc.Clock.GameTime != (models.GameTime{Minutes: 4, Seconds: 55}) {
		t.Fatalf("unexpected adjusted time %+v", doc.Clock.GameTime)
	}
}
