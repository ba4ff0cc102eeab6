package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestGameTimeFromTenths(t *testing.T) {
	cases := []struct {
		in   int
		want GameTime
	}{
		{6000, GameTime{Minutes: 10}},
		{599, GameTime{Seconds: 59, Tenths: 9}},
		{0, GameTime{}},
		{-42, GameTime{}},
	}
	for _, tc := range cases {
		got := GameTimeFromTenths(tc.in)
		if got != tc.want {
			t.Fatalf("GameTimeFromTenths(%d) = %+v, want %+v", tc.in, got, tc.want)
		}
		if tc.in >= 0 && got.TotalTenths() != tc.in {
			t.Fatalf("round trip of %d gave %d", tc.in, got.TotalTenths())
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := &MatchDocument{
		Code:  "XYZ789",
		TeamA: Team{Name: "Hawks", Roster: []Player{{ID: "p1", JerseyNumber: 4}}},
	}
	c := doc.Clone()
	c.TeamA.Roster[0].Points = 10
	c.TeamA.Score = 3

	if doc.TeamA.Roster[0].Points != 0 || doc.TeamA.Score != 0 {
		t.Fatalf("clone shares state with original")
	}
	if (*MatchDocument)(nil).Clone() != nil {
		t.Fatalf("nil clone should be nil")
	}
}

func TestValidateNewMatch(t *testing.T) {
	good := MatchSettings{GameName: "g", PeriodDurationMinutes: 10, ShotClockSeconds: 24, PeriodType: PeriodTypeQuarter}

	if err := ValidateNewMatch(good, Team{}, Team{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := good
	bad.PeriodDurationMinutes = 0
	if err := ValidateNewMatch(bad, Team{}, Team{}); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	bad = good
	bad.PeriodType = "thirds"
	if err := ValidateNewMatch(bad, Team{}, Team{}); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}

	dupJersey := Team{Roster: []Player{{ID: "a", JerseyNumber: 1}, {ID: "b", JerseyNumber: 1}}}
	if err := ValidateNewMatch(good, Team{}, dupJersey); !errors.Is(err, ErrInvalidRoster) {
		t.Fatalf("expected ErrInvalidRoster, got %v", err)
	}
	noID := Team{Roster: []Player{{Name: "anon", JerseyNumber: 1}}}
	if err := ValidateNewMatch(good, noID, Team{}); !errors.Is(err, ErrInvalidRoster) {
		t.Fatalf("expected ErrInvalidRoster, got %v", err)
	}
}

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{"A": SideA, "teamA": SideA, "b": SideB, "teamB": SideB} {
		got, err := ParseSide(in)
		if err != nil || got != want {
			t.Fatalf("ParseSide(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseSide("C"); err == nil {
		t.Fatalf("expected error for unknown side")
	}
	if SideA.Other().Other() != SideA {
		t.Fatalf("Other is not an involution")
	}
}

func TestDocumentWireShape(t *testing.T) {
	doc := MatchDocument{Code: "ABC123", Status: MatchStatusLive, Clock: ClockState{Period: 1, Possession: SideA}}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"code", "status", "settings", "teamA", "teamB", "clockState", "lastUpdate"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing %q in %s", key, raw)
		}
	}
	if _, ok := fields["hostSession"]; ok {
		t.Fatalf("empty hostSession should be omitted")
	}
}
