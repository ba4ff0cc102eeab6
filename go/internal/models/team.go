package models

import "fmt"

// Side identifies one of the two teams on the floor
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Other returns the opposing side
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// ParseSide converts a wire value into a Side
func ParseSide(v string) (Side, error) {
	switch v {
	case "A", "a", "teamA":
		return SideA, nil
	case "B", "b", "teamB":
		return SideB, nil
	}
	return "", fmt.Errorf("unknown team side %q", v)
}

// Team represents one side of a match
type Team struct {
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Score    int      `json:"score"`
	Fouls    int      `json:"fouls"`
	Timeouts int      `json:"timeouts"`
	Roster   []Player `json:"roster"`
}

// Player returns the roster entry with the given id
func (t *Team) Player(id string) (*Player, bool) {
	for i := range t.Roster {
		if t.Roster[i].ID == id {
			return &t.Roster[i], true
		}
	}
	return nil, false
}

func (t Team) clone() Team {
	if t.Roster != nil {
		t.Roster = append([]Player(nil), t.Roster...)
	}
	return t
}
