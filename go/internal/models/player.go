package models

// Player is a roster entry with per-match totals
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	JerseyNumber int    `json:"jerseyNumber"`
	Points       int    `json:"points"`
	Fouls        int    `json:"fouls"`
}
