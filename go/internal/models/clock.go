package models

// GameTime is the remaining time in the current period
type GameTime struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
	Tenths  int `json:"tenths"`
}

// TotalTenths returns the remaining time in tenths of a second
func (g GameTime) TotalTenths() int {
	return g.Minutes*600 + g.Seconds*10 + g.Tenths
}

// IsZero reports whether no time remains
func (g GameTime) IsZero() bool {
	return g.TotalTenths() <= 0
}

// GameTimeFromTenths builds a GameTime, clamping negative input to zero
func GameTimeFromTenths(tenths int) GameTime {
	if tenths < 0 {
		tenths = 0
	}
	return GameTime{
		Minutes: tenths / 600,
		Seconds: (tenths % 600) / 10,
		Tenths:  tenths % 10,
	}
}

// ClockState is the game and shot clock portion of a match
type ClockState struct {
	Period           int      `json:"period"`
	GameTime         GameTime `json:"gameTime"`
	ShotClock        int      `json:"shotClock"`
	ShotClockTenths  int      `json:"shotClockTenths"`
	Possession       Side     `json:"possession"`
	GameRunning      bool     `json:"gameRunning"`
	ShotClockRunning bool     `json:"shotClockRunning"`
}

// ShotClockTotalTenths returns the shot clock in tenths of a second
func (c ClockState) ShotClockTotalTenths() int {
	return c.ShotClock*10 + c.ShotClockTenths
}

// SetShotClockTenths stores a shot clock value given in tenths, clamping at zero
func (c *ClockState) SetShotClockTenths(tenths int) {
	if tenths < 0 {
		tenths = 0
	}
	c.ShotClock = tenths / 10
	c.ShotClockTenths = tenths % 10
}
