package models

import "time"

// App is a registered mobile application that owns ad units.
type App struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Platform  string    `json:"platform"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AdUnit is a placement configuration resolved before an auction runs.
type AdUnit struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	AppID  string `json:"appId"`
	Type   AdType `json:"type"`
	Active bool   `json:"active"`
	// FloorPrice is the minimum acceptable bid for this unit. Nil means
	// the unit accepts any price.
	FloorPrice      *float64  `json:"floorPrice,omitempty"`
	RefreshInterval int       `json:"refreshInterval,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
