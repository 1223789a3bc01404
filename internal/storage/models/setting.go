package models

import "time"

// Setting is a key/value pair stored in the settings table.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting keys
const (
	SettingPricing = "pricing"
)
