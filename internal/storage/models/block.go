package models

import "time"

// Block is a manual owner block over [From, To].
type Block struct {
	ID        string    `json:"id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
