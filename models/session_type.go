package models

import "time"

// SessionType is an offering a builder can be booked for. PriceCents is the
// smallest-currency-unit amount charged at checkout; zero means the session
// is free and never enters a payment state.
type SessionType struct {
	ID              string    `bson:"id" json:"id"`
	BuilderID       string    `bson:"builder_id" json:"builder_id"`
	Title           string    `bson:"title" json:"title"`
	Description     string    `bson:"description,omitempty" json:"description,omitempty"`
	DurationMinutes int       `bson:"duration_minutes" json:"duration_minutes"`
	PriceCents      int64     `bson:"price_cents" json:"price_cents"`
	Currency        string    `bson:"currency" json:"currency"`
	Active          bool      `bson:"active" json:"active"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}
