package domain

import "time"

// Driver represents a driver in the system.
type Driver struct {
	ID         string
	Name       string
	Phone      string
	Online     bool
	Approved   bool
	Rating     float64
	TotalTrips int
	CreatedAt  time.Time
}
