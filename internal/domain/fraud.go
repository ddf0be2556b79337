package domain

import "time"

// GPSPoint is one sample of a ride's GPS trace.
type GPSPoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// FraudAssessment is the outcome of scoring a completed trip's GPS trace.
// It is attached to the ride at completion time; PayoutHeld gates automatic
// settlement.
type FraudAssessment struct {
	Score      int
	Reasons    []string
	IsFlagged  bool
	PayoutHeld bool
}
