package service

import (
	"fmt"
	"math"
	"time"

	"ridehail/internal/domain"
)

// Fraud scoring thresholds and weights. A trip whose score reaches
// payoutHoldThreshold has its automatic payout withheld for manual review.
const (
	distanceOverageFactor = 1.25
	durationOverageFactor = 1.4

	jumpDistanceMeters = 500.0
	jumpWindow         = 5 * time.Second

	loopCellDegrees = 0.001 // ~111 m per cell
	loopVisitCount  = 3

	idleDistanceMeters = 50.0
	idleWindow         = 10 * time.Minute

	distanceOverageScore = 2
	durationOverageScore = 1
	gpsJumpScore         = 4
	loopScore            = 3
	idleScore            = 2

	payoutHoldThreshold = 4
)

// TraceInput is everything the fraud engine needs to assess one trip.
type TraceInput struct {
	Points               []domain.GPSPoint
	EstimatedDistanceKm  float64
	EstimatedDurationMin float64
	StartedAt            time.Time
	CompletedAt          time.Time
}

// ScoreTrace runs the anomaly checks over a trip's GPS trace and returns
// the assessment that gates automatic settlement.
func ScoreTrace(in TraceInput) domain.FraudAssessment {
	var assessment domain.FraudAssessment

	trigger := func(points int, reason string) {
		assessment.Score += points
		assessment.Reasons = append(assessment.Reasons, reason)
	}

	actualKm := traceDistanceKm(in.Points)
	if in.EstimatedDistanceKm > 0 && actualKm > in.EstimatedDistanceKm*distanceOverageFactor {
		trigger(distanceOverageScore, fmt.Sprintf(
			"distance %.2f km exceeds estimate %.2f km by more than %d%%",
			actualKm, in.EstimatedDistanceKm, int(distanceOverageFactor*100-100)))
	}

	actualMin := in.CompletedAt.Sub(in.StartedAt).Minutes()
	if in.EstimatedDurationMin > 0 && actualMin > in.EstimatedDurationMin*durationOverageFactor {
		trigger(durationOverageScore, fmt.Sprintf(
			"duration %.1f min exceeds estimate %.1f min by more than %d%%",
			actualMin, in.EstimatedDurationMin, int(durationOverageFactor*100-100)))
	}

	if hasGPSJump(in.Points) {
		trigger(gpsJumpScore, "implausible GPS jump detected")
	}

	if hasLoop(in.Points) {
		trigger(loopScore, "route revisits the same area repeatedly")
	}

	if hasIdleStretch(in.Points) {
		trigger(idleScore, "extended idle period during trip")
	}

	assessment.IsFlagged = assessment.Score > 0
	assessment.PayoutHeld = assessment.Score >= payoutHoldThreshold
	return assessment
}

// traceDistanceKm sums the great-circle distance between consecutive points.
func traceDistanceKm(points []domain.GPSPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += haversineKm(points[i-1].Lat, points[i-1].Lng, points[i].Lat, points[i].Lng)
	}
	return total
}

// hasGPSJump reports whether any consecutive pair covers more than 500 m in
// under 5 s. Scored once per trip regardless of how many jumps occur.
func hasGPSJump(points []domain.GPSPoint) bool {
	for i := 1; i < len(points); i++ {
		meters := haversineKm(points[i-1].Lat, points[i-1].Lng, points[i].Lat, points[i].Lng) * 1000
		elapsed := points[i].Timestamp.Sub(points[i-1].Timestamp)
		if meters > jumpDistanceMeters && elapsed < jumpWindow {
			return true
		}
	}
	return false
}

// hasLoop quantizes each point to a coarse grid cell and reports whether any
// cell is visited three or more times.
func hasLoop(points []domain.GPSPoint) bool {
	type cell struct{ latIdx, lngIdx int64 }

	visits := make(map[cell]int, len(points))
	for _, p := range points {
		c := cell{
			latIdx: int64(math.Floor(p.Lat / loopCellDegrees)),
			lngIdx: int64(math.Floor(p.Lng / loopCellDegrees)),
		}
		visits[c]++
		if visits[c] >= loopVisitCount {
			return true
		}
	}
	return false
}

// hasIdleStretch reports whether any consecutive pair moves less than 50 m
// across ten or more minutes.
func hasIdleStretch(points []domain.GPSPoint) bool {
	for i := 1; i < len(points); i++ {
		meters := haversineKm(points[i-1].Lat, points[i-1].Lng, points[i].Lat, points[i].Lng) * 1000
		elapsed := points[i].Timestamp.Sub(points[i-1].Timestamp)
		if meters < idleDistanceMeters && elapsed >= idleWindow {
			return true
		}
	}
	return false
}

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
