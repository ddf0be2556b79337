package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ridehail/internal/domain"
)

func tracePoint(lat, lng float64, at time.Time) domain.GPSPoint {
	return domain.GPSPoint{Lat: lat, Lng: lng, Timestamp: at}
}

func TestScoreTrace_CleanTrip(t *testing.T) {
	start := time.Now()
	// Roughly 1.1 km straight north over 5 minutes.
	points := []domain.GPSPoint{
		tracePoint(12.9700, 77.5900, start),
		tracePoint(12.9750, 77.5900, start.Add(2*time.Minute)),
		tracePoint(12.9800, 77.5900, start.Add(5*time.Minute)),
	}

	assessment := ScoreTrace(TraceInput{
		Points:               points,
		EstimatedDistanceKm:  1.2,
		EstimatedDurationMin: 6,
		StartedAt:            start,
		CompletedAt:          start.Add(5 * time.Minute),
	})

	assert.Equal(t, 0, assessment.Score)
	assert.False(t, assessment.IsFlagged)
	assert.False(t, assessment.PayoutHeld)
	assert.Empty(t, assessment.Reasons)
}

func TestScoreTrace_GPSJumpHoldsPayout(t *testing.T) {
	start := time.Now()
	// 600 m in 3 seconds is far beyond plausible urban movement.
	points := []domain.GPSPoint{
		tracePoint(12.9700, 77.5900, start),
		tracePoint(12.9754, 77.5900, start.Add(3*time.Second)),
	}

	assessment := ScoreTrace(TraceInput{
		Points:               points,
		EstimatedDistanceKm:  5,
		EstimatedDurationMin: 20,
		StartedAt:            start,
		CompletedAt:          start.Add(20 * time.Minute),
	})

	assert.GreaterOrEqual(t, assessment.Score, 4)
	assert.True(t, assessment.IsFlagged)
	assert.True(t, assessment.PayoutHeld)
}

func TestScoreTrace_SmallDistanceOverageNotFlagged(t *testing.T) {
	start := time.Now()
	// Actual distance ~10% over the estimate stays under the 25% threshold.
	points := []domain.GPSPoint{
		tracePoint(12.9700, 77.5900, start),
		tracePoint(12.9799, 77.5900, start.Add(10*time.Minute)),
	}

	assessment := ScoreTrace(TraceInput{
		Points:               points,
		EstimatedDistanceKm:  1.0,
		EstimatedDurationMin: 12,
		StartedAt:            start,
		CompletedAt:          start.Add(10 * time.Minute),
	})

	assert.Equal(t, 0, assessment.Score)
	assert.False(t, assessment.IsFlagged)
}

func TestScoreTrace_DistanceOverageScoresTwo(t *testing.T) {
	start := time.Now()
	// ~2.2 km actual against a 1.0 km estimate.
	points := []domain.GPSPoint{
		tracePoint(12.9700, 77.5900, start),
		tracePoint(12.9800, 77.5900, start.Add(5*time.Minute)),
		tracePoint(12.9900, 77.5900, start.Add(10*time.Minute)),
	}

	assessment := ScoreTrace(TraceInput{
		Points:               points,
		EstimatedDistanceKm:  1.0,
		EstimatedDurationMin: 12,
		StartedAt:            start,
		CompletedAt:          start.Add(10 * time.Minute),
	})

	assert.Equal(t, 2, assessment.Score)
	assert.True(t, assessment.IsFlagged)
	assert.False(t, assessment.PayoutHeld, "distance overage alone must not hold the payout")
}

func TestScoreTrace_DurationOverageScoresOne(t *testing.T) {
	start := time.Now()

	assessment := ScoreTrace(TraceInput{
		EstimatedDistanceKm:  0,
		EstimatedDurationMin: 10,
		StartedAt:            start,
		CompletedAt:          start.Add(15 * time.Minute),
	})

	assert.Equal(t, 1, assessment.Score)
	assert.False(t, assessment.PayoutHeld)
}

func TestScoreTrace_LoopDetected(t *testing.T) {
	start := time.Now()
	// The trace returns to the same spot three times with long detours in
	// between, well spread in time so no jump triggers.
	points := []domain.GPSPoint{
		tracePoint(12.97000, 77.59000, start),
		tracePoint(12.98000, 77.59000, start.Add(4*time.Minute)),
		tracePoint(12.97010, 77.59005, start.Add(8*time.Minute)),
		tracePoint(12.98000, 77.60000, start.Add(12*time.Minute)),
		tracePoint(12.97020, 77.59008, start.Add(16*time.Minute)),
	}

	assessment := ScoreTrace(TraceInput{
		Points:               points,
		EstimatedDistanceKm:  10,
		EstimatedDurationMin: 30,
		StartedAt:            start,
		CompletedAt:          start.Add(16 * time.Minute),
	})

	assert.Equal(t, 3, assessment.Score)
	assert.Contains(t, assessment.Reasons[0], "revisits")
}

func TestScoreTrace_IdleStretch(t *testing.T) {
	start := time.Now()
	// Under 50 m of movement across 12 minutes.
	points := []domain.GPSPoint{
		tracePoint(12.97000, 77.59000, start),
		tracePoint(12.97010, 77.59000, start.Add(12*time.Minute)),
	}

	assessment := ScoreTrace(TraceInput{
		Points:               points,
		EstimatedDistanceKm:  5,
		EstimatedDurationMin: 30,
		StartedAt:            start,
		CompletedAt:          start.Add(12 * time.Minute),
	})

	assert.Equal(t, 2, assessment.Score)
	assert.Contains(t, assessment.Reasons[0], "idle")
}

func TestScoreTrace_JumpScoredOncePerTrip(t *testing.T) {
	start := time.Now()
	points := []domain.GPSPoint{
		tracePoint(12.9700, 77.5900, start),
		tracePoint(12.9754, 77.5900, start.Add(3*time.Second)),
		tracePoint(12.9700, 77.5900, start.Add(6*time.Second)),
		tracePoint(12.9754, 77.5900, start.Add(9*time.Second)),
	}

	assessment := ScoreTrace(TraceInput{
		Points:    points,
		StartedAt: start,
		// Completed quickly with no estimates, so only jump and loop checks apply.
		CompletedAt: start.Add(time.Minute),
	})

	// Two jump pairs, but the jump signal contributes its score once.
	jumps := 0
	for _, reason := range assessment.Reasons {
		if reason == "implausible GPS jump detected" {
			jumps++
		}
	}
	assert.Equal(t, 1, jumps)
}

func TestScoreTrace_EmptyTrace(t *testing.T) {
	start := time.Now()

	assessment := ScoreTrace(TraceInput{
		EstimatedDistanceKm:  5,
		EstimatedDurationMin: 20,
		StartedAt:            start,
		CompletedAt:          start.Add(15 * time.Minute),
	})

	assert.Equal(t, 0, assessment.Score)
	assert.False(t, assessment.PayoutHeld)
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// One degree of latitude is about 111 km.
	d := haversineKm(12.0, 77.0, 13.0, 77.0)
	assert.InDelta(t, 111.2, d, 0.5)
}
