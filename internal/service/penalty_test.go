package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancellationPenalty_TwentyPercent(t *testing.T) {
	split := CancellationPenalty(1000, true)

	assert.Equal(t, int64(200), split.PenaltyAmount)
	assert.Equal(t, int64(800), split.RefundAmount)
}

func TestCancellationPenalty_NoPenalty(t *testing.T) {
	split := CancellationPenalty(1000, false)

	assert.Equal(t, int64(0), split.PenaltyAmount)
	assert.Equal(t, int64(1000), split.RefundAmount)
}

func TestCancellationPenalty_SumsExactly(t *testing.T) {
	// Odd amounts must still split without losing or creating a cent.
	for _, fare := range []int64{1, 3, 99, 101, 333, 999, 1001, 12345, 99999999} {
		split := CancellationPenalty(fare, true)
		assert.Equal(t, fare, split.PenaltyAmount+split.RefundAmount, "fare %d", fare)
		assert.GreaterOrEqual(t, split.PenaltyAmount, int64(0))
		assert.GreaterOrEqual(t, split.RefundAmount, int64(0))
	}
}

func TestCancellationPenalty_RoundsOnce(t *testing.T) {
	// 20% of 333 is 66.6, rounded to 67; the refund absorbs the remainder.
	split := CancellationPenalty(333, true)

	assert.Equal(t, int64(67), split.PenaltyAmount)
	assert.Equal(t, int64(266), split.RefundAmount)
}

func TestCancellationPenalty_ZeroFare(t *testing.T) {
	split := CancellationPenalty(0, true)

	assert.Equal(t, int64(0), split.PenaltyAmount)
	assert.Equal(t, int64(0), split.RefundAmount)
}
