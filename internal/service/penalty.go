package service

import "math"

// cancelPenaltyRate is the share of the fare withheld from a penalized
// cancellation.
const cancelPenaltyRate = 0.20

// PenaltySplit is the outcome of the cancellation penalty policy.
// penalty + refund always equals the input fare exactly.
type PenaltySplit struct {
	PenaltyAmount int64
	RefundAmount  int64
}

// CancellationPenalty computes how a cancelled trip's fare splits between
// penalty and refund. Only the penalty is rounded; the refund is the exact
// remainder, so the two always sum back to the fare.
func CancellationPenalty(fare int64, applyPenalty bool) PenaltySplit {
	if fare <= 0 {
		return PenaltySplit{}
	}
	if !applyPenalty {
		return PenaltySplit{RefundAmount: fare}
	}

	penalty := int64(math.Round(float64(fare) * cancelPenaltyRate))
	return PenaltySplit{
		PenaltyAmount: penalty,
		RefundAmount:  fare - penalty,
	}
}
