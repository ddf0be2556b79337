package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
)

// SettlementReceipt is the line-item record of a settled trip.
type SettlementReceipt struct {
	ID             string    `json:"id"`
	RideID         string    `json:"ride_id"`
	RiderID        string    `json:"rider_id"`
	DriverID       string    `json:"driver_id"`
	Fare           int64     `json:"fare"`
	Commission     int64     `json:"commission"`
	DriverPayout   int64     `json:"driver_payout"`
	CommissionRate float64   `json:"commission_rate"`
	SettledAt      time.Time `json:"settled_at"`
}

// ReceiptService builds settlement receipts. Receipts are derived from the
// ledger entries rather than stored separately, so this service only
// assembles and logs them.
type ReceiptService struct {
	log *logrus.Logger
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(log *logrus.Logger) *ReceiptService {
	return &ReceiptService{log: log}
}

// Generate assembles the receipt for a settled ride.
func (s *ReceiptService) Generate(ctx context.Context, ride *domain.Ride, result *SettlementResult) *SettlementReceipt {
	receipt := &SettlementReceipt{
		ID:             uuid.New().String(),
		RideID:         ride.ID,
		RiderID:        ride.RiderID,
		DriverID:       ride.DriverID,
		Fare:           result.LockedFare,
		Commission:     result.Commission,
		DriverPayout:   result.Payout,
		CommissionRate: result.Rate,
		SettledAt:      time.Now(),
	}

	s.log.WithFields(logrus.Fields{
		"receipt_id": receipt.ID,
		"ride_id":    receipt.RideID,
		"fare":       receipt.Fare,
		"commission": receipt.Commission,
		"payout":     receipt.DriverPayout,
	}).Info("settlement receipt issued")

	return receipt
}
