package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// TripHandler handles the ride lifecycle transitions.
type TripHandler struct {
	tripService     *service.TripService
	matchingService *service.MatchingService
	ledger          *service.Ledger
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService, matchingService *service.MatchingService, ledger *service.Ledger) *TripHandler {
	return &TripHandler{
		tripService:     tripService,
		matchingService: matchingService,
		ledger:          ledger,
	}
}

// Assign handles POST /v1/rides/:id/assign
func (h *TripHandler) Assign(c *gin.Context) {
	ride, err := h.matchingService.MatchRide(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Arrived handles POST /v1/rides/:id/arrived
func (h *TripHandler) Arrived(c *gin.Context) {
	ride, err := h.tripService.MarkArrived(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Start handles POST /v1/rides/:id/start
func (h *TripHandler) Start(c *gin.Context) {
	ride, err := h.tripService.StartTrip(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Complete handles POST /v1/rides/:id/complete
func (h *TripHandler) Complete(c *gin.Context) {
	ride, err := h.tripService.CompleteTrip(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRequest is the body of a cancellation.
type CancelRequest struct {
	Reason       string `json:"reason"`
	ApplyPenalty bool   `json:"apply_penalty"`
}

// Cancel handles POST /v1/rides/:id/cancel
func (h *TripHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, service.ErrValidation)
			return
		}
	}

	ride, err := h.tripService.CancelTrip(c.Request.Context(), c.Param("id"), actorFrom(c), req.Reason, req.ApplyPenalty)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// SettleRequest is the body of a settlement call.
type SettleRequest struct {
	Force bool `json:"force"`
}

// SettlementResponse reports what settlement did.
type SettlementResponse struct {
	RideID         string  `json:"ride_id"`
	Held           bool    `json:"held"`
	Fare           int64   `json:"fare_cents"`
	DriverPayout   int64   `json:"driver_payout_cents"`
	Commission     int64   `json:"commission_cents"`
	CommissionRate float64 `json:"commission_rate"`
}

// Settle handles POST /v1/rides/:id/settle
func (h *TripHandler) Settle(c *gin.Context) {
	var req SettleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, service.ErrValidation)
			return
		}
	}

	result, err := h.tripService.SettleTrip(c.Request.Context(), c.Param("id"), actorFrom(c), req.Force)
	if err != nil {
		respondError(c, err)
		return
	}

	response := SettlementResponse{
		RideID:         result.RideID,
		Held:           result.Held,
		Fare:           result.LockedFare,
		DriverPayout:   result.Payout,
		Commission:     result.Commission,
		CommissionRate: result.Rate,
	}
	if result.Held {
		respondJSON(c, http.StatusAccepted, response)
		return
	}
	respondJSON(c, http.StatusOK, response)
}

// GPSPointRequest is one GPS sample from the driver's device.
type GPSPointRequest struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordGPS handles POST /v1/rides/:id/gps
func (h *TripHandler) RecordGPS(c *gin.Context) {
	var req GPSPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrValidation)
		return
	}

	err := h.tripService.RecordGPSPoint(c.Request.Context(), c.Param("id"), actorFrom(c), domain.GPSPoint{
		Lat:       req.Lat,
		Lng:       req.Lng,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// TipRequest is the body of a tip transfer.
type TipRequest struct {
	Amount    int64  `json:"amount_cents"`
	Reference string `json:"reference"`
}

// Tip handles POST /v1/rides/:id/tip
func (h *TripHandler) Tip(c *gin.Context) {
	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrValidation)
		return
	}
	if req.Reference == "" {
		req.Reference = "tip:" + c.Param("id")
	}

	ride, err := h.tripService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.ledger.Tip(c.Request.Context(), ride, actorFrom(c), req.Amount, req.Reference); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
