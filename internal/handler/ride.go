package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// RideHandler handles HTTP requests for ride creation and lookup.
type RideHandler struct {
	rideService *service.RideService
	tripService *service.TripService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, tripService *service.TripService) *RideHandler {
	return &RideHandler{rideService: rideService, tripService: tripService}
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	RideID         string  `json:"ride_id"`
	RiderID        string  `json:"rider_id"`
	DriverID       string  `json:"driver_id,omitempty"`
	Status         string  `json:"status"`
	PickupAddress  string  `json:"pickup_address"`
	DropoffAddress string  `json:"dropoff_address"`
	FareEstimate   int64   `json:"fare_estimate_cents"`
	LockedFare     int64   `json:"locked_fare_cents,omitempty"`
	DistanceKm     float64 `json:"estimated_distance_km"`
	DurationMin    float64 `json:"estimated_duration_min"`

	CommissionAmount int64 `json:"commission_cents,omitempty"`
	PayoutAmount     int64 `json:"driver_payout_cents,omitempty"`

	FraudScore     int      `json:"fraud_score,omitempty"`
	FraudReasons   []string `json:"fraud_reasons,omitempty"`
	PayoutHeld     bool     `json:"payout_held,omitempty"`
	ReviewRequired bool     `json:"review_required,omitempty"`

	CancelReason string `json:"cancel_reason,omitempty"`

	RequestedAt string `json:"requested_at"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	SettledAt   string `json:"settled_at,omitempty"`
	CancelledAt string `json:"cancelled_at,omitempty"`
}

func toRideResponse(ride *domain.Ride) RideResponse {
	return RideResponse{
		RideID:           ride.ID,
		RiderID:          ride.RiderID,
		DriverID:         ride.DriverID,
		Status:           string(ride.Status),
		PickupAddress:    ride.PickupAddress,
		DropoffAddress:   ride.DropoffAddress,
		FareEstimate:     ride.FareEstimate,
		LockedFare:       ride.LockedFare,
		DistanceKm:       ride.EstimatedDistanceKm,
		DurationMin:      ride.EstimatedDurationMin,
		CommissionAmount: ride.CommissionAmount,
		PayoutAmount:     ride.PayoutAmount,
		FraudScore:       ride.FraudScore,
		FraudReasons:     ride.FraudReasons,
		PayoutHeld:       ride.PayoutHeld,
		ReviewRequired:   ride.ReviewRequired,
		CancelReason:     ride.CancelReason,
		RequestedAt:      fmtTime(ride.RequestedAt),
		StartedAt:        fmtTime(ride.StartedAt),
		CompletedAt:      fmtTime(ride.CompletedAt),
		SettledAt:        fmtTime(ride.SettledAt),
		CancelledAt:      fmtTime(ride.CancelledAt),
	}
}

// RequestRide handles POST /v1/rides
func (h *RideHandler) RequestRide(c *gin.Context) {
	var req service.RideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrValidation)
		return
	}

	ride, err := h.rideService.RequestRide(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.tripService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	rides, err := h.rideService.ListRides(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		response = append(response, toRideResponse(ride))
	}
	respondJSON(c, http.StatusOK, response)
}

// StatusEventResponse is one entry of a ride's status history.
type StatusEventResponse struct {
	Status     string `json:"status"`
	ActorID    string `json:"actor_id"`
	ActorRole  string `json:"actor_role"`
	OccurredAt string `json:"occurred_at"`
}

// GetHistory handles GET /v1/rides/:id/history
func (h *RideHandler) GetHistory(c *gin.Context) {
	events, err := h.tripService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]StatusEventResponse, 0, len(events))
	for _, e := range events {
		response = append(response, StatusEventResponse{
			Status:     string(e.Status),
			ActorID:    e.ActorID,
			ActorRole:  string(e.ActorRole),
			OccurredAt: fmtTime(e.OccurredAt),
		})
	}
	respondJSON(c, http.StatusOK, response)
}
