package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	DriverID   string  `json:"driver_id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Online     bool    `json:"online"`
	Approved   bool    `json:"approved"`
	Rating     float64 `json:"rating"`
	TotalTrips int     `json:"total_trips"`
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		DriverID:   d.ID,
		Name:       d.Name,
		Phone:      d.Phone,
		Online:     d.Online,
		Approved:   d.Approved,
		Rating:     d.Rating,
		TotalTrips: d.TotalTrips,
	}
}

// RegisterRequest is the body of a registration call.
type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrValidation)
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), req.Name, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// Get handles GET /v1/drivers/:id
func (h *DriverHandler) Get(c *gin.Context) {
	driver, err := h.driverService.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// OnlineRequest is the body of an availability toggle.
type OnlineRequest struct {
	Online bool `json:"online"`
}

// SetOnline handles POST /v1/drivers/:id/online
func (h *DriverHandler) SetOnline(c *gin.Context) {
	var req OnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrValidation)
		return
	}

	if err := h.driverService.SetOnline(c.Request.Context(), c.Param("id"), req.Online); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Approve handles POST /v1/drivers/:id/approve
func (h *DriverHandler) Approve(c *gin.Context) {
	if err := h.driverService.Approve(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
