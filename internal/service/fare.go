package service

import "math"

// Fare estimation constants, in minor currency units.
const (
	baseFareCents      = 150
	perKmCents         = 80
	perMinuteCents     = 30
	minimumFareCents   = 500
	assumedSpeedKmPerH = 30.0
)

// FareEstimate is a pre-trip quote. The amount is advisory until the trip
// starts, at which point it is locked and held from the rider's wallet.
type FareEstimate struct {
	AmountCents int64
	DistanceKm  float64
	DurationMin float64
}

// EstimateFare quotes a fare from the straight-line pickup/dropoff distance
// using a flat linear rate.
func EstimateFare(pickupLat, pickupLng, dropoffLat, dropoffLng float64) FareEstimate {
	distanceKm := haversineKm(pickupLat, pickupLng, dropoffLat, dropoffLng)
	durationMin := distanceKm / assumedSpeedKmPerH * 60

	amount := int64(math.Round(baseFareCents + distanceKm*perKmCents + durationMin*perMinuteCents))
	if amount < minimumFareCents {
		amount = minimumFareCents
	}

	return FareEstimate{
		AmountCents: amount,
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
	}
}
