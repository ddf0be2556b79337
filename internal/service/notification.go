package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
)

// NotificationEvent classifies outbound notifications.
type NotificationEvent string

const (
	EventDriverAssigned NotificationEvent = "DRIVER_ASSIGNED"
	EventDriverArrived  NotificationEvent = "DRIVER_ARRIVED"
	EventTripStarted    NotificationEvent = "TRIP_STARTED"
	EventTripCompleted  NotificationEvent = "TRIP_COMPLETED"
	EventTripSettled    NotificationEvent = "TRIP_SETTLED"
	EventRideCancelled  NotificationEvent = "RIDE_CANCELLED"
	EventPayoutHeld     NotificationEvent = "PAYOUT_HELD"
)

// NotificationService delivers lifecycle events to riders and drivers.
// Delivery is fire-and-forget: a failed notification never fails the
// operation that produced it. The current transport is the structured log;
// a push or SMS gateway would slot in behind the same method.
type NotificationService struct {
	log *logrus.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(log *logrus.Logger) *NotificationService {
	return &NotificationService{log: log}
}

// Notify sends a message to a recipient.
func (s *NotificationService) Notify(ctx context.Context, recipientID string, role domain.ActorRole, message string, event NotificationEvent) {
	if s == nil || recipientID == "" {
		return
	}
	s.log.WithFields(logrus.Fields{
		"recipient_id": recipientID,
		"role":         role,
		"event":        event,
	}).Info(message)
}
