package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/pkg/logger"
	"miniola/pkg/sms"
	"miniola/pkg/websocket"
)

const (
	EventRideRequested     = "ride.requested"
	EventRideAccepted      = "ride.accepted"
	EventRideDriverArrived = "ride.driver_arrived"
	EventRideStarted       = "ride.started"
	EventRideCompleted     = "ride.completed"
	EventRideCancelled     = "ride.cancelled"
	EventRideRated         = "ride.rated"

	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)

// EventPublisher is satisfied by cache.RedisCache and websocket.LocalPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// NotificationService never fails the caller; delivery errors are logged.
type NotificationService interface {
	RideEvent(ctx context.Context, eventType string, ride *models.Ride)
	PaymentEvent(ctx context.Context, eventType string, payment *models.Payment)
	SendRideOTP(ctx context.Context, ride *models.Ride)
}

type notificationService struct {
	publisher EventPublisher
	channel   string
	sms       sms.SMSProvider
	smsFrom   string
	riderRepo interfaces.RiderRepository
	logger    *logger.Logger
}

func NewNotificationService(
	publisher EventPublisher,
	channel string,
	smsProvider sms.SMSProvider,
	smsFrom string,
	riderRepo interfaces.RiderRepository,
	logger *logger.Logger,
) NotificationService {
	return &notificationService{
		publisher: publisher,
		channel:   channel,
		sms:       smsProvider,
		smsFrom:   smsFrom,
		riderRepo: riderRepo,
		logger:    logger,
	}
}

func (s *notificationService) RideEvent(ctx context.Context, eventType string, ride *models.Ride) {
	data := map[string]interface{}{
		"status":     ride.Status,
		"ride_class": ride.RideClass,
	}
	recipients := []primitive.ObjectID{ride.RiderID}
	if ride.DriverID != nil {
		data["driver_id"] = ride.DriverID.Hex()
		recipients = append(recipients, *ride.DriverID)
	}
	if ride.Status == models.RideStatusCancelled {
		data["cancelled_by"] = ride.CancelledBy
		data["reason"] = ride.CancellationReason
	}

	s.publish(ctx, websocket.NewEvent(eventType, ride.ID, data, recipients...))
}

func (s *notificationService) PaymentEvent(ctx context.Context, eventType string, payment *models.Payment) {
	data := map[string]interface{}{
		"payment_id": payment.ID.Hex(),
		"status":     payment.Status,
		"amount":     payment.Amount,
		"method":     payment.Method,
	}
	s.publish(ctx, websocket.NewEvent(eventType, payment.RideID, data, payment.RiderID, payment.DriverID))
}

func (s *notificationService) publish(ctx context.Context, event *websocket.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.channel, event); err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"event_type": event.Type,
			"ride_id":    event.RideID,
		}).Warn("Failed to publish event")
	}
}

func (s *notificationService) SendRideOTP(ctx context.Context, ride *models.Ride) {
	if s.sms == nil || ride.OTP == "" {
		return
	}

	rider, err := s.riderRepo.GetByID(ctx, ride.RiderID)
	if err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("Failed to load rider for OTP message")
		return
	}

	resp, err := s.sms.SendSMS(ctx, &sms.SMSRequest{
		To:      rider.Phone,
		From:    s.smsFrom,
		Message: fmt.Sprintf("Your Mini Ola ride OTP is %s. Share it with your driver at pickup.", ride.OTP),
		Type:    "otp",
	})
	if err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("Failed to send ride OTP")
		return
	}

	s.logger.WithRideID(ride.ID).WithField("message_id", resp.MessageID).Debug("Ride OTP sent")
}
