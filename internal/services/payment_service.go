package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/config"
	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

const receiptAttempts = 3

type PaymentService interface {
	CreatePayment(ctx context.Context, rider models.Principal, req *validators.CreatePaymentRequest) (*models.Payment, error)
	// ProcessPayment settles a pending payment. upi and cash settle
	// immediately without a gateway.
	ProcessPayment(ctx context.Context, rider models.Principal, paymentID primitive.ObjectID) (*models.Payment, error)
	RefundPayment(ctx context.Context, caller models.Principal, paymentID primitive.ObjectID, req *validators.RefundPaymentRequest) (*models.Payment, error)
	GetPayment(ctx context.Context, caller models.Principal, paymentID primitive.ObjectID) (*models.Payment, error)
}

type paymentService struct {
	paymentRepo interfaces.PaymentRepository
	rideRepo    interfaces.RideRepository
	riderRepo   interfaces.RiderRepository
	driverRepo  interfaces.DriverRepository
	notifier    NotificationService
	config      *config.RideConfig
	logger      *logger.Logger
	now         func() time.Time
}

func NewPaymentService(
	paymentRepo interfaces.PaymentRepository,
	rideRepo interfaces.RideRepository,
	riderRepo interfaces.RiderRepository,
	driverRepo interfaces.DriverRepository,
	notifier NotificationService,
	cfg *config.RideConfig,
	logger *logger.Logger,
) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		rideRepo:    rideRepo,
		riderRepo:   riderRepo,
		driverRepo:  driverRepo,
		notifier:    notifier,
		config:      cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, caller models.Principal, req *validators.CreatePaymentRequest) (*models.Payment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !caller.IsRider() {
		return nil, UnauthorizedError("Only riders can create payments")
	}

	rideID, err := primitive.ObjectIDFromHex(req.RideID)
	if err != nil {
		return nil, ValidationError("Invalid ride ID")
	}
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, fromRepo(err, "ride")
	}
	if ride.RiderID != caller.ID {
		return nil, UnauthorizedError("Only the rider of this ride can pay for it")
	}
	if ride.Status != models.RideStatusCompleted || ride.DriverID == nil {
		return nil, InvalidStateError("Only completed rides can be paid for")
	}

	if _, err := s.paymentRepo.GetByRideID(ctx, rideID); err == nil {
		return nil, DuplicateError("Payment already exists for this ride")
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fromRepo(err, "payment")
	}

	payment := &models.Payment{
		RideID:   rideID,
		RiderID:  ride.RiderID,
		DriverID: *ride.DriverID,
		Amount:   ride.ChargeableFare(),
		Method:   models.PaymentMethod(req.Method),
		Status:   models.PaymentStatusPending,
	}

	for attempt := 1; ; attempt++ {
		payment.ReceiptNumber = utils.GenerateReceiptNumber(s.now())
		err = s.paymentRepo.Create(ctx, payment)
		if err == nil {
			break
		}
		if !errors.Is(err, interfaces.ErrDuplicate) {
			return nil, fromRepo(err, "payment")
		}
		// A duplicate is either a concurrent payment for the same ride or a
		// receipt collision; only the latter is worth retrying.
		if _, lookupErr := s.paymentRepo.GetByRideID(ctx, rideID); lookupErr == nil {
			return nil, DuplicateError("Payment already exists for this ride")
		}
		if attempt == receiptAttempts {
			return nil, InternalError("failed to allocate a receipt number", err)
		}
	}

	s.logger.LogPaymentEvent(payment.ID, "payment.created", payment.Amount, string(payment.Method))
	return payment, nil
}

func (s *paymentService) ProcessPayment(ctx context.Context, caller models.Principal, paymentID primitive.ObjectID) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fromRepo(err, "payment")
	}
	if !caller.IsRider() || payment.RiderID != caller.ID {
		return nil, UnauthorizedError("Only the paying rider can process this payment")
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, InvalidStateError("Payment is " + string(payment.Status) + ", not pending")
	}

	fee, earnings := utils.SplitCommission(payment.Amount, s.config.CommissionRate)

	payment, err = s.paymentRepo.TransitionStatus(ctx, paymentID, models.PaymentStatusPending, models.PaymentStatusProcessing,
		interfaces.PaymentUpdate{PlatformFee: &fee, DriverEarnings: &earnings})
	if errors.Is(err, interfaces.ErrConflict) {
		return nil, InvalidStateError("Payment is already being processed")
	}
	if err != nil {
		return nil, fromRepo(err, "payment")
	}

	var transactionID string
	switch payment.Method {
	case models.PaymentMethodWallet:
		if err := s.settleWallet(ctx, payment); err != nil {
			return nil, err
		}
		transactionID = utils.GenerateTransactionID()
	case models.PaymentMethodUPI:
		if _, err := s.driverRepo.CreditWallet(ctx, payment.DriverID, payment.DriverEarnings); err != nil {
			return nil, s.fail(ctx, payment, "Failed to credit driver wallet", fromRepo(err, "driver"))
		}
		transactionID = utils.GenerateTransactionID()
	case models.PaymentMethodCash:
		// the driver already holds the cash
	}

	processedAt := s.now()
	payment, err = s.paymentRepo.TransitionStatus(ctx, paymentID, models.PaymentStatusProcessing, models.PaymentStatusCompleted,
		interfaces.PaymentUpdate{TransactionID: transactionID, ProcessedAt: &processedAt})
	if err != nil {
		return nil, InternalError("failed to complete payment", err)
	}

	s.mirrorRideStatus(ctx, payment)
	s.logger.LogPaymentEvent(payment.ID, EventPaymentCompleted, payment.Amount, string(payment.Method))
	s.notifier.PaymentEvent(ctx, EventPaymentCompleted, payment)
	return payment, nil
}

// settleWallet moves the fare from the rider's wallet and the driver's share
// into the driver's. A failed credit puts the rider's money back.
func (s *paymentService) settleWallet(ctx context.Context, payment *models.Payment) error {
	_, err := s.riderRepo.DebitWallet(ctx, payment.RiderID, payment.Amount)
	if errors.Is(err, interfaces.ErrInsufficientFunds) {
		return s.fail(ctx, payment, "Insufficient wallet balance",
			newError(KindInsufficientFunds, "Insufficient wallet balance", nil))
	}
	if err != nil {
		return s.fail(ctx, payment, "Failed to debit rider wallet", fromRepo(err, "rider"))
	}

	if _, err := s.driverRepo.CreditWallet(ctx, payment.DriverID, payment.DriverEarnings); err != nil {
		if _, undoErr := s.riderRepo.CreditWallet(ctx, payment.RiderID, payment.Amount); undoErr != nil {
			s.logger.WithError(undoErr).WithField("payment_id", payment.ID.Hex()).
				Error("Failed to restore rider wallet after driver credit failure")
		}
		return s.fail(ctx, payment, "Failed to credit driver wallet", fromRepo(err, "driver"))
	}
	return nil
}

// fail marks a processing payment failed and returns cause.
func (s *paymentService) fail(ctx context.Context, payment *models.Payment, reason string, cause error) error {
	failed, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, models.PaymentStatusProcessing, models.PaymentStatusFailed,
		interfaces.PaymentUpdate{FailureReason: reason})
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", payment.ID.Hex()).Error("Failed to mark payment failed")
		return cause
	}

	s.mirrorRideStatus(ctx, failed)
	s.logger.LogPaymentEvent(failed.ID, EventPaymentFailed, failed.Amount, string(failed.Method))
	s.notifier.PaymentEvent(ctx, EventPaymentFailed, failed)
	return cause
}

func (s *paymentService) RefundPayment(ctx context.Context, caller models.Principal, paymentID primitive.ObjectID, req *validators.RefundPaymentRequest) (*models.Payment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fromRepo(err, "payment")
	}
	if !payment.IsParticipant(caller.ID) {
		return nil, UnauthorizedError("Only participants of this payment can refund it")
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, InvalidStateError("Only completed payments can be refunded")
	}

	amount := payment.Amount
	if req.Amount != nil {
		amount = utils.RoundMoney(*req.Amount)
	}
	if amount > payment.Amount {
		return nil, ValidationError("Refund amount cannot exceed the payment amount")
	}

	refundedAt := s.now()
	refunded, err := s.paymentRepo.TransitionStatus(ctx, paymentID, models.PaymentStatusCompleted, models.PaymentStatusRefunded,
		interfaces.PaymentUpdate{RefundAmount: &amount, RefundReason: req.Reason, RefundedAt: &refundedAt})
	if errors.Is(err, interfaces.ErrConflict) {
		return nil, InvalidStateError("Payment has already been refunded")
	}
	if err != nil {
		return nil, fromRepo(err, "payment")
	}

	if _, err := s.driverRepo.DebitWallet(ctx, payment.DriverID, amount); err != nil {
		s.restoreCompleted(ctx, paymentID)
		return nil, fromRepo(err, "driver")
	}
	if _, err := s.riderRepo.CreditWallet(ctx, payment.RiderID, amount); err != nil {
		if _, undoErr := s.driverRepo.CreditWallet(ctx, payment.DriverID, amount); undoErr != nil {
			s.logger.WithError(undoErr).WithField("payment_id", paymentID.Hex()).
				Error("Failed to restore driver wallet after rider credit failure")
		}
		s.restoreCompleted(ctx, paymentID)
		return nil, fromRepo(err, "rider")
	}

	s.mirrorRideStatus(ctx, refunded)
	s.logger.LogPaymentEvent(paymentID, EventPaymentRefunded, amount, string(refunded.Method))
	s.notifier.PaymentEvent(ctx, EventPaymentRefunded, refunded)
	return refunded, nil
}

func (s *paymentService) restoreCompleted(ctx context.Context, paymentID primitive.ObjectID) {
	_, err := s.paymentRepo.TransitionStatus(ctx, paymentID, models.PaymentStatusRefunded, models.PaymentStatusCompleted,
		interfaces.PaymentUpdate{ClearRefund: true})
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", paymentID.Hex()).Error("Failed to roll back refund")
	}
}

func (s *paymentService) GetPayment(ctx context.Context, caller models.Principal, paymentID primitive.ObjectID) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fromRepo(err, "payment")
	}
	if !payment.IsParticipant(caller.ID) {
		return nil, UnauthorizedError("You are not a participant of this payment")
	}
	return payment, nil
}

func (s *paymentService) mirrorRideStatus(ctx context.Context, payment *models.Payment) {
	if err := s.rideRepo.UpdatePaymentStatus(ctx, payment.RideID, payment.Status); err != nil {
		s.logger.WithError(err).WithRideID(payment.RideID).Warn("Failed to mirror payment status on ride")
	}
}
