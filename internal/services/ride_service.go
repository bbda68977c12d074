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

type RideService interface {
	RequestRide(ctx context.Context, rider models.Principal, req *validators.RideRequest) (*models.Ride, error)
	AcceptRide(ctx context.Context, driver models.Principal, rideID primitive.ObjectID) (*models.Ride, error)
	MarkArrived(ctx context.Context, driver models.Principal, rideID primitive.ObjectID) (*models.Ride, error)
	StartRide(ctx context.Context, driver models.Principal, rideID primitive.ObjectID, req *validators.StartRideRequest) (*models.Ride, error)
	CompleteRide(ctx context.Context, driver models.Principal, rideID primitive.ObjectID, req *validators.CompleteRideRequest) (*models.Ride, error)
	CancelRide(ctx context.Context, caller models.Principal, rideID primitive.ObjectID, req *validators.CancelRideRequest) (*models.Ride, error)
	RateRide(ctx context.Context, rider models.Principal, rideID primitive.ObjectID, req *validators.RateRideRequest) (*models.Ride, error)
	GetRide(ctx context.Context, caller models.Principal, rideID primitive.ObjectID) (*models.Ride, error)
	ListRides(ctx context.Context, caller models.Principal, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	// ListOpenRides returns requested rides near the driver that nobody has
	// accepted yet, scheduled rides included.
	ListOpenRides(ctx context.Context, driver models.Principal) ([]*models.Ride, error)
}

type rideService struct {
	rideRepo      interfaces.RideRepository
	riderRepo     interfaces.RiderRepository
	driverRepo    interfaces.DriverRepository
	fareService   FareService
	matcher       MatchingService
	driverService DriverService
	notifier      NotificationService
	config        *config.RideConfig
	logger        *logger.Logger
	now           func() time.Time
}

func NewRideService(
	rideRepo interfaces.RideRepository,
	riderRepo interfaces.RiderRepository,
	driverRepo interfaces.DriverRepository,
	fareService FareService,
	matcher MatchingService,
	driverService DriverService,
	notifier NotificationService,
	cfg *config.RideConfig,
	logger *logger.Logger,
) RideService {
	return &rideService{
		rideRepo:      rideRepo,
		riderRepo:     riderRepo,
		driverRepo:    driverRepo,
		fareService:   fareService,
		matcher:       matcher,
		driverService: driverService,
		notifier:      notifier,
		config:        cfg,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *rideService) RequestRide(ctx context.Context, rider models.Principal, req *validators.RideRequest) (*models.Ride, error) {
	if !rider.IsRider() {
		return nil, UnauthorizedError("Only riders can request rides")
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.riderRepo.GetByID(ctx, rider.ID); err != nil {
		return nil, fromRepo(err, "rider")
	}

	estimate, err := s.fareService.Estimate(ctx, &req.FareEstimateRequest)
	if err != nil {
		return nil, err
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return nil, InternalError("failed to generate ride OTP", err)
	}

	now := s.now()
	ride := &models.Ride{
		RiderID:       rider.ID,
		RideClass:     estimate.RideClass,
		Pickup:        req.Pickup.Place(),
		Dropoff:       req.Dropoff.Place(),
		Status:        models.RideStatusRequested,
		Fare:          estimate.Fare,
		Distance:      estimate.DistanceKM,
		Duration:      models.RideDuration{Estimated: estimate.EstimatedMinutes},
		OTP:           otp,
		IsGroupRide:   req.IsGroupRide,
		PaymentStatus: models.PaymentStatusPending,
	}

	if req.ScheduledTime != nil && req.ScheduledTime.After(now) {
		scheduled := req.ScheduledTime.UTC()
		ride.ScheduledTime = &scheduled
		if err := s.rideRepo.Create(ctx, ride); err != nil {
			return nil, fromRepo(err, "ride")
		}
		s.logger.LogRideEvent(ride.ID, EventRideRequested, map[string]interface{}{
			"scheduled_time": scheduled,
		})
		s.notifier.RideEvent(ctx, EventRideRequested, ride)
		return ride, nil
	}

	candidates, err := s.matcher.FindCandidates(ctx, ride.Pickup.Location, ride.RideClass)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		ride.Status = models.RideStatusCancelled
		ride.CancelledAt = &now
		ride.CancelledBy = models.CancelledBySystem
		ride.CancellationReason = models.NoDriversAvailableReason
		if err := s.rideRepo.Create(ctx, ride); err != nil {
			return nil, fromRepo(err, "ride")
		}
		s.logger.LogRideEvent(ride.ID, EventRideCancelled, map[string]interface{}{
			"reason": ride.CancellationReason,
		})
		return nil, newError(KindNoDriversAvailable, models.NoDriversAvailableReason, nil)
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, fromRepo(err, "ride")
	}

	assigned, err := s.matcher.Assign(ctx, ride, candidates)
	if KindOf(err) == KindNoDriversAvailable {
		s.cancelUnmatched(ctx, ride.ID, models.NoDriversAvailableReason)
		return nil, err
	}
	if err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Error("Matching failed")
		s.cancelUnmatched(ctx, ride.ID, models.MatchingFailedReason)
		return nil, err
	}

	s.notifier.RideEvent(ctx, EventRideAccepted, assigned)
	s.notifier.SendRideOTP(ctx, assigned)
	return assigned, nil
}

// cancelUnmatched cancels a freshly created ride as system, unless a driver
// got hold of it in the meantime.
func (s *rideService) cancelUnmatched(ctx context.Context, rideID primitive.ObjectID, reason string) {
	current, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		s.logger.WithError(err).WithRideID(rideID).Error("Failed to load unmatched ride")
		return
	}
	if current.Status != models.RideStatusRequested || current.DriverID != nil {
		return
	}
	if _, err := s.rideRepo.Cancel(ctx, rideID, reason, models.CancelledBySystem, s.now()); err != nil {
		s.logger.WithError(err).WithRideID(rideID).Error("Failed to cancel unmatched ride")
		return
	}
	s.logger.LogRideEvent(rideID, EventRideCancelled, map[string]interface{}{"reason": reason})
}

func (s *rideService) AcceptRide(ctx context.Context, caller models.Principal, rideID primitive.ObjectID) (*models.Ride, error) {
	if !caller.IsDriver() {
		return nil, UnauthorizedError("Only drivers can accept rides")
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, fromRepo(err, "ride")
	}
	if ride.Status != models.RideStatusRequested || ride.DriverID != nil {
		return nil, InvalidStateError("Ride is not waiting for a driver")
	}

	driver, err := s.driverRepo.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, fromRepo(err, "driver")
	}
	if driver.KYCStatus != models.KYCStatusApproved {
		return nil, UnauthorizedError("Driver KYC is not approved")
	}
	if driver.Vehicle.Type != ride.RideClass {
		return nil, UnauthorizedError("Vehicle does not match the requested ride class")
	}

	accepted, err := s.rideRepo.AssignDriver(ctx, rideID, caller.ID, s.now())
	if errors.Is(err, interfaces.ErrConflict) {
		return nil, ConflictError("Ride was accepted by another driver")
	}
	if err != nil {
		return nil, fromRepo(err, "ride")
	}

	if err := s.driverRepo.ClaimForRide(ctx, caller.ID, rideID); err != nil {
		if undoErr := s.rideRepo.UnassignDriver(ctx, rideID, caller.ID); undoErr != nil {
			s.logger.WithError(undoErr).WithRideID(rideID).WithUserID(caller.ID).
				Error("Failed to compensate ride assignment")
		}
		if errors.Is(err, interfaces.ErrConflict) {
			return nil, ConflictError("Driver is offline or already on a ride")
		}
		return nil, fromRepo(err, "driver")
	}

	s.logger.LogRideEvent(rideID, EventRideAccepted, map[string]interface{}{"driver_id": caller.ID.Hex()})
	s.notifier.RideEvent(ctx, EventRideAccepted, accepted)
	s.notifier.SendRideOTP(ctx, accepted)
	return accepted.ForDriver(), nil
}

// assignedRide loads a ride and checks that caller drives it and that it may
// move to next.
func (s *rideService) assignedRide(ctx context.Context, caller models.Principal, rideID primitive.ObjectID, next models.RideStatus) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, fromRepo(err, "ride")
	}
	if !caller.IsDriver() || !ride.IsAssignedTo(caller.ID) {
		return nil, UnauthorizedError("Only the assigned driver can update this ride")
	}
	if !ride.Status.CanTransitionTo(next) {
		return nil, InvalidStateError("Ride cannot move from " + string(ride.Status) + " to " + string(next))
	}
	return ride, nil
}

// transitionErr maps a failed conditional ride update.
func transitionErr(err error) error {
	if errors.Is(err, interfaces.ErrConflict) {
		return ConflictError("Ride changed while the request was in flight")
	}
	return fromRepo(err, "ride")
}

func (s *rideService) MarkArrived(ctx context.Context, caller models.Principal, rideID primitive.ObjectID) (*models.Ride, error) {
	if _, err := s.assignedRide(ctx, caller, rideID, models.RideStatusDriverArrived); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.MarkArrived(ctx, rideID, caller.ID, s.now())
	if err != nil {
		return nil, transitionErr(err)
	}

	s.notifier.RideEvent(ctx, EventRideDriverArrived, ride)
	return ride.ForDriver(), nil
}

func (s *rideService) StartRide(ctx context.Context, caller models.Principal, rideID primitive.ObjectID, req *validators.StartRideRequest) (*models.Ride, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ride, err := s.assignedRide(ctx, caller, rideID, models.RideStatusInProgress)
	if err != nil {
		return nil, err
	}
	if !ride.VerifyOTP(req.OTP) {
		s.logger.LogSecurityEvent("ride_otp_mismatch", "low", map[string]interface{}{
			"ride_id":   rideID.Hex(),
			"driver_id": caller.ID.Hex(),
		})
		return nil, newError(KindOTPMismatch, "Invalid OTP", nil)
	}

	ride, err = s.rideRepo.Start(ctx, rideID, caller.ID, s.now())
	if err != nil {
		return nil, transitionErr(err)
	}

	s.logger.LogRideEvent(rideID, EventRideStarted, nil)
	s.notifier.RideEvent(ctx, EventRideStarted, ride)
	return ride.ForDriver(), nil
}

// CompleteRide finishes the trip. The follow-up bookkeeping (driver release,
// earnings, rider counter) runs after the ride is committed and is logged
// rather than surfaced when it fails.
func (s *rideService) CompleteRide(ctx context.Context, caller models.Principal, rideID primitive.ObjectID, req *validators.CompleteRideRequest) (*models.Ride, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ride, err := s.assignedRide(ctx, caller, rideID, models.RideStatusCompleted)
	if err != nil {
		return nil, err
	}

	finalFare := ride.Fare.EstimatedFare
	if req.FinalFare != nil {
		finalFare = utils.RoundMoney(*req.FinalFare)
	}

	endTime := s.now()
	actualMinutes := 0
	if ride.StartTime != nil && endTime.After(*ride.StartTime) {
		actualMinutes = int(endTime.Sub(*ride.StartTime).Minutes())
	}

	ride, err = s.rideRepo.Complete(ctx, rideID, caller.ID, finalFare, endTime, actualMinutes)
	if err != nil {
		return nil, transitionErr(err)
	}

	log := s.logger.WithRideID(rideID).WithUserID(caller.ID)
	if err := s.driverRepo.ReleaseFromRide(ctx, caller.ID, rideID); err != nil {
		log.WithError(err).Error("Failed to release driver after completion")
	}

	_, driverShare := utils.SplitCommission(finalFare, s.config.CommissionRate)
	if _, err := s.driverService.AddEarnings(ctx, caller.ID, driverShare); err != nil {
		log.WithError(err).Error("Failed to record driver earnings")
	}
	if err := s.riderRepo.IncrementCompletedRides(ctx, ride.RiderID); err != nil {
		log.WithError(err).Error("Failed to update rider ride count")
	}

	s.logger.LogRideEvent(rideID, EventRideCompleted, map[string]interface{}{
		"final_fare":     finalFare,
		"actual_minutes": actualMinutes,
	})
	s.notifier.RideEvent(ctx, EventRideCompleted, ride)
	return ride.ForDriver(), nil
}

func (s *rideService) CancelRide(ctx context.Context, caller models.Principal, rideID primitive.ObjectID, req *validators.CancelRideRequest) (*models.Ride, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, fromRepo(err, "ride")
	}

	var actor models.CancelActor
	switch {
	case caller.IsRider() && ride.RiderID == caller.ID:
		actor = models.CancelledByRider
	case caller.IsDriver() && ride.IsAssignedTo(caller.ID):
		actor = models.CancelledByDriver
	default:
		return nil, UnauthorizedError("Only the rider or the assigned driver can cancel this ride")
	}
	if ride.Status.IsTerminal() {
		return nil, InvalidStateError("Ride is already " + string(ride.Status))
	}

	cancelled, err := s.rideRepo.Cancel(ctx, rideID, req.Reason, actor, s.now())
	if err != nil {
		return nil, transitionErr(err)
	}

	if cancelled.DriverID != nil {
		if err := s.driverRepo.ReleaseFromRide(ctx, *cancelled.DriverID, rideID); err != nil {
			s.logger.WithError(err).WithRideID(rideID).Error("Failed to release driver after cancellation")
		}
	}

	s.logger.LogRideEvent(rideID, EventRideCancelled, map[string]interface{}{
		"cancelled_by": actor,
		"reason":       req.Reason,
	})
	s.notifier.RideEvent(ctx, EventRideCancelled, cancelled)
	return s.view(caller, cancelled), nil
}

func (s *rideService) RateRide(ctx context.Context, caller models.Principal, rideID primitive.ObjectID, req *validators.RateRideRequest) (*models.Ride, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, fromRepo(err, "ride")
	}
	if !caller.IsRider() || ride.RiderID != caller.ID {
		return nil, UnauthorizedError("Only the rider of this ride can rate it")
	}
	if ride.Status != models.RideStatusCompleted {
		return nil, InvalidStateError("Only completed rides can be rated")
	}
	if ride.Rating != nil {
		return nil, InvalidStateError("Ride has already been rated")
	}

	rating := models.RideRating{
		Score:   req.Score,
		Comment: req.Comment,
		RatedAt: s.now(),
	}
	rated, err := s.rideRepo.Rate(ctx, rideID, caller.ID, rating)
	if errors.Is(err, interfaces.ErrConflict) {
		return nil, InvalidStateError("Ride has already been rated")
	}
	if err != nil {
		return nil, fromRepo(err, "ride")
	}

	if rated.DriverID != nil {
		if err := s.driverRepo.ApplyRating(ctx, *rated.DriverID, req.Score); err != nil {
			// Unrate so the rider can retry and the average stays complete.
			if clearErr := s.rideRepo.ClearRating(ctx, rideID, rating.RatedAt); clearErr != nil {
				s.logger.WithError(clearErr).WithRideID(rideID).Error("Failed to roll back ride rating")
			}
			return nil, fromRepo(err, "driver")
		}
	}

	s.notifier.RideEvent(ctx, EventRideRated, rated)
	return rated, nil
}

func (s *rideService) GetRide(ctx context.Context, caller models.Principal, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, fromRepo(err, "ride")
	}

	switch {
	case caller.IsRider() && ride.RiderID == caller.ID:
		return ride, nil
	case caller.IsDriver() && ride.IsAssignedTo(caller.ID):
		return ride.ForDriver(), nil
	case caller.IsDriver() && ride.Status == models.RideStatusRequested && ride.DriverID == nil:
		return ride.ForDriver(), nil
	}
	return nil, UnauthorizedError("You are not a participant of this ride")
}

func (s *rideService) ListRides(ctx context.Context, caller models.Principal, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	var (
		rides []*models.Ride
		total int64
		err   error
	)
	if caller.IsDriver() {
		rides, total, err = s.rideRepo.ListByDriver(ctx, caller.ID, params)
	} else {
		rides, total, err = s.rideRepo.ListByRider(ctx, caller.ID, params)
	}
	if err != nil {
		return nil, 0, fromRepo(err, "ride")
	}

	for i, ride := range rides {
		rides[i] = s.view(caller, ride)
	}
	return rides, total, nil
}

func (s *rideService) ListOpenRides(ctx context.Context, caller models.Principal) ([]*models.Ride, error) {
	if !caller.IsDriver() {
		return nil, UnauthorizedError("Only drivers can browse open rides")
	}

	driver, err := s.driverRepo.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, fromRepo(err, "driver")
	}
	if driver.Location == nil {
		return nil, ValidationError("Update your location before browsing open rides")
	}

	rides, err := s.rideRepo.ListOpenNear(ctx, *driver.Location, driver.Vehicle.Type, s.config.SearchRadiusKM, s.config.MaxCandidates)
	if err != nil {
		return nil, fromRepo(err, "ride")
	}
	for i, ride := range rides {
		rides[i] = ride.ForDriver()
	}
	return rides, nil
}

// view hides the OTP from drivers.
func (s *rideService) view(caller models.Principal, ride *models.Ride) *models.Ride {
	if caller.IsDriver() {
		return ride.ForDriver()
	}
	return ride
}
