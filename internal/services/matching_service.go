package services

import (
	"context"
	"errors"
	"time"

	"miniola/internal/config"
	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/pkg/logger"
)

// MatchingService pairs requested rides with nearby free drivers.
type MatchingService interface {
	FindCandidates(ctx context.Context, pickup models.GeoPoint, class models.RideClass) ([]*models.Driver, error)
	// Assign tries candidates nearest first until one is bound to the ride.
	// NoDriversAvailable when every candidate was lost to another ride.
	Assign(ctx context.Context, ride *models.Ride, candidates []*models.Driver) (*models.Ride, error)
}

type matchingService struct {
	driverRepo interfaces.DriverRepository
	rideRepo   interfaces.RideRepository
	config     *config.RideConfig
	logger     *logger.Logger
	now        func() time.Time
}

func NewMatchingService(
	driverRepo interfaces.DriverRepository,
	rideRepo interfaces.RideRepository,
	cfg *config.RideConfig,
	logger *logger.Logger,
) MatchingService {
	return &matchingService{
		driverRepo: driverRepo,
		rideRepo:   rideRepo,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *matchingService) FindCandidates(ctx context.Context, pickup models.GeoPoint, class models.RideClass) ([]*models.Driver, error) {
	drivers, err := s.driverRepo.FindNearbyAvailable(ctx, pickup, class, s.config.SearchRadiusKM, s.config.MaxCandidates)
	if err != nil {
		return nil, InternalError("failed to search for drivers", err)
	}
	return drivers, nil
}

func (s *matchingService) Assign(ctx context.Context, ride *models.Ride, candidates []*models.Driver) (*models.Ride, error) {
	for _, driver := range candidates {
		err := s.driverRepo.ClaimForRide(ctx, driver.ID, ride.ID)
		if errors.Is(err, interfaces.ErrConflict) || errors.Is(err, interfaces.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, InternalError("failed to claim driver", err)
		}

		assigned, err := s.rideRepo.AssignDriver(ctx, ride.ID, driver.ID, s.now())
		if err == nil {
			s.logger.LogRideEvent(ride.ID, EventRideAccepted, map[string]interface{}{
				"driver_id": driver.ID.Hex(),
			})
			return assigned, nil
		}

		if releaseErr := s.driverRepo.ReleaseFromRide(ctx, driver.ID, ride.ID); releaseErr != nil {
			s.logger.WithError(releaseErr).WithRideID(ride.ID).WithUserID(driver.ID).
				Error("Failed to release driver after losing ride assignment")
		}
		if errors.Is(err, interfaces.ErrConflict) {
			return nil, ConflictError("Ride is no longer waiting for a driver")
		}
		return nil, fromRepo(err, "ride")
	}

	return nil, newError(KindNoDriversAvailable, models.NoDriversAvailableReason, nil)
}
