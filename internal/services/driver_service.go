package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

type DriverService interface {
	ToggleAvailability(ctx context.Context, driverID primitive.ObjectID) (*models.Driver, error)
	UpdateLocation(ctx context.Context, driverID primitive.ObjectID, req *validators.UpdateLocationRequest) (*models.Driver, error)
	// AddEarnings records one completed ride worth amount to the driver and
	// awards any badge the new ride count unlocks.
	AddEarnings(ctx context.Context, driverID primitive.ObjectID, amount float64) (*models.Driver, error)
	UpdateKYCStatus(ctx context.Context, driverID primitive.ObjectID, req *validators.KYCReviewRequest) (*models.Driver, error)
}

type driverService struct {
	driverRepo interfaces.DriverRepository
	logger     *logger.Logger
	now        func() time.Time
}

func NewDriverService(driverRepo interfaces.DriverRepository, logger *logger.Logger) DriverService {
	return &driverService{
		driverRepo: driverRepo,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *driverService) ToggleAvailability(ctx context.Context, driverID primitive.ObjectID) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, fromRepo(err, "driver")
	}
	if !driver.IsAvailable && driver.KYCStatus != models.KYCStatusApproved {
		return nil, UnauthorizedError("Driver KYC must be approved before going online")
	}

	driver, err = s.driverRepo.ToggleAvailability(ctx, driverID)
	if errors.Is(err, interfaces.ErrConflict) {
		return nil, InvalidStateError("Availability cannot change during an active ride")
	}
	if err != nil {
		return nil, fromRepo(err, "driver")
	}

	s.logger.WithUserID(driverID).WithField("is_available", driver.IsAvailable).Info("Driver availability changed")
	return driver, nil
}

func (s *driverService) UpdateLocation(ctx context.Context, driverID primitive.ObjectID, req *validators.UpdateLocationRequest) (*models.Driver, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	driver, err := s.driverRepo.UpdateLocation(ctx, driverID, req.Point(), req.Address)
	if err != nil {
		return nil, fromRepo(err, "driver")
	}
	return driver, nil
}

func (s *driverService) AddEarnings(ctx context.Context, driverID primitive.ObjectID, amount float64) (*models.Driver, error) {
	if amount < 0 {
		return nil, ValidationError("Earnings cannot be negative")
	}

	driver, err := s.driverRepo.RecordCompletedRide(ctx, driverID, amount)
	if err != nil {
		return nil, fromRepo(err, "driver")
	}

	for _, name := range models.BadgesDue(driver.TotalRides) {
		if driver.HasBadge(name) {
			continue
		}

		badge := models.Badge{Name: name, AwardedAt: s.now()}
		added, err := s.driverRepo.AwardBadge(ctx, driverID, badge)
		if err != nil {
			return nil, fromRepo(err, "driver")
		}
		if added {
			driver.Badges = append(driver.Badges, badge)
			s.logger.WithUserID(driverID).WithField("badge", name).Info("Badge awarded")
		}
	}

	return driver, nil
}

func (s *driverService) UpdateKYCStatus(ctx context.Context, driverID primitive.ObjectID, req *validators.KYCReviewRequest) (*models.Driver, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	driver, err := s.driverRepo.UpdateKYCStatus(ctx, driverID, models.KYCStatus(req.Status))
	if err != nil {
		return nil, fromRepo(err, "driver")
	}

	s.logger.WithUserID(driverID).WithField("kyc_status", driver.KYCStatus).Info("Driver KYC reviewed")
	return driver, nil
}
