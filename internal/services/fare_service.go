package services

import (
	"context"
	"fmt"
	"math"

	"miniola/internal/config"
	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

// RateCard prices one ride class in rupees.
type RateCard struct {
	BaseFare  float64 `json:"base_fare"`
	PerKM     float64 `json:"per_km"`
	PerMinute float64 `json:"per_minute"`
}

var DefaultRateCards = map[models.RideClass]RateCard{
	models.RideClassBike:  {BaseFare: 20, PerKM: 5, PerMinute: 1},
	models.RideClassMini:  {BaseFare: 50, PerKM: 10, PerMinute: 1.5},
	models.RideClassSedan: {BaseFare: 80, PerKM: 12, PerMinute: 2},
	models.RideClassSUV:   {BaseFare: 120, PerKM: 18, PerMinute: 3},
}

// MaxSurgeMultiplier applies when no driver is available.
const MaxSurgeMultiplier = 2.0

type FareInput struct {
	RideClass       models.RideClass
	DistanceKM      float64
	DurationMinutes float64
	SurgeMultiplier float64 // zero means no surge
	IsGroupRide     bool
}

// FareCalculator is a pure function of its rate cards and discount rate.
type FareCalculator struct {
	rateCards         map[models.RideClass]RateCard
	groupDiscountRate float64
}

func NewFareCalculator(rateCards map[models.RideClass]RateCard, groupDiscountRate float64) *FareCalculator {
	return &FareCalculator{
		rateCards:         rateCards,
		groupDiscountRate: groupDiscountRate,
	}
}

// Calculate prices a trip. Every component is rounded to paise first and the
// estimate is derived from the rounded components, so they always add up.
func (c *FareCalculator) Calculate(in FareInput) (models.Fare, error) {
	card, ok := c.rateCards[in.RideClass]
	if !ok {
		return models.Fare{}, fmt.Errorf("%w: unknown ride class %q", ErrInvalidFareInput, in.RideClass)
	}
	if in.DistanceKM < 0 || math.IsNaN(in.DistanceKM) || math.IsInf(in.DistanceKM, 0) {
		return models.Fare{}, fmt.Errorf("%w: distance must be a non-negative number", ErrInvalidFareInput)
	}
	if in.DurationMinutes < 0 || math.IsNaN(in.DurationMinutes) || math.IsInf(in.DurationMinutes, 0) {
		return models.Fare{}, fmt.Errorf("%w: duration must be a non-negative number", ErrInvalidFareInput)
	}

	surge := in.SurgeMultiplier
	if surge == 0 {
		surge = 1.0
	}
	if surge < 1 || math.IsNaN(surge) || math.IsInf(surge, 0) {
		return models.Fare{}, fmt.Errorf("%w: surge multiplier must be at least 1.0", ErrInvalidFareInput)
	}

	fare := models.Fare{
		BaseFare:        utils.RoundMoney(card.BaseFare),
		DistanceFare:    utils.RoundMoney(in.DistanceKM * card.PerKM),
		TimeFare:        utils.RoundMoney(in.DurationMinutes * card.PerMinute),
		SurgeMultiplier: surge,
	}

	surged := utils.RoundMoney((fare.BaseFare + fare.DistanceFare + fare.TimeFare) * surge)
	if in.IsGroupRide {
		fare.GroupDiscount = utils.RoundMoney(surged * c.groupDiscountRate)
	}
	fare.EstimatedFare = utils.RoundMoney(surged - fare.GroupDiscount)

	return fare, nil
}

// SurgeMultiplier steps with the demand/supply ratio.
func SurgeMultiplier(activeRides, availableDrivers int64) float64 {
	if availableDrivers <= 0 {
		return MaxSurgeMultiplier
	}

	ratio := float64(activeRides) / float64(availableDrivers)
	switch {
	case ratio > 3:
		return 2.0
	case ratio > 2:
		return 1.8
	case ratio > 1.5:
		return 1.5
	case ratio > 1:
		return 1.3
	default:
		return 1.0
	}
}

type FareEstimate struct {
	RideClass        models.RideClass `json:"ride_class"`
	DistanceKM       float64          `json:"distance_km"`
	EstimatedMinutes int              `json:"estimated_minutes"`
	Fare             models.Fare      `json:"fare"`
	Currency         string           `json:"currency"`
}

type FareService interface {
	Estimate(ctx context.Context, req *validators.FareEstimateRequest) (*FareEstimate, error)
}

type fareService struct {
	calculator *FareCalculator
	rideRepo   interfaces.RideRepository
	driverRepo interfaces.DriverRepository
	config     *config.RideConfig
	currency   string
	logger     *logger.Logger
}

func NewFareService(
	calculator *FareCalculator,
	rideRepo interfaces.RideRepository,
	driverRepo interfaces.DriverRepository,
	cfg *config.RideConfig,
	currency string,
	logger *logger.Logger,
) FareService {
	return &fareService{
		calculator: calculator,
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		config:     cfg,
		currency:   currency,
		logger:     logger,
	}
}

func (s *fareService) Estimate(ctx context.Context, req *validators.FareEstimateRequest) (*FareEstimate, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	distance := utils.RoundKM(utils.CalculateDistance(
		req.Pickup.Latitude, req.Pickup.Longitude,
		req.Dropoff.Latitude, req.Dropoff.Longitude,
	))
	minutes := utils.EstimateETAMinutes(distance, s.config.AverageSpeedKMH)

	surge, err := s.currentSurge(ctx)
	if err != nil {
		return nil, err
	}

	fare, err := s.calculator.Calculate(FareInput{
		RideClass:       models.RideClass(req.RideClass),
		DistanceKM:      distance,
		DurationMinutes: float64(minutes),
		SurgeMultiplier: surge,
		IsGroupRide:     req.IsGroupRide,
	})
	if err != nil {
		return nil, newError(KindValidation, err.Error(), err)
	}

	return &FareEstimate{
		RideClass:        models.RideClass(req.RideClass),
		DistanceKM:       distance,
		EstimatedMinutes: minutes,
		Fare:             fare,
		Currency:         s.currency,
	}, nil
}

func (s *fareService) currentSurge(ctx context.Context) (float64, error) {
	active, err := s.rideRepo.CountActive(ctx)
	if err != nil {
		return 0, InternalError("failed to read ride demand", err)
	}
	available, err := s.driverRepo.CountAvailable(ctx)
	if err != nil {
		return 0, InternalError("failed to read driver supply", err)
	}

	surge := SurgeMultiplier(active, available)
	if surge > 1 {
		s.logger.WithFields(map[string]interface{}{
			"active_rides":      active,
			"available_drivers": available,
			"surge":             surge,
		}).Debug("Surge pricing in effect")
	}
	return surge, nil
}
