package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

// Profile is the caller's account resolved once by role. Exactly one of
// Rider and Driver is set.
type Profile struct {
	Role   models.UserRole `json:"role"`
	Rider  *models.Rider   `json:"rider,omitempty"`
	Driver *models.Driver  `json:"driver,omitempty"`
}

type AccountService interface {
	Resolve(ctx context.Context, principal models.Principal) (*Profile, error)
	// DeleteAccount tombstones the account and revokes its sessions. Drivers
	// on a ride must finish or cancel it first.
	DeleteAccount(ctx context.Context, principal models.Principal) error
	AddFunds(ctx context.Context, principal models.Principal, req *validators.TopUpRequest) (float64, error)
}

type accountService struct {
	riderRepo    interfaces.RiderRepository
	driverRepo   interfaces.DriverRepository
	tokenService TokenService
	logger       *logger.Logger
	now          func() time.Time
}

func NewAccountService(
	riderRepo interfaces.RiderRepository,
	driverRepo interfaces.DriverRepository,
	tokenService TokenService,
	logger *logger.Logger,
) AccountService {
	return &accountService{
		riderRepo:    riderRepo,
		driverRepo:   driverRepo,
		tokenService: tokenService,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *accountService) accounts(role models.UserRole) (interfaces.AccountRepository, error) {
	switch role {
	case models.RoleRider:
		return s.riderRepo, nil
	case models.RoleDriver:
		return s.driverRepo, nil
	}
	return nil, UnauthorizedError("Unknown account role")
}

func (s *accountService) Resolve(ctx context.Context, principal models.Principal) (*Profile, error) {
	switch principal.Role {
	case models.RoleRider:
		rider, err := s.riderRepo.GetByID(ctx, principal.ID)
		if err != nil {
			return nil, fromRepo(err, "rider")
		}
		return &Profile{Role: models.RoleRider, Rider: rider}, nil
	case models.RoleDriver:
		driver, err := s.driverRepo.GetByID(ctx, principal.ID)
		if err != nil {
			return nil, fromRepo(err, "driver")
		}
		return &Profile{Role: models.RoleDriver, Driver: driver}, nil
	}
	return nil, UnauthorizedError("Unknown account role")
}

func (s *accountService) DeleteAccount(ctx context.Context, principal models.Principal) error {
	repo, err := s.accounts(principal.Role)
	if err != nil {
		return err
	}

	if principal.IsDriver() {
		driver, err := s.driverRepo.GetByID(ctx, principal.ID)
		if err != nil {
			return fromRepo(err, "driver")
		}
		if driver.CurrentRide != nil {
			return InvalidStateError("Account cannot be deleted during an active ride")
		}
	}

	if err := repo.SoftDelete(ctx, principal.ID, s.now()); err != nil {
		return fromRepo(err, string(principal.Role))
	}
	if err := s.tokenService.RevokeAll(ctx, principal.ID, models.RevokeReasonDeleted); err != nil {
		s.logger.WithError(err).WithUserID(principal.ID).Error("Failed to revoke sessions of deleted account")
	}

	s.logger.LogSecurityEvent("account_deleted", "medium", map[string]interface{}{
		"user_id": principal.ID.Hex(),
		"role":    principal.Role,
	})
	return nil
}

func (s *accountService) AddFunds(ctx context.Context, principal models.Principal, req *validators.TopUpRequest) (float64, error) {
	if err := validateRequest(req); err != nil {
		return 0, err
	}
	repo, err := s.accounts(principal.Role)
	if err != nil {
		return 0, err
	}

	balance, err := repo.CreditWallet(ctx, principal.ID, req.Amount)
	if err != nil {
		return 0, fromRepo(err, string(principal.Role))
	}

	s.logger.WithUserID(principal.ID).WithField("amount", req.Amount).Info("Wallet topped up")
	return balance, nil
}

func (p *Profile) accountID() primitive.ObjectID {
	if p.Driver != nil {
		return p.Driver.ID
	}
	if p.Rider != nil {
		return p.Rider.ID
	}
	return primitive.NilObjectID
}
