package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"miniola/internal/config"
	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
)

type AuthResult struct {
	Profile *Profile   `json:"profile"`
	Tokens  *TokenPair `json:"tokens"`
}

type AuthService interface {
	RegisterRider(ctx context.Context, req *validators.RegisterRiderRequest, meta ClientMeta) (*AuthResult, error)
	RegisterDriver(ctx context.Context, req *validators.RegisterDriverRequest, meta ClientMeta) (*AuthResult, error)
	Login(ctx context.Context, req *validators.LoginRequest, meta ClientMeta) (*AuthResult, error)
	Refresh(ctx context.Context, req *validators.RefreshTokenRequest, meta ClientMeta) (*TokenPair, error)
	Logout(ctx context.Context, req *validators.RefreshTokenRequest) error
}

type authService struct {
	riderRepo    interfaces.RiderRepository
	driverRepo   interfaces.DriverRepository
	tokenService TokenService
	security     *config.SecurityConfig
	logger       *logger.Logger
	now          func() time.Time
}

func NewAuthService(
	riderRepo interfaces.RiderRepository,
	driverRepo interfaces.DriverRepository,
	tokenService TokenService,
	security *config.SecurityConfig,
	logger *logger.Logger,
) AuthService {
	return &authService{
		riderRepo:    riderRepo,
		driverRepo:   driverRepo,
		tokenService: tokenService,
		security:     security,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *authService) RegisterRider(ctx context.Context, req *validators.RegisterRiderRequest, meta ClientMeta) (*AuthResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	account, err := s.newAccount(ctx, s.riderRepo, &req.AccountRequest, models.RoleRider)
	if err != nil {
		return nil, err
	}

	rider := &models.Rider{Account: *account}
	if err := s.riderRepo.Create(ctx, rider); err != nil {
		return nil, s.createErr(err)
	}

	s.logger.WithUserID(rider.ID).Info("Rider registered")
	return s.issue(ctx, &Profile{Role: models.RoleRider, Rider: rider}, meta)
}

func (s *authService) RegisterDriver(ctx context.Context, req *validators.RegisterDriverRequest, meta ClientMeta) (*AuthResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	account, err := s.newAccount(ctx, s.driverRepo, &req.AccountRequest, models.RoleDriver)
	if err != nil {
		return nil, err
	}

	licenseNumber := strings.ToUpper(strings.TrimSpace(req.LicenseNumber))
	vehicleNumber := strings.ToUpper(strings.TrimSpace(req.Vehicle.Number))
	if exists, err := s.driverRepo.ExistsByLicense(ctx, licenseNumber); err != nil {
		return nil, fromRepo(err, "driver")
	} else if exists {
		return nil, DuplicateError("License number is already registered")
	}
	if exists, err := s.driverRepo.ExistsByVehicleNumber(ctx, vehicleNumber); err != nil {
		return nil, fromRepo(err, "driver")
	} else if exists {
		return nil, DuplicateError("Vehicle number is already registered")
	}

	experience, level := models.Progression(0)
	driver := &models.Driver{
		Account: *account,
		Vehicle: models.Vehicle{
			Type:   models.RideClass(req.Vehicle.Type),
			Make:   req.Vehicle.Make,
			Model:  req.Vehicle.Model,
			Color:  req.Vehicle.Color,
			Number: vehicleNumber,
		},
		LicenseNumber: licenseNumber,
		KYCStatus:     models.KYCStatusPending,
		Level:         level,
		Experience:    experience,
		Badges:        []models.Badge{},
	}
	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, s.createErr(err)
	}

	s.logger.WithUserID(driver.ID).Info("Driver registered")
	return s.issue(ctx, &Profile{Role: models.RoleDriver, Driver: driver}, meta)
}

// newAccount checks identifier uniqueness among live accounts of the role and
// builds the shared account fields.
func (s *authService) newAccount(ctx context.Context, repo interfaces.AccountRepository, req *validators.AccountRequest, role models.UserRole) (*models.Account, error) {
	if len(req.Password) < s.security.PasswordMinLength {
		return nil, FieldValidationError(map[string]string{
			"password": "password is too short",
		}, nil)
	}

	email := normalizeEmail(req.Email)
	if exists, err := repo.ExistsByEmail(ctx, email); err != nil {
		return nil, fromRepo(err, string(role))
	} else if exists {
		return nil, DuplicateError("Email is already registered")
	}
	if exists, err := repo.ExistsByPhone(ctx, req.Phone); err != nil {
		return nil, fromRepo(err, string(role))
	} else if exists {
		return nil, DuplicateError("Phone number is already registered")
	}

	hash, err := utils.HashPassword(req.Password, s.security.BcryptCost)
	if err != nil {
		return nil, InternalError("failed to hash password", err)
	}

	return &models.Account{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Phone:    req.Phone,
		Password: hash,
		Role:     role,
		IsActive: true,
	}, nil
}

// createErr covers the race where a concurrent registration wins the
// unique index after the existence checks passed.
func (s *authService) createErr(err error) error {
	if errors.Is(err, interfaces.ErrDuplicate) {
		return DuplicateError("Account with these details already exists")
	}
	return InternalError("failed to create account", err)
}

func (s *authService) Login(ctx context.Context, req *validators.LoginRequest, meta ClientMeta) (*AuthResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	role := models.UserRole(req.Role)
	var repo interfaces.AccountRepository = s.riderRepo
	if role == models.RoleDriver {
		repo = s.driverRepo
	}

	account, err := repo.FindAccountByEmail(ctx, normalizeEmail(req.Email))
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fromRepo(err, string(role))
	}
	if err != nil || !utils.CheckPassword(account.Password, req.Password) {
		s.logger.LogSecurityEvent("login_failed", "low", map[string]interface{}{
			"role":       role,
			"ip_address": meta.IP,
		})
		return nil, UnauthenticatedError("Invalid email or password")
	}
	if !account.IsActive {
		return nil, UnauthorizedError("Account is deactivated")
	}

	if err := repo.TouchLastLogin(ctx, account.ID, s.now()); err != nil {
		s.logger.WithError(err).WithUserID(account.ID).Warn("Failed to record last login")
	}

	profile := &Profile{Role: role}
	if role == models.RoleDriver {
		profile.Driver, err = s.driverRepo.GetByID(ctx, account.ID)
	} else {
		profile.Rider, err = s.riderRepo.GetByID(ctx, account.ID)
	}
	if err != nil {
		return nil, fromRepo(err, string(role))
	}

	return s.issue(ctx, profile, meta)
}

func (s *authService) Refresh(ctx context.Context, req *validators.RefreshTokenRequest, meta ClientMeta) (*TokenPair, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.tokenService.Rotate(ctx, req.RefreshToken, meta)
}

func (s *authService) Logout(ctx context.Context, req *validators.RefreshTokenRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	return s.tokenService.Revoke(ctx, req.RefreshToken)
}

func (s *authService) issue(ctx context.Context, profile *Profile, meta ClientMeta) (*AuthResult, error) {
	id := profile.accountID()
	tokens, err := s.tokenService.IssuePair(ctx, models.Principal{ID: id, Role: profile.Role}, meta)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Profile: profile, Tokens: tokens}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
