package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniola/internal/models"
	"miniola/internal/validators"
)

func riderSignup(email string) *validators.RegisterRiderRequest {
	return &validators.RegisterRiderRequest{AccountRequest: validators.AccountRequest{
		Name:     "Asha Rao",
		Email:    email,
		Phone:    "+919876543210",
		Password: "secret123",
	}}
}

func driverSignup() *validators.RegisterDriverRequest {
	return &validators.RegisterDriverRequest{
		AccountRequest: validators.AccountRequest{
			Name:     "Ravi Kumar",
			Email:    "ravi@example.com",
			Phone:    "+919812345678",
			Password: "secret123",
		},
		LicenseNumber: "ka0120230001",
		Vehicle: validators.VehicleRequest{
			Type:   "sedan",
			Make:   "Honda",
			Model:  "City",
			Number: "ka01ab1234",
		},
	}
}

func TestRegisterRiderAndLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result, err := f.authSvc.RegisterRider(ctx, riderSignup("Asha@Example.com"), ClientMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	require.NotNil(t, result.Profile.Rider)
	assert.Equal(t, "asha@example.com", result.Profile.Rider.Email)
	assert.NotEqual(t, "secret123", result.Profile.Rider.Password)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.Len(t, result.Tokens.RefreshToken, 64)

	principal, err := f.tokenSvc.ParseAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.Profile.Rider.ID, principal.ID)
	assert.Equal(t, models.RoleRider, principal.Role)

	login, err := f.authSvc.Login(ctx, &validators.LoginRequest{Email: "asha@example.com", Password: "secret123", Role: "rider"}, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, result.Profile.Rider.ID, login.Profile.Rider.ID)

	_, err = f.authSvc.Login(ctx, &validators.LoginRequest{Email: "asha@example.com", Password: "wrong-pass", Role: "rider"}, ClientMeta{})
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	_, err = f.authSvc.Login(ctx, &validators.LoginRequest{Email: "asha@example.com", Password: "secret123", Role: "driver"}, ClientMeta{})
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.authSvc.RegisterRider(ctx, riderSignup("asha@example.com"), ClientMeta{})
	require.NoError(t, err)

	_, err = f.authSvc.RegisterRider(ctx, riderSignup("ASHA@example.com"), ClientMeta{})
	assert.Equal(t, KindDuplicate, KindOf(err))

	samePhone := riderSignup("other@example.com")
	_, err = f.authSvc.RegisterRider(ctx, samePhone, ClientMeta{})
	assert.Equal(t, KindDuplicate, KindOf(err))

	_, err = f.authSvc.RegisterDriver(ctx, driverSignup(), ClientMeta{})
	require.NoError(t, err)

	again := driverSignup()
	again.Email = "ravi2@example.com"
	again.Phone = "+919800000000"
	_, err = f.authSvc.RegisterDriver(ctx, again, ClientMeta{})
	assert.Equal(t, KindDuplicate, KindOf(err))
}

func TestRegisterDriverDefaults(t *testing.T) {
	f := newFixture()

	result, err := f.authSvc.RegisterDriver(context.Background(), driverSignup(), ClientMeta{})
	require.NoError(t, err)

	d := result.Profile.Driver
	require.NotNil(t, d)
	assert.Equal(t, models.KYCStatusPending, d.KYCStatus)
	assert.False(t, d.IsAvailable)
	assert.Equal(t, 1, d.Level)
	assert.Equal(t, "KA0120230001", d.LicenseNumber)
	assert.Equal(t, "KA01AB1234", d.Vehicle.Number)
	assert.Equal(t, models.RideClassSedan, d.Vehicle.Type)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture()

	req := riderSignup("not-an-email")
	req.Phone = "12"
	_, err := f.authSvc.RegisterRider(context.Background(), req, ClientMeta{})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "phone")
}

func TestRefreshTokenRotation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result, err := f.authSvc.RegisterRider(ctx, riderSignup("asha@example.com"), ClientMeta{})
	require.NoError(t, err)
	userID := result.Profile.Rider.ID
	first := result.Tokens.RefreshToken

	rotated, err := f.authSvc.Refresh(ctx, &validators.RefreshTokenRequest{RefreshToken: first}, ClientMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, first, rotated.RefreshToken)
	assert.Equal(t, 1, f.tokens.activeFor(userID))

	// presenting the rotated-out token again is reuse
	_, err = f.authSvc.Refresh(ctx, &validators.RefreshTokenRequest{RefreshToken: first}, ClientMeta{})
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, 0, f.tokens.activeFor(userID))

	_, err = f.authSvc.Refresh(ctx, &validators.RefreshTokenRequest{RefreshToken: rotated.RefreshToken}, ClientMeta{})
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestRefreshRejectsUnknownAndExpired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	unknown := strings.Repeat("a", 64)
	_, err := f.authSvc.Refresh(ctx, &validators.RefreshTokenRequest{RefreshToken: unknown}, ClientMeta{})
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	principal := f.addRider(0)
	pair, err := f.tokenSvc.IssuePair(ctx, principal, ClientMeta{})
	require.NoError(t, err)

	f.tokenSvc.(*tokenService).now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = f.tokenSvc.Rotate(ctx, pair.RefreshToken, ClientMeta{})
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result, err := f.authSvc.RegisterRider(ctx, riderSignup("asha@example.com"), ClientMeta{})
	require.NoError(t, err)
	req := &validators.RefreshTokenRequest{RefreshToken: result.Tokens.RefreshToken}

	require.NoError(t, f.authSvc.Logout(ctx, req))
	require.NoError(t, f.authSvc.Logout(ctx, req))
	assert.Equal(t, 0, f.tokens.activeFor(result.Profile.Rider.ID))

	_, err = f.authSvc.Refresh(ctx, req, ClientMeta{})
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	f := newFixture()

	_, err := f.tokenSvc.ParseAccessToken("not.a.token")
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}
