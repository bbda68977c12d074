package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/internal/utils"
	"miniola/internal/validators"
)

// settledRide stores a completed ride charging amount.
func settledRide(t *testing.T, f *fixture, amount, riderBalance float64) (models.Principal, models.Principal, *models.Ride) {
	t.Helper()
	rider := f.addRider(riderBalance)
	driver := f.addDriver(models.RideClassMini, pickup.Latitude, pickup.Longitude)
	driverID := driver.ID
	fare := amount
	ride := &models.Ride{
		RiderID:       rider.ID,
		DriverID:      &driverID,
		RideClass:     models.RideClassMini,
		Status:        models.RideStatusCompleted,
		Fare:          models.Fare{EstimatedFare: amount, FinalFare: &fare, SurgeMultiplier: 1},
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, f.rides.Create(context.Background(), ride))
	return rider, driver, ride
}

func createPayment(t *testing.T, f *fixture, rider models.Principal, ride *models.Ride, method models.PaymentMethod) *models.Payment {
	t.Helper()
	payment, err := f.paymentSvc.CreatePayment(context.Background(), rider, &validators.CreatePaymentRequest{
		RideID: ride.ID.Hex(),
		Method: string(method),
	})
	require.NoError(t, err)
	return payment
}

func balance(t *testing.T, repo interfaces.AccountRepository, id primitive.ObjectID) float64 {
	t.Helper()
	b, err := repo.CreditWallet(context.Background(), id, 0)
	require.NoError(t, err)
	return b
}

func TestCreatePayment(t *testing.T) {
	f := newFixture()
	rider, driver, ride := settledRide(t, f, 100, 0)

	payment := createPayment(t, f, rider, ride, models.PaymentMethodWallet)
	assert.Equal(t, 100.0, payment.Amount)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, driver.ID, payment.DriverID)
	assert.True(t, strings.HasPrefix(payment.ReceiptNumber, "RCP-"))

	_, err := f.paymentSvc.CreatePayment(context.Background(), rider, &validators.CreatePaymentRequest{
		RideID: ride.ID.Hex(),
		Method: "cash",
	})
	assert.Equal(t, KindDuplicate, KindOf(err))
}

func TestCreatePaymentChecksRide(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rider, _, ride := acceptedRide(t, f, models.RideClassMini)

	_, err := f.paymentSvc.CreatePayment(ctx, rider, &validators.CreatePaymentRequest{RideID: ride.ID.Hex(), Method: "wallet"})
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = f.paymentSvc.CreatePayment(ctx, f.addRider(0), &validators.CreatePaymentRequest{RideID: ride.ID.Hex(), Method: "wallet"})
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, err = f.paymentSvc.CreatePayment(ctx, rider, &validators.CreatePaymentRequest{RideID: "nope", Method: "bitcoin"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestCreatePaymentRetriesReceiptCollisions(t *testing.T) {
	f := newFixture()
	rider, _, ride := settledRide(t, f, 100, 0)

	f.payments.receiptCollisions = 2
	payment := createPayment(t, f, rider, ride, models.PaymentMethodCash)
	assert.NotEmpty(t, payment.ReceiptNumber)

	rider2, _, ride2 := settledRide(t, f, 100, 0)
	f.payments.receiptCollisions = receiptAttempts
	_, err := f.paymentSvc.CreatePayment(context.Background(), rider2, &validators.CreatePaymentRequest{
		RideID: ride2.ID.Hex(),
		Method: "cash",
	})
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestProcessWalletPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rider, driver, ride := settledRide(t, f, 100, 1000)
	payment := createPayment(t, f, rider, ride, models.PaymentMethodWallet)

	processed, err := f.paymentSvc.ProcessPayment(ctx, rider, payment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, processed.Status)
	assert.Equal(t, 20.0, processed.PlatformFee)
	assert.Equal(t, 80.0, processed.DriverEarnings)
	assert.Equal(t, processed.Amount, processed.PlatformFee+processed.DriverEarnings)
	assert.True(t, strings.HasPrefix(processed.TransactionID, "TXN-"))
	assert.NotNil(t, processed.ProcessedAt)

	assert.Equal(t, 900.0, balance(t, f.riders, rider.ID))
	assert.Equal(t, 80.0, balance(t, f.drivers, driver.ID))

	stored, err := f.rides.GetByID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.PaymentStatus)

	_, err = f.paymentSvc.ProcessPayment(ctx, rider, payment.ID)
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestProcessWalletPaymentInsufficientBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rider, driver, ride := settledRide(t, f, 500, 0)
	payment := createPayment(t, f, rider, ride, models.PaymentMethodWallet)

	_, err := f.paymentSvc.ProcessPayment(ctx, rider, payment.ID)
	require.Error(t, err)
	assert.Equal(t, KindInsufficientFunds, KindOf(err))

	stored, err := f.payments.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.FailureReason)

	assert.Equal(t, 0.0, balance(t, f.riders, rider.ID))
	assert.Equal(t, 0.0, balance(t, f.drivers, driver.ID))

	storedRide, err := f.rides.GetByID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, storedRide.PaymentStatus)
}

func TestProcessNonWalletPayments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	rider, driver, ride := settledRide(t, f, 250, 0)
	upi, err := f.paymentSvc.ProcessPayment(ctx, rider, createPayment(t, f, rider, ride, models.PaymentMethodUPI).ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, upi.Status)
	assert.NotEmpty(t, upi.TransactionID)
	assert.Equal(t, 50.0, upi.PlatformFee)
	assert.Equal(t, 200.0, balance(t, f.drivers, driver.ID))

	rider, driver, ride = settledRide(t, f, 250, 0)
	cash, err := f.paymentSvc.ProcessPayment(ctx, rider, createPayment(t, f, rider, ride, models.PaymentMethodCash).ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, cash.Status)
	assert.Empty(t, cash.TransactionID)
	assert.Equal(t, 200.0, cash.DriverEarnings)
	assert.Equal(t, 0.0, balance(t, f.drivers, driver.ID))
}

func TestPaymentSplitAddsUpToAmount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, amount := range []float64{0.01, 0.06, 0.07, 1.23, 19.99, 33.33, 123.45, 199.99, 1234.56} {
		rider, driver, ride := settledRide(t, f, amount, 5000)
		payment := createPayment(t, f, rider, ride, models.PaymentMethodWallet)

		processed, err := f.paymentSvc.ProcessPayment(ctx, rider, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, amount, utils.RoundMoney(processed.PlatformFee+processed.DriverEarnings), "amount=%v", amount)
		assert.Equal(t, processed.DriverEarnings, balance(t, f.drivers, driver.ID), "amount=%v", amount)
		assert.InDelta(t, 5000-amount, balance(t, f.riders, rider.ID), 1e-9, "amount=%v", amount)
	}
}

func TestOnlyPayerProcessesPayment(t *testing.T) {
	f := newFixture()
	rider, driver, ride := settledRide(t, f, 100, 1000)
	payment := createPayment(t, f, rider, ride, models.PaymentMethodWallet)

	_, err := f.paymentSvc.ProcessPayment(context.Background(), driver, payment.ID)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestRefundPaymentOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rider, driver, ride := settledRide(t, f, 100, 1000)
	payment := createPayment(t, f, rider, ride, models.PaymentMethodWallet)

	_, err := f.paymentSvc.RefundPayment(ctx, rider, payment.ID, &validators.RefundPaymentRequest{Reason: "driver never came"})
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = f.paymentSvc.ProcessPayment(ctx, rider, payment.ID)
	require.NoError(t, err)
	_, err = f.drivers.CreditWallet(ctx, driver.ID, 20)
	require.NoError(t, err)

	refunded, err := f.paymentSvc.RefundPayment(ctx, rider, payment.ID, &validators.RefundPaymentRequest{Reason: "driver never came"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundAmount)
	assert.Equal(t, 100.0, *refunded.RefundAmount)
	assert.Equal(t, "driver never came", refunded.RefundReason)
	assert.NotNil(t, refunded.RefundedAt)

	assert.Equal(t, 1000.0, balance(t, f.riders, rider.ID))
	assert.Equal(t, 0.0, balance(t, f.drivers, driver.ID))

	_, err = f.paymentSvc.RefundPayment(ctx, driver, payment.ID, &validators.RefundPaymentRequest{Reason: "second attempt"})
	assert.Equal(t, KindInvalidState, KindOf(err))
}

// A full wallet refund claws back the whole amount from the driver, who only
// received the earnings share, so it fails until the driver is topped up.
func TestFullWalletRefundNeedsDriverToCoverCommission(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rider, driver, ride := settledRide(t, f, 100, 1000)
	payment := createPayment(t, f, rider, ride, models.PaymentMethodWallet)
	_, err := f.paymentSvc.ProcessPayment(ctx, rider, payment.ID)
	require.NoError(t, err)
	require.Equal(t, 80.0, balance(t, f.drivers, driver.ID))

	_, err = f.paymentSvc.RefundPayment(ctx, rider, payment.ID, &validators.RefundPaymentRequest{Reason: "overcharged"})
	assert.Equal(t, KindInsufficientFunds, KindOf(err))

	stored, err := f.payments.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
	assert.Nil(t, stored.RefundAmount)
	assert.Empty(t, stored.RefundReason)
	assert.Equal(t, 900.0, balance(t, f.riders, rider.ID))
	assert.Equal(t, 80.0, balance(t, f.drivers, driver.ID))

	partial := 50.0
	refunded, err := f.paymentSvc.RefundPayment(ctx, driver, payment.ID, &validators.RefundPaymentRequest{Reason: "overcharged", Amount: &partial})
	require.NoError(t, err)
	assert.Equal(t, 50.0, *refunded.RefundAmount)
	assert.Equal(t, 950.0, balance(t, f.riders, rider.ID))
	assert.Equal(t, 30.0, balance(t, f.drivers, driver.ID))
}

func TestRefundAmountCannotExceedPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rider, _, ride := settledRide(t, f, 100, 1000)
	payment := createPayment(t, f, rider, ride, models.PaymentMethodCash)
	_, err := f.paymentSvc.ProcessPayment(ctx, rider, payment.ID)
	require.NoError(t, err)

	tooMuch := 150.0
	_, err = f.paymentSvc.RefundPayment(ctx, rider, payment.ID, &validators.RefundPaymentRequest{Reason: "overcharged", Amount: &tooMuch})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.paymentSvc.GetPayment(ctx, f.addRider(0), payment.ID)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}
