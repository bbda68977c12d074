package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/config"
	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/internal/utils"
	"miniola/internal/validators"
	"miniola/pkg/logger"
	"miniola/pkg/sms"
)

// accountBook implements the shared wallet and identity operations over
// whatever accounts its owner exposes. The owner's mutex guards it.
type accountBook struct {
	mu     *sync.Mutex
	lookup func(id primitive.ObjectID) *models.Account
	all    func() []*models.Account
}

func (b accountBook) live(id primitive.ObjectID) *models.Account {
	a := b.lookup(id)
	if a == nil || a.IsDeleted() {
		return nil
	}
	return a
}

func (b accountBook) FindAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.all() {
		if a.Email == email && !a.IsDeleted() {
			c := *a
			return &c, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (b accountBook) ExistsByEmail(_ context.Context, email string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.all() {
		if a.Email == email && !a.IsDeleted() {
			return true, nil
		}
	}
	return false, nil
}

func (b accountBook) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.all() {
		if a.Phone == phone && !a.IsDeleted() {
			return true, nil
		}
	}
	return false, nil
}

func (b accountBook) CreditWallet(_ context.Context, id primitive.ObjectID, amount float64) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.live(id)
	if a == nil {
		return 0, interfaces.ErrNotFound
	}
	a.WalletBalance = utils.RoundMoney(a.WalletBalance + amount)
	return a.WalletBalance, nil
}

func (b accountBook) DebitWallet(_ context.Context, id primitive.ObjectID, amount float64) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.live(id)
	if a == nil {
		return 0, interfaces.ErrNotFound
	}
	if a.WalletBalance < amount {
		return 0, interfaces.ErrInsufficientFunds
	}
	a.WalletBalance = utils.RoundMoney(a.WalletBalance - amount)
	return a.WalletBalance, nil
}

func (b accountBook) TouchLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.live(id)
	if a == nil {
		return interfaces.ErrNotFound
	}
	a.LastLoginAt = &at
	return nil
}

func (b accountBook) SoftDelete(_ context.Context, id primitive.ObjectID, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.live(id)
	if a == nil {
		return interfaces.ErrNotFound
	}
	a.DeletedAt = &at
	return nil
}

type mockRiderRepo struct {
	accountBook
	mu     sync.Mutex
	riders map[primitive.ObjectID]*models.Rider
}

func newMockRiderRepo() *mockRiderRepo {
	r := &mockRiderRepo{riders: make(map[primitive.ObjectID]*models.Rider)}
	r.accountBook = accountBook{
		mu: &r.mu,
		lookup: func(id primitive.ObjectID) *models.Account {
			if rider, ok := r.riders[id]; ok {
				return &rider.Account
			}
			return nil
		},
		all: func() []*models.Account {
			out := make([]*models.Account, 0, len(r.riders))
			for _, rider := range r.riders {
				out = append(out, &rider.Account)
			}
			return out
		},
	}
	return r
}

func (r *mockRiderRepo) Create(_ context.Context, rider *models.Rider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.riders {
		if !existing.IsDeleted() && (existing.Email == rider.Email || existing.Phone == rider.Phone) {
			return interfaces.ErrDuplicate
		}
	}
	rider.ID = primitive.NewObjectID()
	rider.Role = models.RoleRider
	rider.CreatedAt = time.Now()
	c := *rider
	r.riders[rider.ID] = &c
	return nil
}

func (r *mockRiderRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Rider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rider, ok := r.riders[id]
	if !ok || rider.IsDeleted() {
		return nil, interfaces.ErrNotFound
	}
	c := *rider
	return &c, nil
}

func (r *mockRiderRepo) IncrementCompletedRides(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rider, ok := r.riders[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	rider.CompletedRides++
	return nil
}

type mockDriverRepo struct {
	accountBook
	mu      sync.Mutex
	drivers map[primitive.ObjectID]*models.Driver

	// ratingErr and claimErr, when set, fail ApplyRating and ClaimForRide.
	ratingErr error
	claimErr  error
}

func newMockDriverRepo() *mockDriverRepo {
	r := &mockDriverRepo{drivers: make(map[primitive.ObjectID]*models.Driver)}
	r.accountBook = accountBook{
		mu: &r.mu,
		lookup: func(id primitive.ObjectID) *models.Account {
			if d, ok := r.drivers[id]; ok {
				return &d.Account
			}
			return nil
		},
		all: func() []*models.Account {
			out := make([]*models.Account, 0, len(r.drivers))
			for _, d := range r.drivers {
				out = append(out, &d.Account)
			}
			return out
		},
	}
	return r
}

func copyDriver(d *models.Driver) *models.Driver {
	c := *d
	c.Badges = append([]models.Badge{}, d.Badges...)
	return &c
}

func (r *mockDriverRepo) liveDriver(id primitive.ObjectID) *models.Driver {
	d, ok := r.drivers[id]
	if !ok || d.IsDeleted() {
		return nil
	}
	return d
}

func (r *mockDriverRepo) matchable(d *models.Driver) bool {
	return !d.IsDeleted() && d.IsAvailable && d.KYCStatus == models.KYCStatusApproved && d.CurrentRide == nil
}

func (r *mockDriverRepo) Create(_ context.Context, driver *models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.drivers {
		if existing.IsDeleted() {
			continue
		}
		if existing.Email == driver.Email || existing.Phone == driver.Phone ||
			existing.LicenseNumber == driver.LicenseNumber || existing.Vehicle.Number == driver.Vehicle.Number {
			return interfaces.ErrDuplicate
		}
	}
	if driver.ID.IsZero() {
		driver.ID = primitive.NewObjectID()
	}
	driver.Role = models.RoleDriver
	driver.CreatedAt = time.Now()
	r.drivers[driver.ID] = copyDriver(driver)
	return nil
}

func (r *mockDriverRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.liveDriver(id)
	if d == nil {
		return nil, interfaces.ErrNotFound
	}
	return copyDriver(d), nil
}

func (r *mockDriverRepo) ExistsByLicense(_ context.Context, licenseNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drivers {
		if !d.IsDeleted() && d.LicenseNumber == licenseNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockDriverRepo) ExistsByVehicleNumber(_ context.Context, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drivers {
		if !d.IsDeleted() && d.Vehicle.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockDriverRepo) FindNearbyAvailable(_ context.Context, point models.GeoPoint, class models.RideClass, radiusKM float64, limit int) ([]*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type candidate struct {
		driver   *models.Driver
		distance float64
	}
	var found []candidate
	for _, d := range r.drivers {
		if !r.matchable(d) || d.Vehicle.Type != class || d.Location == nil {
			continue
		}
		dist := utils.CalculateDistance(point.Latitude(), point.Longitude(), d.Location.Latitude(), d.Location.Longitude())
		if dist <= radiusKM {
			found = append(found, candidate{driver: copyDriver(d), distance: dist})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].distance < found[j].distance })

	var out []*models.Driver
	for i := 0; i < len(found) && i < limit; i++ {
		out = append(out, found[i].driver)
	}
	return out, nil
}

func (r *mockDriverRepo) CountAvailable(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, d := range r.drivers {
		if r.matchable(d) {
			n++
		}
	}
	return n, nil
}

func (r *mockDriverRepo) ClaimForRide(_ context.Context, driverID, rideID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return r.claimErr
	}
	d := r.liveDriver(driverID)
	if d == nil {
		return interfaces.ErrNotFound
	}
	if !r.matchable(d) {
		return interfaces.ErrConflict
	}
	id := rideID
	d.CurrentRide = &id
	d.IsAvailable = false
	return nil
}

func (r *mockDriverRepo) ReleaseFromRide(_ context.Context, driverID, rideID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[driverID]
	if ok && d.CurrentRide != nil && *d.CurrentRide == rideID {
		d.CurrentRide = nil
		d.IsAvailable = true
	}
	return nil
}

func (r *mockDriverRepo) ToggleAvailability(_ context.Context, id primitive.ObjectID) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.liveDriver(id)
	if d == nil {
		return nil, interfaces.ErrNotFound
	}
	if d.CurrentRide != nil {
		return nil, interfaces.ErrConflict
	}
	d.IsAvailable = !d.IsAvailable
	return copyDriver(d), nil
}

func (r *mockDriverRepo) UpdateLocation(_ context.Context, id primitive.ObjectID, point models.GeoPoint, address string) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.liveDriver(id)
	if d == nil {
		return nil, interfaces.ErrNotFound
	}
	now := time.Now()
	d.Location = &point
	d.Address = address
	d.LastLocationUpdate = &now
	return copyDriver(d), nil
}

func (r *mockDriverRepo) UpdateKYCStatus(_ context.Context, id primitive.ObjectID, status models.KYCStatus) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.liveDriver(id)
	if d == nil {
		return nil, interfaces.ErrNotFound
	}
	d.KYCStatus = status
	return copyDriver(d), nil
}

func (r *mockDriverRepo) RecordCompletedRide(_ context.Context, id primitive.ObjectID, amount float64) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.liveDriver(id)
	if d == nil {
		return nil, interfaces.ErrNotFound
	}
	d.TotalEarnings = utils.RoundMoney(d.TotalEarnings + amount)
	d.TotalRides++
	d.Experience, d.Level = models.Progression(d.TotalRides)
	return copyDriver(d), nil
}

func (r *mockDriverRepo) AwardBadge(_ context.Context, id primitive.ObjectID, badge models.Badge) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.liveDriver(id)
	if d == nil {
		return false, interfaces.ErrNotFound
	}
	if d.HasBadge(badge.Name) {
		return false, nil
	}
	d.Badges = append(d.Badges, badge)
	return true, nil
}

func (r *mockDriverRepo) ApplyRating(_ context.Context, id primitive.ObjectID, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ratingErr != nil {
		return r.ratingErr
	}
	d := r.liveDriver(id)
	if d == nil {
		return interfaces.ErrNotFound
	}
	total := d.Rating*float64(d.TotalRatings) + float64(score)
	d.TotalRatings++
	d.Rating = total / float64(d.TotalRatings)
	return nil
}

type mockRideRepo struct {
	mu    sync.Mutex
	rides map[primitive.ObjectID]*models.Ride
}

func newMockRideRepo() *mockRideRepo {
	return &mockRideRepo{rides: make(map[primitive.ObjectID]*models.Ride)}
}

func copyRide(r *models.Ride) *models.Ride {
	c := *r
	return &c
}

func (r *mockRideRepo) Create(_ context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = time.Now()
	r.rides[ride.ID] = copyRide(ride)
	return nil
}

func (r *mockRideRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return copyRide(ride), nil
}

// enter applies change when the ride may move to `to` and cond holds.
func (r *mockRideRepo) enter(id primitive.ObjectID, to models.RideStatus, cond func(*models.Ride) bool, change func(*models.Ride)) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if !ride.Status.CanTransitionTo(to) || !cond(ride) {
		return nil, interfaces.ErrConflict
	}
	ride.Status = to
	change(ride)
	return copyRide(ride), nil
}

func (r *mockRideRepo) AssignDriver(_ context.Context, id, driverID primitive.ObjectID, at time.Time) (*models.Ride, error) {
	return r.enter(id, models.RideStatusAccepted,
		func(ride *models.Ride) bool { return ride.DriverID == nil },
		func(ride *models.Ride) {
			d := driverID
			ride.DriverID = &d
			ride.AcceptedAt = &at
		})
}

func (r *mockRideRepo) UnassignDriver(_ context.Context, id, driverID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	if ride.Status != models.RideStatusAccepted || !ride.IsAssignedTo(driverID) {
		return interfaces.ErrConflict
	}
	ride.Status = models.RideStatusRequested
	ride.DriverID = nil
	ride.AcceptedAt = nil
	return nil
}

func assignedTo(driverID primitive.ObjectID) func(*models.Ride) bool {
	return func(ride *models.Ride) bool { return ride.IsAssignedTo(driverID) }
}

func (r *mockRideRepo) MarkArrived(_ context.Context, id, driverID primitive.ObjectID, at time.Time) (*models.Ride, error) {
	return r.enter(id, models.RideStatusDriverArrived, assignedTo(driverID), func(ride *models.Ride) { ride.ArrivedAt = &at })
}

func (r *mockRideRepo) Start(_ context.Context, id, driverID primitive.ObjectID, at time.Time) (*models.Ride, error) {
	return r.enter(id, models.RideStatusInProgress, assignedTo(driverID), func(ride *models.Ride) { ride.StartTime = &at })
}

func (r *mockRideRepo) Complete(_ context.Context, id, driverID primitive.ObjectID, finalFare float64, endTime time.Time, actualMinutes int) (*models.Ride, error) {
	return r.enter(id, models.RideStatusCompleted, assignedTo(driverID), func(ride *models.Ride) {
		ride.Fare.FinalFare = &finalFare
		ride.EndTime = &endTime
		ride.Duration.Actual = &actualMinutes
	})
}

func (r *mockRideRepo) Cancel(_ context.Context, id primitive.ObjectID, reason string, actor models.CancelActor, at time.Time) (*models.Ride, error) {
	return r.enter(id, models.RideStatusCancelled,
		func(*models.Ride) bool { return true },
		func(ride *models.Ride) {
			ride.CancellationReason = reason
			ride.CancelledBy = actor
			ride.CancelledAt = &at
		})
}

func (r *mockRideRepo) Rate(_ context.Context, id, riderID primitive.ObjectID, rating models.RideRating) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if ride.Status != models.RideStatusCompleted || ride.RiderID != riderID || ride.Rating != nil {
		return nil, interfaces.ErrConflict
	}
	ride.Rating = &rating
	return copyRide(ride), nil
}

func (r *mockRideRepo) ClearRating(_ context.Context, id primitive.ObjectID, ratedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	if ride.Rating == nil || !ride.Rating.RatedAt.Equal(ratedAt) {
		return interfaces.ErrConflict
	}
	ride.Rating = nil
	return nil
}

func (r *mockRideRepo) UpdatePaymentStatus(_ context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	ride.PaymentStatus = status
	return nil
}

func (r *mockRideRepo) list(match func(*models.Ride) bool, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.Ride
	for _, ride := range r.rides {
		if match(ride) {
			all = append(all, copyRide(ride))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	skip, limit := params.GetSkip(), params.GetLimit()
	if skip > len(all) {
		skip = len(all)
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], int64(len(all)), nil
}

func (r *mockRideRepo) ListByRider(_ context.Context, riderID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return r.list(func(ride *models.Ride) bool { return ride.RiderID == riderID }, params)
}

func (r *mockRideRepo) ListByDriver(_ context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return r.list(func(ride *models.Ride) bool { return ride.IsAssignedTo(driverID) }, params)
}

func (r *mockRideRepo) ListOpenNear(_ context.Context, point models.GeoPoint, class models.RideClass, radiusKM float64, limit int) ([]*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Ride
	for _, ride := range r.rides {
		if ride.Status != models.RideStatusRequested || ride.DriverID != nil || ride.RideClass != class {
			continue
		}
		loc := ride.Pickup.Location
		if utils.CalculateDistance(point.Latitude(), point.Longitude(), loc.Latitude(), loc.Longitude()) <= radiusKM {
			out = append(out, copyRide(ride))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *mockRideRepo) CountActive(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, ride := range r.rides {
		if !ride.Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}

type mockPaymentRepo struct {
	mu       sync.Mutex
	payments map[primitive.ObjectID]*models.Payment
	// receiptCollisions makes the next n inserts fail as duplicate receipts.
	receiptCollisions int
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[primitive.ObjectID]*models.Payment)}
}

func copyPayment(p *models.Payment) *models.Payment {
	c := *p
	return &c
}

func (r *mockPaymentRepo) Create(_ context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.receiptCollisions > 0 {
		r.receiptCollisions--
		return interfaces.ErrDuplicate
	}
	for _, existing := range r.payments {
		if existing.RideID == payment.RideID || existing.ReceiptNumber == payment.ReceiptNumber {
			return interfaces.ErrDuplicate
		}
	}
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = time.Now()
	r.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (r *mockPaymentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return copyPayment(p), nil
}

func (r *mockPaymentRepo) GetByRideID(_ context.Context, rideID primitive.ObjectID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.RideID == rideID {
			return copyPayment(p), nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *mockPaymentRepo) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.PaymentStatus, update interfaces.PaymentUpdate) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if p.Status != from {
		return nil, interfaces.ErrConflict
	}
	p.Status = to
	if update.PlatformFee != nil {
		p.PlatformFee = *update.PlatformFee
	}
	if update.DriverEarnings != nil {
		p.DriverEarnings = *update.DriverEarnings
	}
	if update.TransactionID != "" {
		p.TransactionID = update.TransactionID
	}
	if update.FailureReason != "" {
		p.FailureReason = update.FailureReason
	}
	if update.RefundAmount != nil {
		p.RefundAmount = update.RefundAmount
	}
	if update.RefundReason != "" {
		p.RefundReason = update.RefundReason
	}
	if update.ProcessedAt != nil {
		p.ProcessedAt = update.ProcessedAt
	}
	if update.RefundedAt != nil {
		p.RefundedAt = update.RefundedAt
	}
	if update.ClearRefund {
		p.RefundAmount, p.RefundReason, p.RefundedAt = nil, "", nil
	}
	return copyPayment(p), nil
}

type mockRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func newMockRefreshTokenRepo() *mockRefreshTokenRepo {
	return &mockRefreshTokenRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (r *mockRefreshTokenRepo) Create(_ context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.TokenHash]; ok {
		return interfaces.ErrDuplicate
	}
	token.ID = primitive.NewObjectID()
	c := *token
	r.tokens[token.TokenHash] = &c
	return nil
}

func (r *mockRefreshTokenRepo) GetByHash(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *mockRefreshTokenRepo) Revoke(_ context.Context, tokenHash, reason, replacedByHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok {
		return interfaces.ErrNotFound
	}
	if t.RevokedAt != nil {
		return interfaces.ErrConflict
	}
	t.RevokedAt = &at
	t.RevokedReason = reason
	t.ReplacedByHash = replacedByHash
	return nil
}

func (r *mockRefreshTokenRepo) RevokeAllForUser(_ context.Context, userID primitive.ObjectID, reason string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &at
			t.RevokedReason = reason
			n++
		}
	}
	return n, nil
}

func (r *mockRefreshTokenRepo) activeFor(userID primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			n++
		}
	}
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, message)
	return nil
}

type recordingSMS struct {
	mu       sync.Mutex
	messages []*sms.SMSRequest
}

func (s *recordingSMS) SendSMS(_ context.Context, req *sms.SMSRequest) (*sms.SMSResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, req)
	return &sms.SMSResponse{MessageID: "test", Status: "sent"}, nil
}

// fixture wires every service over fresh in-memory repositories.
type fixture struct {
	riders   *mockRiderRepo
	drivers  *mockDriverRepo
	rides    *mockRideRepo
	payments *mockPaymentRepo
	tokens   *mockRefreshTokenRepo
	events   *recordingPublisher
	sms      *recordingSMS

	rideConfig *config.RideConfig
	security   *config.SecurityConfig

	fare         FareService
	matcher      MatchingService
	driverSvc    DriverService
	rideSvc      RideService
	paymentSvc   PaymentService
	tokenSvc     TokenService
	authSvc      AuthService
	accountSvc   AccountService
	notification NotificationService
}

func newFixture() *fixture {
	f := &fixture{
		riders:     newMockRiderRepo(),
		drivers:    newMockDriverRepo(),
		rides:      newMockRideRepo(),
		payments:   newMockPaymentRepo(),
		tokens:     newMockRefreshTokenRepo(),
		events:     &recordingPublisher{},
		sms:        &recordingSMS{},
		rideConfig: config.DefaultRideConfig(),
		security: &config.SecurityConfig{
			JWTSecret:          "test-secret",
			JWTAccessTokenTTL:  15 * time.Minute,
			JWTRefreshTokenTTL: 7 * 24 * time.Hour,
			BcryptCost:         4,
			PasswordMinLength:  6,
		},
	}
	log := logger.NewDiscard()

	f.notification = NewNotificationService(f.events, "ride_events", f.sms, "MINIOLA", f.riders, log)
	f.fare = NewFareService(NewFareCalculator(DefaultRateCards, f.rideConfig.GroupDiscountRate), f.rides, f.drivers, f.rideConfig, "INR", log)
	f.matcher = NewMatchingService(f.drivers, f.rides, f.rideConfig, log)
	f.driverSvc = NewDriverService(f.drivers, log)
	f.rideSvc = NewRideService(f.rides, f.riders, f.drivers, f.fare, f.matcher, f.driverSvc, f.notification, f.rideConfig, log)
	f.paymentSvc = NewPaymentService(f.payments, f.rides, f.riders, f.drivers, f.notification, f.rideConfig, log)
	f.tokenSvc = NewTokenService(f.tokens, f.security, "MiniOla", log)
	f.authSvc = NewAuthService(f.riders, f.drivers, f.tokenSvc, f.security, log)
	f.accountSvc = NewAccountService(f.riders, f.drivers, f.tokenSvc, log)
	return f
}

var (
	pickup  = validators.LocationRequest{Latitude: 12.9716, Longitude: 77.5946, Address: "MG Road"}
	dropoff = validators.LocationRequest{Latitude: 12.9352, Longitude: 77.6245, Address: "Koramangala"}
)

func (f *fixture) addRider(balance float64) models.Principal {
	rider := &models.Rider{Account: models.Account{
		Name:          "Asha",
		Email:         primitive.NewObjectID().Hex() + "@example.com",
		Phone:         "+91" + primitive.NewObjectID().Hex()[:10],
		WalletBalance: balance,
		IsActive:      true,
	}}
	if err := f.riders.Create(context.Background(), rider); err != nil {
		panic(err)
	}
	return models.Principal{ID: rider.ID, Role: models.RoleRider}
}

// addDriver registers an approved, online driver of class at lat/lng.
func (f *fixture) addDriver(class models.RideClass, lat, lng float64) models.Principal {
	loc := models.NewGeoPoint(lat, lng)
	id := primitive.NewObjectID()
	driver := &models.Driver{
		Account: models.Account{
			ID:       id,
			Name:     "Ravi",
			Email:    id.Hex() + "@example.com",
			Phone:    "+91" + id.Hex()[:10],
			Location: &loc,
			IsActive: true,
		},
		Vehicle:       models.Vehicle{Type: class, Make: "Maruti", Model: "Dzire", Number: "KA01" + id.Hex()[:6]},
		LicenseNumber: "DL" + id.Hex()[:10],
		KYCStatus:     models.KYCStatusApproved,
		IsAvailable:   true,
		Level:         1,
		Badges:        []models.Badge{},
	}
	if err := f.drivers.Create(context.Background(), driver); err != nil {
		panic(err)
	}
	return models.Principal{ID: driver.ID, Role: models.RoleDriver}
}

func rideRequest(class models.RideClass) *validators.RideRequest {
	return &validators.RideRequest{FareEstimateRequest: validators.FareEstimateRequest{
		Pickup:    pickup,
		Dropoff:   dropoff,
		RideClass: string(class),
	}}
}
