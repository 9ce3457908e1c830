package booking_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingRepo "builderhub/database/repository/booking"
	"builderhub/models"
	"builderhub/services/booking"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// fakeBookingRepo is an in-memory BookingRepository with the same
// compare-and-set semantics as the Mongo implementation.
type fakeBookingRepo struct {
	mu       sync.Mutex
	byID     map[string]*models.Booking
	// forcedConflicts makes the next N UpdateState calls report a lost
	// race regardless of the stored state.
	forcedConflicts int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{byID: map[string]*models.Booking{}}
}

func (r *fakeBookingRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.CalendarEventRef != "" {
		for _, existing := range r.byID {
			if existing.BuilderID == b.BuilderID && existing.CalendarEventRef == b.CalendarEventRef {
				return bookingRepo.ErrDuplicateKey
			}
		}
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.LastTransitionAt = now
	clone := *b
	r.byID[b.ID] = &clone
	return nil
}

func (r *fakeBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byID[id]; ok {
		clone := *b
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeBookingRepo) GetByExternalKey(_ context.Context, builderID, calendarEventRef string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.BuilderID == builderID && b.CalendarEventRef == calendarEventRef && calendarEventRef != "" {
			clone := *b
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) GetByPaymentRef(_ context.Context, paymentRef string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.PaymentRef == paymentRef && paymentRef != "" {
			clone := *b
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) GetShellByCorrelationID(_ context.Context, builderID, correlationID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.BuilderID == builderID && b.CorrelationID == correlationID && b.CalendarEventRef == "" {
			clone := *b
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) UpdateState(_ context.Context, id string, expected models.BookingState, set bson.M) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forcedConflicts > 0 {
		r.forcedConflicts--
		return false, nil
	}

	b, ok := r.byID[id]
	if !ok || b.State != expected {
		return false, nil
	}

	for key, value := range set {
		switch key {
		case "state":
			b.State = value.(models.BookingState)
		case "payment_ref":
			b.PaymentRef = value.(string)
		case "last_error":
			b.LastError = value.(string)
		case "last_transition_at":
			b.LastTransitionAt = value.(time.Time)
		case "updated_at":
			b.UpdatedAt = value.(time.Time)
		default:
			return false, fmt.Errorf("fake repo: unexpected set field %q", key)
		}
	}
	return true, nil
}

func (r *fakeBookingRepo) AttachCalendarEvent(_ context.Context, id, eventRef, inviteeRef string, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byID[id]
	if !ok || b.CalendarEventRef != "" {
		return false, nil
	}
	b.CalendarEventRef = eventRef
	b.CalendarInviteeRef = inviteeRef
	b.StartTime = start
	b.EndTime = end
	b.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeBookingRepo) Claim(_ context.Context, id, clientID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byID[id]
	if !ok || b.ClientID != "" {
		return false, nil
	}
	b.ClientID = clientID
	return true, nil
}

func (r *fakeBookingRepo) ListPendingBefore(_ context.Context, cutoff time.Time, limit int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Booking
	for _, b := range r.byID {
		if b.State == models.BookingPaymentPending && b.LastTransitionAt.Before(cutoff) {
			out = append(out, *b)
			if limit > 0 && int64(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

// fakeSessionTypeRepo serves a fixed set of session types.
type fakeSessionTypeRepo struct {
	types map[string]*models.SessionType
}

func (r *fakeSessionTypeRepo) GetByID(_ context.Context, id string) (*models.SessionType, error) {
	if st, ok := r.types[id]; ok {
		clone := *st
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeSessionTypeRepo) GetByBuilder(_ context.Context, builderID string) ([]models.SessionType, error) {
	var out []models.SessionType
	for _, st := range r.types {
		if st.BuilderID == builderID && st.Active {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (r *fakeSessionTypeRepo) Create(_ context.Context, st *models.SessionType) error {
	r.types[st.ID] = st
	return nil
}

// fakeGateway is a scripted payment collaborator.
type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*models.CheckoutSession
	seq      int

	createErr   error
	retrieveErr error
	createCalls int

	// verify scripts the webhook verification result.
	verify func(payload []byte, signature string) (*models.PaymentWebhookEvent, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*models.CheckoutSession{}}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, params models.CheckoutParams) (*models.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}

	g.seq++
	sess := &models.CheckoutSession{
		SessionRef:  fmt.Sprintf("cs_test_%d", g.seq),
		RedirectURL: fmt.Sprintf("https://pay.example/%d", g.seq),
		Status:      models.CheckoutOpen,
		BookingID:   params.BookingID,
	}
	g.sessions[sess.SessionRef] = sess
	return sess, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, sessionRef string) (*models.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	if sess, ok := g.sessions[sessionRef]; ok {
		clone := *sess
		return &clone, nil
	}
	return nil, fmt.Errorf("no such session %s", sessionRef)
}

func (g *fakeGateway) VerifyWebhook(payload []byte, signature string) (*models.PaymentWebhookEvent, error) {
	if g.verify != nil {
		return g.verify(payload, signature)
	}
	return nil, fmt.Errorf("no verifier scripted")
}

func (g *fakeGateway) setStatus(sessionRef string, status models.CheckoutSessionStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sess, ok := g.sessions[sessionRef]; ok {
		sess.Status = status
	}
}

const (
	testBuilder     = "builder-1"
	freeSessionType = "st-free"
	paidSessionType = "st-paid"
)

func newTestService(repo *fakeBookingRepo, gw *fakeGateway) (*booking.DefaultLifecycleService, *fakeDeadLetter) {
	logger := zap.NewNop()
	dl := &fakeDeadLetter{}
	return &booking.DefaultLifecycleService{
		Bookings: repo,
		SessionTypes: &fakeSessionTypeRepo{types: map[string]*models.SessionType{
			freeSessionType: {ID: freeSessionType, BuilderID: testBuilder, Title: "Intro chat", Active: true, Currency: "usd"},
			paidSessionType: {ID: paidSessionType, BuilderID: testBuilder, Title: "Deep dive", PriceCents: 5000, Currency: "usd", Active: true},
		}},
		Gateway:  gw,
		Executor: &booking.TransitionExecutor{Repo: repo, DeadLetter: dl, Logger: logger},
		Logger:   logger,
	}, dl
}

// fakeDeadLetter records contested events.
type fakeDeadLetter struct {
	mu      sync.Mutex
	entries []string
}

func (d *fakeDeadLetter) EnqueueConflict(_ context.Context, bookingID string, ev booking.Event, detail string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, fmt.Sprintf("%s/%s", bookingID, ev.Kind))
	return nil
}
