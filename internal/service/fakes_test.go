package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sefazor/coaching-backend/pkg/email"
	"github.com/sefazor/coaching-backend/pkg/payment"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) record(kind, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, kind+":"+to)
	return nil
}

func (m *fakeMailer) Go(send func()) { go send() }

func (m *fakeMailer) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func (m *fakeMailer) SendWelcomeEmail(to, fullName string) error { return m.record("welcome", to) }
func (m *fakeMailer) SendVerificationEmail(to, fullName, token string) error {
	return m.record("verify", to)
}
func (m *fakeMailer) SendPasswordResetEmail(to, token string) error { return m.record("reset", to) }
func (m *fakeMailer) SendCoachApprovedEmail(to, fullName string) error {
	return m.record("coach_approved", to)
}
func (m *fakeMailer) SendCoachRejectedEmail(to, fullName, reason string) error {
	return m.record("coach_rejected", to)
}
func (m *fakeMailer) SendSessionBookedEmail(e email.SessionEmail) error {
	return m.record("session_booked", e.To)
}
func (m *fakeMailer) SendSessionRescheduledEmail(e email.SessionEmail) error {
	return m.record("session_rescheduled", e.To)
}
func (m *fakeMailer) SendSessionCancelledEmail(e email.SessionEmail) error {
	return m.record("session_cancelled", e.To)
}
func (m *fakeMailer) SendEnrollmentConfirmedEmail(to, fullName, courseTitle string, childCount int, credits, balance string) error {
	return m.record("enrollment_confirmed", to)
}
func (m *fakeMailer) SendCreditPurchaseEmail(to, fullName, packageName, credits, bonus, balance string) error {
	return m.record("credit_purchase", to)
}

type fakeGateway struct {
	mu       sync.Mutex
	seq      int
	intents  map[string]*payment.Intent
	refunded []string
	failNext bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: make(map[string]*payment.Intent)}
}

func (g *fakeGateway) CreatePaymentIntent(amount int64, currency, receiptEmail string, metadata map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNext {
		g.failNext = false
		return nil, errors.New("stripe unavailable")
	}
	g.seq++
	intent := &payment.Intent{
		ID:           fmt.Sprintf("pi_test_%d", g.seq),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", g.seq),
		Amount:       amount,
		Currency:     currency,
		Status:       "requires_payment_method",
		Metadata:     metadata,
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *fakeGateway) GetPaymentIntent(id string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	cp := *intent
	return &cp, nil
}

func (g *fakeGateway) SetStatus(id, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = status
}

func (g *fakeGateway) Refund(paymentIntentID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunded = append(g.refunded, paymentIntentID)
	return "re_" + paymentIntentID, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) PublicURL(key string) string { return "https://cdn.test/" + key }

func (s *fakeStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type fakeImages struct {
	deleted  []string
	metadata map[string]string
}

func (f *fakeImages) Upload(ctx context.Context, r io.Reader, filename string, metadata map[string]string) (string, []string, error) {
	f.metadata = metadata
	return "img-" + filename, []string{"https://imagedelivery.test/img-" + filename + "/public"}, nil
}
func (f *fakeImages) Delete(ctx context.Context, imageID string) error {
	f.deleted = append(f.deleted, imageID)
	return nil
}
func (f *fakeImages) GetPublicURL(imageID string) string {
	return "https://imagedelivery.test/" + imageID + "/public"
}
func (f *fakeImages) GetThumbnailURL(imageID string) string {
	return "https://imagedelivery.test/" + imageID + "/thumbnail"
}

type fakeCaptcha struct {
	enabled bool
	ok      bool
}

func (c fakeCaptcha) Enabled() bool { return c.enabled }
func (c fakeCaptcha) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if !c.enabled {
		return true, nil
	}
	return c.ok, nil
}

// fixedClock returns a settable clock for services that take `now`.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// assertStatus fails unless err is an *AppError with the given status.
func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.Status, appErr.Message)
}
