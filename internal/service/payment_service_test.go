package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/gateway"
	"github.com/ihu-online/admissions-api/internal/models"
	"github.com/ihu-online/admissions-api/pkg/config"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
)

type mockPaymentRepo struct {
	registration *models.Registration
	findErr      error

	completeFirst bool
	completeErr   error
	completions   [][2]string
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.registration, nil
}

func (m *mockPaymentRepo) CompletePayment(ctx context.Context, id, orderID string) (bool, error) {
	m.completions = append(m.completions, [2]string{id, orderID})
	if m.completeErr != nil {
		return false, m.completeErr
	}
	return m.completeFirst, nil
}

type mockGateway struct {
	session *gateway.CheckoutSession
	err     error
	lastReq gateway.CheckoutRequest
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

type mockAttemptStore struct {
	saved   []*models.PaymentAttempt
	deleted []string
	stored  *models.PaymentAttempt
}

func (m *mockAttemptStore) SaveAttempt(ctx context.Context, attempt *models.PaymentAttempt, ttl time.Duration) error {
	m.saved = append(m.saved, attempt)
	return nil
}

func (m *mockAttemptStore) FindAttempt(ctx context.Context, registrationID string) (*models.PaymentAttempt, error) {
	if m.stored == nil {
		return nil, appErrors.ErrCacheMiss
	}
	return m.stored, nil
}

func (m *mockAttemptStore) DeleteAttempt(ctx context.Context, registrationID string) error {
	m.deleted = append(m.deleted, registrationID)
	return nil
}

type mockReceipts struct {
	enqueued []string
}

func (m *mockReceipts) EnqueueReceipt(registrationID string) error {
	m.enqueued = append(m.enqueued, registrationID)
	return nil
}

func paymentTestConfig() config.PaymentConfig {
	return config.PaymentConfig{
		Currency:           "USD",
		AmountCents:        map[string]int64{"undergraduate": 7500},
		DefaultAmountCents: 10000,
		WebhookSecret:      "hook-secret",
		TestMode:           true,
		AttemptTTL:         time.Hour,
	}
}

func pendingRegistration() *models.Registration {
	return &models.Registration{
		ID:            "reg-1",
		Email:         "a@b.com",
		CourseType:    "undergraduate",
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
}

func TestPaymentServiceOpenAttempt(t *testing.T) {
	repo := &mockPaymentRepo{registration: pendingRegistration()}
	gw := &mockGateway{session: &gateway.CheckoutSession{SessionID: "sess-1", CheckoutURL: "https://pay/sess-1"}}
	attempts := &mockAttemptStore{}
	svc := NewPaymentService(repo, gw, attempts, nil, nil, paymentTestConfig(), zap.NewNop())

	res, err := svc.OpenAttempt(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7500), res.AmountCents, "amount comes from the course schedule")
	assert.Equal(t, "sess-1", res.SessionID)
	assert.Equal(t, "reg-1", gw.lastReq.ReferenceID)
	require.Len(t, attempts.saved, 1)
	assert.Equal(t, "sess-1", attempts.saved[0].SessionID)
}

func TestPaymentServiceOpenAttemptFallsBackToDefaultAmount(t *testing.T) {
	reg := pendingRegistration()
	reg.CourseType = "certificate"
	repo := &mockPaymentRepo{registration: reg}
	gw := &mockGateway{session: &gateway.CheckoutSession{SessionID: "sess-2"}}
	svc := NewPaymentService(repo, gw, nil, nil, nil, paymentTestConfig(), zap.NewNop())

	res, err := svc.OpenAttempt(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), res.AmountCents)
}

func TestPaymentServiceOpenAttemptRejectsCompleted(t *testing.T) {
	reg := pendingRegistration()
	reg.PaymentStatus = models.PaymentStatusCompleted
	repo := &mockPaymentRepo{registration: reg}
	svc := NewPaymentService(repo, &mockGateway{}, nil, nil, nil, paymentTestConfig(), zap.NewNop())

	_, err := svc.OpenAttempt(context.Background(), "reg-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestPaymentServiceOpenAttemptNotFound(t *testing.T) {
	repo := &mockPaymentRepo{findErr: sql.ErrNoRows}
	svc := NewPaymentService(repo, &mockGateway{}, nil, nil, nil, paymentTestConfig(), zap.NewNop())

	_, err := svc.OpenAttempt(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestPaymentServiceCompleteFirstCompletion(t *testing.T) {
	repo := &mockPaymentRepo{completeFirst: true}
	attempts := &mockAttemptStore{}
	receipts := &mockReceipts{}
	svc := NewPaymentService(repo, &mockGateway{}, attempts, receipts, nil, paymentTestConfig(), zap.NewNop())

	err := svc.Complete(context.Background(), "reg-1", "order-9")
	require.NoError(t, err)
	assert.Equal(t, []string{"reg-1"}, receipts.enqueued)
	assert.Equal(t, []string{"reg-1"}, attempts.deleted)
}

func TestPaymentServiceCompleteIdempotentReplay(t *testing.T) {
	repo := &mockPaymentRepo{completeFirst: false}
	receipts := &mockReceipts{}
	svc := NewPaymentService(repo, &mockGateway{}, nil, receipts, nil, paymentTestConfig(), zap.NewNop())

	err := svc.Complete(context.Background(), "reg-1", "order-9")
	require.NoError(t, err)
	assert.Empty(t, receipts.enqueued, "a replayed completion must not re-enqueue the receipt")
}

func TestPaymentServiceCompleteConflicting(t *testing.T) {
	repo := &mockPaymentRepo{completeErr: appErrors.ErrConflictingCompletion}
	receipts := &mockReceipts{}
	svc := NewPaymentService(repo, &mockGateway{}, nil, receipts, nil, paymentTestConfig(), zap.NewNop())

	err := svc.Complete(context.Background(), "reg-1", "other-order")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflictingCompletion))
	assert.Empty(t, receipts.enqueued)
}

func TestPaymentServiceCompleteTransientFailure(t *testing.T) {
	repo := &mockPaymentRepo{completeErr: errors.New("connection reset")}
	svc := NewPaymentService(repo, &mockGateway{}, nil, nil, nil, paymentTestConfig(), zap.NewNop())

	err := svc.Complete(context.Background(), "reg-1", "order-9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPaymentConfirmation))
}

func TestPaymentServiceCompleteRequiresIDs(t *testing.T) {
	svc := NewPaymentService(&mockPaymentRepo{}, &mockGateway{}, nil, nil, nil, paymentTestConfig(), zap.NewNop())

	err := svc.Complete(context.Background(), "reg-1", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestPaymentServiceCompleteTest(t *testing.T) {
	repo := &mockPaymentRepo{completeFirst: true}
	svc := NewPaymentService(repo, &mockGateway{}, nil, nil, nil, paymentTestConfig(), zap.NewNop())

	orderID, err := svc.CompleteTest(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(orderID, "TEST-"))
	require.Len(t, repo.completions, 1)
	assert.Equal(t, orderID, repo.completions[0][1])
}

func TestPaymentServiceCompleteTestDisabled(t *testing.T) {
	cfg := paymentTestConfig()
	cfg.TestMode = false
	svc := NewPaymentService(&mockPaymentRepo{}, &mockGateway{}, nil, nil, nil, cfg, zap.NewNop())

	_, err := svc.CompleteTest(context.Background(), "reg-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTestModeDisabled))
}

func TestPaymentServiceWebhook(t *testing.T) {
	repo := &mockPaymentRepo{completeFirst: true}
	cfg := paymentTestConfig()
	svc := NewPaymentService(repo, &mockGateway{}, nil, nil, nil, cfg, zap.NewNop())

	body, err := json.Marshal(map[string]string{
		"type":        "payment.completed",
		"referenceId": "reg-1",
		"orderId":     "order-7",
	})
	require.NoError(t, err)

	sig := gateway.Sign(cfg.WebhookSecret, body)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	require.Len(t, repo.completions, 1)
	assert.Equal(t, [2]string{"reg-1", "order-7"}, repo.completions[0])
}

func TestPaymentServiceWebhookRejectsBadSignature(t *testing.T) {
	repo := &mockPaymentRepo{}
	svc := NewPaymentService(repo, &mockGateway{}, nil, nil, nil, paymentTestConfig(), zap.NewNop())

	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "deadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidSignature))
	assert.Empty(t, repo.completions)
}

func TestPaymentServiceWebhookIgnoresOtherEvents(t *testing.T) {
	repo := &mockPaymentRepo{}
	cfg := paymentTestConfig()
	svc := NewPaymentService(repo, &mockGateway{}, nil, nil, nil, cfg, zap.NewNop())

	body := []byte(`{"type":"payment.failed","referenceId":"reg-1"}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, gateway.Sign(cfg.WebhookSecret, body)))
	assert.Empty(t, repo.completions)
}
