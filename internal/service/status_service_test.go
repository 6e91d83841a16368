package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/models"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
)

type mockStatusRepo struct {
	registration *models.Registration
	findErr      error
	updateErr    error

	statusUpdates  [][2]string
	paymentUpdates [][2]string
}

func (m *mockStatusRepo) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	reg := *m.registration
	return &reg, nil
}

func (m *mockStatusRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.statusUpdates = append(m.statusUpdates, [2]string{id, status})
	return nil
}

func (m *mockStatusRepo) UpdatePaymentStatus(ctx context.Context, id, paymentStatus string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.paymentUpdates = append(m.paymentUpdates, [2]string{id, paymentStatus})
	return nil
}

type mockAudit struct {
	entries []*models.AuditLog
	err     error
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, log)
	return nil
}

func TestStatusServiceSetStatus(t *testing.T) {
	repo := &mockStatusRepo{registration: pendingRegistration()}
	audit := &mockAudit{}
	svc := NewStatusService(repo, audit, zap.NewNop())

	reg, err := svc.SetStatus(context.Background(), "reg-1", models.StatusApproved, Actor{UserID: "admin-1", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, reg.Status)
	require.Len(t, repo.statusUpdates, 1)
	assert.Equal(t, [2]string{"reg-1", models.StatusApproved}, repo.statusUpdates[0])

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, models.AuditActionStatusChange, entry.Action)
	assert.Equal(t, "admin-1", *entry.UserID)
	assert.JSONEq(t, `{"status":"PENDING"}`, string(entry.OldValues))
	assert.JSONEq(t, `{"status":"APPROVED"}`, string(entry.NewValues))
}

func TestStatusServiceSetStatusRejectsUnknownValue(t *testing.T) {
	repo := &mockStatusRepo{registration: pendingRegistration()}
	svc := NewStatusService(repo, nil, zap.NewNop())

	_, err := svc.SetStatus(context.Background(), "reg-1", "WAITLISTED", Actor{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.statusUpdates)
}

func TestStatusServiceSetStatusNotFound(t *testing.T) {
	repo := &mockStatusRepo{findErr: sql.ErrNoRows}
	svc := NewStatusService(repo, nil, zap.NewNop())

	_, err := svc.SetStatus(context.Background(), "missing", models.StatusRejected, Actor{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStatusServiceSetPaymentStatusRefund(t *testing.T) {
	reg := pendingRegistration()
	reg.PaymentStatus = models.PaymentStatusCompleted
	repo := &mockStatusRepo{registration: reg}
	audit := &mockAudit{}
	svc := NewStatusService(repo, audit, zap.NewNop())

	updated, err := svc.SetPaymentStatus(context.Background(), "reg-1", models.PaymentStatusRefunded, Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, updated.PaymentStatus)
	require.Len(t, repo.paymentUpdates, 1)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionPaymentStatusChange, audit.entries[0].Action)
	assert.JSONEq(t, `{"payment_status":"COMPLETED"}`, string(audit.entries[0].OldValues))
	assert.JSONEq(t, `{"payment_status":"REFUNDED"}`, string(audit.entries[0].NewValues))
}

func TestStatusServiceSetPaymentStatusRejectsUnknownValue(t *testing.T) {
	repo := &mockStatusRepo{registration: pendingRegistration()}
	svc := NewStatusService(repo, nil, zap.NewNop())

	_, err := svc.SetPaymentStatus(context.Background(), "reg-1", "CHARGEBACK", Actor{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestStatusServiceAuditFailureDoesNotSurface(t *testing.T) {
	repo := &mockStatusRepo{registration: pendingRegistration()}
	audit := &mockAudit{err: errors.New("audit table down")}
	svc := NewStatusService(repo, audit, zap.NewNop())

	_, err := svc.SetStatus(context.Background(), "reg-1", models.StatusApproved, Actor{})
	assert.NoError(t, err, "the mutation committed; audit failure is logged only")
}
