package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/models"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
)

type statusDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdatePaymentStatus(ctx context.Context, id, paymentStatus string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Actor identifies the admin performing a mutation, for the audit trail.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// StatusService applies administrative status corrections. Transitions are
// unrestricted within the respective enums; FAILED and REFUNDED are reachable
// only through this path, never through payment confirmation.
type StatusService struct {
	repo   statusDirectory
	audit  auditRecorder
	logger *zap.Logger
}

// NewStatusService constructs the status service.
func NewStatusService(repo statusDirectory, audit auditRecorder, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{repo: repo, audit: audit, logger: logger}
}

// SetStatus sets the review status of a registration.
func (s *StatusService) SetStatus(ctx context.Context, id, status string, actor Actor) (*models.Registration, error) {
	if !models.ValidStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status")
	}
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	old := reg.Status
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	reg.Status = status
	s.record(ctx, models.AuditActionStatusChange, id, actor,
		map[string]string{"status": old},
		map[string]string{"status": status})
	s.logger.Info("status updated",
		zap.String("registration_id", id),
		zap.String("from", old),
		zap.String("to", status))
	return reg, nil
}

// SetPaymentStatus sets the payment status of a registration. This is the
// reconciliation path for refunds and failed charges observed out of band; it
// does not touch order-id bookkeeping.
func (s *StatusService) SetPaymentStatus(ctx context.Context, id, status string, actor Actor) (*models.Registration, error) {
	if !models.ValidPaymentStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid payment status")
	}
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	old := reg.PaymentStatus
	if err := s.repo.UpdatePaymentStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment status")
	}
	reg.PaymentStatus = status
	s.record(ctx, models.AuditActionPaymentStatusChange, id, actor,
		map[string]string{"payment_status": old},
		map[string]string{"payment_status": status})
	s.logger.Info("payment status updated",
		zap.String("registration_id", id),
		zap.String("from", old),
		zap.String("to", status))
	return reg, nil
}

func (s *StatusService) load(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return reg, nil
}

// record writes the audit entry. Audit failures are logged, not surfaced; the
// mutation itself already committed.
func (s *StatusService) record(ctx context.Context, action, resourceID string, actor Actor, oldValues, newValues map[string]string) {
	if s.audit == nil {
		return
	}
	oldJSON, _ := json.Marshal(oldValues)
	newJSON, _ := json.Marshal(newValues)
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "registrations",
		ResourceID: &resourceID,
		OldValues:  oldJSON,
		NewValues:  newJSON,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
	if actor.UserID != "" {
		entry.UserID = &actor.UserID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
