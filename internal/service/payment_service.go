package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/dto"
	"github.com/ihu-online/admissions-api/internal/gateway"
	"github.com/ihu-online/admissions-api/internal/models"
	"github.com/ihu-online/admissions-api/pkg/config"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
)

type paymentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	CompletePayment(ctx context.Context, id, orderID string) (bool, error)
}

type checkoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error)
}

type attemptStore interface {
	SaveAttempt(ctx context.Context, attempt *models.PaymentAttempt, ttl time.Duration) error
	FindAttempt(ctx context.Context, registrationID string) (*models.PaymentAttempt, error)
	DeleteAttempt(ctx context.Context, registrationID string) error
}

type receiptEnqueuer interface {
	EnqueueReceipt(registrationID string) error
}

// PaymentService orchestrates the payment lifecycle of a registration:
// opening a checkout attempt, confirming it through the gateway callback or
// the test path, and attaching the external order id exactly once.
type PaymentService struct {
	repo     paymentDirectory
	gateway  checkoutGateway
	attempts attemptStore
	receipts receiptEnqueuer
	metrics  *MetricsService
	cfg      config.PaymentConfig
	logger   *zap.Logger
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo paymentDirectory, gw checkoutGateway, attempts attemptStore, receipts receiptEnqueuer, metrics *MetricsService, cfg config.PaymentConfig, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, gateway: gw, attempts: attempts, receipts: receipts, metrics: metrics, cfg: cfg, logger: logger}
}

// feeFor resolves the application fee from the configured schedule.
func feeFor(cfg config.PaymentConfig, courseType string) int64 {
	if amount, ok := cfg.AmountCents[courseType]; ok {
		return amount
	}
	return cfg.DefaultAmountCents
}

// OpenAttempt opens a checkout session for the registration. The persisted
// record is not mutated; the attempt lives in the attempt store until it is
// confirmed or superseded by a later attempt. An attempt has no business
// expiry: an unconfirmed registration simply stays payment-pending.
func (s *PaymentService) OpenAttempt(ctx context.Context, registrationID string) (*dto.OpenAttemptResponse, error) {
	reg, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if reg.PaymentStatus == models.PaymentStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment already completed")
	}

	amount := feeFor(s.cfg, reg.CourseType)
	session, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
		ReferenceID: reg.ID,
		AmountCents: amount,
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("Application fee (%s)", reg.CourseType),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentConfirmation.Code, appErrors.ErrPaymentConfirmation.Status, "failed to open checkout session")
	}

	attempt := &models.PaymentAttempt{
		RegistrationID: reg.ID,
		SessionID:      session.SessionID,
		CheckoutURL:    session.CheckoutURL,
		AmountCents:    amount,
		Currency:       s.cfg.Currency,
		OpenedAt:       time.Now().UTC(),
	}
	if s.attempts != nil {
		if err := s.attempts.SaveAttempt(ctx, attempt, s.cfg.AttemptTTL); err != nil {
			// The attempt record is bookkeeping; the session already exists.
			s.logger.Warn("failed to store payment attempt", zap.String("registration_id", reg.ID), zap.Error(err))
		}
	}
	s.metrics.RecordAttemptOpened()

	return &dto.OpenAttemptResponse{
		RegistrationID: reg.ID,
		SessionID:      session.SessionID,
		CheckoutURL:    session.CheckoutURL,
		AmountCents:    amount,
		Currency:       s.cfg.Currency,
	}, nil
}

// Complete attaches the external order id and marks the payment completed.
// Idempotent for a matching order id; a different order id on an already
// completed registration is reported as a conflicting completion and the
// original stands. Single-shot: no retry or backoff here, the caller may
// retry on transient failure.
func (s *PaymentService) Complete(ctx context.Context, registrationID, externalOrderID string) error {
	if registrationID == "" || externalOrderID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "registration id and order id required")
	}

	first, err := s.repo.CompletePayment(ctx, registrationID, externalOrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		if errors.Is(err, appErrors.ErrConflictingCompletion) {
			s.metrics.RecordConflictingCompletion()
			s.logger.Warn("conflicting payment completion",
				zap.String("registration_id", registrationID),
				zap.String("order_id", externalOrderID))
			return err
		}
		return appErrors.Wrap(err, appErrors.ErrPaymentConfirmation.Code, appErrors.ErrPaymentConfirmation.Status, "payment confirmation failed")
	}

	if first {
		s.metrics.RecordPaymentCompleted()
		s.logger.Info("payment completed",
			zap.String("registration_id", registrationID),
			zap.String("order_id", externalOrderID))
		if s.attempts != nil {
			if err := s.attempts.DeleteAttempt(ctx, registrationID); err != nil {
				s.logger.Warn("failed to clear payment attempt", zap.String("registration_id", registrationID), zap.Error(err))
			}
		}
		if s.receipts != nil {
			if err := s.receipts.EnqueueReceipt(registrationID); err != nil {
				s.logger.Warn("failed to enqueue receipt", zap.String("registration_id", registrationID), zap.Error(err))
			}
		}
	}
	return nil
}

// CompleteTest synthesizes a time-derived order id and converges on the same
// completion contract as the gateway path. Available outside production only.
func (s *PaymentService) CompleteTest(ctx context.Context, registrationID string) (string, error) {
	if !s.cfg.TestMode {
		return "", appErrors.ErrTestModeDisabled
	}
	orderID := fmt.Sprintf("TEST-%d", time.Now().UnixNano())
	if err := s.Complete(ctx, registrationID, orderID); err != nil {
		return "", err
	}
	return orderID, nil
}

// HandleWebhook verifies the provider signature over the raw body and applies
// completion events. Unknown event types are acknowledged without effect.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !gateway.VerifySignature(s.cfg.WebhookSecret, body, signature) {
		return appErrors.ErrInvalidSignature
	}
	var event dto.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook payload")
	}
	if event.Type != "payment.completed" {
		return nil
	}
	return s.Complete(ctx, event.RegistrationID, event.OrderID)
}

// Attempt returns the stored open attempt, if any.
func (s *PaymentService) Attempt(ctx context.Context, registrationID string) (*models.PaymentAttempt, error) {
	if s.attempts == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no open attempt")
	}
	attempt, err := s.attempts.FindAttempt(ctx, registrationID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no open attempt")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}
	return attempt, nil
}
