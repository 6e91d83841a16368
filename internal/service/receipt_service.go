package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/models"
	"github.com/ihu-online/admissions-api/pkg/config"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
	"github.com/ihu-online/admissions-api/pkg/export"
	"github.com/ihu-online/admissions-api/pkg/jobs"
	"github.com/ihu-online/admissions-api/pkg/storage"
)

const receiptJobType = "receipt.render"

type receiptDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
}

// ReceiptService renders payment receipts in the background and serves signed
// download links. Rendering is retried by the queue; a missing receipt file is
// regenerated on demand.
type ReceiptService struct {
	repo     receiptDirectory
	renderer *export.ReceiptRenderer
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	metrics  *MetricsService
	payment  config.PaymentConfig
	logger   *zap.Logger

	queue *jobs.Queue
}

// NewReceiptService constructs the receipt service and its worker queue. The
// payment config supplies the fee schedule echoed onto the document.
func NewReceiptService(repo receiptDirectory, renderer *export.ReceiptRenderer, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, payment config.PaymentConfig, logger *zap.Logger, cfg jobs.QueueConfig) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReceiptService{
		repo:     repo,
		renderer: renderer,
		store:    store,
		signer:   signer,
		metrics:  metrics,
		payment:  payment,
		logger:   logger,
	}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("receipts", s.handle, cfg)
	return s
}

// Start launches the background workers.
func (s *ReceiptService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *ReceiptService) Stop() {
	s.queue.Stop()
}

// EnqueueReceipt schedules receipt generation for a completed registration.
func (s *ReceiptService) EnqueueReceipt(registrationID string) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    receiptJobType,
		Payload: registrationID,
	})
}

func (s *ReceiptService) handle(ctx context.Context, job jobs.Job) error {
	registrationID, ok := job.Payload.(string)
	if !ok || registrationID == "" {
		s.logger.Error("receipt job with invalid payload", zap.String("job_id", job.ID))
		return nil
	}
	if _, err := s.generate(ctx, registrationID); err != nil {
		return err
	}
	return nil
}

// generate renders and stores the receipt, returning its relative path.
func (s *ReceiptService) generate(ctx context.Context, registrationID string) (string, error) {
	reg, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		return "", fmt.Errorf("load registration %s: %w", registrationID, err)
	}
	if reg.OrderID == nil || reg.PaidAt == nil {
		// Completion may have been rolled back administratively between
		// enqueue and render.
		s.logger.Warn("skipping receipt for unpaid registration", zap.String("registration_id", registrationID))
		return "", nil
	}

	data, err := s.renderer.Render(export.Receipt{
		RegistrationID: reg.ID,
		OrderID:        *reg.OrderID,
		ApplicantName:  reg.FirstName + " " + reg.LastName,
		Email:          reg.Email,
		CourseType:     reg.CourseType,
		AmountCents:    feeFor(s.payment, reg.CourseType),
		Currency:       s.payment.Currency,
		PaidAt:         *reg.PaidAt,
	})
	if err != nil {
		return "", fmt.Errorf("render receipt %s: %w", registrationID, err)
	}

	relPath := receiptPath(reg.ID)
	if _, err := s.store.Save(relPath, data); err != nil {
		return "", fmt.Errorf("store receipt %s: %w", registrationID, err)
	}
	s.metrics.RecordReceiptRendered()
	s.logger.Info("receipt rendered", zap.String("registration_id", reg.ID), zap.String("path", relPath))
	return relPath, nil
}

// SignedLink returns a signed download token for the registration's receipt,
// generating the document synchronously if it does not exist yet.
func (s *ReceiptService) SignedLink(ctx context.Context, registrationID string) (string, time.Time, error) {
	reg, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if reg.OrderID == nil || reg.PaidAt == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, "registration has no completed payment")
	}

	relPath := receiptPath(reg.ID)
	if file, err := s.store.Open(relPath); err == nil {
		file.Close()
	} else if relPath, err = s.generate(ctx, reg.ID); err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate receipt")
	}

	token, expiresAt, err := s.signer.Generate(reg.ID, relPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return token, expiresAt, nil
}

// OpenSigned validates the token and opens the referenced receipt file.
func (s *ReceiptService) OpenSigned(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid receipt link")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
	}
	return file, nil
}

func receiptPath(registrationID string) string {
	return registrationID + ".pdf"
}
