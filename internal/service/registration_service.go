package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/dto"
	"github.com/ihu-online/admissions-api/internal/models"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
)

type registrationDirectory interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, countryCode, phone string) (bool, error)
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error)
}

// RegistrationService converts valid drafts into persisted registrations and
// serves availability lookups and the admin read surface.
type RegistrationService struct {
	repo      registrationDirectory
	cache     uniquenessCache
	validator *validator.Validate
	logger    *zap.Logger
	takenTTL  time.Duration
}

// NewRegistrationService constructs the registration service.
func NewRegistrationService(repo registrationDirectory, cache uniquenessCache, validate *validator.Validate, logger *zap.Logger, takenTTL time.Duration) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if takenTTL <= 0 {
		takenTTL = time.Minute
	}
	return &RegistrationService{repo: repo, cache: cache, validator: validate, logger: logger, takenTTL: takenTTL}
}

// NormalizeEmail lowercases and trims an email address. Uniqueness is
// case-insensitive, so every lookup and write goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone trims a phone digit string.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// CheckAvailability performs one direct directory lookup for the
// side-effect-free availability endpoint. No debounce: rate shaping belongs
// to the in-session checker; this read is idempotent.
func (s *RegistrationService) CheckAvailability(ctx context.Context, field models.UniquenessField, value, countryCode string) (bool, error) {
	value = strings.TrimSpace(value)
	if field == models.FieldEmail {
		value = NormalizeEmail(value)
	}
	if msg := shapeError(field, value, countryCode); msg != "" {
		return false, appErrors.Clone(appErrors.ErrValidation, msg)
	}

	if s.cache != nil && s.cache.IsKnownTaken(ctx, field, cacheValue(field, value, countryCode)) {
		return true, nil
	}

	var exists bool
	var err error
	switch field {
	case models.FieldEmail:
		exists, err = s.repo.ExistsByEmail(ctx, value)
	case models.FieldPhone:
		exists, err = s.repo.ExistsByPhone(ctx, countryCode, value)
	}
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "availability check failed")
	}
	if exists && s.cache != nil {
		s.cache.MarkTaken(ctx, field, cacheValue(field, value, countryCode), s.takenTTL)
	}
	return exists, nil
}

// Submit persists a registration from the full form payload. The single
// insert is the authoritative uniqueness guard: a conflicting record created
// after the client-side checks passed surfaces here as a typed duplicate.
func (s *RegistrationService) Submit(ctx context.Context, req dto.SubmitRegistrationRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	reg := &models.Registration{
		Email:           NormalizeEmail(req.EmailAddress),
		CountryCode:     strings.TrimSpace(req.CountryCode),
		Phone:           NormalizePhone(req.Phone),
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		DateOfBirth:     req.DateOfBirth,
		Address:         req.Address,
		City:            req.City,
		State:           req.State,
		CountryOrRegion: req.CountryOrRegion,
		ZipOrPostalCode: req.ZipOrPostalCode,
		Resident:        req.Resident,
		EnrollmentType:  req.EnrollmentType,
		CourseType:      req.CourseType,
		SelectedCourse:  req.SelectedCourse,
		GraduationYear:  req.GraduationYear,
		HowDidYouHear:   req.HowDidYouHear,
		Objectives:      req.Objectives,
		Signature:       req.Signature,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateEmail) || errors.Is(err, appErrors.ErrDuplicatePhone) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to persist registration")
	}
	s.logger.Info("registration created", zap.String("registration_id", reg.ID))
	return reg, nil
}

// SubmitDraft persists a draft session. The submittability precondition is
// re-validated here rather than trusted from the caller; stale UI state must
// not reach the directory. Each draft is expected to be submitted at most
// once: repeat calls create duplicate registrations unless the unique
// indexes block them.
func (s *RegistrationService) SubmitDraft(ctx context.Context, d *Draft) (*models.Registration, error) {
	if d == nil || !d.Submittable() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "draft is not submittable")
	}
	values := d.Values()
	req := dto.SubmitRegistrationRequest{
		FirstName:       values[FieldFirstName],
		LastName:        values[FieldLastName],
		DateOfBirth:     values[FieldDateOfBirth],
		EmailAddress:    values[FieldEmailAddress],
		CountryCode:     values[FieldCountryCode],
		Phone:           values[FieldPhoneNumber],
		Address:         values[FieldAddress],
		City:            values[FieldCity],
		State:           values[FieldState],
		CountryOrRegion: values[FieldCountryOrRegion],
		ZipOrPostalCode: values[FieldZipOrPostalCode],
		Resident:        values[FieldResident],
		EnrollmentType:  values[FieldEnrollmentType],
		CourseType:      values[FieldCourseType],
		SelectedCourse:  values[FieldSelectedCourse],
		GraduationYear:  values[FieldGraduationYear],
		HowDidYouHear:   values[FieldHowDidYouHear],
		Objectives:      values[FieldObjectives],
		Signature:       values[FieldSignature],
	}
	return s.Submit(ctx, req)
}

// Get returns a registration by id.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return reg, nil
}

// List returns registrations and pagination metadata for the admin surface.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	registrations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return registrations, pagination, nil
}
