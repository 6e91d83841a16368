package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/models"
)

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPhoneDigits = 5

type uniquenessDirectory interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, countryCode, phone string) (bool, error)
}

type uniquenessCache interface {
	MarkTaken(ctx context.Context, field models.UniquenessField, value string, ttl time.Duration)
	IsKnownTaken(ctx context.Context, field models.UniquenessField, value string) bool
}

// ApplyFunc receives uniqueness results. Results are delivered in issuance
// order: a response belonging to a superseded check is never delivered.
type ApplyFunc func(models.UniquenessCheckResult)

// UniquenessCheckerConfig tunes debounce and lookup behaviour.
type UniquenessCheckerConfig struct {
	// DebounceWindow is the quiet period after the last keystroke before a
	// directory lookup is issued.
	DebounceWindow time.Duration
	LookupTimeout  time.Duration
	TakenCacheTTL  time.Duration
	Logger         *zap.Logger
}

// UniquenessChecker runs debounced, cancellable availability checks for the
// email and phone identity fields. Each call to Check supersedes the previous
// check for the same field: a pending debounce timer is stopped, an in-flight
// lookup is cancelled, and any late response is dropped by sequence
// comparison. The directory insert remains the authoritative guard; this
// component is a best-effort advisory layer.
type UniquenessChecker struct {
	directory uniquenessDirectory
	cache     uniquenessCache
	apply     ApplyFunc

	window   time.Duration
	timeout  time.Duration
	takenTTL time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	fields map[models.UniquenessField]*fieldController
	closed bool
}

// fieldController tracks the latest issued check for one field.
type fieldController struct {
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewUniquenessChecker constructs a checker delivering results through apply.
func NewUniquenessChecker(directory uniquenessDirectory, cache uniquenessCache, apply ApplyFunc, cfg UniquenessCheckerConfig) *UniquenessChecker {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 500 * time.Millisecond
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	if cfg.TakenCacheTTL <= 0 {
		cfg.TakenCacheTTL = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &UniquenessChecker{
		directory: directory,
		cache:     cache,
		apply:     apply,
		window:    cfg.DebounceWindow,
		timeout:   cfg.LookupTimeout,
		takenTTL:  cfg.TakenCacheTTL,
		logger:    cfg.Logger,
		fields:    make(map[models.UniquenessField]*fieldController),
	}
}

// Check schedules an availability check for the field after the quiet period.
// Any previously scheduled or in-flight check for the same field is cancelled.
// Shape failures short-circuit to an invalid result without a lookup.
func (c *UniquenessChecker) Check(field models.UniquenessField, value, countryCode string) {
	value = strings.TrimSpace(value)
	if field == models.FieldEmail {
		value = strings.ToLower(value)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	ctrl := c.fields[field]
	if ctrl == nil {
		ctrl = &fieldController{}
		c.fields[field] = ctrl
	}
	ctrl.seq++
	seq := ctrl.seq
	if ctrl.timer != nil {
		ctrl.timer.Stop()
		ctrl.timer = nil
	}
	if ctrl.cancel != nil {
		ctrl.cancel()
		ctrl.cancel = nil
	}

	if msg := shapeError(field, value, countryCode); msg != "" {
		c.mu.Unlock()
		c.emit(models.UniquenessCheckResult{Field: field, Value: value, State: models.UniquenessInvalid, Message: msg, Seq: seq})
		return
	}

	ctrl.timer = time.AfterFunc(c.window, func() {
		c.fire(field, value, countryCode, seq)
	})
	c.mu.Unlock()
}

// fire runs once the debounce window settles. It issues at most one directory
// lookup and applies the outcome only if the check is still the latest.
func (c *UniquenessChecker) fire(field models.UniquenessField, value, countryCode string, seq uint64) {
	c.mu.Lock()
	ctrl := c.fields[field]
	if c.closed || ctrl == nil || ctrl.seq != seq {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	ctrl.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	c.emit(models.UniquenessCheckResult{Field: field, Value: value, State: models.UniquenessChecking, Seq: seq})

	result := c.lookup(ctx, field, value, countryCode)
	result.Seq = seq

	c.mu.Lock()
	ctrl = c.fields[field]
	stale := c.closed || ctrl == nil || ctrl.seq != seq
	c.mu.Unlock()
	if stale {
		// A newer check was issued while this lookup was in flight; its
		// result is the only one allowed to reach visible state.
		return
	}
	c.emit(result)
}

func (c *UniquenessChecker) lookup(ctx context.Context, field models.UniquenessField, value, countryCode string) models.UniquenessCheckResult {
	if c.cache != nil && c.cache.IsKnownTaken(ctx, field, cacheValue(field, value, countryCode)) {
		return models.UniquenessCheckResult{Field: field, Value: value, State: models.UniquenessTaken, Message: takenMessage(field)}
	}

	var exists bool
	var err error
	switch field {
	case models.FieldEmail:
		exists, err = c.directory.ExistsByEmail(ctx, value)
	case models.FieldPhone:
		exists, err = c.directory.ExistsByPhone(ctx, countryCode, value)
	}
	if err != nil {
		c.logger.Warn("uniqueness lookup failed", zap.String("field", string(field)), zap.Error(err))
		return models.UniquenessCheckResult{Field: field, Value: value, State: models.UniquenessError, Message: "availability check failed"}
	}
	if exists {
		if c.cache != nil {
			c.cache.MarkTaken(ctx, field, cacheValue(field, value, countryCode), c.takenTTL)
		}
		return models.UniquenessCheckResult{Field: field, Value: value, State: models.UniquenessTaken, Message: takenMessage(field)}
	}
	return models.UniquenessCheckResult{Field: field, Value: value, State: models.UniquenessAvailable}
}

// Close cancels all pending timers and in-flight lookups. Results of
// cancelled checks are never applied.
func (c *UniquenessChecker) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, ctrl := range c.fields {
		if ctrl.timer != nil {
			ctrl.timer.Stop()
		}
		if ctrl.cancel != nil {
			ctrl.cancel()
		}
	}
}

func (c *UniquenessChecker) emit(res models.UniquenessCheckResult) {
	if c.apply != nil {
		c.apply(res)
	}
}

// shapeError validates input shape, returning a user-facing message or "".
func shapeError(field models.UniquenessField, value, countryCode string) string {
	switch field {
	case models.FieldEmail:
		if !emailShape.MatchString(value) {
			return "enter a valid email address"
		}
	case models.FieldPhone:
		if strings.TrimSpace(countryCode) == "" {
			return "select a country code"
		}
		if countDigits(value) < minPhoneDigits {
			return "enter at least 5 digits"
		}
	default:
		return "unknown field"
	}
	return ""
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func cacheValue(field models.UniquenessField, value, countryCode string) string {
	if field == models.FieldPhone {
		return countryCode + ":" + value
	}
	return value
}

func takenMessage(field models.UniquenessField) string {
	if field == models.FieldPhone {
		return "phone number already registered"
	}
	return "email address already registered"
}
