package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-quotes/gate"
	"github.com/diewo77/go-quotes/internal/metrics"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/policy"
	"github.com/diewo77/go-quotes/internal/versioning"
	"github.com/diewo77/go-quotes/validation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultLockTimeout = 5 * time.Second
	defaultListLimit   = 50
	maxListLimit       = 200
)

// QuoteInput is the editable content of a quote as sent by clients.
type QuoteInput struct {
	Name        string            `json:"name" validate:"required,max=255"`
	Total       decimal.Decimal   `json:"total"`
	Notes       *string           `json:"notes"`
	ClientNotes *string           `json:"client_notes"`
	Config      datatypes.JSONMap `json:"config"`
	Items       []models.LineItem `json:"items" validate:"dive"`
}

// normalize trims text fields and rounds amounts to the stored column scale,
// so summaries computed from the input match the persisted values.
func (in *QuoteInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Items = models.CloneLineItems(in.Items)
	in.Total = in.Total.Round(models.MoneyScale)
	for i := range in.Items {
		in.Items[i].Job = strings.TrimSpace(in.Items[i].Job)
		in.Items[i].Room = strings.TrimSpace(in.Items[i].Room)
		in.Items[i].Round()
	}
}

// SaveResult describes the outcome of a save.
type SaveResult struct {
	QuoteID       uint   `json:"quoteId"`
	Version       int    `json:"version"`
	ChangeSummary string `json:"changeSummary"`
	Created       bool   `json:"-"`
}

// QuoteService owns quotes and their version history.
// Every mutation of an existing quote runs under its per-quote lock and in a
// single transaction.
type QuoteService struct {
	db        *gorm.DB
	gate      *gate.Gate[uint]
	locker    *versioning.Locker
	metrics   *metrics.Metrics
	log       zerolog.Logger
	listLimit int
}

// Option configures a QuoteService.
type Option func(*QuoteService)

// WithLockTimeout bounds how long a mutation waits for the quote lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *QuoteService) { s.locker = versioning.NewLocker(d) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *QuoteService) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *QuoteService) { s.log = l }
}

// WithListLimit sets the default page size of version listings.
func WithListLimit(n int) Option {
	return func(s *QuoteService) {
		if n > 0 {
			s.listLimit = n
		}
	}
}

// NewQuoteService creates the service. A nil gate falls back to the
// ownership gate.
func NewQuoteService(db *gorm.DB, g *gate.Gate[uint], opts ...Option) *QuoteService {
	if g == nil {
		g = policy.NewQuoteGate()
	}
	s := &QuoteService{
		db:        db,
		gate:      g,
		locker:    versioning.NewLocker(defaultLockTimeout),
		metrics:   metrics.Discard(),
		log:       zerolog.Nop(),
		listLimit: defaultListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save creates a quote when id is nil, otherwise snapshots the current state
// and overwrites it with in.
func (s *QuoteService) Save(ctx context.Context, ownerID uint, id *uint, in QuoteInput) (res *SaveResult, err error) {
	defer func() { s.metrics.Observe(metrics.OpSave, err) }()

	in.normalize()
	if v := validation.Struct(in); !v.Empty() {
		return nil, invalid(v)
	}
	if id == nil {
		q, err := s.Create(ctx, ownerID, in)
		if err != nil {
			return nil, err
		}
		return &SaveResult{QuoteID: q.ID, Version: q.CurrentVersion, ChangeSummary: versioning.InitialSummary, Created: true}, nil
	}

	quoteID := *id
	var (
		newVersion int
		summary    string
	)
	err = s.withLock(ctx, quoteID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			q, err := s.loadQuote(tx, quoteID, "UPDATE")
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, ownerID, gate.ActionUpdate, q); err != nil {
				return err
			}

			before := versioning.QuoteState(q)
			snap, err := s.writeSnapshot(tx, q)
			if err != nil {
				return err
			}

			cfg, err := versioning.CloneConfig(in.Config)
			if err != nil {
				return invalid(validation.Violations{"config": "invalid"})
			}
			after := versioning.State{
				Name:        in.Name,
				Total:       in.Total,
				Notes:       in.Notes,
				ClientNotes: in.ClientNotes,
				Config:      cfg,
				Items:       in.Items,
			}
			newVersion = snap + 1
			if err := applyState(tx, q.ID, after, newVersion); err != nil {
				return err
			}
			summary = versioning.Summarize(&before, after)
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("save quote", err)
	}

	s.metrics.VersionsCreated.Inc()
	s.log.Info().Uint("quote_id", quoteID).Int("version", newVersion).Str("summary", summary).Msg("quote saved")
	return &SaveResult{QuoteID: quoteID, Version: newVersion, ChangeSummary: summary}, nil
}

// Create stores a new quote at version 1. No snapshot is written.
func (s *QuoteService) Create(ctx context.Context, ownerID uint, in QuoteInput) (*models.Quote, error) {
	in.normalize()
	if v := validation.Struct(in); !v.Empty() {
		return nil, invalid(v)
	}
	if err := s.authorize(ctx, ownerID, gate.ActionCreate, nil); err != nil {
		return nil, err
	}
	cfg, err := versioning.CloneConfig(in.Config)
	if err != nil {
		return nil, invalid(validation.Violations{"config": "invalid"})
	}

	q := &models.Quote{
		UserID:         ownerID,
		Name:           in.Name,
		Total:          in.Total,
		Notes:          in.Notes,
		ClientNotes:    in.ClientNotes,
		Config:         cfg,
		Status:         models.QuoteStatusDraft,
		CurrentVersion: 1,
		Items:          models.NewQuoteItems(0, in.Items),
	}
	if err := s.db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, storageErr("create quote", err)
	}
	s.log.Info().Uint("quote_id", q.ID).Uint("user_id", ownerID).Msg("quote created")
	return q, nil
}

// Get returns a quote with its items.
func (s *QuoteService) Get(ctx context.Context, ownerID, id uint) (*models.Quote, error) {
	q, err := s.loadQuote(s.db.WithContext(ctx), id, "")
	if err != nil {
		return nil, storageErr("get quote", err)
	}
	if err := s.authorize(ctx, ownerID, gate.ActionView, q); err != nil {
		return nil, err
	}
	return q, nil
}

// List returns the owner's quotes, most recently updated first,
// optionally filtered by status.
func (s *QuoteService) List(ctx context.Context, ownerID uint, status models.QuoteStatus) ([]models.Quote, error) {
	if status != "" && !status.Valid() {
		return nil, invalid(validation.Violations{"status": "invalid_value"})
	}
	if err := s.authorize(ctx, ownerID, gate.ActionList, nil); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var quotes []models.Quote
	err := q.Preload("Items", orderByPosition).
		Order("updated_at DESC").Order("id DESC").
		Find(&quotes).Error
	if err != nil {
		return nil, storageErr("list quotes", err)
	}
	return quotes, nil
}

// Delete removes a quote together with its items and every snapshot.
func (s *QuoteService) Delete(ctx context.Context, ownerID, id uint) (err error) {
	defer func() { s.metrics.Observe(metrics.OpDelete, err) }()

	err = s.withLock(ctx, id, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			q, err := s.loadQuote(tx, id, "UPDATE")
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, ownerID, gate.ActionDelete, q); err != nil {
				return err
			}
			versions := tx.Model(&models.QuoteVersion{}).Select("id").Where("quote_id = ?", id)
			if err := tx.Where("version_id IN (?)", versions).Delete(&models.QuoteVersionItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteVersion{}).Error; err != nil {
				return err
			}
			if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Quote{}, id).Error
		})
	})
	if err != nil {
		return storageErr("delete quote", err)
	}
	s.log.Info().Uint("quote_id", id).Msg("quote deleted")
	return nil
}

// UpdateStatus changes the workflow status. Status is not versioned.
func (s *QuoteService) UpdateStatus(ctx context.Context, ownerID, id uint, status models.QuoteStatus) (q *models.Quote, err error) {
	defer func() { s.metrics.Observe(metrics.OpStatus, err) }()

	if !status.Valid() {
		return nil, invalid(validation.Violations{"status": "invalid_value"})
	}
	err = s.withLock(ctx, id, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			q, err = s.loadQuote(tx, id, "UPDATE")
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, ownerID, gate.ActionUpdate, q); err != nil {
				return err
			}
			if err := tx.Model(q).Update("status", status).Error; err != nil {
				return err
			}
			q.Status = status
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("update status", err)
	}
	return q, nil
}

// withLock runs fn while holding the per-quote lock.
func (s *QuoteService) withLock(ctx context.Context, id uint, fn func() error) error {
	start := time.Now()
	release, err := s.locker.Acquire(ctx, id)
	timedOut := errors.Is(err, versioning.ErrLockTimeout)
	s.metrics.LockWaited(time.Since(start), timedOut)
	if err != nil {
		if timedOut {
			s.log.Warn().Uint("quote_id", id).Dur("timeout", s.locker.Timeout()).Msg("quote lock busy")
			return fmt.Errorf("%w: quote %d is being modified", ErrBusy, id)
		}
		return err
	}
	defer release()
	return fn()
}

func (s *QuoteService) authorize(ctx context.Context, ownerID uint, action gate.Action, q *models.Quote) error {
	var resource any
	if q != nil {
		resource = q
	}
	err := s.gate.Authorize(ctx, ownerID, action, policy.ResourceQuote, resource)
	if errors.Is(err, gate.ErrUnauthorized) {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return err
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// loadQuote reads a quote with its items. A non-empty lock strength adds a
// row lock (UPDATE or SHARE).
func (s *QuoteService) loadQuote(db *gorm.DB, id uint, lock string) (*models.Quote, error) {
	if lock != "" {
		db = db.Clauses(clause.Locking{Strength: lock})
	}
	var q models.Quote
	err := db.Preload("Items", orderByPosition).First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: quote %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// applyState overwrites the versioned fields and items of a quote.
func applyState(tx *gorm.DB, quoteID uint, st versioning.State, currentVersion int) error {
	err := tx.Model(&models.Quote{}).Where("id = ?", quoteID).Updates(map[string]any{
		"name":            st.Name,
		"total":           st.Total,
		"notes":           st.Notes,
		"client_notes":    st.ClientNotes,
		"config":          st.Config,
		"current_version": currentVersion,
	}).Error
	if err != nil {
		return err
	}
	if err := tx.Where("quote_id = ?", quoteID).Delete(&models.QuoteItem{}).Error; err != nil {
		return err
	}
	if len(st.Items) == 0 {
		return nil
	}
	items := models.NewQuoteItems(quoteID, st.Items)
	return tx.Create(&items).Error
}
