package services

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/go-quotes/gate"
	"github.com/diewo77/go-quotes/internal/metrics"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/versioning"
	"github.com/diewo77/go-quotes/validation"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// VersionSummary is one row of a version listing.
type VersionSummary struct {
	VersionNum    int             `json:"version"`
	Name          string          `json:"name"`
	Total         decimal.Decimal `json:"total"`
	ChangeSummary string          `json:"change_summary"`
	ItemCount     int             `json:"item_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ComparisonResult is the difference between two versions of a quote.
type ComparisonResult struct {
	QuoteID  uint `json:"quoteId"`
	VersionA int  `json:"versionA"`
	VersionB int  `json:"versionB"`
	versioning.Comparison
}

func versionNotFound(quoteID uint, num int) error {
	return fmt.Errorf("%w: quote %d version %d", ErrNotFound, quoteID, num)
}

// ListVersions returns stored snapshots newest first. limit <= 0 uses the
// configured page size.
func (s *QuoteService) ListVersions(ctx context.Context, ownerID, id uint, limit, offset int) ([]VersionSummary, error) {
	v := validation.Violations{}
	if offset < 0 {
		v["offset"] = "must_be_non_negative"
	}
	if limit > maxListLimit {
		v["limit"] = "too_large"
	}
	if !v.Empty() {
		return nil, invalid(v)
	}
	if limit <= 0 {
		limit = s.listLimit
	}

	db := s.db.WithContext(ctx)
	q, err := s.loadQuote(db, id, "")
	if err != nil {
		return nil, storageErr("list versions", err)
	}
	if err := s.authorize(ctx, ownerID, gate.ActionView, q); err != nil {
		return nil, err
	}

	out := []VersionSummary{}
	err = db.Model(&models.QuoteVersion{}).
		Select("quote_versions.version_num, quote_versions.name, quote_versions.total, " +
			"quote_versions.change_summary, quote_versions.created_at, " +
			"(SELECT COUNT(*) FROM quote_version_items WHERE quote_version_items.version_id = quote_versions.id) AS item_count").
		Where("quote_versions.quote_id = ?", id).
		Order("quote_versions.version_num DESC").
		Limit(limit).Offset(offset).
		Scan(&out).Error
	if err != nil {
		return nil, storageErr("list versions", err)
	}
	return out, nil
}

// GetVersion returns one stored snapshot with its items.
func (s *QuoteService) GetVersion(ctx context.Context, ownerID, id uint, num int) (*models.QuoteVersion, error) {
	db := s.db.WithContext(ctx)
	q, err := s.loadQuote(db, id, "")
	if err != nil {
		return nil, storageErr("get version", err)
	}
	if err := s.authorize(ctx, ownerID, gate.ActionView, q); err != nil {
		return nil, err
	}
	ver, err := loadVersion(db, id, num)
	if err != nil {
		return nil, storageErr("get version", err)
	}
	return ver, nil
}

// CompareVersions diffs version a against version b. A number equal to the
// quote's current version refers to the live state.
func (s *QuoteService) CompareVersions(ctx context.Context, ownerID, id uint, a, b int) (res *ComparisonResult, err error) {
	defer func() { s.metrics.Observe(metrics.OpCompare, err) }()

	v := validation.Violations{}
	validation.PositiveInt("v1", a, v)
	validation.PositiveInt("v2", b, v)
	if !v.Empty() {
		return nil, invalid(v)
	}

	q, err := s.loadQuote(s.db.WithContext(ctx), id, "")
	if err != nil {
		return nil, storageErr("compare versions", err)
	}
	if err := s.authorize(ctx, ownerID, gate.ActionCompare, q); err != nil {
		return nil, err
	}

	var stA, stB versioning.State
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stA, err = s.resolveState(gctx, id, a)
		return err
	})
	g.Go(func() (err error) {
		stB, err = s.resolveState(gctx, id, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storageErr("compare versions", err)
	}

	return &ComparisonResult{
		QuoteID:    id,
		VersionA:   a,
		VersionB:   b,
		Comparison: versioning.Compare(stA, stB),
	}, nil
}

// resolveState loads version num of a quote. The live quote answers for its
// current version; everything else comes from stored snapshots.
func (s *QuoteService) resolveState(ctx context.Context, id uint, num int) (versioning.State, error) {
	var st versioning.State
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		live, err := s.loadQuote(tx, id, "SHARE")
		if err != nil {
			return err
		}
		if live.CurrentVersion == num {
			st = versioning.QuoteState(live)
			return nil
		}
		ver, err := loadVersion(tx, id, num)
		if err != nil {
			return err
		}
		st = versioning.VersionState(ver)
		return nil
	})
	return st, err
}

// RestoreVersion snapshots the live state and then replaces it with the
// content of snapshot target. It returns the new current version.
func (s *QuoteService) RestoreVersion(ctx context.Context, ownerID, id uint, target int) (version int, err error) {
	defer func() { s.metrics.Observe(metrics.OpRestore, err) }()

	err = s.withLock(ctx, id, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			q, err := s.loadQuote(tx, id, "UPDATE")
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, ownerID, gate.ActionRestore, q); err != nil {
				return err
			}
			ver, err := loadVersion(tx, id, target)
			if err != nil {
				return err
			}

			snap, err := s.writeSnapshot(tx, q)
			if err != nil {
				return err
			}

			st := versioning.VersionState(ver)
			if st.Config, err = versioning.CloneConfig(st.Config); err != nil {
				return err
			}
			version = snap + 1
			return applyState(tx, id, st, version)
		})
	})
	if err != nil {
		return 0, storageErr("restore version", err)
	}

	s.metrics.VersionsCreated.Inc()
	s.log.Info().Uint("quote_id", id).Int("restored", target).Int("version", version).Msg("quote restored")
	return version, nil
}
