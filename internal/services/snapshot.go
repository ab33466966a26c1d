package services

import (
	"errors"

	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/versioning"
	"gorm.io/gorm"
)

// writeSnapshot stores the current state of q as the next version and
// returns its number. It must run inside the transaction that mutates q,
// with the quote lock held.
func (s *QuoteService) writeSnapshot(tx *gorm.DB, q *models.Quote) (int, error) {
	var last int
	err := tx.Model(&models.QuoteVersion{}).
		Where("quote_id = ?", q.ID).
		Select("COALESCE(MAX(version_num), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, err
	}

	var previous *versioning.State
	if last > 0 {
		prev, err := loadVersion(tx, q.ID, last)
		if err != nil {
			return 0, err
		}
		st := versioning.VersionState(prev)
		previous = &st
	}

	current := versioning.QuoteState(q)
	cfg, err := versioning.CloneConfig(current.Config)
	if err != nil {
		return 0, err
	}

	next := last + 1
	v := models.QuoteVersion{
		QuoteID:       q.ID,
		VersionNum:    next,
		Name:          current.Name,
		Total:         current.Total,
		Notes:         current.Notes,
		ClientNotes:   current.ClientNotes,
		Config:        cfg,
		ChangeSummary: versioning.Summarize(previous, current),
		Items:         make([]models.QuoteVersionItem, len(current.Items)),
	}
	for i, it := range current.Items {
		v.Items[i] = models.QuoteVersionItem{Position: i, LineItem: it}
	}
	if err := tx.Create(&v).Error; err != nil {
		return 0, err
	}

	s.log.Debug().Uint("quote_id", q.ID).Int("version", next).Str("summary", v.ChangeSummary).Msg("snapshot written")
	return next, nil
}

// loadVersion reads one snapshot with its items.
func loadVersion(db *gorm.DB, quoteID uint, num int) (*models.QuoteVersion, error) {
	var v models.QuoteVersion
	err := db.Preload("Items", orderByPosition).
		Where("quote_id = ? AND version_num = ?", quoteID, num).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, versionNotFound(quoteID, num)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
