package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	dbpkg "github.com/diewo77/go-quotes/internal/db"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	owner    uint = 1
	stranger uint = 2
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), dbpkg.GormConfig(false))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, dbpkg.Migrate(db))
	return db
}

func newTestService(t *testing.T, opts ...Option) (*QuoteService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewQuoteService(db, nil, opts...), db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(room, job, qty, price string) models.LineItem {
	return models.LineItem{
		Room:      room,
		Job:       job,
		Quantity:  dec(qty),
		UnitPrice: dec(price),
		Total:     dec(qty).Mul(dec(price)),
	}
}

func kitchenInput() QuoteInput {
	return QuoteInput{
		Name:  "Kitchen",
		Total: dec("1000"),
		Items: []models.LineItem{line("Kitchen", "Tiling", "10", "100")},
	}
}

func createQuote(t *testing.T, s *QuoteService, in QuoteInput) uint {
	t.Helper()
	res, err := s.Save(context.Background(), owner, nil, in)
	require.NoError(t, err)
	require.True(t, res.Created)
	return res.QuoteID
}

func save(t *testing.T, s *QuoteService, id uint, in QuoteInput) *SaveResult {
	t.Helper()
	res, err := s.Save(context.Background(), owner, &id, in)
	require.NoError(t, err)
	return res
}

func versionNums(t *testing.T, db *gorm.DB, id uint) []int {
	t.Helper()
	var nums []int
	require.NoError(t, db.Model(&models.QuoteVersion{}).
		Where("quote_id = ?", id).Order("version_num ASC").
		Pluck("version_num", &nums).Error)
	return nums
}
