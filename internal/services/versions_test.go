package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/versioning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestScenario_SaveCompareRestore(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	id := createQuote(t, s, kitchenInput())

	in := kitchenInput()
	in.Total = dec("1200")
	in.Items = append(in.Items, line("Kitchen", "Painting", "1", "200"))
	res := save(t, s, id, in)
	require.Equal(t, 2, res.Version)
	assert.Equal(t, "Total: +200.00; Items: +1", res.ChangeSummary)

	cmp, err := s.CompareVersions(ctx, owner, id, 1, 2)
	require.NoError(t, err)
	assert.True(t, cmp.Header.TotalDelta.Equal(dec("200")))
	assert.Equal(t, 1, cmp.Header.ItemCountDelta)
	assert.False(t, cmp.Header.NameChanged)
	require.Len(t, cmp.Items.Added, 1)
	assert.Equal(t, "Painting", cmp.Items.Added[0].Job)
	assert.Empty(t, cmp.Items.Removed)
	assert.Empty(t, cmp.Items.Modified)

	version, err := s.RestoreVersion(ctx, owner, id, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, version)

	live, err := s.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, 3, live.CurrentVersion)
	assert.True(t, live.Total.Equal(dec("1000")))
	require.Len(t, live.Items, 1)
	assert.Equal(t, "Tiling", live.Items[0].Job)
	assert.Equal(t, []int{1, 2}, versionNums(t, db, id))

	v2, err := s.GetVersion(ctx, owner, id, 2)
	require.NoError(t, err)
	assert.True(t, v2.Total.Equal(dec("1200")))
	assert.Len(t, v2.Items, 2)
	assert.Equal(t, "Total: +200.00; Items: +1", v2.ChangeSummary)
}

func TestSave_VersionsAreMonotonic(t *testing.T) {
	s, db := newTestService(t)
	id := createQuote(t, s, kitchenInput())

	for want := 2; want <= 6; want++ {
		in := kitchenInput()
		in.Name = fmt.Sprintf("Kitchen %d", want)
		assert.Equal(t, want, save(t, s, id, in).Version)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, versionNums(t, db, id))

	q, err := s.Get(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, 6, q.CurrentVersion)
}

func TestSave_ConcurrentSavesGetDistinctVersions(t *testing.T) {
	s, db := newTestService(t)
	id := createQuote(t, s, kitchenInput())

	const writers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		versions []int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Save(context.Background(), owner, &id, kitchenInput())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			versions = append(versions, res.Version)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(versions)
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9}, versions)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, versionNums(t, db, id))
}

func TestSnapshots_AreImmutable(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	first := kitchenInput()
	first.Config = datatypes.JSONMap{"vat": 20.0, "layout": map[string]any{"columns": []any{"job"}}}
	id := createQuote(t, s, first)

	second := kitchenInput()
	second.Name = "Changed"
	second.Items[0].Quantity = dec("99")
	save(t, s, id, second)

	before, err := s.GetVersion(ctx, owner, id, 1)
	require.NoError(t, err)

	_, err = s.RestoreVersion(ctx, owner, id, 1)
	require.NoError(t, err)
	third := kitchenInput()
	third.Config = datatypes.JSONMap{"vat": 5.5}
	save(t, s, id, third)

	after, err := s.GetVersion(ctx, owner, id, 1)
	require.NoError(t, err)
	assert.Equal(t, before.Name, after.Name)
	assert.True(t, before.Total.Equal(after.Total))
	assert.True(t, versioning.ConfigEqual(before.Config, after.Config))
	require.Len(t, after.Items, len(before.Items))
	for i := range before.Items {
		assert.True(t, before.Items[i].LineItem.Equal(after.Items[i].LineItem))
	}
	assert.True(t, versioning.ConfigEqual(first.Config, after.Config))
}

func TestRestore_TwiceCreatesDistinctVersions(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	id := createQuote(t, s, kitchenInput())

	in := kitchenInput()
	in.Name = "Other"
	save(t, s, id, in)

	v1, err := s.RestoreVersion(ctx, owner, id, 1)
	require.NoError(t, err)
	v2, err := s.RestoreVersion(ctx, owner, id, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, v1)
	assert.Equal(t, 4, v2)
	assert.Equal(t, []int{1, 2, 3}, versionNums(t, db, id))

	live, err := s.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", live.Name)
}

func TestRestore_Errors(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	id := createQuote(t, s, kitchenInput())
	save(t, s, id, kitchenInput())

	_, err := s.RestoreVersion(ctx, owner, id, 7)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.RestoreVersion(ctx, stranger, id, 1)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.RestoreVersion(ctx, owner, 4242, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []int{1}, versionNums(t, db, id), "failed restores must not snapshot")
	q, err := s.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, 2, q.CurrentVersion)
}

func TestCompare_SameVersionIsEmpty(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	id := createQuote(t, s, kitchenInput())
	in := kitchenInput()
	in.Name = "Renamed"
	save(t, s, id, in)

	for _, v := range []int{1, 2} {
		cmp, err := s.CompareVersions(ctx, owner, id, v, v)
		require.NoError(t, err)
		assert.True(t, cmp.Header.Empty(), "version %d header: %+v", v, cmp.Header)
		assert.True(t, cmp.Items.Empty(), "version %d items: %+v", v, cmp.Items)
	}
}

func TestCompare_JobRenameIsOneModification(t *testing.T) {
	s, _ := newTestService(t)
	id := createQuote(t, s, kitchenInput())

	in := kitchenInput()
	in.Items[0].Job = "Flooring"
	save(t, s, id, in)

	cmp, err := s.CompareVersions(context.Background(), owner, id, 1, 2)
	require.NoError(t, err)
	require.Len(t, cmp.Items.Modified, 1)
	assert.Equal(t, "Tiling", cmp.Items.Modified[0].Old.Job)
	assert.Equal(t, "Flooring", cmp.Items.Modified[0].New.Job)
	assert.Empty(t, cmp.Items.Added)
	assert.Empty(t, cmp.Items.Removed)
}

func TestCompare_HeaderFields(t *testing.T) {
	s, _ := newTestService(t)
	id := createQuote(t, s, kitchenInput())

	notes := "call before visiting"
	in := kitchenInput()
	in.ClientNotes = &notes
	in.Config = datatypes.JSONMap{"vat": 10.0}
	save(t, s, id, in)

	cmp, err := s.CompareVersions(context.Background(), owner, id, 1, 2)
	require.NoError(t, err)
	assert.True(t, cmp.Header.ClientNotesChanged)
	assert.True(t, cmp.Header.ConfigChanged)
	assert.False(t, cmp.Header.NotesChanged)
	assert.True(t, cmp.Items.Empty())
}

func TestCompare_Errors(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	id := createQuote(t, s, kitchenInput())

	_, err := s.CompareVersions(ctx, owner, id, 1, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.CompareVersions(ctx, owner, id, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.CompareVersions(ctx, stranger, id, 1, 1)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListVersions(t *testing.T) {
	s, _ := newTestService(t, WithListLimit(2))
	ctx := context.Background()
	id := createQuote(t, s, kitchenInput())

	for i := 0; i < 3; i++ {
		in := kitchenInput()
		for j := 0; j <= i; j++ {
			in.Items = append(in.Items, line("Bath", "Extra", "1", "1"))
		}
		save(t, s, id, in)
	}

	page, err := s.ListVersions(ctx, owner, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].VersionNum)
	assert.Equal(t, 2, page[1].VersionNum)
	assert.Equal(t, 3, page[0].ItemCount)
	assert.Equal(t, "Items: +1", page[0].ChangeSummary)

	rest, err := s.ListVersions(ctx, owner, id, 10, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, 1, rest[0].VersionNum)
	assert.Equal(t, versioning.InitialSummary, rest[0].ChangeSummary)
	assert.Equal(t, 1, rest[0].ItemCount)

	_, err = s.ListVersions(ctx, owner, id, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.ListVersions(ctx, stranger, id, 0, 0)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.ListVersions(ctx, owner, 999, 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetVersion_Errors(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	id := createQuote(t, s, kitchenInput())

	// the live version has no stored snapshot
	_, err := s.GetVersion(ctx, owner, id, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetVersion(ctx, stranger, id, 1)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSnapshot_ItemsAreDeepCopies(t *testing.T) {
	s, db := newTestService(t)
	tpl := uint(7)
	in := kitchenInput()
	in.Items[0].TemplateID = &tpl
	id := createQuote(t, s, in)
	save(t, s, id, kitchenInput())

	var vi []models.QuoteVersionItem
	require.NoError(t, db.Find(&vi).Error)
	require.Len(t, vi, 1)
	require.NotNil(t, vi[0].TemplateID)
	assert.Equal(t, uint(7), *vi[0].TemplateID)

	var live []models.QuoteItem
	require.NoError(t, db.Where("quote_id = ?", id).Find(&live).Error)
	require.Len(t, live, 1)
	assert.Nil(t, live[0].TemplateID)
}
