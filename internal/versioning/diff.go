package versioning

import (
	"strconv"

	"github.com/diewo77/go-quotes/internal/models"
)

// ModifiedItem pairs an item with its changed counterpart.
type ModifiedItem struct {
	Old models.LineItem `json:"old"`
	New models.LineItem `json:"new"`
}

// ItemDiff classifies the items of two lists.
type ItemDiff struct {
	Added    []models.LineItem `json:"added"`
	Removed  []models.LineItem `json:"removed"`
	Modified []ModifiedItem    `json:"modified"`
}

// Empty reports whether the lists had no differences.
func (d ItemDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// itemKey is the positional composite key room_job_index.
func itemKey(it models.LineItem, index int) string {
	return it.Room + "_" + it.Job + "_" + strconv.Itoa(index)
}

func firstWithJob(items []models.LineItem, job string) int {
	for i, it := range items {
		if it.Job == job {
			return i
		}
	}
	return -1
}

// DiffItems compares item list a (older) with b (newer).
//
// Items are matched on the positional key room_job_index. A b item without a
// key match is paired with the first a item carrying the same job; duplicate
// job names are not disambiguated. When neither key nor job matches, the a
// item at the same index is used if it is itself unmatched on both key and
// job, so a job rename in place shows up as one modification.
func DiffItems(a, b []models.LineItem) ItemDiff {
	diff := ItemDiff{
		Added:    []models.LineItem{},
		Removed:  []models.LineItem{},
		Modified: []ModifiedItem{},
	}

	keysA := make(map[string]int, len(a))
	for i, it := range a {
		keysA[itemKey(it, i)] = i
	}
	keysB := make(map[string]struct{}, len(b))
	for i, it := range b {
		keysB[itemKey(it, i)] = struct{}{}
	}

	// orphanA reports whether a[i] has neither a key nor a job counterpart in b.
	orphanA := func(i int) bool {
		if _, ok := keysB[itemKey(a[i], i)]; ok {
			return false
		}
		return firstWithJob(b, a[i].Job) < 0
	}

	paired := make(map[int]bool)
	for i, nb := range b {
		ai, ok := keysA[itemKey(nb, i)]
		if ok {
			if !a[ai].Equal(nb) {
				diff.Modified = append(diff.Modified, ModifiedItem{Old: a[ai].Clone(), New: nb.Clone()})
			}
			continue
		}
		if j := firstWithJob(a, nb.Job); j >= 0 {
			paired[j] = true
			diff.Modified = append(diff.Modified, ModifiedItem{Old: a[j].Clone(), New: nb.Clone()})
			continue
		}
		if i < len(a) && !paired[i] && orphanA(i) {
			paired[i] = true
			diff.Modified = append(diff.Modified, ModifiedItem{Old: a[i].Clone(), New: nb.Clone()})
			continue
		}
		diff.Added = append(diff.Added, nb.Clone())
	}

	for i, oa := range a {
		if _, ok := keysB[itemKey(oa, i)]; ok || paired[i] {
			continue
		}
		if firstWithJob(b, oa.Job) < 0 {
			diff.Removed = append(diff.Removed, oa.Clone())
		}
	}
	return diff
}
