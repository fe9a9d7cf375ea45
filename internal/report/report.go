// Package report computes read-only projections over ledger snapshots.
// Every view takes the snapshot as an explicit argument and recomputes from
// scratch: there is no incremental maintenance and no caching layer.
package report

import (
	"time"

	"github.com/jayanth922/carbontrace/internal/domain"
)

// Total sums carbon over all entries.
func Total(activities []domain.Activity) float64 {
	var sum float64
	for _, a := range activities {
		sum += a.CarbonKg
	}
	return sum
}

// InWindow sums carbon over entries with CreatedAt in [start, end).
func InWindow(activities []domain.Activity, start, end time.Time) float64 {
	var sum float64
	for _, a := range activities {
		if !a.CreatedAt.Before(start) && a.CreatedAt.Before(end) {
			sum += a.CarbonKg
		}
	}
	return sum
}

// DailyBucket is one calendar day of the daily series.
type DailyBucket struct {
	Date     time.Time
	CarbonKg float64
}

// DailySeries buckets carbon by calendar day for the last `days` days ending
// at now, oldest first. Days with no entries report 0. Bucketing uses now's
// location.
func DailySeries(activities []domain.Activity, days int, now time.Time) []DailyBucket {
	if days <= 0 {
		return nil
	}

	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	buckets := make([]DailyBucket, days)
	index := make(map[time.Time]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-days+1)
		buckets[i] = DailyBucket{Date: day}
		index[day] = i
	}

	for _, a := range activities {
		created := a.CreatedAt.In(loc)
		day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, loc)
		if i, ok := index[day]; ok {
			buckets[i].CarbonKg += a.CarbonKg
		}
	}

	return buckets
}

// CategorySum pairs a category with its total.
type CategorySum struct {
	Category domain.Category
	CarbonKg float64
}

// ByCategory sums carbon per category, ordered by first appearance in the
// snapshot.
func ByCategory(activities []domain.Activity) []CategorySum {
	sums := make([]CategorySum, 0, 4)
	index := make(map[domain.Category]int)
	for _, a := range activities {
		i, ok := index[a.Category]
		if !ok {
			i = len(sums)
			index[a.Category] = i
			sums = append(sums, CategorySum{Category: a.Category})
		}
		sums[i].CarbonKg += a.CarbonKg
	}
	return sums
}

// Recent returns the first n entries of the snapshot, which List already
// orders most-recent-first.
func Recent(activities []domain.Activity, n int) []domain.Activity {
	if n < 0 {
		n = 0
	}
	if n > len(activities) {
		n = len(activities)
	}
	out := make([]domain.Activity, n)
	copy(out, activities[:n])
	return out
}
