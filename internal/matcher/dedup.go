package matcher

import (
	"time"

	"go.ngs.io/waves-api/internal/domain"
)

type hourKey struct {
	group string
	hour  int64
}

// KeepClosestPerHour keeps, for every (group, UTC hour) bucket, the item with the
// smallest distance. Equal distances keep the item seen first, and buckets are
// returned in the order their first item appeared.
func KeepClosestPerHour[T any](items []T, key func(T) (string, time.Time), distance func(T) float64) []T {
	out := make([]T, 0, len(items))
	slot := make(map[hourKey]int, len(items))

	for _, it := range items {
		group, at := key(it)
		k := hourKey{group: group, hour: at.UTC().Truncate(time.Hour).Unix()}
		i, seen := slot[k]
		if !seen {
			slot[k] = len(out)
			out = append(out, it)
			continue
		}
		if distance(it) < distance(out[i]) {
			out[i] = it
		}
	}
	return out
}

// DedupPairs applies KeepClosestPerHour to matched pairs, grouping by observation source.
func DedupPairs(pairs []domain.MatchedPair) []domain.MatchedPair {
	return KeepClosestPerHour(pairs,
		func(p domain.MatchedPair) (string, time.Time) { return p.Observation.Source, p.Observation.Time },
		func(p domain.MatchedPair) float64 { return p.DistanceKm },
	)
}
