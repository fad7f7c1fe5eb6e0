package table

import "time"

// DefaultRetention is the number of most recent rows kept in a saved table.
const DefaultRetention = 200

// MergeByTime appends incoming to existing, skipping any row whose key time is
// already present so the earliest-seen row wins. Order is preserved.
func MergeByTime[T any](existing, incoming []T, key func(T) time.Time) []T {
	seen := make(map[int64]struct{}, len(existing)+len(incoming))
	out := make([]T, 0, len(existing)+len(incoming))
	for _, rows := range [][]T{existing, incoming} {
		for _, r := range rows {
			k := key(r).UnixNano()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// RetainTail keeps only the last limit rows. A non-positive limit keeps everything.
func RetainTail[T any](rows []T, limit int) []T {
	if limit <= 0 || len(rows) <= limit {
		return rows
	}
	return rows[len(rows)-limit:]
}
