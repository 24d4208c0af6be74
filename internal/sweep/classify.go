package sweep

import (
	"fmt"
	"time"
)

const msPerDay int64 = 24 * 60 * 60 * 1000

// Policy decides how the delete and mark-read checks interact for one entry.
type Policy string

const (
	// PolicyExclusive evaluates deletion first; an entry due for deletion is never also marked read.
	PolicyExclusive Policy = "exclusive"
	// PolicyIndependent evaluates both checks on their own, so an entry may land in both sets.
	PolicyIndependent Policy = "independent"
)

// ParsePolicy accepts the names above; empty means exclusive.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyExclusive:
		return PolicyExclusive, nil
	case PolicyIndependent:
		return PolicyIndependent, nil
	}

	return "", fmt.Errorf("unknown policy %q", s)
}

// Classification is the outcome of one pass over a snapshot.
// Both slices keep the snapshot's order.
type Classification struct {
	ToMarkRead []Entry
	ToDelete   []Entry
}

// Classify partitions entries with the exclusive, delete-first policy.
func Classify(entries []Entry, settings Settings, now time.Time) Classification {
	return ClassifyWith(entries, settings, now, PolicyExclusive)
}

// ClassifyWith partitions entries by age under the given policy.
func ClassifyWith(entries []Entry, settings Settings, now time.Time, policy Policy) Classification {
	var (
		c     = Classification{ToMarkRead: []Entry{}, ToDelete: []Entry{}}
		nowMs = Millis(now)
	)
	for _, entry := range entries {
		days := DaysSince(entry.CreationTime, nowMs)

		deletable := days >= int64(settings.DaysUntilDelete)
		if deletable {
			c.ToDelete = append(c.ToDelete, entry)
			if policy != PolicyIndependent {
				continue
			}
		}

		if days >= int64(settings.DaysUntilRead) && !entry.HasBeenRead {
			c.ToMarkRead = append(c.ToMarkRead, entry)
		}
	}

	return c
}

// DaysSince is the number of whole days between created and now, both in epoch
// milliseconds, rounded towards negative infinity.
func DaysSince(created, now int64) int64 {
	age := now - created
	days := age / msPerDay
	if age%msPerDay != 0 && age < 0 {
		days--
	}

	return days
}
