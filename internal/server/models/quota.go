package models

import "time"

// UserQuota tracks one user's daily operation count against their plan
// tier. The counter is meaningful only for the current calendar day: it
// is reset to zero on first access after LastReset's date changes. It is
// never decremented except by that reset.
type UserQuota struct {
	UserID     string
	Plan       Plan
	DailyUsage int
	LastReset  time.Time
}

// NeedsReset reports whether the stored reset date differs from now's
// calendar date.
func (q *UserQuota) NeedsReset(now time.Time) bool {
	ry, rm, rd := q.LastReset.Date()
	ny, nm, nd := now.Date()
	return ry != ny || rm != nm || rd != nd
}

// Reset zeroes the counter and stamps the new date.
func (q *UserQuota) Reset(now time.Time) {
	q.DailyUsage = 0
	q.LastReset = now
}
