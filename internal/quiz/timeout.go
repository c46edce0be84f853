package quiz

import "time"

// IsTimedOut reports whether an attempt started at startedAt has exceeded a
// limit of limitMinutes at now. A limit of zero means no limit.
//
// Expiry is never pushed: it is only observed when an attempt is touched
// (read, save, submit, or a new start for the same learner and bank). An
// attempt nobody revisits stays IN_PROGRESS in storage.
func IsTimedOut(startedAt time.Time, limitMinutes int, now time.Time) bool {
	if limitMinutes <= 0 {
		return false
	}
	return now.Sub(startedAt) > limitDuration(limitMinutes)
}

// Remaining returns the whole seconds left before expiry, or nil when the
// attempt is unlimited.
func Remaining(startedAt time.Time, limitMinutes int, now time.Time) *int {
	if limitMinutes <= 0 {
		return nil
	}
	left := int((limitDuration(limitMinutes) - now.Sub(startedAt)) / time.Second)
	if left < 0 {
		left = 0
	}
	return &left
}

// timeSpent is the elapsed time in seconds, capped at the limit for attempts
// that ran out of time.
func timeSpent(startedAt, completedAt time.Time, limitMinutes int, timedOut bool) int {
	d := completedAt.Sub(startedAt)
	if d < 0 {
		d = 0
	}
	if timedOut && limitMinutes > 0 && d > limitDuration(limitMinutes) {
		d = limitDuration(limitMinutes)
	}
	return int(d / time.Second)
}

// ceilMillis rounds t up to the millisecond precision starts are stored at,
// so a limit is never seen as exceeded early.
func ceilMillis(t time.Time) time.Time {
	r := t.Truncate(time.Millisecond)
	if r.Before(t) {
		r = r.Add(time.Millisecond)
	}
	return r
}

func limitDuration(limitMinutes int) time.Duration {
	return time.Duration(limitMinutes) * time.Minute
}
