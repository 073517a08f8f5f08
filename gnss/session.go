package gnss

import "time"

// backoffSchedule holds the wait applied after the nth consecutive enable
// failure; the last entry repeats. A flapping positioning radio must not
// monopolize modem command bandwidth needed for alerts.
var backoffSchedule = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	300 * time.Second,
}

// Session tracks the enabled state of the positioning radio plus the
// escalating retry backoff for failed enable attempts.
type Session struct {
	enabled   bool
	failures  int
	nextRetry time.Time
	now       func() time.Time
}

func NewSession() *Session {
	return &Session{now: time.Now}
}

// Enabled reports whether the radio is currently powered.
func (s *Session) Enabled() bool {
	return s.enabled
}

// CanAttempt reports whether an enable attempt is permitted right now.
// Already-enabled sessions always report true.
func (s *Session) CanAttempt() bool {
	if s.enabled {
		return true
	}
	return !s.now().Before(s.nextRetry)
}

// RecordSuccess marks the radio enabled and clears the failure backoff.
func (s *Session) RecordSuccess() {
	s.enabled = true
	s.failures = 0
	s.nextRetry = time.Time{}
}

// RecordFailure advances the backoff schedule.
func (s *Session) RecordFailure() {
	s.failures++
	step := s.failures - 1
	if step >= len(backoffSchedule) {
		step = len(backoffSchedule) - 1
	}
	s.nextRetry = s.now().Add(backoffSchedule[step])
}

// Disable marks the radio off without touching the failure counter.
func (s *Session) Disable() {
	s.enabled = false
}
