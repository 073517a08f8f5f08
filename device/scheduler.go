package device

import (
	"time"

	"go.uber.org/zap"

	"github.com/openfms/pendant-core/gnss"
	"github.com/openfms/pendant-core/modem"
)

const (
	// firstHeartbeatDelay fires the initial beat promptly after boot so a
	// freshly-unlinked device is detected fast.
	firstHeartbeatDelay = 10 * time.Second
	// fastHeartbeatInterval applies while local state suggests the device
	// may be mid-deprovisioning.
	fastHeartbeatInterval = 30 * time.Second

	// locationRefreshInterval paces periodic fix polling while online.
	locationRefreshInterval = 30 * time.Second

	// coldStartBudget bounds the fresh-fix wait during SOS delivery.
	coldStartBudget = 45 * time.Second
	// fixPollInterval paces fix polling inside the cold-start window.
	fixPollInterval = time.Second
)

// Scheduler owns the time-driven logic: heartbeat cadence, periodic location
// refresh, and the two-shot SOS delivery algorithm.
type Scheduler struct {
	driver modem.Driver
	log    *zap.Logger

	bootAt        time.Time
	lastHeartbeat time.Time
	lastLocation  time.Time
	healthy       bool

	now   func() time.Time
	sleep func(time.Duration)
}

func NewScheduler(driver modem.Driver, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		driver: driver,
		log:    logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
	s.bootAt = s.now()
	return s
}

// Healthy reports whether the most recent heartbeat attempt succeeded; usable
// by status indication without re-issuing a network call.
func (s *Scheduler) Healthy() bool {
	return s.healthy
}

// heartbeatInterval picks the cadence: the profile's normal interval, or the
// fast one while the device looks mid-deprovisioning (owner known but the
// provisioned flag already dropped).
func (s *Scheduler) heartbeatInterval(provisioned bool) time.Duration {
	if !provisioned {
		return fastHeartbeatInterval
	}
	return s.driver.HeartbeatInterval()
}

// HeartbeatDue applies the cadence contract: never more often than the
// interval, with a prompt first beat after boot.
func (s *Scheduler) HeartbeatDue(provisioned bool) bool {
	now := s.now()
	if s.lastHeartbeat.IsZero() {
		return now.Sub(s.bootAt) >= firstHeartbeatDelay
	}
	return now.Sub(s.lastHeartbeat) >= s.heartbeatInterval(provisioned)
}

// RunHeartbeat sends one liveness report if one is due. The attempt time is
// recorded whether or not the send succeeds; failure feeds the health flag,
// not a tighter retry loop.
func (s *Scheduler) RunHeartbeat(deviceID, ownerUID string, provisioned bool, loc gnss.Location) {
	if ownerUID == "" || !s.driver.IsConnected() || !s.HeartbeatDue(provisioned) {
		return
	}
	s.lastHeartbeat = s.now()
	s.healthy = s.driver.SendHeartbeat(ownerUID, deviceID, loc)
	if !s.healthy {
		s.log.Warn("heartbeat failed", zap.Int("status", s.driver.LastStatus()))
	}
}

// LocationDue paces the periodic fix refresh.
func (s *Scheduler) LocationDue() bool {
	return s.lastLocation.IsZero() || s.now().Sub(s.lastLocation) >= locationRefreshInterval
}

// RefreshLocation polls for a fix if one is due, returning the new location
// and whether it is usable.
func (s *Scheduler) RefreshLocation() (gnss.Location, bool) {
	if !s.driver.IsConnected() || !s.LocationDue() {
		return gnss.None(), false
	}
	s.lastLocation = s.now()
	s.driver.InitGNSS()
	return s.driver.Location()
}

// DeliverAlert runs the two-shot SOS algorithm. The first shot goes out
// immediately with an explicitly absent location so the backend gets a
// timely alert even with no fix; a second shot with precise coordinates
// follows only if a fix lands within the cold-start budget. A failed first
// shot aborts delivery; a failed second shot does not, the alert already
// arrived.
func (s *Scheduler) DeliverAlert(deviceID, ownerUID string, kind AlertKind) bool {
	if !s.driver.SendSOSAlert(deviceID, ownerUID, string(kind), gnss.None()) {
		s.log.Error("sos first shot failed", zap.String("kind", string(kind)))
		return false
	}
	s.log.Info("sos first shot delivered", zap.String("kind", string(kind)))

	s.driver.InitGNSS()
	deadline := s.now().Add(coldStartBudget)
	for s.now().Before(deadline) {
		loc, ok := s.driver.Location()
		if ok {
			if !s.driver.SendSOSAlert(deviceID, ownerUID, string(kind), loc) {
				s.log.Warn("sos precise shot failed, alert already delivered")
			}
			return true
		}
		s.sleep(fixPollInterval)
	}
	s.log.Warn("no fix within cold-start budget, precise shot skipped")
	return true
}
