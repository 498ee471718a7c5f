package poll

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TimerService schedules per-poll countdowns. At most one countdown is live
// per poll id: starting a new one supersedes the old, so a replaced timer can
// never fire. The clock is injected so tests can drive expiry deterministically.
type TimerService struct {
	clock clockwork.Clock

	mu         sync.Mutex
	countdowns map[string]*countdown
}

type countdown struct {
	timer  clockwork.Timer
	endsAt time.Time
	done   chan struct{}
}

func NewTimerService(clock clockwork.Clock) *TimerService {
	return &TimerService{
		clock:      clock,
		countdowns: make(map[string]*countdown),
	}
}

// Start schedules onExpire to run once, seconds from now, replacing any
// pending countdown for pollID. If seconds <= 0 the call only clears a
// pending countdown and reports ok=false so callers can render an
// indefinite state.
func (s *TimerService) Start(pollID string, seconds int, onExpire func()) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked(pollID)
	if seconds <= 0 {
		return time.Time{}, false
	}

	cd := &countdown{
		timer:  s.clock.NewTimer(time.Duration(seconds) * time.Second),
		endsAt: s.clock.Now().Add(time.Duration(seconds) * time.Second),
		done:   make(chan struct{}),
	}
	s.countdowns[pollID] = cd

	go func() {
		select {
		case <-cd.timer.Chan():
			if !s.claimFired(pollID, cd) {
				// Superseded between fire and dispatch; the replacement owns
				// the poll now.
				return
			}
			log.Debug().Str("poll_id", pollID).Msg("countdown expired")
			onExpire()
		case <-cd.done:
		}
	}()

	log.Debug().Str("poll_id", pollID).Int("seconds", seconds).Time("ends_at", cd.endsAt).Msg("countdown started")
	return cd.endsAt, true
}

// claimFired removes the countdown if it is still the live one for pollID.
func (s *TimerService) claimFired(pollID string, cd *countdown) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdowns[pollID] != cd {
		return false
	}
	delete(s.countdowns, pollID)
	return true
}

// Cancel drops any pending countdown for pollID. Safe to call when none exists.
func (s *TimerService) Cancel(pollID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(pollID)
}

func (s *TimerService) clearLocked(pollID string) {
	cd, ok := s.countdowns[pollID]
	if !ok {
		return
	}
	stopAndDrainTimer(cd.timer)
	close(cd.done)
	delete(s.countdowns, pollID)
	log.Debug().Str("poll_id", pollID).Msg("countdown cleared")
}

// Peek reports the pending countdown deadline, if any, without touching it.
// Used for late joiners that need to render a countdown already in flight.
func (s *TimerService) Peek(pollID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cd, ok := s.countdowns[pollID]
	if !ok {
		return time.Time{}, false
	}
	return cd.endsAt, true
}

// stopAndDrainTimer stops a timer and drains its channel so the waiting
// goroutine never observes a stale fire.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
