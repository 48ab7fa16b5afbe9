package bot

import (
	"sync"
	"time"
)

// ticketScheduler owns the fire-and-forget deletion timers for ticket
// channels. At most one deletion is scheduled per channel; repeated close
// presses before the delay elapses are no-ops. Timers are kept until they
// fire so a close can later grow a cancellation path.
type ticketScheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	remove func(channelID string)
}

func newTicketScheduler(delay time.Duration, remove func(channelID string)) *ticketScheduler {
	return &ticketScheduler{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		remove: remove,
	}
}

// Schedule arms the delete timer for channelID. It reports false when a
// deletion is already pending.
func (t *ticketScheduler) Schedule(channelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, pending := t.timers[channelID]; pending {
		return false
	}
	t.timers[channelID] = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		delete(t.timers, channelID)
		t.mu.Unlock()
		t.remove(channelID)
	})
	return true
}

// Cancel stops a pending deletion. It reports whether a timer was armed.
func (t *ticketScheduler) Cancel(channelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	timer, pending := t.timers[channelID]
	if !pending {
		return false
	}
	delete(t.timers, channelID)
	return timer.Stop()
}
