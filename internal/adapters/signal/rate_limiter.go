package signal

import (
	"sync"

	"github.com/dkeye/Jam/internal/domain"
	"golang.org/x/time/rate"
)

// RoomRateLimiter is a token bucket per participant for in-room traffic.
// A non-positive rate disables limiting.
type RoomRateLimiter struct {
	mu       sync.Mutex
	limiters map[domain.UserID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewRoomRateLimiter(perSecond float64, burst int) *RoomRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RoomRateLimiter{
		limiters: make(map[domain.UserID]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *RoomRateLimiter) Allow(uid domain.UserID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	l, ok := rl.limiters[uid]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[uid] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

func (rl *RoomRateLimiter) Forget(uid domain.UserID) {
	rl.mu.Lock()
	delete(rl.limiters, uid)
	rl.mu.Unlock()
}
