package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces per-client request rates and daily quotas using
// fixed minute, hour and day windows.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64 // bytes

	clients map[string]*clientWindow
	now     func() time.Time
}

type clientWindow struct {
	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time
	usage       Usage
}

// Usage is a snapshot of one client's consumption in the current windows.
type Usage struct {
	RequestsThisMinute int       `json:"requests_this_minute"`
	RequestsThisHour   int       `json:"requests_this_hour"`
	RequestsToday      int       `json:"requests_today"`
	BytesToday         int64     `json:"bytes_today"`
	LastRequest        time.Time `json:"last_request"`
}

// NewRateLimiter creates a rate limiter. A zero limit disables that check.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*clientWindow),
		now:               time.Now,
	}
}

// CheckRateLimit admits a request of dataSize bytes from clientID, or
// returns a *RateLimitError or *QuotaExceededError. Rejected requests do
// not count against the client.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[clientID]
	if !ok {
		w = &clientWindow{minuteStart: now, hourStart: now, dayStart: startOfDay(now)}
		rl.clients[clientID] = w
	}
	w.roll(now)

	if rl.requestsPerMinute > 0 && w.usage.RequestsThisMinute >= rl.requestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.requestsPerMinute,
			RetryAfter: w.minuteStart.Add(time.Minute).Sub(now),
		}
	}
	if rl.requestsPerHour > 0 && w.usage.RequestsThisHour >= rl.requestsPerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.requestsPerHour,
			RetryAfter: w.hourStart.Add(time.Hour).Sub(now),
		}
	}

	resets := w.dayStart.AddDate(0, 0, 1)
	if rl.maxRequestsPerDay > 0 && w.usage.RequestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{
			Type:   "requests",
			Limit:  int64(rl.maxRequestsPerDay),
			Used:   int64(w.usage.RequestsToday),
			Resets: resets,
		}
	}
	if rl.maxDataPerDay > 0 && w.usage.BytesToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{
			Type:   "data",
			Limit:  rl.maxDataPerDay,
			Used:   w.usage.BytesToday,
			Resets: resets,
		}
	}

	w.usage.RequestsThisMinute++
	w.usage.RequestsThisHour++
	w.usage.RequestsToday++
	w.usage.BytesToday += dataSize
	w.usage.LastRequest = now
	return nil
}

// roll starts new windows for every period that has elapsed.
func (w *clientWindow) roll(now time.Time) {
	if now.Sub(w.minuteStart) >= time.Minute {
		w.minuteStart = now
		w.usage.RequestsThisMinute = 0
	}
	if now.Sub(w.hourStart) >= time.Hour {
		w.hourStart = now
		w.usage.RequestsThisHour = 0
	}
	if day := startOfDay(now); day.After(w.dayStart) {
		w.dayStart = day
		w.usage.RequestsToday = 0
		w.usage.BytesToday = 0
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GetUsage returns the current usage of clientID. Unknown clients report
// zero usage.
func (rl *RateLimiter) GetUsage(clientID string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if w, ok := rl.clients[clientID]; ok {
		return w.usage
	}
	return Usage{}
}

// Prune forgets clients idle for longer than maxIdle and returns how many
// were removed.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for id, w := range rl.clients {
		if now.Sub(w.usage.LastRequest) > maxIdle {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
}

// RateLimitError reports an exceeded request rate.
type RateLimitError struct {
	Type       string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError reports an exhausted daily quota.
type QuotaExceededError struct {
	Type   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
