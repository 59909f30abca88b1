package api

import (
	"net"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// defaultMaxBuckets caps per-session buckets before clients share one per address.
const defaultMaxBuckets = 10000

// SessionLimiter hands out one token bucket per client address and session.
// Idle buckets expire with the session. Once maxBuckets are live, sessions
// not seen before share their address's bucket.
type SessionLimiter struct {
	mu         sync.Mutex
	limiters   *gocache.Cache
	limit      rate.Limit
	burst      int
	maxBuckets int
}

// NewSessionLimiter creates a limiter allowing rps sustained requests and
// bursts of burst per session. A non-positive rps disables limiting.
func NewSessionLimiter(rps float64, burst int, idle time.Duration) *SessionLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	if idle <= 0 {
		idle = time.Hour
	}
	return &SessionLimiter{
		limiters:   gocache.New(idle, idle),
		limit:      rate.Limit(rps),
		burst:      burst,
		maxBuckets: defaultMaxBuckets,
	}
}

// Allow reports whether the session may make a request now.
func (l *SessionLimiter) Allow(remoteAddr, sessionID string) bool {
	return l.get(clientHost(remoteAddr), sessionID).Allow()
}

// Buckets returns the number of live buckets.
func (l *SessionLimiter) Buckets() int {
	return l.limiters.ItemCount()
}

func (l *SessionLimiter) get(host, sessionID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := host + "|" + sessionID
	if _, ok := l.limiters.Get(key); !ok && l.limiters.ItemCount() >= l.maxBuckets {
		key = host
	}

	if v, ok := l.limiters.Get(key); ok {
		// Touch to slide the idle expiry.
		l.limiters.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters.SetDefault(key, lim)
	return lim
}

func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
