package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is a token-bucket limiter keyed by caller. It fronts the
// question endpoint, where every request fans out into provider calls.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   float64
	keyFn   func(*http.Request) string
}

// NewRateLimiter builds a limiter keyed by keyFn; a nil keyFn falls back
// to the remote address.
func NewRateLimiter(rps float64, burst int, keyFn func(*http.Request) string) *RateLimiter {
	if keyFn == nil {
		keyFn = func(r *http.Request) string { return r.RemoteAddr }
	}
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rps,
		burst:   float64(burst),
		keyFn:   keyFn,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFn(r)

		rl.mu.Lock()
		b, exists := rl.buckets[key]
		if !exists {
			b = &bucket{tokens: rl.burst, lastSeen: time.Now()}
			rl.buckets[key] = b
		}

		elapsed := time.Since(b.lastSeen).Seconds()
		b.tokens += elapsed * rl.rate
		if b.tokens > rl.burst {
			b.tokens = rl.burst
		}
		b.lastSeen = time.Now()

		if b.tokens < 1 {
			rl.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}

		b.tokens--
		rl.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for key, b := range rl.buckets {
			if time.Since(b.lastSeen) > 3*time.Minute {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}
