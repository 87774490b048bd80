package handler

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

// clientBuckets holds one token bucket per client address.
type clientBuckets struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets map[string]*bucket
}

type bucket struct {
	*rate.Limiter
	touched time.Time
}

func (b *clientBuckets) take(addr string, now time.Time) bool {
	b.mu.Lock()
	bk, ok := b.buckets[addr]
	if !ok {
		bk = &bucket{Limiter: rate.NewLimiter(b.rps, b.burst)}
		b.buckets[addr] = bk
	}
	bk.touched = now
	b.mu.Unlock()
	return bk.AllowN(now, 1)
}

// evict drops buckets untouched since cutoff.
func (b *clientBuckets) evict(cutoff time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for addr, bk := range b.buckets {
		if bk.touched.Before(cutoff) {
			delete(b.buckets, addr)
		}
	}
}

// RateLimiter throttles each client IP to rps requests per second with bursts
// up to burst. Rejections are counted in clay_rate_limited_total. Idle
// buckets are evicted until ctx is done.
func RateLimiter(ctx context.Context, rps float64, burst int) gin.HandlerFunc {
	b := &clientBuckets{rps: rate.Limit(rps), burst: burst, buckets: map[string]*bucket{}}

	go func() {
		t := time.NewTicker(limiterSweepEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				b.evict(now.Add(-limiterIdleAfter))
			}
		}
	}()

	retryAfter := "1"
	if rps > 0 && rps < 1 {
		retryAfter = strconv.Itoa(int(1/rps + 0.5))
	}

	return func(c *gin.Context) {
		if b.take(c.ClientIP(), time.Now()) {
			c.Next()
			return
		}
		rateLimitedTotal.Inc()
		c.Header("Retry-After", retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, slow down"})
	}
}
