package middleware

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/docgen-api/internal/api/shared"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"
)

// ErrRateLimited is logged when a submission is refused by the limiter.
var ErrRateLimited = errors.New("submission rate limit exceeded")

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	RequestsPerMinute float64
	Burst             int

	// CleanupInterval is how often idle entries are dropped. Zero disables
	// the background cleanup loop.
	CleanupInterval time.Duration

	// IdleTTL is how long an entry is kept after its last request.
	IdleTTL time.Duration
}

// RateLimiter keeps one token bucket per caller identity.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry

	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	onReject func()
	logger   *slog.Logger
	now      func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter creates a RateLimiter and starts its cleanup loop.
// Call Stop to end the loop.
func NewRateLimiter(cfg RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	rl := &RateLimiter{
		limiters:    make(map[string]*limiterEntry),
		limit:       rate.Limit(cfg.RequestsPerMinute / 60),
		burst:       burst,
		idleTTL:     cfg.IdleTTL,
		logger:      logger.With("component", "rate_limiter"),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go rl.cleanupLoop(cfg.CleanupInterval)
	}
	return rl
}

// SetRejectHandler registers fn to be called for every refused request.
func (rl *RateLimiter) SetRejectHandler(fn func()) {
	rl.onReject = fn
}

// Allow reports whether a request for key may proceed now and consumes a
// token if so.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.AllowAll(key)
}

// AllowAll reports whether every key has a token available now. Tokens are
// consumed only when all keys allow the request.
func (rl *RateLimiter) AllowAll(keys ...string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	reservations := make([]*rate.Reservation, 0, len(keys))
	for _, key := range keys {
		entry, ok := rl.limiters[key]
		if !ok {
			entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
			rl.limiters[key] = entry
		}
		entry.lastAccess = now

		res := entry.limiter.ReserveN(now, 1)
		if !res.OK() || res.DelayFrom(now) > 0 {
			res.CancelAt(now)
			for _, taken := range reservations {
				taken.CancelAt(now)
			}
			return false
		}
		reservations = append(reservations, res)
	}
	return true
}

// Len returns the number of tracked caller identities.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup removes entries that have been idle for longer than the TTL.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	removed := 0
	for key, entry := range rl.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("dropped idle rate limiter entries", "removed", removed, "remaining", len(rl.limiters))
	}
}

// Middleware refuses requests over the caller's budget with 429 Too Many
// Requests. A request must fit every budget returned by SubmissionKeys.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.AllowAll(SubmissionKeys(r)...) {
			next.ServeHTTP(w, r)
			return
		}

		if rl.onReject != nil {
			rl.onReject()
		}
		w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
		shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
			"Too many requests, please retry later", ErrRateLimited)
	})
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.limit <= 0 {
		return 60
	}
	return int(math.Ceil(1 / float64(rl.limit)))
}

// SubmissionKeys returns the budgets a submission is charged against: the
// client IP always, and a BLAKE2b digest of the apiKey when one is sent so
// the same credential is limited across addresses. The credential itself
// is never held. The body is restored for the next handler.
func SubmissionKeys(r *http.Request) []string {
	keys := []string{"ip:" + clientIP(r)}
	if r.Body == nil || r.Body == http.NoBody {
		return keys
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, shared.MaxRequestBodyBytes+1))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return keys
	}

	var probe struct {
		APIKey string `json:"apiKey"`
	}
	if json.Unmarshal(body, &probe) == nil && probe.APIKey != "" {
		keys = append(keys, "key:"+credentialDigest(probe.APIKey))
	}
	return keys
}

func credentialDigest(credential string) string {
	sum := blake2b.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:16])
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
