package httpapi

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"legaldesk/internal/auth"
	"legaldesk/internal/domain"
	"legaldesk/internal/logging"
	"legaldesk/internal/policy"
)

const identityKey = "identity"

// identify resolves the session cookie into the caller's identity. A missing,
// expired or tampered token leaves the request anonymous.
func (s *Server) identify(c *gin.Context) {
	token, err := c.Cookie(auth.CookieName)
	if err == nil && token != "" {
		if id := s.svc.Auth.Authenticate(token); id != nil {
			c.Set(identityKey, id)
			c.Set(logging.UserIDKey, id.ID)
		}
	}
	c.Next()
}

// identity returns the caller, nil when anonymous.
func identity(c *gin.Context) *domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*domain.Identity)
	return id
}

// allowed runs a role check before the body is read, so callers without
// access see 401/403 whatever they send.
func (s *Server) allowed(c *gin.Context, check func(*domain.Identity) error) bool {
	if err := check(identity(c)); err != nil {
		s.fail(c, err)
		return false
	}
	return true
}

func authenticated(id *domain.Identity) error {
	if id == nil {
		return policy.ErrUnauthenticated
	}
	return nil
}

// RateLimiter keeps one token bucket per client ip.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		// drop everything once the table grows large; buckets refill anyway
		if len(rl.limiters) >= 10000 {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
