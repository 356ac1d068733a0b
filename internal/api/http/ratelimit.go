package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/JKGhartey/task-manager-sub001/pkg/util"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore keeps one token bucket per client IP and evicts idle entries.
type visitorStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       int
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newVisitorStore(rps, burst int, ttl time.Duration) *visitorStore {
	return &visitorStore{
		visitors:  make(map[string]*visitor),
		rps:       rps,
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *visitorStore) limiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.ttl {
		for key, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.ttl {
				delete(s.visitors, key)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *visitorStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit enforces a per-IP token bucket. A non-positive rps disables limiting.
func RateLimit(rps, burst int, logger *zap.Logger) fiber.Handler {
	if rps <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if burst <= 0 {
		burst = rps
	}
	store := newVisitorStore(rps, burst, 3*time.Minute)

	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if !store.limiter(ip).Allow() {
			logger.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Path()))
			return apperrors.NewRateLimited()
		}
		return c.Next()
	}
}
