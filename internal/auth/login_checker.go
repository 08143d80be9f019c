package auth

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultCacheSize = 4 * 1024 * 1024
	// upper bound on how long a logged out token may still pass on another instance
	cacheTTL = 30 * time.Second
)

// LoginChecker resolves tokens to actors, with an in-process cache above redis.
type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	cache       *freecache.Cache
	now         func() time.Time
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client, cacheSize int) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		cache:       freecache.NewCache(cacheSize),
		now:         time.Now,
	}
}

// Check returns the actor behind the token. A missing or expired session is
// not an error, it just reports false.
func (c *LoginChecker) Check(ctx context.Context, token string) (_ fitness.Actor, _ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.login_checker.check")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if cached, err := c.cache.Get([]byte(token)); err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return c.resolve(cached)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	sessionKey := sessionKeyPrefix + token
	cmd := c.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return fitness.Actor{}, false, nil
		}
		return fitness.Actor{}, false, err
	}

	raw := []byte(cmd.Val())
	actor, ok, err := c.resolve(raw)
	if err != nil || !ok {
		return actor, ok, err
	}

	if err := c.cache.Set([]byte(token), raw, int(cacheTTL.Seconds())); err != nil {
		// too large for the cache, not a reason to fail the request
		span.RecordError(err)
	}
	return actor, true, nil
}

func (c *LoginChecker) resolve(raw []byte) (fitness.Actor, bool, error) {
	session, err := parseLoginSession(raw)
	if err != nil {
		return fitness.Actor{}, false, err
	}
	if session.expired(c.ttl, c.now()) {
		return fitness.Actor{}, false, nil
	}
	return session.Actor(), true, nil
}

// Forget drops the token from the local cache, used on logout.
func (c *LoginChecker) Forget(token string) {
	c.cache.Del([]byte(token))
}
