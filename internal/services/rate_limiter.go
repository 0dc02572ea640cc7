package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/redis"
)

// SessionHeader передает идентификатор сессии дашборда
const SessionHeader = "X-Session-ID"

// RateLimiter ограничивает число запросов клиента в фиксированном окне.
// Клиент определяется сессией дашборда, а без нее адресом.
type RateLimiter struct {
	counter windowCounter
	log     *logger.Logger
	enabled bool
	limit   int64
	window  time.Duration
	prefix  string
}

type windowCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

// Decision описывает результат проверки лимита
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// NewRateLimiter создает ограничитель; без Redis или при выключенной настройке пропускает все запросы
func NewRateLimiter(redisClient *redis.Client, log *logger.Logger, cfg *config.RateLimitConfig) *RateLimiter {
	if redisClient == nil || cfg == nil || !cfg.Enabled || cfg.Requests <= 0 || cfg.WindowSeconds <= 0 {
		return &RateLimiter{enabled: false}
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &RateLimiter{
		counter: redisClient,
		log:     log,
		enabled: true,
		limit:   int64(cfg.Requests),
		window:  time.Duration(cfg.WindowSeconds) * time.Second,
		prefix:  prefix,
	}
}

// Allow учитывает запрос клиента и сообщает, укладывается ли он в лимит
func (r *RateLimiter) Allow(ctx context.Context, client string) (Decision, error) {
	now := time.Now()
	if !r.enabled {
		return Decision{Allowed: true, Limit: r.limit, Remaining: r.limit, ResetAt: now.Add(r.window)}, nil
	}

	key := r.makeKey(client)
	count, err := r.counter.Incr(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter incr failed: %w", err)
	}

	if count == 1 {
		if err := r.counter.Expire(ctx, key, r.window); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("Failed to set rate limit window")
		}
	}

	ttl, err := r.counter.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		ttl = r.window
	}

	return Decision{
		Allowed:   count <= r.limit,
		Limit:     r.limit,
		Remaining: remainingOf(r.limit, count),
		ResetAt:   now.Add(ttl),
	}, nil
}

// Usage возвращает состояние окна клиента без учета нового запроса
func (r *RateLimiter) Usage(ctx context.Context, client string) (used int64, d Decision, err error) {
	d = Decision{Allowed: true, Limit: r.limit, Remaining: r.limit}
	if !r.enabled {
		return 0, d, nil
	}

	key := r.makeKey(client)
	used, err = r.counter.GetInt(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return 0, d, nil
		}
		return 0, d, fmt.Errorf("rate limiter usage failed: %w", err)
	}

	if ttl, err := r.counter.TTL(ctx, key); err == nil && ttl > 0 {
		d.ResetAt = time.Now().Add(ttl)
	}
	d.Remaining = remainingOf(r.limit, used)
	d.Allowed = used < r.limit
	return used, d, nil
}

func (r *RateLimiter) makeKey(client string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.ReplaceAll(client, ":", "_"))
}

// Limit возвращает лимит окна
func (r *RateLimiter) Limit() int64 {
	return r.limit
}

// Enabled сообщает, включено ли ограничение
func (r *RateLimiter) Enabled() bool {
	return r.enabled
}

func remainingOf(limit, used int64) int64 {
	if used >= limit {
		return 0
	}
	return limit - used
}

// ClientKey определяет клиента запроса: сессия дашборда, иначе IP
func ClientKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return "session:" + id
	}
	return "ip:" + ExtractClientIP(r)
}

// ExtractClientIP получает IP из заголовков прокси или RemoteAddr
func ExtractClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
