package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/lock"
)

// ErrNoToken is returned when the dashboard is requested without an admin session.
var ErrNoToken = errors.New("analytics: admin token missing from context")

// OrderSource loads order history on behalf of an admin token.
type OrderSource interface {
	OrderHistory(ctx context.Context, token string) ([]HistoricalOrder, error)
}

// Service provides cached access to the dashboard report.
type Service struct {
	Source OrderSource
	R      *redis.Client
	TTL    time.Duration
	// Lock, when set, keeps concurrent misses for the same key from each
	// fetching the full order history.
	Lock *lock.Locker
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// Dashboard aggregates the order history visible to the admin session on ctx.
func (s *Service) Dashboard(ctx context.Context, loc *time.Location) (Report, error) {
	if s == nil || s.Source == nil {
		return Report{}, fmt.Errorf("analytics service not configured")
	}
	token, ok := common.AdminToken(ctx)
	if !ok {
		return Report{}, ErrNoToken
	}
	if loc == nil {
		loc = time.Local
	}
	key := cacheKey("an", "dash", common.Sha256Hex(token)[:16], loc.String())
	if report, ok := s.fromCache(ctx, key); ok {
		return report, nil
	}
	if s.Lock == nil || s.R == nil || s.TTL <= 0 {
		return s.compute(ctx, token, key, loc)
	}
	var (
		report Report
		ran    bool
	)
	err := s.Lock.WithLock(ctx, key, 30*time.Second, func(ctx context.Context) error {
		ran = true
		if cached, ok := s.fromCache(ctx, key); ok {
			report = cached
			return nil
		}
		var err error
		report, err = s.compute(ctx, token, key, loc)
		return err
	})
	if err != nil && !ran && ctx.Err() == nil {
		// the lock store is unavailable; serve an unguarded recomputation
		return s.compute(ctx, token, key, loc)
	}
	return report, err
}

func (s *Service) compute(ctx context.Context, token, key string, loc *time.Location) (Report, error) {
	orders, err := s.Source.OrderHistory(ctx, token)
	if err != nil {
		return Report{}, err
	}
	report := Aggregate(orders, loc)
	s.store(ctx, key, report)
	return report, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (Report, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Report{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return Report{}, false
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, false
	}
	return report, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
