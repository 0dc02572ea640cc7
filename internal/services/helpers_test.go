package services

import (
	"strings"
	"testing"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/redis"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "debug", Format: "json"})
}

func newTestDashboardConfig() *config.DashboardConfig {
	return &config.DashboardConfig{
		WarningMinutes:        20,
		CriticalMinutes:       30,
		PageSizes:             []int{10, 20, 30},
		DefaultPageSize:       10,
		TimeZone:              "UTC",
		PrimaryDepartment:     "Возрождение",
		CacheTTLMinutes:       5,
		SessionTTLHours:       1,
		RequestTimeoutSeconds: 2,
	}
}

// newTestRedis поднимает miniredis и возвращает сервер вместе с клиентом
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skip: cannot start miniredis in this environment: %v", err)
		}
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	parts := strings.Split(mr.Addr(), ":")
	cfg := &config.RedisConfig{
		Host: parts[0],
		Port: parts[1],
		DB:   0,
	}

	rdb, err := redis.Connect(cfg, newTestLogger())
	if err != nil {
		t.Fatalf("failed to connect redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}
