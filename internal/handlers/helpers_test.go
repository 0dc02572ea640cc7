package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"
	"orders-dashboard/internal/services"
)

type fakeStore struct {
	mu   sync.Mutex
	raws []models.RawOrder
	err  error
}

func (s *fakeStore) set(raws []models.RawOrder, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raws, s.err = raws, err
}

func (s *fakeStore) ListOrders(ctx context.Context) ([]models.RawOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raws, s.err
}

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

func newTestDashboardConfig() *config.DashboardConfig {
	return &config.DashboardConfig{
		WarningMinutes:        20,
		CriticalMinutes:       30,
		PageSizes:             []int{10, 20, 30},
		DefaultPageSize:       10,
		TimeZone:              "UTC",
		PrimaryDepartment:     "Возрождение",
		RequestTimeoutSeconds: 2,
	}
}

func fixtureOrders() []models.RawOrder {
	return []models.RawOrder{
		{"id": 1, "order_id": 101, "department": "Возрождение", "time_between_messages": "5мин", "order_status": "Новый,Выполнен", "order_amount": 50, "order_first_time": "10.03.2024 09:00:00"},
		{"id": 2, "order_id": 102, "department": "Центр", "time_between_messages": "1ч 5мин", "order_status": `["Новый","Отменен"]`, "order_amount": 20, "order_first_time": "11.03.2024 09:00:00"},
		{"id": 3, "order_id": 103, "department": "Центр", "time_between_messages": "25мин", "order_status": "Новый", "order_first_time": "12.03.2024 09:00:00"},
	}
}

type testEnv struct {
	store     *fakeStore
	feed      *services.OrderFeed
	analytics *services.AnalyticsService
	table     *services.TableView
	sessions  *services.SessionService
	cfg       *config.DashboardConfig
}

func newTestEnv(t *testing.T, raws []models.RawOrder, err error) *testEnv {
	t.Helper()
	cfg := newTestDashboardConfig()
	store := &fakeStore{raws: raws, err: err}
	feed := services.NewOrderFeed(store, nil, newTestLogger(), cfg)
	analytics := services.NewAnalyticsService(feed, nil, newTestLogger(), cfg)
	return &testEnv{
		store:     store,
		feed:      feed,
		analytics: analytics,
		table:     analytics.Table(),
		sessions:  services.NewSessionService(nil, analytics.Table(), newTestLogger(), cfg),
		cfg:       cfg,
	}
}

func (e *testEnv) orderHandler() *OrderHandler {
	return NewOrderHandler(e.analytics, e.feed, e.table, time.UTC, newTestLogger(), e.cfg)
}

func (e *testEnv) sessionHandler() *SessionHandler {
	return NewSessionHandler(e.sessions, NewSessionViews(e.analytics), time.UTC, newTestLogger(), e.cfg)
}
