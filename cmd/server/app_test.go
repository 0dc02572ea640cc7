package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/database"
	"orders-dashboard/internal/kafka"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"
	"orders-dashboard/internal/redis"
	"orders-dashboard/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersQuery = `SELECT row_to_json\(o\) FROM orders o ORDER BY o.id DESC`

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: "0", AllowedOrigins: []string{"*"}},
		Database: config.DatabaseConfig{Table: "orders"},
		Logger:   config.LoggerConfig{Level: "error", Format: "json"},
		Dashboard: config.DashboardConfig{
			WarningMinutes:        20,
			CriticalMinutes:       30,
			PageSizes:             []int{10, 20, 30},
			DefaultPageSize:       10,
			TimeZone:              "UTC",
			PrimaryDepartment:     "Возрождение",
			RequestTimeoutSeconds: 2,
		},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}
}

// stubFactories подменяет подключения: база на sqlmock, Redis недоступен, Kafka выключена
func stubFactories(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	origLoad, origDB, origRedis := loadConfig, dbConnect, redisConnect
	t.Cleanup(func() {
		loadConfig, dbConnect, redisConnect = origLoad, origDB, origRedis
		_ = sqlDB.Close()
	})

	loadConfig = testConfig
	dbConnect = func(*config.DatabaseConfig, *logger.Logger) (*database.DB, error) {
		return &database.DB{DB: sqlDB}, nil
	}
	redisConnect = func(*config.RedisConfig, *logger.Logger) (*redis.Client, error) {
		return nil, errors.New("redis is down")
	}
	return mock
}

func orderRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"row_to_json"}).
		AddRow([]byte(`{"id": 2, "department": "Центр", "time_between_messages": "35мин", "order_status": "Новый,Отменен", "order_amount": 20}`)).
		AddRow([]byte(`{"id": 1, "department": "Возрождение", "time_between_messages": "5мин", "order_status": "Новый", "order_amount": 50}`))
}

func TestBuildApplication_WithoutOptionalServices(t *testing.T) {
	mock := stubFactories(t)

	app, err := buildApplication()
	require.NoError(t, err)
	assert.Nil(t, app.redis)
	assert.Nil(t, app.producer)
	assert.Nil(t, app.consumer)

	mock.ExpectQuery(ordersQuery).WillReturnRows(orderRows())

	rr := httptest.NewRecorder()
	app.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var view models.OrdersView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	assert.Equal(t, uint64(1), view.Version)
	assert.Len(t, view.Table.Rows, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildApplication_Routes(t *testing.T) {
	mock := stubFactories(t)
	app, err := buildApplication()
	require.NoError(t, err)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health/liveness", http.StatusOK},
		{http.MethodGet, "/health/readiness", http.StatusOK},
		{http.MethodGet, "/api/rate-limit/status", http.StatusOK},
		{http.MethodPost, "/api/session", http.StatusCreated},
		{http.MethodGet, "/api/session/not-a-uuid", http.StatusBadRequest},
		{http.MethodPut, "/api/orders/refresh", http.StatusMethodNotAllowed},
	}

	mock.ExpectQuery(ordersQuery).WillReturnRows(orderRows())

	for _, tc := range cases {
		rr := httptest.NewRecorder()
		app.handler.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, rr.Code, "%s %s: %s", tc.method, tc.path, rr.Body.String())
	}
}

func TestBuildApplication_DBError(t *testing.T) {
	stubFactories(t)
	dbConnect = func(*config.DatabaseConfig, *logger.Logger) (*database.DB, error) {
		return nil, errors.New("connection refused")
	}

	_, err := buildApplication()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db connect")
}

func TestBuildApplication_KafkaProducerError(t *testing.T) {
	stubFactories(t)
	loadConfig = func() *config.Config {
		cfg := testConfig()
		cfg.Kafka.Enabled = true
		return cfg
	}
	origProducer := newKafkaProducer
	t.Cleanup(func() { newKafkaProducer = origProducer })
	newKafkaProducer = func(*config.KafkaConfig, *logger.Logger) (*kafka.Producer, error) {
		return nil, errors.New("no brokers")
	}

	_, err := buildApplication()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka producer")
}

type countingStore struct {
	calls int
}

func (s *countingStore) ListOrders(ctx context.Context) ([]models.RawOrder, error) {
	s.calls++
	return []models.RawOrder{{"id": s.calls}}, nil
}

func TestRegisterEventHandlers_RefreshesFeed(t *testing.T) {
	log := logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
	cfg := testConfig()
	st := &countingStore{}
	feed := services.NewOrderFeed(st, nil, log, &cfg.Dashboard)
	analytics := services.NewAnalyticsService(feed, nil, log, &cfg.Dashboard)

	consumer := kafka.NewTestConsumer(nil, log)
	registerEventHandlers(consumer, feed, analytics, log)

	handler := consumer.Handler(models.EventTypeOrderChanged)
	require.NotNil(t, handler)
	require.NoError(t, handler(context.Background(), models.NewEvent(models.EventTypeOrderChanged, nil)))

	assert.Equal(t, 1, st.calls)
	assert.Equal(t, uint64(1), feed.Snapshot().Version)
}

func TestSummaryCommand_PrintsDashboard(t *testing.T) {
	mock := stubFactories(t)
	mock.ExpectQuery(ordersQuery).WillReturnRows(orderRows())

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"summary", "--problem-only"})
	require.NoError(t, cmd.Execute())

	var dashboard models.Dashboard
	require.NoError(t, json.Unmarshal(out.Bytes(), &dashboard))
	assert.Equal(t, 1, dashboard.Summary.TotalOrders)
	assert.Equal(t, 1, dashboard.Summary.CancelledOrders)
}

func TestSummaryCommand_RejectsInvertedRange(t *testing.T) {
	stubFactories(t)

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"summary", "--start", "2024-03-10", "--end", "2024-03-01"})
	assert.Error(t, cmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "dev\n", out.String())
}
