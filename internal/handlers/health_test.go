package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IBM/sarama"
)

type stubDB struct{ err error }

func (s *stubDB) Health() error { return s.err }

type stubRedisHealth struct{ err error }

func (s *stubRedisHealth) Health(ctx context.Context) error { return s.err }

func kafkaResult(err error) KafkaChecker {
	return func([]string) error { return err }
}

func TestHealthHandler_Health(t *testing.T) {
	cases := []struct {
		name     string
		handler  *HealthHandler
		status   int
		services map[string]string
	}{
		{
			name:     "all dependencies healthy",
			handler:  NewHealthHandler(&stubDB{}, &stubRedisHealth{}, []string{"kafka:9092"}, kafkaResult(nil)),
			status:   http.StatusOK,
			services: map[string]string{"database": "healthy", "redis": "healthy", "kafka": "healthy"},
		},
		{
			name:     "optional dependencies disabled",
			handler:  NewHealthHandler(&stubDB{}, nil, nil, nil),
			status:   http.StatusOK,
			services: map[string]string{"database": "healthy", "redis": "disabled", "kafka": "disabled"},
		},
		{
			name:     "redis down",
			handler:  NewHealthHandler(&stubDB{}, &stubRedisHealth{err: errors.New("redis down")}, nil, nil),
			status:   http.StatusServiceUnavailable,
			services: map[string]string{"database": "healthy", "redis": "unhealthy: redis down", "kafka": "disabled"},
		},
		{
			name:     "database missing",
			handler:  NewHealthHandler(nil, nil, nil, nil),
			status:   http.StatusServiceUnavailable,
			services: map[string]string{"database": "unhealthy: database is not configured", "redis": "disabled", "kafka": "disabled"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.handler.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for name, want := range tc.services {
				if resp.Services[name] != want {
					t.Fatalf("service %s: expected %q, got %q", name, want, resp.Services[name])
				}
			}
			if resp.Version != Version {
				t.Fatalf("expected version %s, got %s", Version, resp.Version)
			}
		})
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	cases := []struct {
		name    string
		handler *HealthHandler
		status  int
		message string
	}{
		{"ready", NewHealthHandler(&stubDB{}, &stubRedisHealth{}, nil, nil), http.StatusOK, ""},
		{"ready without redis", NewHealthHandler(&stubDB{}, nil, nil, nil), http.StatusOK, ""},
		{"database down", NewHealthHandler(&stubDB{err: errors.New("db down")}, nil, nil, nil), http.StatusServiceUnavailable, "Database not ready"},
		{"redis down", NewHealthHandler(&stubDB{}, &stubRedisHealth{err: errors.New("timeout")}, nil, nil), http.StatusServiceUnavailable, "Redis not ready"},
		{"kafka down", NewHealthHandler(&stubDB{}, nil, []string{"kafka:9092"}, kafkaResult(errors.New("kafka down"))), http.StatusServiceUnavailable, "Kafka not ready"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.handler.Readiness(rr, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if tc.message == "" {
				return
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Message != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, resp.Message)
			}
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil, nil)

	rr := httptest.NewRecorder()
	h.Liveness(rr, httptest.NewRequest(http.MethodGet, "/health/liveness", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("liveness must not depend on database, got %d", rr.Code)
	}
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	h := NewHealthHandler(&stubDB{}, nil, nil, nil)
	endpoints := map[string]http.HandlerFunc{
		"/health":           h.Health,
		"/health/readiness": h.Readiness,
		"/health/liveness":  h.Liveness,
	}
	for path, handler := range endpoints {
		rr := httptest.NewRecorder()
		handler(rr, httptest.NewRequest(http.MethodPost, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", path, rr.Code)
		}
	}
}

func TestCheckKafkaHealth_NoBrokers(t *testing.T) {
	if err := CheckKafkaHealth(nil); err == nil {
		t.Fatalf("expected error for empty brokers")
	}
}

func TestCheckKafkaHealth_WithMockBroker(t *testing.T) {
	broker := sarama.NewMockBroker(t, 1)
	defer broker.Close()

	broker.SetHandlerByMap(map[string]sarama.MockResponse{
		"MetadataRequest": sarama.NewMockMetadataResponse(t).
			SetBroker(broker.Addr(), broker.BrokerID()).
			SetController(broker.BrokerID()).
			SetLeader("orders", 0, broker.BrokerID()),
	})

	if err := checkKafkaHealth([]string{broker.Addr()}); err != nil {
		t.Fatalf("expected kafka health ok, got %v", err)
	}
}
