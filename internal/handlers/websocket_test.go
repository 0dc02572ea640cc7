package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newSocketServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	// первый снимок загружается заранее, чтобы его применение не давало лишней отправки
	env.feed.Refresh(context.Background())
	h := NewSessionSocketHandler(env.sessions, NewSessionViews(env.analytics), env.feed, time.UTC, newTestLogger(), []string{"*"})
	srv := httptest.NewServer(http.HandlerFunc(h.Connect))
	t.Cleanup(srv.Close)
	return srv
}

func dialSession(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) socketMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg socketMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestSessionSocket_PushesViews(t *testing.T) {
	env := newTestEnv(t, fixtureOrders(), nil)
	srv := newSocketServer(t, env)

	sc, err := env.sessions.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer env.sessions.Release(sc)

	conn := dialSession(t, srv, sc.ID())

	initial := readMessage(t, conn)
	if initial.Type != "view" || initial.View == nil || initial.View.Orders.Table.TotalRows != 3 {
		t.Fatalf("unexpected initial message: %+v", initial)
	}

	// намерение, присланное по сокету, меняет сессию и возвращает новое представление
	if err := conn.WriteJSON(IntentRequest{Type: IntentToggleDepartment, Department: strPtr("Центр")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	changed := readMessage(t, conn)
	if changed.View == nil || changed.View.Orders.Table.TotalRows != 2 {
		t.Fatalf("expected filtered view, got %+v", changed)
	}

	// новый снимок заказов тоже приводит к отправке представления
	env.store.set(fixtureOrders()[:2], nil)
	env.feed.Refresh(context.Background())
	refreshed := readMessage(t, conn)
	if refreshed.View == nil || refreshed.View.Orders.Table.TotalRows != 1 {
		t.Fatalf("expected view for new snapshot, got %+v", refreshed)
	}
}

func TestSessionSocket_InvalidIntentReportsError(t *testing.T) {
	env := newTestEnv(t, fixtureOrders(), nil)
	srv := newSocketServer(t, env)

	sc, err := env.sessions.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer env.sessions.Release(sc)

	conn := dialSession(t, srv, sc.ID())
	readMessage(t, conn)

	if err := conn.WriteJSON(IntentRequest{Type: IntentSetPageSize, PageSize: intPtr(7)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != "error" || msg.Message == "" {
		t.Fatalf("expected error message, got %+v", msg)
	}
}

func TestSessionSocket_UnknownSession(t *testing.T) {
	env := newTestEnv(t, fixtureOrders(), nil)
	srv := newSocketServer(t, env)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session/123e4567-e89b-12d3-a456-426614174000"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})

	r := httptest.NewRequest(http.MethodGet, "/ws/session/x", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	if !check(r) {
		t.Fatalf("expected allowed origin")
	}

	r.Header.Set("Origin", "http://evil.example")
	if check(r) {
		t.Fatalf("expected rejected origin")
	}
}

func strPtr(s string) *string { return &s }

func intPtr(v int) *int { return &v }
