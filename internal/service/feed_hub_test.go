package service

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestFeedHubStopClosesClientPumps(t *testing.T) {
	logger.Log = zap.NewNop()

	hub := NewFeedHub(feed.NewMemoryBus())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, 7)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Both pump goroutines are running now.
	withConn := runtime.NumGoroutine()

	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the server to close the connection after Stop")
	}
	conn.Close()

	// The read pump must not stay parked on the unregister send once the
	// hub has shut down.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= withConn-2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("connection goroutines leaked after Stop: %d running, %d before shutdown",
		runtime.NumGoroutine(), withConn)
}
