package wsclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/schema"
)

func newServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func receive(t *testing.T, frames <-chan []byte) []byte {
	t.Helper()
	select {
	case frame, ok := <-frames:
		if !ok {
			t.Fatalf("frame stream closed")
		}
		return frame
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for frame")
	}
	return nil
}

func TestClientRoundTrip(t *testing.T) {
	tile := append([]byte("tile: part=0 x=0 y=0\n"), 0x89, 'P', 'N', 'G')
	url := newServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("echo "+string(msg)))
		_ = conn.WriteMessage(websocket.BinaryMessage, tile)
		_, _, _ = conn.ReadMessage()
	})

	ctx := context.Background()
	client, err := Dial(ctx, Options{URL: url, Origin: "http://localhost"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.Send(ctx, protocol.Load("file:///doc.odt")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := string(receive(t, client.Frames())); got != "echo load url=file:///doc.odt" {
		t.Fatalf("unexpected echo %q", got)
	}
	if got := receive(t, client.Frames()); string(got) != string(tile) {
		t.Fatalf("binary frame mismatch %q", got)
	}
}

func TestClientSendAfterClose(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})
	client, err := Dial(context.Background(), Options{URL: url})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.Send(context.Background(), protocol.RequestSession()); !errors.Is(err, schema.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestClientFramesCloseWhenServerLeaves(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})
	client, err := Dial(context.Background(), Options{URL: url})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	select {
	case _, ok := <-client.Frames():
		if ok {
			t.Fatalf("expected closed stream")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not close")
	}
	if err := client.Err(); err != nil {
		t.Fatalf("normal closure must not report an error, got %v", err)
	}
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), Options{URL: "ftp://example.com"})
	if !errors.Is(err, schema.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "scheme") {
		t.Fatalf("expected scheme error, got %v", err)
	}
}
