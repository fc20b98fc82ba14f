package wsproto_test

import (
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/diogin/multiflowproxy/internal/handshake"
)

// TestHandshakeInteropWithGorillaClient proves handshake.Parse produces a
// wire-compatible 101 reply by driving a real gorilla/websocket client
// against it instead of hand-built byte literals: the client's upgrade
// request is parsed exactly as the connection handler would, and the
// client only succeeds if the computed Sec-WebSocket-Accept is correct.
func TestHandshakeInteropWithGorillaClient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverErr := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverErr <- err
			return
		}
		defer conn.Close()

		conn.SetDeadline(time.Now().Add(5 * time.Second))
		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if err != nil {
			serverErr <- err
			return
		}

		res := handshake.Parse(buf[:n], "HTTP/1.1 200 OK\r\n\r\n")
		if !res.IsWebSocketUpgrade {
			serverErr <- errNotUpgrade
			return
		}
		if _, err := conn.Write(res.Reply); err != nil {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	url := "ws://" + ln.Addr().String() + "/tunnel"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("gorilla dial: %v (status %v)", err, statusOf(resp))
	}
	defer conn.Close()

	if err := <-serverErr; err != nil {
		t.Fatalf("server side: %v", err)
	}
}

var errNotUpgrade = &upgradeError{"request did not classify as a websocket upgrade"}

type upgradeError struct{ msg string }

func (e *upgradeError) Error() string { return e.msg }

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
