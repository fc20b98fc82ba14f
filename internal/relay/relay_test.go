package relay

import (
	"context"
	"io"
	"net"
	"testing"
	"time"
)

func TestRunForwardsPrefixAndBothDirections(t *testing.T) {
	clientSide, clientPeer := net.Pipe()
	backendSide, backendPeer := net.Pipe()

	r := New(clientPeer, backendPeer, 4096, nil)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), []byte("PREFIX"))
		close(done)
	}()

	buf := make([]byte, 6)
	if _, err := io.ReadFull(backendSide, buf); err != nil {
		t.Fatalf("reading prefix from backend: %v", err)
	}
	if string(buf) != "PREFIX" {
		t.Fatalf("backend got %q, want PREFIX", buf)
	}

	go func() {
		clientSide.Write([]byte("hello"))
	}()
	buf2 := make([]byte, 5)
	if _, err := io.ReadFull(backendSide, buf2); err != nil {
		t.Fatalf("reading client->backend: %v", err)
	}
	if string(buf2) != "hello" {
		t.Fatalf("backend got %q, want hello", buf2)
	}

	go func() {
		backendSide.Write([]byte("world"))
	}()
	buf3 := make([]byte, 5)
	if _, err := io.ReadFull(clientSide, buf3); err != nil {
		t.Fatalf("reading backend->client: %v", err)
	}
	if string(buf3) != "world" {
		t.Fatalf("client got %q, want world", buf3)
	}

	clientSide.Close()
	backendSide.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after both sides closed")
	}
}

func TestRunExitsWhenClientClosesImmediately(t *testing.T) {
	clientSide, clientPeer := net.Pipe()
	backendSide, backendPeer := net.Pipe()
	defer backendSide.Close()

	r := New(clientPeer, backendPeer, 4096, nil)
	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), nil)
		close(done)
	}()

	clientSide.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after client closed")
	}
}
