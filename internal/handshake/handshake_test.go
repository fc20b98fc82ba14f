package handshake

import (
	"bytes"
	"testing"
)

func TestParseWebSocketUpgrade(t *testing.T) {
	req := "GET / HTTP/1.1\r\nHost: x\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"
	res := Parse([]byte(req), "HTTP/1.1 200 OK\r\n\r\n")

	if res.Action != ActionContinue {
		t.Fatalf("Action = %v, want ActionContinue", res.Action)
	}
	if !res.IsWebSocketUpgrade {
		t.Fatal("IsWebSocketUpgrade = false, want true")
	}
	want := "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n\r\n"
	if string(res.Reply) != want {
		t.Fatalf("Reply = %q, want %q", res.Reply, want)
	}
	if res.UsedDefaultKey {
		t.Fatal("UsedDefaultKey = true, want false (key was present)")
	}
}

func TestParseWebSocketUpgradeMissingKeyUsesDefault(t *testing.T) {
	req := "GET / HTTP/1.1\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n"
	res := Parse([]byte(req), "HTTP/1.1 200 OK\r\n\r\n")

	if !res.UsedDefaultKey {
		t.Fatal("UsedDefaultKey = false, want true")
	}
	wantAccept := AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	if !bytes.Contains(res.Reply, []byte(wantAccept)) {
		t.Fatalf("Reply %q does not contain expected accept key %q", res.Reply, wantAccept)
	}
}

func TestParsePlainHTTPUsesDefaultReply(t *testing.T) {
	req := "GET / HTTP/1.1\r\n\r\n"
	res := Parse([]byte(req), "HTTP/1.1 200 OK\r\n\r\n")

	if res.Action != ActionContinue {
		t.Fatalf("Action = %v, want ActionContinue", res.Action)
	}
	if res.IsWebSocketUpgrade {
		t.Fatal("IsWebSocketUpgrade = true, want false")
	}
	if string(res.Reply) != "HTTP/1.1 200 OK\r\n\r\n" {
		t.Fatalf("Reply = %q, want default response", res.Reply)
	}
}

func TestParseMalformedRequestReturns400(t *testing.T) {
	res := Parse([]byte("HELLO\r\n\r\n"), "HTTP/1.1 200 OK\r\n\r\n")

	if res.Action != ActionClose {
		t.Fatalf("Action = %v, want ActionClose", res.Action)
	}
	if string(res.Reply) != "HTTP/1.1 400 Bad Request\r\n\r\n" {
		t.Fatalf("Reply = %q, want 400", res.Reply)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	req := []byte("GET / HTTP/1.1\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n")
	first := Parse(req, "HTTP/1.1 200 OK\r\n\r\n")
	second := Parse(req, "HTTP/1.1 200 OK\r\n\r\n")
	if !bytes.Equal(first.Reply, second.Reply) {
		t.Fatalf("Parse is not idempotent: %q != %q", first.Reply, second.Reply)
	}
}

func TestAcceptKeyMatchesRFC6455Vector(t *testing.T) {
	// RFC 6455 §1.3 worked example.
	got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Fatalf("AcceptKey = %q, want %q", got, want)
	}
}

func TestParseCaseInsensitiveHeaders(t *testing.T) {
	req := "GET / HTTP/1.1\r\nUPGRADE: WebSocket\r\nCONNECTION: upgrade\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"
	res := Parse([]byte(req), "HTTP/1.1 200 OK\r\n\r\n")
	if !res.IsWebSocketUpgrade {
		t.Fatal("case-insensitive header match failed")
	}
}
