// Package handshake implements the response parser from spec §4.1: it
// classifies the opening bytes of an HTTP-shaped connection, answers the
// WebSocket upgrade question, and produces the exact reply bytes to
// write back to the client. It is only consulted once the protocol
// sniffer (internal/protosniff) has already ruled out SSH/OpenVPN/VMess
// and returned Unknown.
package handshake

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"strings"

	"github.com/diogin/multiflowproxy/internal/wsproto"
)

// Action tells the caller what to do with Reply.
type Action int

const (
	// ActionContinue means: write Reply (if non-empty) to the client,
	// then keep reading and re-sniffing for an embedded tunnel protocol.
	ActionContinue Action = iota
	// ActionClose means: write Reply, then close the connection.
	ActionClose
)

var (
	badRequest = []byte("HTTP/1.1 400 Bad Request\r\n\r\n")
	crlf       = []byte("\r\n")
	space      = []byte(" ")
	httpSlash  = []byte("HTTP/")
)

// Result is the decision the parser reached for one read of opening
// bytes.
type Result struct {
	Action             Action
	Reply              []byte
	IsWebSocketUpgrade bool
	// UsedDefaultKey is set when the client's request carried no
	// Sec-WebSocket-Key and the canonical compatibility nonce was
	// substituted; callers should emit a diagnostic for this.
	UsedDefaultKey bool
}

// Parse classifies b as an HTTP request and decides the reply. b need
// not contain a full request: only headers actually present are
// inspected (spec §4.1).
func Parse(b []byte, defaultResponse string) Result {
	lineEnd := bytes.Index(b, crlf)
	spIdx := bytes.Index(b, space)
	if spIdx == -1 || lineEnd == -1 {
		return Result{Action: ActionClose, Reply: badRequest}
	}

	requestLine := b[:lineEnd]
	parts := bytes.SplitN(requestLine, space, 3)
	if len(parts) != 3 || len(parts[0]) == 0 || !bytes.HasPrefix(parts[2], httpSlash) {
		return Result{Action: ActionClose, Reply: badRequest}
	}

	headers := parseHeaders(b[lineEnd+len(crlf):])

	upgrade, hasUpgrade := headers["upgrade"]
	connection, hasConnection := headers["connection"]
	isUpgrade := hasUpgrade && hasConnection &&
		containsFold(upgrade, "websocket", "ws") &&
		containsFold(connection, "upgrade")

	if !isUpgrade {
		return Result{Action: ActionContinue, Reply: []byte(defaultResponse)}
	}

	key, hasKey := headers["sec-websocket-key"]
	usedDefault := false
	if !hasKey || key == "" {
		key = wsproto.DefaultKey
		usedDefault = true
	}

	return Result{
		Action:             ActionContinue,
		Reply:              upgradeReply(key),
		IsWebSocketUpgrade: true,
		UsedDefaultKey:     usedDefault,
	}
}

// AcceptKey computes Sec-WebSocket-Accept for a given Sec-WebSocket-Key
// per RFC 6455 §1.3: base64(sha1(key || magicGUID)).
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(wsproto.MagicGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func upgradeReply(key string) []byte {
	var buf bytes.Buffer
	buf.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	buf.WriteString("Upgrade: websocket\r\n")
	buf.WriteString("Connection: Upgrade\r\n")
	buf.WriteString("Sec-WebSocket-Accept: ")
	buf.WriteString(AcceptKey(key))
	buf.WriteString("\r\n\r\n")
	return buf.Bytes()
}

// parseHeaders scans whatever header lines are present in buf (which may
// be truncated mid-buffer) and returns a lower-cased-name -> trimmed
// value map. It stops at the first blank line or at the end of buf.
func parseHeaders(buf []byte) map[string]string {
	headers := make(map[string]string)
	for len(buf) > 0 {
		idx := bytes.Index(buf, crlf)
		var line []byte
		if idx == -1 {
			line = buf
			buf = nil
		} else {
			line = buf[:idx]
			buf = buf[idx+len(crlf):]
		}
		if len(line) == 0 {
			break
		}
		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(string(line[:colon])))
		value := strings.TrimSpace(string(line[colon+1:]))
		headers[name] = value
	}
	return headers
}

// containsFold reports whether s contains any of needles, matched
// case-insensitively as substrings (spec §4.1: "value contains
// 'websocket'").
func containsFold(s string, needles ...string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
