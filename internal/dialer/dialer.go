// Package dialer implements the backend dialer from spec §4.3: it maps
// a detected protocol tag to a backend address and dials it with a
// bounded number of retries, grounded on the teacher's dialWithRetry
// pattern (diogin-tcplink's serveRelay/relay dial call, generalized with
// the retry/backoff loop from ayanrajpoot10/tunn's dialWithRetry).
package dialer

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/diogin/multiflowproxy/internal/config"
	"github.com/diogin/multiflowproxy/internal/errs"
)

// These are package-level vars rather than consts so tests can shrink
// the retry budget instead of waiting out the real 4-second schedule.
var (
	maxAttempts    = 3
	attemptDelay   = 2 * time.Second
	connectTimeout = 2 * time.Second
)

// Dial resolves proto to a backend address via cfg and dials it, making
// up to maxAttempts attempts with attemptDelay between attempts. It returns
// a typed DialError after persistent failure.
func Dial(ctx context.Context, cfg config.Config, proto config.Protocol) (net.Conn, error) {
	port, ok := cfg.BackendPort(proto)
	if !ok {
		return nil, errs.New(errs.Dial, "no backend for protocol "+proto.String(), nil)
	}
	addr := net.JoinHostPort(cfg.RemoteHost, strconv.Itoa(port))

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errs.New(errs.Dial, "dial "+addr, ctx.Err())
			case <-time.After(attemptDelay):
			}
		}

		dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, errs.New(errs.Dial, "dial "+addr+" after "+strconv.Itoa(maxAttempts)+" attempts", lastErr)
}
