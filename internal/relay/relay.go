// Package relay implements the bidirectional byte pump from spec §4.4.
// Two independent flows run concurrently, each polling its source with a
// one-second readiness deadline and consulting a shared active flag so
// either side can unwind the other on close or error. The half-close
// dance is adapted from the teacher's closeState/tcpRelay in
// diogin-tcplink's link.go, generalized from *net.TCPConn to net.Conn so
// a TLS-wrapped connection (internal/tlsacceptor) can be relayed through
// the same code path — see spec §9's open question about routing bytes
// through the TLS session throughout.
package relay

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const readinessTimeout = time.Second

// halfCloser is implemented by *net.TCPConn and lets one direction shut
// down without tearing down the other. Connections that don't implement
// it (notably *tls.Conn) fall back to a single full Close once both
// flows have finished — see DESIGN.md for why the TLS case can't share
// the TCP half-close path.
type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// Relay pumps bytes between client and backend until either side closes,
// errors, or the connection is marked inactive.
type Relay struct {
	Client     net.Conn
	Backend    net.Conn
	BufferSize int
	Logger     *zap.Logger

	active atomic.Bool
}

// New constructs a Relay ready to Run. The caller retains ownership of
// both connections only until Run returns; Run closes them on every
// exit path.
func New(client, backend net.Conn, bufferSize int, logger *zap.Logger) *Relay {
	r := &Relay{Client: client, Backend: backend, BufferSize: bufferSize, Logger: logger}
	r.active.Store(true)
	return r
}

// Run splices client<->backend to completion. prefix, if non-empty, is
// written to backend before the client->backend pump starts — the
// opening bytes already consumed from the kernel buffer while sniffing
// (spec §4.5: "must not be dropped").
func (r *Relay) Run(ctx context.Context, prefix []byte) {
	defer r.Client.Close()
	defer r.Backend.Close()

	if len(prefix) > 0 {
		if _, err := writeAll(r.Backend, prefix); err != nil {
			r.active.Store(false)
			if r.Logger != nil {
				r.Logger.Warn("relay: failed writing sniffed prefix to backend", zap.Error(err))
			}
			return
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.pump(ctx, r.Client, r.Backend, "client->backend")
	}()
	go func() {
		defer wg.Done()
		r.pump(ctx, r.Backend, r.Client, "backend->client")
	}()
	wg.Wait()
}

// pump implements one direction of the splice. It is the direct
// generalization of diogin-tcplink's tcpRelay: read with a short
// deadline, write the bytes read, and on any error mark the connection
// inactive and half-close its side so the peer's pump observes EOF.
func (r *Relay) pump(ctx context.Context, src, dst net.Conn, label string) {
	buf := make([]byte, r.BufferSize)
	for {
		if !r.active.Load() {
			r.closeHalf(src, dst)
			return
		}
		select {
		case <-ctx.Done():
			r.active.Store(false)
			r.closeHalf(src, dst)
			return
		default:
		}

		_ = src.SetReadDeadline(time.Now().Add(readinessTimeout))
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := writeAll(dst, buf[:n]); werr != nil {
				r.active.Store(false)
				if r.Logger != nil {
					r.Logger.Debug("relay: write error", zap.String("flow", label), zap.Error(werr))
				}
				r.closeHalf(src, dst)
				return
			}
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if err != io.EOF && r.Logger != nil {
				r.Logger.Debug("relay: read error", zap.String("flow", label), zap.Error(err))
			}
			r.active.Store(false)
			r.closeHalf(src, dst)
			return
		}
	}
}

// closeHalf shuts down src's read side if src supports half-close and
// dst's write side if dst does, mirroring closeSide in link.go; a side
// without half-close support is left for the deferred full Close in Run.
func (r *Relay) closeHalf(src, dst net.Conn) {
	if hc, ok := src.(halfCloser); ok {
		_ = hc.CloseRead()
	}
	if hc, ok := dst.(halfCloser); ok {
		_ = hc.CloseWrite()
	}
}

// writeAll retries partial writes until the buffer is fully drained or
// the sink errors, per spec §4.4.
func writeAll(dst net.Conn, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		_ = dst.SetWriteDeadline(time.Now().Add(readinessTimeout * 30))
		n, err := dst.Write(b[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
