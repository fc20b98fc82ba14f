// Package connection implements the per-client state machine from spec
// §4.5: Accepted -> Sniffing -> (reply loop) -> Tunneling -> Closed. It
// composes protosniff, handshake, dialer and relay, owning the client
// socket and the optional backend socket directly (spec §9: one-way
// ownership, no Client<->Connection cycle).
package connection

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diogin/multiflowproxy/internal/config"
	"github.com/diogin/multiflowproxy/internal/dialer"
	"github.com/diogin/multiflowproxy/internal/handshake"
	"github.com/diogin/multiflowproxy/internal/protosniff"
	"github.com/diogin/multiflowproxy/internal/relay"
)

const (
	initialReadTimeout = 10 * time.Second
	sniffIdleTimeout   = 30 * time.Second
)

// Handler owns exactly one accepted client socket for its entire
// lifetime and closes it on every exit path (spec §3 invariant).
type Handler struct {
	ID     uint64
	Client net.Conn
	Config config.Config
	Logger *zap.Logger
}

// traceID returns a random identifier to correlate a connection's log
// lines when the monotonic ID alone isn't enough to distinguish it
// across a restarted process (the atomic counter resets to zero on
// every start, so two different runs can reuse the same ID).
func traceID() string {
	return uuid.NewString()
}

// Run drives the state machine to completion. It never returns an error:
// per-connection failures are logged and simply end the handler, per
// spec §7's propagation policy.
func (h *Handler) Run(ctx context.Context) {
	defer h.Client.Close()

	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Uint64("conn_id", h.ID), zap.String("trace_id", traceID()), zap.String("peer", h.Client.RemoteAddr().String()))

	buf := make([]byte, h.Config.BufferSize)
	n, proto, ok := h.sniffLoop(ctx, log, buf)
	if !ok {
		return
	}

	port, needsDial := h.Config.BackendPort(proto)
	if !needsDial {
		log.Debug("connection closed: protocol not tunneled", zap.String("protocol", proto.String()))
		return
	}
	_ = port

	backend, err := dialer.Dial(ctx, h.Config, proto)
	if err != nil {
		log.Warn("backend dial failed, closing client", zap.String("protocol", proto.String()), zap.Error(err))
		return
	}

	log.Info("tunneling", zap.String("protocol", proto.String()))
	r := relay.New(h.Client, backend, h.Config.BufferSize, log)
	r.Run(ctx, buf[:n])
}

// sniffLoop reads opening bytes, consults the sniffer and (if Unknown)
// the response parser, and loops on "continue sniffing" replies until a
// tunnel protocol is recognized, the client goes idle, or an error
// occurs. It returns the bytes of the final read that should be
// forwarded as the tunnel's opening prefix.
func (h *Handler) sniffLoop(ctx context.Context, log *zap.Logger, buf []byte) (n int, proto config.Protocol, ok bool) {
	deadline := initialReadTimeout
	for {
		_ = h.Client.SetReadDeadline(time.Now().Add(deadline))
		read, err := h.Client.Read(buf)
		if read <= 0 || err != nil {
			return 0, config.ProtocolUnknown, false
		}

		p := protosniff.Sniff(buf[:read], h.Config.SSHOnly)
		if p != config.ProtocolUnknown {
			return read, p, true
		}

		res := handshake.Parse(buf[:read], h.Config.Response)
		if res.UsedDefaultKey {
			log.Info("websocket upgrade with no Sec-WebSocket-Key, substituting compatibility nonce")
		}
		if len(res.Reply) > 0 {
			if _, werr := h.Client.Write(res.Reply); werr != nil {
				return 0, config.ProtocolUnknown, false
			}
		}
		if res.Action == handshake.ActionClose {
			return 0, config.ProtocolUnknown, false
		}

		// ActionContinue: keep reading for an embedded tunnel protocol,
		// now under the idle timeout rather than the initial one.
		deadline = sniffIdleTimeout
	}
}
