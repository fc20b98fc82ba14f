// Package acceptor implements the listening-socket acceptor from spec
// §4.7: address-reuse bind to 0.0.0.0:port, a readiness-driven accept
// loop that polls a stop flag every second, and dispatch of each
// accepted connection to the worker pool as a handler invocation.
package acceptor

import (
	"context"
	"net"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/diogin/multiflowproxy/internal/config"
	"github.com/diogin/multiflowproxy/internal/connection"
	"github.com/diogin/multiflowproxy/internal/errs"
	"github.com/diogin/multiflowproxy/internal/workerpool"
)

const waitTimeoutMs = 1000

// ConnWrapper optionally transforms an accepted net.Conn before it is
// handed to the connection handler. The TLS acceptor (internal/tlsacceptor)
// supplies one that performs the TLS server handshake; the plain acceptor
// leaves it nil.
type ConnWrapper func(net.Conn) (net.Conn, error)

// Acceptor owns the listening socket and the accept loop.
type Acceptor struct {
	Config config.Config
	Pool   *workerpool.Pool
	Logger *zap.Logger
	Wrap   ConnWrapper

	listener *net.TCPListener
	poller   poller
	stopping atomic.Bool
	inFlight atomic.Int64
	nextID   atomic.Uint64
}

// Listen binds the listening socket with address reuse and the OS's
// maximum backlog (Go's runtime already requests SOMAXCONN-sized
// backlogs for every net.Listen call, so no extra step is needed there).
func (a *Acceptor) Listen() error {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				ctrlErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}
	addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(a.Config.Port))
	ln, err := lc.Listen(context.Background(), "tcp4", addr)
	if err != nil {
		return errs.New(errs.Socket, "listen "+addr, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return errs.New(errs.Socket, "listen "+addr, nil)
	}
	a.listener = tcpLn

	rawConn, err := tcpLn.SyscallConn()
	if err != nil {
		tcpLn.Close()
		return errs.New(errs.Socket, "listener syscall conn", err)
	}
	var fd int
	if err := rawConn.Control(func(f uintptr) { fd = int(f) }); err != nil {
		tcpLn.Close()
		return errs.New(errs.Socket, "listener fd", err)
	}
	p, err := newPoller(fd)
	if err != nil {
		tcpLn.Close()
		return errs.New(errs.Socket, "poller init", err)
	}
	a.poller = p
	return nil
}

// Run drives the accept loop until Stop is called. It never returns an
// error: accept failures are logged and looped past, per spec §4.7.
func (a *Acceptor) Run(ctx context.Context) {
	log := a.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("acceptor listening", zap.Int("port", a.Config.Port))

	for !a.stopping.Load() {
		ready, err := a.poller.Wait(waitTimeoutMs)
		if err != nil {
			log.Warn("poller wait error", zap.Error(err))
			continue
		}
		if !ready {
			continue
		}
		if a.stopping.Load() {
			break
		}

		_ = a.listener.SetDeadline(time.Now().Add(waitTimeoutMs * time.Millisecond))
		conn, err := a.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Warn("accept error", zap.Error(err))
			continue
		}
		a.dispatch(ctx, log, conn)
	}

	log.Info("acceptor stopped", zap.Int64("in_flight", a.inFlight.Load()))
}

func (a *Acceptor) dispatch(ctx context.Context, log *zap.Logger, conn net.Conn) {
	id := a.nextID.Add(1)
	wrap := a.Wrap
	submitted := a.Pool.Submit(func() {
		a.inFlight.Add(1)
		defer a.inFlight.Add(-1)

		c := conn
		if wrap != nil {
			wrapped, err := wrap(conn)
			if err != nil {
				log.Warn("connection wrap failed", zap.Uint64("conn_id", id), zap.Error(err))
				conn.Close()
				return
			}
			c = wrapped
		}

		h := &connection.Handler{ID: id, Client: c, Config: a.Config, Logger: log}
		h.Run(ctx)
	})
	if !submitted {
		conn.Close()
	}
}

// Stop sets the should-stop flag; the current Wait returns within its
// timeout and Run's loop exits (spec §4.7's shutdown behavior).
func (a *Acceptor) Stop() {
	a.stopping.Store(true)
	if a.poller != nil {
		_ = a.poller.Close()
	}
	if a.listener != nil {
		_ = a.listener.Close()
	}
}

// InFlight returns the number of connections currently owned by a
// worker (spec §11's shutdown diagnostic).
func (a *Acceptor) InFlight() int64 { return a.inFlight.Load() }
