// Package lifecycle wires the acceptor, the worker pool and (if
// requested) the TLS acceptor together, and owns graceful shutdown on
// SIGINT/SIGTERM — spec §4.7/§4.8/§9's "explicit shutdown channel or
// atomic flag owned by the acceptor and captured by the signal handler
// at installation time", generalized to the whole tree rather than a
// process-wide singleton.
package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/diogin/multiflowproxy/internal/acceptor"
	"github.com/diogin/multiflowproxy/internal/config"
	"github.com/diogin/multiflowproxy/internal/errs"
	"github.com/diogin/multiflowproxy/internal/tlsacceptor"
	"github.com/diogin/multiflowproxy/internal/workerpool"
)

// Run starts the worker pool and the acceptor, blocks until SIGINT,
// SIGTERM or ctx is cancelled, then drains and returns. SIGPIPE is
// ignored process-wide so a peer close never kills the process
// (spec §6).
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	signal.Ignore(syscall.SIGPIPE)

	pool := workerpool.New(cfg.Workers, logger)
	pool.Start()
	defer pool.Stop()

	acc := &acceptor.Acceptor{Config: cfg, Pool: pool, Logger: logger}

	if cfg.HTTPS {
		cert, err := tlsacceptor.LoadOrGenerate(cfg.CertPath, logger)
		if err != nil {
			return err
		}
		acc.Wrap = tlsacceptor.NewWrapper(cert, logger)
	}

	if err := acc.Listen(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		acc.Run(runCtx)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	acc.Stop()
	cancel()
	<-done

	return nil
}

// ExitCode maps a startup error to the process exit code spec §6
// requires (0 on graceful shutdown, 1 on startup/argument error).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *errs.Error
	if errors.As(err, &e) && !e.Kind.Fatal() {
		return 0
	}
	return 1
}
