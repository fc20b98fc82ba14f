// Command multiflowproxy is a multi-protocol TCP tunneling proxy: it
// sniffs SSH, OpenVPN and VMess-like traffic on one listening port,
// optionally answers an HTTP/WebSocket handshake, and splices the
// client to the matching local backend. See spec.md / SPEC_FULL.md for
// the full design.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogin/multiflowproxy/internal/config"
	"github.com/diogin/multiflowproxy/internal/errs"
	"github.com/diogin/multiflowproxy/internal/lifecycle"
	"github.com/diogin/multiflowproxy/internal/logging"
	"github.com/diogin/multiflowproxy/internal/validate"
)

const version = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Default()
	var httpFlag, httpsFlag, debug bool

	cmd := &cobra.Command{
		Use:     "multiflowproxy",
		Short:   "Multi-protocol TCP tunneling proxy",
		Version: version,
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.Port, "port", cfg.Port, "listening port")
	flags.BoolVar(&httpFlag, "http", false, "assume HTTP default reply (default when neither --http nor --https given)")
	flags.BoolVar(&httpsFlag, "https", false, "terminate TLS before handing off to the handler")
	flags.StringVar(&cfg.CertPath, "cert", cfg.CertPath, "PEM certificate+key path (required with --https, else auto-generated)")
	flags.StringVar(&cfg.Response, "response", cfg.Response, "default HTTP reply bytes")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "worker pool size")
	flags.IntVar(&cfg.Ulimit, "ulimit", cfg.Ulimit, "process file-descriptor limit")
	flags.BoolVar(&cfg.SSHOnly, "ssh-only", cfg.SSHOnly, "collapse every classification to SSH")
	flags.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "sniff/relay buffer size (minimum 16384)")
	flags.IntVar(&cfg.SSHPort, "ssh-port", cfg.SSHPort, "local SSH backend port")
	flags.IntVar(&cfg.OpenVPNPort, "openvpn-port", cfg.OpenVPNPort, "local OpenVPN backend port")
	flags.IntVar(&cfg.V2RayPort, "v2ray-port", cfg.V2RayPort, "local VMess/V2Ray backend port")
	flags.StringVar(&cfg.RemoteHost, "remote-host", cfg.RemoteHost, "backend host")
	flags.StringVar(&cfg.Token, "token", cfg.Token, "validation token")
	flags.BoolVar(&cfg.ValidateMode, "validate", false, "validate --token against the remote endpoint and exit")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg.HTTPS = httpsFlag && !httpFlag

		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := logging.New(debug)
		defer logger.Sync()

		if cfg.ValidateMode {
			ok, err := validate.Run(context.Background(), cfg.Token)
			if err != nil {
				return errs.New(errs.Argument, "validate", err)
			}
			if !ok {
				return errs.New(errs.Argument, "token rejected", nil)
			}
			return nil
		}

		if err := raiseFileLimit(uint64(cfg.Ulimit)); err != nil {
			logger.Warn("could not raise file descriptor limit", zap.Error(err))
		}

		return lifecycle.Run(context.Background(), cfg, logger)
	}

	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return lifecycle.ExitCode(err)
	}
	return 0
}
