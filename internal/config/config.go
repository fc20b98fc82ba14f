// Package config holds the frozen configuration value threaded through
// the proxy tree (spec §3 "Config"). It is built once from CLI flags and
// never mutated afterward.
package config

import (
	"github.com/diogin/multiflowproxy/internal/errs"
)

// MinBufferSize is the smallest receive buffer the sniffer may use.
// Smaller buffers caused premature close on some clients (spec §3).
const MinBufferSize = 16384

// Config is the immutable value every component receives by value or
// pointer-to-const. Nothing downstream may write to it.
type Config struct {
	Port int

	HTTPS    bool
	CertPath string

	Response string

	Workers int
	Ulimit  int

	SSHOnly    bool
	BufferSize int

	SSHPort     int
	OpenVPNPort int
	V2RayPort   int
	RemoteHost  string

	Token        string
	ValidateMode bool
}

// Default returns a Config populated with the spec §6 defaults.
func Default() Config {
	return Config{
		Port:        8080,
		HTTPS:       false,
		CertPath:    "",
		Response:    "HTTP/1.1 200 OK\r\n\r\n",
		Workers:     4,
		Ulimit:      65536,
		SSHOnly:     false,
		BufferSize:  MinBufferSize,
		SSHPort:     22,
		OpenVPNPort: 1194,
		V2RayPort:   10086,
		RemoteHost:  "127.0.0.1",
	}
}

// Validate enforces the boundary behaviors spec §8 requires at startup.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errs.New(errs.Argument, "port", nil)
	}
	if c.Workers <= 0 {
		return errs.New(errs.Argument, "workers", nil)
	}
	if c.BufferSize < MinBufferSize {
		return errs.New(errs.Argument, "buffer-size", nil)
	}
	return nil
}

// BackendPort returns the local backend port for a given protocol tag,
// per the dispatch table in spec §4.3/§9 ("tagged value + dispatch table
// mapping tag → backend port").
func (c Config) BackendPort(proto Protocol) (port int, ok bool) {
	switch proto {
	case ProtocolSSH:
		return c.SSHPort, true
	case ProtocolOpenVPN:
		return c.OpenVPNPort, true
	case ProtocolVMess:
		return c.V2RayPort, true
	default:
		return 0, false
	}
}

// Protocol is the tagged value assigned exactly once per connection
// (spec §3 "Detected protocol").
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolSSH
	ProtocolOpenVPN
	ProtocolVMess
	ProtocolHTTP
	ProtocolWebSocketUpgrade
)

func (p Protocol) String() string {
	switch p {
	case ProtocolSSH:
		return "ssh"
	case ProtocolOpenVPN:
		return "openvpn"
	case ProtocolVMess:
		return "vmess"
	case ProtocolHTTP:
		return "http"
	case ProtocolWebSocketUpgrade:
		return "websocket-upgrade"
	default:
		return "unknown"
	}
}
