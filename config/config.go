// Package config defines the runtime configuration for rconsole and
// provides helpers for parsing endpoints, ports and tunnel specs.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	rcerr "rconsole/internal/errors"
)

// Config holds every tuneable for a single rconsole process.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host            string        // pre-fills the host prompt
	Port            int           // pre-fills the port prompt (0 = ask)
	Timeout         time.Duration // per-exchange RCON I/O deadline (0 = none)
	ConnTimeout     time.Duration // TCP connect timeout
	ConnectAttempts int

	// ── Server list ──────────────────────────────────────────────────
	ServersFile  string // port → log file mapping
	TailInterval time.Duration

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	NoColor bool
	Verbose int
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Timeout:         DefaultTimeout,
		ConnTimeout:     DefaultConnTimeout,
		ConnectAttempts: DefaultConnectAttempts,
		ServersFile:     DefaultServersFile,
		TailInterval:    DefaultTailInterval,
		Verbose:         1,
	}
}

// ── Endpoint helpers ─────────────────────────────────────────────────

var ipv4Re = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// ValidateHost accepts "localhost", a dotted IPv4 address, an IPv6
// literal, or any name containing a dot.
func ValidateHost(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if host == "localhost" || ipv4Re.MatchString(host) || strings.Contains(host, ".") {
		return nil
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	return fmt.Errorf("invalid host %q: expected an IPv4 address, a domain, or \"localhost\"", host)
}

// ParsePort parses a decimal RCON port in the range 1-65535.
func ParsePort(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("port cannot be empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", n)
	}
	return uint16(n), nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Host != "" {
		if err := ValidateHost(c.Host); err != nil {
			return &rcerr.ConfigError{Field: "host", Value: c.Host, Message: err.Error()}
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &rcerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    "the RCON port is rcon.port in server.properties (25575 by default)",
		}
	}
	if c.Timeout < 0 {
		return &rcerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}
	if c.ConnectAttempts < 1 {
		return &rcerr.ConfigError{
			Field:   "connect-attempts",
			Value:   c.ConnectAttempts,
			Message: "must be at least 1",
		}
	}
	if c.TailInterval <= 0 {
		return &rcerr.ConfigError{Field: "tail-interval", Value: c.TailInterval, Message: "must be positive"}
	}
	if c.ServersFile == "" {
		return &rcerr.ConfigError{
			Field:   "config",
			Message: "server list path is empty",
			Hint:    "pass -c <file> or unset RCONSOLE_CONFIG",
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &rcerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	if !c.TunnelEnabled && (c.SSHKeyPath != "" || c.SSHPassword || c.UseSSHAgent) {
		return &rcerr.ConfigError{
			Field:   "tunnel",
			Message: "SSH options given without a tunnel",
			Hint:    "add -T [user@]host[:port]",
		}
	}
	return nil
}
