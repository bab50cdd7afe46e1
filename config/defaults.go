package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, the server list file, and environment variable
// loading.

const (
	// DefaultRCONPort is the port Minecraft servers use for RCON.
	DefaultRCONPort = 25575

	// DefaultServersFile maps server ports to log files.
	DefaultServersFile = "config.json"

	// DefaultTimeout bounds one RCON request/response exchange.
	DefaultTimeout = 10 * time.Second

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 10 * time.Second

	// DefaultConnectAttempts is how many times a retryable dial error
	// is retried before the operator is asked again.
	DefaultConnectAttempts = 3

	// DefaultTailInterval is the log tailer's poll interval.
	DefaultTailInterval = 100 * time.Millisecond

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22
)
