package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the RCONSOLE_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  NO_COLOR is honoured
// as well.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("RCONSOLE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("RCONSOLE_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("RCONSOLE_CONFIG"); v != "" {
		cfg.ServersFile = v
	}
	// 0 is meaningful here: it disables response deadlines.
	if v, ok := envSeconds("RCONSOLE_TIMEOUT"); ok {
		cfg.Timeout = v
	}
	if v := envInt("RCONSOLE_CONNECT_ATTEMPTS"); v > 0 {
		cfg.ConnectAttempts = v
	}
	if v := envInt("RCONSOLE_TAIL_INTERVAL_MS"); v > 0 {
		cfg.TailInterval = time.Duration(v) * time.Millisecond
	}

	// SSH tunnel
	if v := os.Getenv("RCONSOLE_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("RCONSOLE_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("RCONSOLE_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("RCONSOLE_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("RCONSOLE_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("RCONSOLE_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if envBool("RCONSOLE_NO_COLOR") || os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}
	if v := envInt("RCONSOLE_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// envSeconds reads a non-negative whole number of seconds.  ok is
// false when key is unset or not a valid count.
func envSeconds(key string) (time.Duration, bool) {
	v, set := os.LookupEnv(key)
	if !set {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
