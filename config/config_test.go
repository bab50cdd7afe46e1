package config

import (
	"strings"
	"testing"
	"time"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"port zero", "host:0", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

// ── Endpoint parsing ─────────────────────────────────────────────────

func TestValidateHost(t *testing.T) {
	tests := []struct {
		host    string
		wantErr bool
	}{
		{"localhost", false},
		{"127.0.0.1", false},
		{"mc.example.com", false},
		{"::1", false},
		{"", true},
		{"   ", true},
		{"myserver", true},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHost(%q) err = %v, wantErr = %v", tt.host, err, tt.wantErr)
			}
		})
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		want    uint16
		wantErr string
	}{
		{"25575", 25575, ""},
		{" 1 ", 1, ""},
		{"65535", 65535, ""},
		{"", 0, "empty"},
		{"0", 0, "out of range"},
		{"65536", 0, "out of range"},
		{"rcon", 0, "must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePort(tt.input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParsePort(%q) err = %v, want substring %q", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePort(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParsePort(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// ── Validate ─────────────────────────────────────────────────────────

func TestValidate_Default(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantSub string
	}{
		{"bad host", func(c *Config) { c.Host = "nodots" }, "--host"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "hint:"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "--timeout"},
		{"no attempts", func(c *Config) { c.ConnectAttempts = 0 }, "--connect-attempts"},
		{"zero interval", func(c *Config) { c.TailInterval = 0 }, "--tail-interval"},
		{"empty servers file", func(c *Config) { c.ServersFile = "" }, "hint:"},
		{"tunnel no host", func(c *Config) { c.TunnelEnabled = true }, "tunnel host is required"},
		{"ssh opts without tunnel", func(c *Config) { c.UseSSHAgent = true }, "add -T"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}
