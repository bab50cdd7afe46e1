package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "dial", Addr: "mc.example.com:25575", Err: io.EOF, Retryable: true},
			want: "dial mc.example.com:25575: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "read", Addr: "127.0.0.1:25575", Err: fmt.Errorf("reset")},
			want: "read 127.0.0.1:25575: reset",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "dial", Addr: "x", Err: io.EOF}
	if !errors.Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestCommandError(t *testing.T) {
	err := WrapCommand("list", io.EOF)
	if got, want := err.Error(), `command "list": EOF`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !errors.Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("EOF is not a timeout")
	}
}

func TestCommandError_Timeout(t *testing.T) {
	err := WrapCommand("list", fmt.Errorf("read: %w", os.ErrDeadlineExceeded))
	if !errors.Is(err, ErrTimeout) {
		t.Error("deadline expiry should match ErrTimeout")
	}
	if !IsTimeout(err) {
		t.Error("IsTimeout should be true")
	}
}

func TestSSHError_Format(t *testing.T) {
	err := WrapSSH("handshake", "bastion.example.com", 22, fmt.Errorf("connection refused"))
	want := "ssh handshake bastion.example.com:22: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 1-65535",
				Hint:    "use a port between 1 and 65535",
			},
			want: "config: --port=99999: out of range 1-65535\n  hint: use a port between 1 and 65535",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "tunnel",
				Message: "tunnel host is required",
			},
			want: "config: --tunnel: tunnel host is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	err := Wrap("dial", "10.0.0.1:25575", inner)

	if err.Op != "dial" || err.Addr != "10.0.0.1:25575" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if !errors.Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
	if !err.Retryable {
		t.Error("connection refused should be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: false}, false},
		{"temporary dns", &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{IsTemporary: true}}, true},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsConnectionLost(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", WrapCommand("list", io.EOF), true},
		{"closed", fmt.Errorf("write: %w", net.ErrClosed), true},
		{"reset", &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, true},
		{"session closed", ErrSessionClosed, true},
		{"timeout", WrapCommand("list", os.ErrDeadlineExceeded), false},
		{"malformed", ErrMalformedPacket, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectionLost(tt.err); got != tt.want {
				t.Errorf("IsConnectionLost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrNotConnected, ErrSessionClosed, ErrTimeout,
		ErrAuthFailed, ErrMalformedPacket, ErrTunnelClosed,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
