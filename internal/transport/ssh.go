package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"rconsole/tunnel"
	"rconsole/util"
)

// SSHDialer reaches the RCON server through an SSH jump host, for
// servers whose RCON port is only bound on a private network.  The
// tunnel is connected lazily on the first Dial call and torn down on
// Close.
type SSHDialer struct {
	tunnel    tunnel.Tunnel
	config    *tunnel.SSHConfig
	logger    *util.Logger
	mu        sync.Mutex
	connected bool
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH tunnel.  The tunnel is not connected until the first Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	return &SSHDialer{
		tunnel: tunnel.NewSSHTunnel(cfg, logger),
		config: cfg,
		logger: logger,
	}
}

// connect establishes the SSH tunnel if not already connected, or
// re-establishes it after the gateway dropped us.  force replaces a
// tunnel that still looks alive.
func (d *SSHDialer) connect(ctx context.Context, force bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.tunnel.IsAlive() && !force {
		return nil
	}
	if d.connected {
		d.logger.Warn("SSH tunnel to %s lost, reconnecting", d.config.Host)
		d.tunnel.Close() //nolint:errcheck
		d.connected = false
	}

	d.logger.Verbose("establishing SSH tunnel to %s@%s:%d",
		d.config.User, d.config.Host, d.config.Port)

	if err := d.tunnel.Connect(ctx); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}

	d.connected = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Dial connects to address through the SSH tunnel, lazily establishing
// the tunnel on the first call.  When the tunnel fails for any reason
// other than the gateway refusing the target, it is rebuilt once.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.connect(ctx, false); err != nil {
		return nil, err
	}
	conn, err := d.tunnel.Dial(ctx, network, address)
	var refused *ssh.OpenChannelError
	if err == nil || errors.As(err, &refused) || ctx.Err() != nil {
		return conn, err
	}

	d.logger.Verbose("tunnel dial %s: %v", address, err)
	if err := d.connect(ctx, true); err != nil {
		return nil, err
	}
	return d.tunnel.Dial(ctx, network, address)
}

// Close tears down the underlying SSH tunnel.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		d.connected = false
		return d.tunnel.Close()
	}
	return nil
}
