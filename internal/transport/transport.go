// Package transport provides abstractions for establishing the stream
// an RCON session runs over: a direct TCP connection or one forwarded
// through an SSH jump host.  What travels over the stream is the rcon
// package's job.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound stream connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
