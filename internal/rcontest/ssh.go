package rcontest

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Gateway is an SSH jump host listening on 127.0.0.1.  It accepts
// password logins and forwards direct-tcpip channels, the requests
// ssh.Client.Dial makes.
type Gateway struct {
	User     string
	Password string

	ln     net.Listener
	config *ssh.ServerConfig
	wg     sync.WaitGroup
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	dials  []string
}

// NewGateway starts a gateway that admits user with password.
func NewGateway(user, password string) (*Gateway, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		User:     user,
		Password: password,
		ln:       ln,
		conns:    make(map[net.Conn]struct{}),
	}
	g.config = &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == g.User && string(pass) == g.Password {
				return nil, nil
			}
			return nil, errors.New("permission denied")
		},
	}
	g.config.AddHostKey(signer)

	g.wg.Add(1)
	go g.serve()
	return g, nil
}

// Host returns the gateway's address.
func (g *Gateway) Host() string { return "127.0.0.1" }

// Port returns the gateway's port.
func (g *Gateway) Port() int { return g.ln.Addr().(*net.TCPAddr).Port }

// Dials returns every address a client asked the gateway to reach.
func (g *Gateway) Dials() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.dials...)
}

// DropClients closes every SSH connection.
func (g *Gateway) DropClients() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for c := range g.conns {
		c.Close()
	}
}

// Close stops the gateway and its connections.
func (g *Gateway) Close() {
	g.ln.Close()
	g.DropClients()
	g.wg.Wait()
}

func (g *Gateway) serve() {
	defer g.wg.Done()
	for {
		conn, err := g.ln.Accept()
		if err != nil {
			return
		}
		g.mu.Lock()
		g.conns[conn] = struct{}{}
		g.mu.Unlock()

		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.handle(conn)
			g.mu.Lock()
			delete(g.conns, conn)
			g.mu.Unlock()
			conn.Close()
		}()
	}
}

// directTCPIP is the RFC 4254 §7.2 channel payload.
type directTCPIP struct {
	Host     string
	Port     uint32
	OrigHost string
	OrigPort uint32
}

func (g *Gateway) handle(conn net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, g.config)
	if err != nil {
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "direct-tcpip" {
			nc.Reject(ssh.UnknownChannelType, "only direct-tcpip is supported") //nolint:errcheck
			continue
		}
		var req directTCPIP
		if err := ssh.Unmarshal(nc.ExtraData(), &req); err != nil {
			nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
			continue
		}
		addr := net.JoinHostPort(req.Host, strconv.Itoa(int(req.Port)))
		g.mu.Lock()
		g.dials = append(g.dials, addr)
		g.mu.Unlock()

		target, err := net.Dial("tcp", addr)
		if err != nil {
			nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
			continue
		}
		ch, chReqs, err := nc.Accept()
		if err != nil {
			target.Close()
			continue
		}
		go ssh.DiscardRequests(chReqs)
		go pipe(ch, target)
	}
}

func pipe(ch ssh.Channel, target net.Conn) {
	done := make(chan struct{})
	go func() {
		io.Copy(target, ch) //nolint:errcheck
		target.Close()
		close(done)
	}()
	io.Copy(ch, target) //nolint:errcheck
	ch.Close()
	<-done
}
