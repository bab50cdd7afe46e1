// Package rcontest provides an in-process RCON server for tests, in
// the spirit of net/http/httptest.
package rcontest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"rconsole/rcon"
)

// Flavor selects server-specific protocol quirks.
type Flavor int

const (
	// Minecraft answers the terminator packet with "Unknown request".
	Minecraft Flavor = iota
	// Source precedes the auth response with an empty RESPONSE_VALUE
	// and mirrors the terminator followed by a 0x00000001 packet.
	Source
)

// Handler returns the response fragments for one command.  Each
// fragment is sent as its own packet.
type Handler func(command string) []string

// Echo responds with the command text.
func Echo(command string) []string { return []string{command} }

// Server is a fake RCON server listening on 127.0.0.1.
type Server struct {
	Password string
	Flavor   Flavor
	Handler  Handler

	// SplitWrites sends every packet in two writes with a pause in
	// between, so the client sees partial reads.
	SplitWrites bool
	// Stall makes the server swallow commands without answering.
	Stall bool
	// SingleRead handles one packet per socket read, the way vanilla
	// Minecraft does, and drops the client when a read holds anything
	// other than exactly one whole packet.
	SingleRead bool

	ln       net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	commands []string
	dropped  int
}

// NewServer starts a server that accepts password and answers with h.
func NewServer(password string, h Handler) (*Server, error) {
	s, err := NewUnstartedServer(password, h)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}

// NewUnstartedServer listens but does not accept until Start, so the
// caller can set Flavor, SplitWrites or Stall first.
func NewUnstartedServer(password string, h Handler) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return &Server{
		Password: password,
		Handler:  h,
		ln:       ln,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Start begins accepting connections.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.serve()
}

// Endpoint returns the address clients should dial.
func (s *Server) Endpoint() rcon.Endpoint {
	addr := s.ln.Addr().(*net.TCPAddr)
	return rcon.Endpoint{Host: "127.0.0.1", Port: uint16(addr.Port)}
}

// Commands returns every command received so far.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Dropped reports how many clients a SingleRead server disconnected
// for sending more or less than one packet in a read.
func (s *Server) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// DropClients closes every accepted connection, simulating a crash.
func (s *Server) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// Close stops the listener and all connections.
func (s *Server) Close() {
	s.ln.Close()
	s.DropClients()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			conn.Close()
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	authed := false
	for {
		p, err := s.read(conn)
		if err != nil {
			return
		}

		switch p.Type {
		case rcon.TypeAuth:
			if s.Flavor == Source {
				s.write(conn, rcon.Packet{ID: p.ID, Type: rcon.TypeResponseValue})
			}
			if p.Body == s.Password {
				authed = true
				s.write(conn, rcon.Packet{ID: p.ID, Type: rcon.TypeAuthResponse})
			} else {
				s.write(conn, rcon.Packet{ID: rcon.AuthFailedID, Type: rcon.TypeAuthResponse})
			}

		case rcon.TypeExecCommand:
			if !authed {
				return
			}
			s.mu.Lock()
			s.commands = append(s.commands, p.Body)
			s.mu.Unlock()
			if s.Stall {
				continue
			}
			frags := s.respond(p.Body)
			if len(frags) == 0 {
				frags = []string{""}
			}
			for _, frag := range frags {
				s.write(conn, rcon.Packet{ID: p.ID, Type: rcon.TypeResponseValue, Body: frag})
			}

		case rcon.TypeResponseValue:
			if s.Stall {
				continue
			}
			if s.Flavor == Source {
				s.write(conn, rcon.Packet{ID: p.ID, Type: rcon.TypeResponseValue})
				s.write(conn, rcon.Packet{ID: p.ID, Type: rcon.TypeResponseValue, Body: "\x00\x01\x00\x00"})
			} else {
				s.write(conn, rcon.Packet{ID: p.ID, Type: rcon.TypeResponseValue, Body: "Unknown request 0"})
			}
		}
	}
}

// readLimit is the largest read vanilla Minecraft makes per packet.
const readLimit = 1460

func (s *Server) read(conn net.Conn) (rcon.Packet, error) {
	if !s.SingleRead {
		p, _, err := rcon.ReadPacket(conn)
		return p, err
	}
	buf := make([]byte, readLimit)
	n, err := conn.Read(buf)
	if err != nil {
		return rcon.Packet{}, err
	}
	if n < 4 {
		return rcon.Packet{}, fmt.Errorf("short read of %d bytes", n)
	}
	if length := int(int32(binary.LittleEndian.Uint32(buf))); length != n-4 {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return rcon.Packet{}, fmt.Errorf("length %d != read %d-4", length, n)
	}
	p, _, err := rcon.ReadPacket(bytes.NewReader(buf[:n]))
	return p, err
}

func (s *Server) respond(command string) []string {
	if s.Handler == nil {
		return nil
	}
	return s.Handler(command)
}

func (s *Server) write(conn net.Conn, p rcon.Packet) {
	buf, _ := p.MarshalBinary()
	if !s.SplitWrites || len(buf) < 2 {
		conn.Write(buf) //nolint:errcheck
		return
	}
	half := len(buf) / 2
	conn.Write(buf[:half]) //nolint:errcheck
	time.Sleep(5 * time.Millisecond)
	conn.Write(buf[half:]) //nolint:errcheck
}

// Fragment splits text into chunks of at most size bytes, the way a
// server fragments a long response.
func Fragment(text string, size int) []string {
	var out []string
	for len(text) > size {
		out = append(out, text[:size])
		text = text[size:]
	}
	if text != "" || len(out) == 0 {
		out = append(out, text)
	}
	return out
}

// Unknown mimics a Minecraft server's diagnostic for a bad command.
func Unknown(command string) []string {
	return []string{"Unknown or incomplete command, see below for error" + command + "<--[HERE]"}
}
