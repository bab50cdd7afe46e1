package tunnel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	rcerr "rconsole/internal/errors"
	"rconsole/internal/rcontest"
	"rconsole/rcon"
	"rconsole/tunnel"
	"rconsole/util"
)

func startGateway(t *testing.T) *rcontest.Gateway {
	t.Helper()
	gw, err := rcontest.NewGateway("admin", "bastion-pass")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(gw.Close)
	return gw
}

func gatewayConfig(gw *rcontest.Gateway, password string) *tunnel.SSHConfig {
	return &tunnel.SSHConfig{
		User:        "admin",
		Host:        gw.Host(),
		Port:        gw.Port(),
		PromptPass:  true,
		ConnTimeout: 5 * time.Second,
		Prompt:      func(string) (string, error) { return password, nil },
	}
}

// TestSSHTunnel_RCONThroughGateway logs in to an RCON server that is
// reached only through the tunnel.
func TestSSHTunnel_RCONThroughGateway(t *testing.T) {
	gw := startGateway(t)
	srv, err := rcontest.NewServer("hunter2", rcontest.Echo)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Close)

	tun := tunnel.NewSSHTunnel(gatewayConfig(gw, "bastion-pass"), util.NewLogger(0))
	ctx := context.Background()
	if err := tun.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !tun.IsAlive() {
		t.Fatal("tunnel not alive after Connect")
	}

	ep := srv.Endpoint()
	conn, err := tun.Dial(ctx, "tcp", ep.String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c := rcon.NewClient(conn, ep, rcon.Options{Timeout: 5 * time.Second})
	defer c.Close()

	ok, err := c.Login(ctx, "hunter2")
	if err != nil || !ok {
		t.Fatalf("Login = %v, %v", ok, err)
	}
	got, err := c.Execute(ctx, "list")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "list" {
		t.Errorf("Execute = %q, want %q", got, "list")
	}
	if dials := gw.Dials(); len(dials) != 1 || dials[0] != ep.String() {
		t.Errorf("gateway dials = %v, want [%s]", dials, ep)
	}

	if err := tun.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if tun.IsAlive() {
		t.Error("tunnel alive after Close")
	}
	if _, err := tun.Dial(ctx, "tcp", ep.String()); !errors.Is(err, rcerr.ErrTunnelClosed) {
		t.Errorf("Dial after Close: err = %v, want ErrTunnelClosed", err)
	}
}

func TestSSHTunnel_WrongPassword(t *testing.T) {
	gw := startGateway(t)

	tun := tunnel.NewSSHTunnel(gatewayConfig(gw, "guess"), util.NewLogger(0))
	err := tun.Connect(context.Background())
	var se *rcerr.SSHError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SSHError", err)
	}
	if se.Op != "handshake" {
		t.Errorf("Op = %q, want handshake", se.Op)
	}
	if tun.IsAlive() {
		t.Error("tunnel alive after a failed handshake")
	}
}

func TestSSHTunnel_GatewayDrop(t *testing.T) {
	gw := startGateway(t)

	tun := tunnel.NewSSHTunnel(gatewayConfig(gw, "bastion-pass"), util.NewLogger(0))
	if err := tun.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tun.Close()

	gw.DropClients()

	deadline := time.Now().Add(2 * time.Second)
	for tun.IsAlive() {
		if time.Now().After(deadline) {
			t.Fatal("tunnel still alive after the gateway dropped it")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
