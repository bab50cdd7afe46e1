package core

import (
	"context"
	"fmt"

	"rconsole/config"
	"rconsole/internal/console"
	"rconsole/internal/session"
	"rconsole/internal/transport"
	"rconsole/rcon"
	"rconsole/tunnel"
	"rconsole/util"
)

// Build loads the server list and assembles the menu from cfg.  A
// missing server list is created with defaults and reported.
func Build(cfg *config.Config, con *console.Console, logger *util.Logger) (Mode, error) {
	servers, created, err := config.LoadServers(cfg.ServersFile)
	if err != nil {
		return nil, fmt.Errorf("server list %s: %w", cfg.ServersFile, err)
	}
	if created {
		con.Warnf("Configuration file not found, creating a new one at %s", cfg.ServersFile)
	}
	logger.Verbose("loaded %d server entries from %s", len(servers.Servers), cfg.ServersFile)

	return &Menu{
		Console: con,
		Logger:  logger,
		Session: session.Config{
			Console: con,
			Prompter: &CredentialPrompter{
				Console:     con,
				DefaultHost: cfg.Host,
				DefaultPort: cfg.Port,
			},
			LogFiles: servers,
			Client: rcon.Options{
				Dialer:          buildDialer(cfg, con, logger),
				Timeout:         cfg.Timeout,
				ConnectAttempts: cfg.ConnectAttempts,
			},
			TailInterval: cfg.TailInterval,
			Logger:       logger,
		},
	}, nil
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, con *console.Console, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.ConnTimeout,
			Prompt: func(prompt string) (string, error) {
				return con.ReadPassword(context.Background(), prompt)
			},
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.ConnTimeout}
}
