// Package cmd wires up the CLI flags and starts the operator menu.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"rconsole/config"
	"rconsole/internal/console"
	"rconsole/internal/core"
	"rconsole/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X rconsole/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the interactive console on the
// process's standard streams.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("rconsole", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── connection ───────────────────────────────────────────────
	fs.StringVarP(&cfg.ServersFile, "config", "c", cfg.ServersFile, "Server list file (port → log_file)")
	fs.StringVarP(&cfg.Host, "host", "H", cfg.Host, "Default server host for the login prompt")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Default RCON port for the login prompt")

	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "RCON response timeout in seconds (0 = none)")
	fs.IntVar(&cfg.ConnectAttempts, "connect-attempts", cfg.ConnectAttempts, "Connection attempts before re-prompting")
	fs.DurationVar(&cfg.TailInterval, "tail-interval", cfg.TailInterval, "Log file poll interval")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable coloured output")
	var verbose int
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")

	fs.Usage = func() { printUsage(stderr, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showHelp {
		printUsage(stderr, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "rconsole %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments %q (use --help for usage)", fs.Args())
	}

	cfg.Timeout = time.Duration(timeoutSec) * time.Second
	if verbose > 0 {
		cfg.Verbose = 1 + verbose
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		printConfig(stdout, cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	con := console.New(stdin, stdout, console.NewStyler(stdout, cfg.NoColor))
	defer con.Close()

	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(con.Writer(console.StylePlain))
	logger.SetTimestamps(logger.Enabled(util.LogDebug))

	con.Init()

	mode, err := core.Build(cfg, con, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "servers file:     %s\n", cfg.ServersFile)
	if cfg.Host != "" {
		fmt.Fprintf(w, "default host:     %s\n", cfg.Host)
	}
	if cfg.Port != 0 {
		fmt.Fprintf(w, "default port:     %d\n", cfg.Port)
	}
	fmt.Fprintf(w, "timeout:          %s\n", cfg.Timeout)
	fmt.Fprintf(w, "connect attempts: %d\n", cfg.ConnectAttempts)
	fmt.Fprintf(w, "tail interval:    %s\n", cfg.TailInterval)
	if cfg.TunnelEnabled {
		fmt.Fprintf(w, "tunnel:           %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `rconsole – interactive RCON console v%s

Connects to a game server's RCON port, forwards typed commands and
streams the server's log file into the same terminal.

Usage:
  rconsole [options]

Menu commands:
  login    connect and authenticate
  ?        how to enable RCON on a server
  exit     quit (inside a session: close the session)

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  rconsole                                   Start the menu
  rconsole -H mc.example.com -p 25575        Pre-fill the login prompt
  rconsole -c servers.yaml -w 5              Custom server list, 5s timeout
  rconsole -T admin@bastion -H 10.0.0.12     Reach RCON through an SSH jump host
`)
}
