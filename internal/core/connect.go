package core

import (
	"context"
	"strconv"
	"strings"

	"rconsole/config"
	"rconsole/internal/console"
	"rconsole/rcon"
)

// CredentialPrompter asks the operator for the server address and RCON
// password, re-asking until every answer is valid.  Defaults come from
// flags or the environment and are used when an answer is left blank.
type CredentialPrompter struct {
	Console     *console.Console
	DefaultHost string
	DefaultPort int
}

// Credentials implements session.Prompter.
func (p *CredentialPrompter) Credentials(ctx context.Context) (rcon.Endpoint, rcon.Credentials, error) {
	con := p.Console
	for {
		host, err := p.ask(ctx, "Enter the server "+con.Paint("IP", console.StyleEmphasis), p.DefaultHost)
		if err != nil {
			return rcon.Endpoint{}, rcon.Credentials{}, err
		}
		if host == "" {
			con.Errorf("IP cannot be empty, please enter your IP.")
			continue
		}
		if err := config.ValidateHost(host); err != nil {
			con.Errorf(`Invalid IP/hostname. Please enter a valid IPv4 address, domain, or "localhost".`)
			continue
		}

		var defPort string
		if p.DefaultPort > 0 {
			defPort = strconv.Itoa(p.DefaultPort)
		}
		raw, err := p.ask(ctx, "Enter the RCON "+con.Paint("port", console.StyleWarning), defPort)
		if err != nil {
			return rcon.Endpoint{}, rcon.Credentials{}, err
		}
		port, err := config.ParsePort(raw)
		if err != nil {
			con.Errorf("Invalid port: %v.", err)
			continue
		}

		pw, err := con.ReadPassword(ctx, "Enter the RCON "+con.Paint("password", console.StyleError)+": ")
		if err != nil {
			return rcon.Endpoint{}, rcon.Credentials{}, err
		}
		if pw == "" {
			con.Errorf("Password cannot be empty.")
			continue
		}

		return rcon.Endpoint{Host: host, Port: port}, rcon.Credentials{Password: pw}, nil
	}
}

// ask reads one answer, substituting def for a blank line.
func (p *CredentialPrompter) ask(ctx context.Context, label, def string) (string, error) {
	prompt := label + ": "
	if def != "" {
		prompt = label + " [" + def + "]: "
	}
	line, err := p.Console.ReadLine(ctx, prompt)
	if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}
