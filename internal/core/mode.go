// Package core is the orchestration layer.  It builds the operator
// menu from a Config and hands each login to a session controller.
//
// Architecture layers (bottom → top):
//
//	transport  →  rcon  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete top-level behaviour of rconsole.  It owns its
// lifecycle from the first prompt to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
