// Package corelog re-exports the logger contract shared by every package in
// this module, the way log package wraps github.com/luxfi/log
// with a module-local NoOp constructor instead of reaching for a global.
package corelog

import "github.com/luxfi/log"

// Logger is the structured logger the arena builder, the solver and
// symmodel.View accept explicitly; nothing here reaches for a
// package-level global.
type Logger = log.Logger

// NoOp returns a logger that discards everything, for tests and for callers
// that have no logging infrastructure wired up yet.
func NoOp() Logger {
	return log.NewNoOpLogger()
}
