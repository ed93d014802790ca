// Package common holds helpers shared by the ledger modules.
package common

import (
	"strings"

	"cashchain/core/types"
)

// ErrModulePaused matches every PausedError.
var ErrModulePaused = types.ErrModulePaused

// PauseView reports governance pause flags.
type PauseView interface {
	IsPaused(module string) bool
}

// PausedError names the module that rejected a call.
type PausedError struct {
	Module string
}

func (e PausedError) Error() string { return e.Module + ": " + ErrModulePaused.Error() }

func (e PausedError) Is(target error) bool { return target == ErrModulePaused }

// Guard fails with a PausedError when module is paused. A nil view or an
// empty module name never blocks.
func Guard(p PauseView, module string) error {
	module = strings.TrimSpace(module)
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return PausedError{Module: module}
	}
	return nil
}
