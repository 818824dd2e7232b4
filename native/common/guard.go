package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// Module names recognised by the pause view.
const (
	ModuleListing = "listing"
	ModuleAuction = "auction"
	ModuleBundle  = "bundle"
)

// PauseView reports whether a settlement module has been administratively
// halted. A nil view means nothing is paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
