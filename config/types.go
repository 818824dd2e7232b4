package config

import "gavelmarket/native/common"

// Pauses names the settlement modules an operator can halt without taking the
// service down.
type Pauses struct {
	Listing bool `toml:"Listing"`
	Auction bool `toml:"Auction"`
	Bundle  bool `toml:"Bundle"`
}

// IsPaused implements the pause view consumed by the settlement ledgers.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case common.ModuleListing:
		return p.Listing
	case common.ModuleAuction:
		return p.Auction
	case common.ModuleBundle:
		return p.Bundle
	default:
		return false
	}
}
