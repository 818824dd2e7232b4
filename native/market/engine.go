package market

import (
	"errors"
	"math/big"

	"gavelmarket/core/events"
	"gavelmarket/core/types"
)

var (
	errNilState     = errors.New("market: state not configured")
	errNilAssets    = errors.New("market: asset registry not configured")
	errNilPayments  = errors.New("market: payment registry not configured")
	errNilTokens    = errors.New("market: token registry not configured")
	errNilFees      = errors.New("market: fee config not configured")
	errNilModule    = errors.New("market: module address not configured")
	errNilDirectory = errors.New("market: address directory not configured")
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

func emit(emitter events.Emitter, evt *types.Event) {
	if emitter == nil || evt == nil {
		return
	}
	emitter.Emit(marketEvent{evt: evt})
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
