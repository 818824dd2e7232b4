package fees

import (
	"fmt"
	"math/big"
)

// MaxRateBps is the upper bound for a platform fee rate (100%).
const MaxRateBps uint32 = 10_000

// Split divides a gross settlement amount into the platform cut and the seller
// net. The cut is floored so that cut + net always equals gross exactly. A nil
// gross is treated as zero.
func Split(gross *big.Int, rateBps uint32) (*big.Int, *big.Int) {
	if gross == nil || gross.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	if rateBps == 0 {
		return big.NewInt(0), new(big.Int).Set(gross)
	}
	if rateBps >= MaxRateBps {
		return new(big.Int).Set(gross), big.NewInt(0)
	}
	cut := new(big.Int).Mul(gross, big.NewInt(int64(rateBps)))
	cut.Div(cut, big.NewInt(int64(MaxRateBps)))
	net := new(big.Int).Sub(gross, cut)
	return cut, net
}

// ValidateRate reports whether the supplied basis-point rate is in range.
func ValidateRate(rateBps uint32) error {
	if rateBps > MaxRateBps {
		return fmt.Errorf("fees: rate bps out of range: %d", rateBps)
	}
	return nil
}
