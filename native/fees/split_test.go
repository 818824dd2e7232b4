package fees

import (
	"math/big"
	"testing"
)

func TestSplitConservesValue(t *testing.T) {
	cases := []struct {
		name    string
		gross   int64
		rateBps uint32
		cut     int64
		net     int64
	}{
		{"five percent of twenty", 20, 500, 1, 19},
		{"rounds the cut down", 999, 250, 24, 975},
		{"zero rate", 100, 0, 0, 100},
		{"full rate", 100, 10_000, 100, 0},
		{"one unit", 1, 500, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cut, net := Split(big.NewInt(tc.gross), tc.rateBps)
			if cut.Int64() != tc.cut || net.Int64() != tc.net {
				t.Fatalf("Split(%d, %d) = (%s, %s), want (%d, %d)", tc.gross, tc.rateBps, cut, net, tc.cut, tc.net)
			}
			sum := new(big.Int).Add(cut, net)
			if sum.Cmp(big.NewInt(tc.gross)) != 0 {
				t.Fatalf("cut+net = %s, want %d", sum, tc.gross)
			}
		})
	}
}

func TestSplitNilAndNegativeGross(t *testing.T) {
	cut, net := Split(nil, 500)
	if cut.Sign() != 0 || net.Sign() != 0 {
		t.Fatalf("nil gross should split to zero, got (%s, %s)", cut, net)
	}
	cut, net = Split(big.NewInt(-5), 500)
	if cut.Sign() != 0 || net.Sign() != 0 {
		t.Fatalf("negative gross should split to zero, got (%s, %s)", cut, net)
	}
}

func TestConfigMutationRequiresOwner(t *testing.T) {
	owner := addr(0x01)
	stranger := addr(0x02)
	recipient := addr(0xFE)
	cfg, err := NewConfig(owner, recipient, 500)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if err := cfg.SetRate(stranger, 100); err == nil {
		t.Fatalf("expected stranger rate change to fail")
	}
	if err := cfg.SetRate(owner, 100); err != nil {
		t.Fatalf("owner rate change: %v", err)
	}
	if got := cfg.Snapshot().RateBps; got != 100 {
		t.Fatalf("rate = %d, want 100", got)
	}
	if err := cfg.SetRecipient(stranger, addr(0xAB)); err == nil {
		t.Fatalf("expected stranger recipient change to fail")
	}
	if err := cfg.SetRecipient(owner, addr(0xAB)); err != nil {
		t.Fatalf("owner recipient change: %v", err)
	}
	if got := cfg.Snapshot().Recipient; got != addr(0xAB) {
		t.Fatalf("recipient not updated")
	}
	if err := cfg.TransferOwnership(owner, stranger); err != nil {
		t.Fatalf("transfer ownership: %v", err)
	}
	if err := cfg.SetRate(owner, 200); err == nil {
		t.Fatalf("old owner should lose the role")
	}
	if err := cfg.SetRate(stranger, 200); err != nil {
		t.Fatalf("new owner rate change: %v", err)
	}
}

func TestNewConfigValidation(t *testing.T) {
	if _, err := NewConfig([20]byte{}, addr(0x01), 0); err == nil {
		t.Fatalf("expected zero owner to be rejected")
	}
	if _, err := NewConfig(addr(0x01), [20]byte{}, 0); err == nil {
		t.Fatalf("expected zero recipient to be rejected")
	}
	if _, err := NewConfig(addr(0x01), addr(0x02), 10_001); err == nil {
		t.Fatalf("expected out of range rate to be rejected")
	}
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}
