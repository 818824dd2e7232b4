package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gavelmarket/native/common"
)

func TestLoadParsesSettlementConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `Service = "gavelmarket"
Environment = "staging"
DataDir = "/var/lib/gavelmarket"
FeeOwner = "0101010101010101010101010101010101010101"
FeeRecipient = "0x0202020202020202020202020202020202020202"
FeeRateBps = 500
AcceptedTokens = ["WFTM", "USDC"]

[Pauses]
Auction = true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Environment)
	require.Equal(t, uint32(500), cfg.FeeRateBps)
	require.Equal(t, []string{"WFTM", "USDC"}, cfg.AcceptedTokens)

	owner, err := cfg.FeeOwnerAddress()
	require.NoError(t, err)
	require.Equal(t, byte(0x01), owner[0])
	recipient, err := cfg.FeeRecipientAddress()
	require.NoError(t, err)
	require.Equal(t, byte(0x02), recipient[19])

	require.True(t, cfg.Pauses.IsPaused(common.ModuleAuction))
	require.False(t, cfg.Pauses.IsPaused(common.ModuleListing))
	require.False(t, cfg.Pauses.IsPaused(common.ModuleBundle))
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gavelmarket", cfg.Service)
	require.Equal(t, uint32(250), cfg.FeeRateBps)
	require.Equal(t, []string{"WFTM"}, cfg.AcceptedTokens)
	require.FileExists(t, path)

	// A second load round-trips the file it just wrote.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name     string
		contents string
	}{
		{
			name: "rate above denominator",
			contents: `DataDir = "/tmp/x"
FeeOwner = "0101010101010101010101010101010101010101"
FeeRecipient = "0101010101010101010101010101010101010101"
FeeRateBps = 10001
AcceptedTokens = ["WFTM"]
`,
		},
		{
			name: "malformed recipient",
			contents: `DataDir = "/tmp/x"
FeeOwner = "0101010101010101010101010101010101010101"
FeeRecipient = "nope"
FeeRateBps = 100
AcceptedTokens = ["WFTM"]
`,
		},
		{
			name: "no accepted tokens",
			contents: `DataDir = "/tmp/x"
FeeOwner = "0101010101010101010101010101010101010101"
FeeRecipient = "0101010101010101010101010101010101010101"
FeeRateBps = 100
AcceptedTokens = []
`,
		},
		{
			name: "unknown field",
			contents: `DataDir = "/tmp/x"
FeeOwner = "0101010101010101010101010101010101010101"
FeeRecipient = "0101010101010101010101010101010101010101"
FeeRateBps = 100
AcceptedTokens = ["WFTM"]
LegacyKey = "value"
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.contents), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
