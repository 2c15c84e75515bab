package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memescan/pkg/explorer"
)

func TestNormalizeTransfers(t *testing.T) {
	raw := []explorer.TokenTransfer{
		{
			From: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", To: addrB,
			Value: "1000000000000000000", TimeStamp: "1700000000",
			TokenDecimal: "18", BlockNumber: "12345", Hash: "0xh1",
		},
		{
			// hex-encoded numerics are valid too
			From: pool, To: addrA,
			Value: "0x5", TimeStamp: "0x6553f100", TokenDecimal: "9", Hash: "0xh2",
		},
		{
			// no decimals: falls back to the token-level default
			From: pool, To: addrA,
			Value: "42", TimeStamp: "1700000010", Hash: "0xh3",
		},
	}

	events, skipped := NormalizeTransfers(raw, 18)

	require.Len(t, events, 3)
	assert.Zero(t, skipped)

	assert.Equal(t, addrA, events[0].From, "addresses lowercased")
	assert.Equal(t, int64(1700000000), events[0].Timestamp)
	assert.Equal(t, int64(12345), events[0].BlockNumber)
	assert.Equal(t, "1", events[0].Amount().String())

	assert.Equal(t, int64(0x6553f100), events[1].Timestamp)
	assert.Equal(t, int32(9), events[1].Decimals)

	assert.Equal(t, int32(18), events[2].Decimals)
}

func TestNormalizeTransfers_SkipsMalformed(t *testing.T) {
	raw := []explorer.TokenTransfer{
		{From: pool, To: addrA, Value: "10", TimeStamp: "not-a-number", TokenDecimal: "18"},
		{From: pool, To: addrA, Value: "", TimeStamp: "1700000000", TokenDecimal: "18"},
		{From: pool, To: addrA, Value: "10", TimeStamp: "1700000000", TokenDecimal: "18"},
	}

	events, skipped := NormalizeTransfers(raw, 18)

	assert.Len(t, events, 1)
	assert.Equal(t, 2, skipped)
}

func TestTokenInfoFromTransfer(t *testing.T) {
	info := TokenInfoFromTransfer(explorer.TokenTransfer{
		TokenName: "Pepe", TokenSymbol: "PEPE", TokenDecimal: "9",
	}, "0xTOKEN")
	assert.Equal(t, "Pepe", info.Name)
	assert.Equal(t, int32(9), info.Decimals)
	assert.Equal(t, "0xtoken", info.Address)

	// metadata missing entirely
	info = TokenInfoFromTransfer(explorer.TokenTransfer{}, "0xtoken")
	assert.Equal(t, "Unknown", info.Name)
	assert.Equal(t, "Unknown", info.Symbol)
	assert.Equal(t, int32(18), info.Decimals)
}
