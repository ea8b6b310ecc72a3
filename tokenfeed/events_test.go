package tokenfeed

import (
	"bytes"
	"encoding/hex"
	"testing"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, "181ec828051c0777", hex.EncodeToString(CreateDiscriminator[:]))
	assert.Equal(t, "e445a52e51cb9a1d", hex.EncodeToString(eventCPITag[:]))
	assert.Equal(t, "bddb7fd34ee661ee", hex.EncodeToString(tradeEventDiscriminator[:]))
}

func TestBuyLamportsByMint_OnChainPrefix(t *testing.T) {
	mint := testKey(0xA1)
	body := new(bytes.Buffer)
	require.NoError(t, ag_binary.NewBorshEncoder(body).Encode(TradeEvent{Mint: mint, SolAmount: 1_000_000_000, IsBuy: true}))

	// event-CPI prefix as it appears in real pump.fun transactions
	data := []byte{228, 69, 165, 46, 81, 203, 154, 29}
	data = append(data, tradeEventDiscriminator[:]...)
	data = append(data, body.Bytes()...)

	tx := &Transaction{InnerInstructions: []Instruction{{ProgramID: PumpFunProgramID, Data: data}}}
	assert.Equal(t, uint64(1_000_000_000), buyLamportsByMint(tx, PumpFunProgramID)[mint])
}

func TestDecodeTradeEvent(t *testing.T) {
	want := TradeEvent{
		Mint:                 testKey(0xA1),
		SolAmount:            42,
		TokenAmount:          1_000,
		IsBuy:                true,
		User:                 testKey(0x0B),
		Timestamp:            1_714_560_000,
		VirtualSolReserves:   30_000_000_000,
		VirtualTokenReserves: 1_073_000_000_000_000,
	}
	ix := tradeEventIx(t, want)

	got, ok := decodeTradeEvent(ix, PumpFunProgramID)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// newer program versions append fields
	ix.Data = append(ix.Data, make([]byte, 64)...)
	got, ok = decodeTradeEvent(ix, PumpFunProgramID)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestDecodeTradeEvent_Rejects(t *testing.T) {
	good := tradeEventIx(t, TradeEvent{Mint: testKey(0xA1), SolAmount: 1, IsBuy: true})

	otherProgram := good
	otherProgram.ProgramID = testKey(0x99)

	wrongTag := good
	wrongTag.Data = append([]byte(nil), good.Data...)
	wrongTag.Data[0] ^= 0xFF

	truncated := good
	truncated.Data = good.Data[:20]

	for name, ix := range map[string]Instruction{
		"other program": otherProgram,
		"wrong tag":     wrongTag,
		"truncated":     truncated,
		"empty":         {ProgramID: PumpFunProgramID},
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := decodeTradeEvent(ix, PumpFunProgramID)
			assert.False(t, ok)
		})
	}
}

func TestBuyLamportsByMint_IgnoresTopLevelInstructions(t *testing.T) {
	mint := testKey(0xA1)
	tx := &Transaction{
		Instructions:      []Instruction{tradeEventIx(t, TradeEvent{Mint: mint, SolAmount: 100, IsBuy: true})},
		InnerInstructions: []Instruction{tradeEventIx(t, TradeEvent{Mint: mint, SolAmount: 7, IsBuy: true})},
	}
	assert.Equal(t, uint64(7), buyLamportsByMint(tx, PumpFunProgramID)[mint])
}
