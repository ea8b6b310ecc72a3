package tokenfeed

import (
	"bytes"
	"crypto/sha256"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ------ Anchor discriminator helpers ------

// anchorDiscriminator returns the first 8 bytes of sha256(namespace + ":" + name).
func anchorDiscriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

var (
	// CreateDiscriminator tags pump.fun's create instruction.
	CreateDiscriminator = anchorDiscriminator("global", "create")

	// Anchor emit_cpi prefix: EVENT_IX_TAG (0x1d9acb512ea545e4) written little-endian.
	eventCPITag = [8]byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}

	tradeEventDiscriminator = anchorDiscriminator("event", "TradeEvent")
)

// TradeEvent is the leading, stable part of pump.fun's TradeEvent. Newer
// program versions append fields which are ignored.
type TradeEvent struct {
	Mint                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 solana.PublicKey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

func hasPrefix8(data []byte, tag [8]byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:8], tag[:])
}

// decodeTradeEvent decodes a self-CPI event instruction. ok is false for
// anything that is not a well formed trade event.
func decodeTradeEvent(ix Instruction, program solana.PublicKey) (ev TradeEvent, ok bool) {
	if !ix.ProgramID.Equals(program) || len(ix.Data) < 16 {
		return TradeEvent{}, false
	}
	if !hasPrefix8(ix.Data, eventCPITag) || !hasPrefix8(ix.Data[8:], tradeEventDiscriminator) {
		return TradeEvent{}, false
	}
	if err := ag_binary.NewBorshDecoder(ix.Data[16:]).Decode(&ev); err != nil {
		return TradeEvent{}, false
	}
	return ev, true
}

// buyLamportsByMint sums SOL spent on buys per mint across a transaction's trade events.
func buyLamportsByMint(tx *Transaction, program solana.PublicKey) map[solana.PublicKey]uint64 {
	out := make(map[solana.PublicKey]uint64)
	for _, ix := range tx.InnerInstructions {
		ev, ok := decodeTradeEvent(ix, program)
		if !ok || !ev.IsBuy {
			continue
		}
		out[ev.Mint] += ev.SolAmount
	}
	return out
}
