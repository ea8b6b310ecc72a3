package tokenfeed

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Well-known program addresses.
var (
	PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
)

// SignatureEntry is one row of getSignaturesForAddress.
// BlockTime is nil when the node did not report one.
type SignatureEntry struct {
	Signature solana.Signature
	BlockTime *time.Time
}

// Instruction is a compiled instruction with its indexes already resolved
// against the transaction's full account list.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []solana.PublicKey
	Data      []byte
}

// Transaction is the subset of a fetched transaction the pipeline reads.
type Transaction struct {
	Signature solana.Signature
	Slot      uint64
	BlockTime *time.Time

	// Top-level message instructions, in order.
	Instructions []Instruction
	// Inner (CPI) instructions, flattened in execution order.
	InnerInstructions []Instruction
}

// CandidateMint is the first account of a matching instruction.
type CandidateMint struct {
	Mint             solana.PublicKey
	Signature        solana.Signature
	InstructionIndex int
	BlockTime        time.Time

	// Lamports bought for this mint inside the same transaction (from trade events).
	BuyLamports uint64
}

// TokenRecord is one row of pipeline output.
type TokenRecord struct {
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	URI       string    `json:"uri"`
	Mint      string    `json:"mint"`
	Signature string    `json:"signature"`
	CreatedAt time.Time `json:"createdAt"`
	Volume    float64   `json:"volume"`
	Holders   *int      `json:"holders,omitempty"`
}
