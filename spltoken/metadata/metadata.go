package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the Token Metadata program that owns metadata accounts.
var ProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// ErrDecode is returned (wrapped) for any buffer that does not match a layout.
var ErrDecode = errors.New("metadata decode")

// Metadata is the descriptive part of a metadata account.
type Metadata struct {
	Name   string
	Symbol string
	URI    string
}

// Decoder turns raw metadata account bytes into Metadata.
type Decoder interface {
	Name() string
	Decode(data []byte) (Metadata, error)
}

// Layout names accepted by DecoderByName.
const (
	LayoutBorsh = "borsh"
	LayoutFixed = "fixed"
)

// DecoderByName returns the decoder for a configured layout name.
// An empty name selects the borsh layout.
func DecoderByName(name string) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LayoutBorsh:
		return BorshDecoder{}, nil
	case LayoutFixed:
		return FixedDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown metadata layout %q (want %q or %q)", name, LayoutBorsh, LayoutFixed)
	}
}

// DeriveAddress returns the metadata account address for mint.
// Seeds: ["metadata", program, mint], owned by program.
func DeriveAddress(mint, program solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			program.Bytes(),
			mint.Bytes(),
		},
		program,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive metadata address for %s: %w", mint, err)
	}
	return addr, nil
}

// cleanField strips NUL padding and surrounding whitespace.
func cleanField(b []byte) string {
	return strings.TrimSpace(strings.ReplaceAll(string(b), "\x00", ""))
}
