package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Account key tag for a v1 metadata account.
const keyMetadataV1 uint8 = 4

// Field limits enforced by the metadata program; EncodeBorsh pads to them.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

// BorshDecoder reads the on-chain Token Metadata layout:
//
//	key u8 | update_authority [32]u8 | mint [32]u8 | name | symbol | uri
//
// where each string is a u32 little-endian length followed by that many bytes.
// The first length prefix sits at offset 65.
type BorshDecoder struct{}

func (BorshDecoder) Name() string { return LayoutBorsh }

func (BorshDecoder) Decode(data []byte) (Metadata, error) {
	dec := ag_binary.NewBorshDecoder(data)

	key, err := dec.ReadUint8()
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: read key: %v", ErrDecode, err)
	}
	if key != keyMetadataV1 {
		return Metadata{}, fmt.Errorf("%w: unexpected account key %d", ErrDecode, key)
	}
	// update authority + mint
	if dec.Remaining() < 2*solana.PublicKeyLength {
		return Metadata{}, fmt.Errorf("%w: header truncated (%d bytes)", ErrDecode, len(data))
	}
	if _, err := dec.ReadNBytes(2 * solana.PublicKeyLength); err != nil {
		return Metadata{}, fmt.Errorf("%w: read header: %v", ErrDecode, err)
	}

	var fields [3]string
	for i, label := range []string{"name", "symbol", "uri"} {
		s, err := readString(dec)
		if err != nil {
			return Metadata{}, fmt.Errorf("%w: %s: %v", ErrDecode, label, err)
		}
		fields[i] = s
	}

	return Metadata{Name: fields[0], Symbol: fields[1], URI: fields[2]}, nil
}

func readString(dec *ag_binary.Decoder) (string, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return "", err
	}
	if int64(n) > int64(dec.Remaining()) {
		return "", fmt.Errorf("length %d exceeds remaining %d bytes", n, dec.Remaining())
	}
	raw, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("invalid utf-8")
	}
	return cleanField(raw), nil
}

// EncodeBorsh builds a metadata account buffer in the borsh layout.
// Strings are NUL padded to the program's maximum lengths, as the metadata
// program stores them.
func EncodeBorsh(updateAuthority, mint solana.PublicKey, md Metadata) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := ag_binary.NewBorshEncoder(buf)

	if err := enc.WriteUint8(keyMetadataV1); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(updateAuthority.Bytes(), false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(mint.Bytes(), false); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		val string
		max int
	}{
		{md.Name, MaxNameLength},
		{md.Symbol, MaxSymbolLength},
		{md.URI, MaxURILength},
	} {
		if len(f.val) > f.max {
			return nil, fmt.Errorf("field %q longer than %d bytes", f.val, f.max)
		}
		padded := make([]byte, f.max)
		copy(padded, f.val)
		if err := enc.WriteUint32(uint32(len(padded)), binary.LittleEndian); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(padded, false); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
