package metadata

import (
	"fmt"
	"unicode/utf8"
)

// Fixed-width field boundaries.
const (
	fixedNameEnd   = 32
	fixedSymbolEnd = 36
	fixedURIEnd    = 236
)

// FixedDecoder reads name [0,32), symbol [32,36) and uri [36,236) directly
// from the start of the buffer.
type FixedDecoder struct{}

func (FixedDecoder) Name() string { return LayoutFixed }

func (FixedDecoder) Decode(data []byte) (Metadata, error) {
	if len(data) < fixedURIEnd {
		return Metadata{}, fmt.Errorf("%w: buffer has %d bytes, need %d", ErrDecode, len(data), fixedURIEnd)
	}
	name := data[:fixedNameEnd]
	symbol := data[fixedNameEnd:fixedSymbolEnd]
	uri := data[fixedSymbolEnd:fixedURIEnd]
	for _, f := range [][]byte{name, symbol, uri} {
		if !utf8.Valid(f) {
			return Metadata{}, fmt.Errorf("%w: invalid utf-8", ErrDecode)
		}
	}
	return Metadata{
		Name:   cleanField(name),
		Symbol: cleanField(symbol),
		URI:    cleanField(uri),
	}, nil
}

// EncodeFixed builds a buffer in the fixed-width layout.
func EncodeFixed(md Metadata) ([]byte, error) {
	if len(md.Name) > fixedNameEnd || len(md.Symbol) > fixedSymbolEnd-fixedNameEnd || len(md.URI) > fixedURIEnd-fixedSymbolEnd {
		return nil, fmt.Errorf("metadata does not fit fixed layout: %+v", md)
	}
	out := make([]byte, fixedURIEnd)
	copy(out[:fixedNameEnd], md.Name)
	copy(out[fixedNameEnd:fixedSymbolEnd], md.Symbol)
	copy(out[fixedSymbolEnd:], md.URI)
	return out, nil
}
