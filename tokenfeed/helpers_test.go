package tokenfeed

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/franco-bianco/pumpfeed/spltoken/metadata"
)

// fakeChain is an in-memory ChainClient. Safe for concurrent use.
type fakeChain struct {
	mu sync.Mutex

	sigs     []SignatureEntry
	sigErr   error
	sigLimit int

	txs    map[solana.Signature]*Transaction
	txErrs map[solana.Signature]error

	accounts    map[solana.PublicKey][]byte
	accountErrs map[solana.PublicKey]error

	calls map[string]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		txs:         map[solana.Signature]*Transaction{},
		txErrs:      map[solana.Signature]error{},
		accounts:    map[solana.PublicKey][]byte{},
		accountErrs: map[solana.PublicKey]error{},
		calls:       map[string]int{},
	}
}

func (f *fakeChain) count(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *fakeChain) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeChain) GetSignatures(_ context.Context, _ solana.PublicKey, limit int) ([]SignatureEntry, error) {
	f.count("getSignaturesForAddress")
	f.mu.Lock()
	f.sigLimit = limit
	f.mu.Unlock()
	if f.sigErr != nil {
		return nil, f.sigErr
	}
	out := f.sigs
	if len(out) > limit {
		out = out[:limit]
	}
	return append([]SignatureEntry(nil), out...), nil
}

func (f *fakeChain) GetTransaction(_ context.Context, sig solana.Signature) (*Transaction, error) {
	f.count("getTransaction")
	if err := f.txErrs[sig]; err != nil {
		return nil, err
	}
	return f.txs[sig], nil
}

func (f *fakeChain) GetAccountData(_ context.Context, address solana.PublicKey) ([]byte, error) {
	f.count("getAccountInfo")
	if err := f.accountErrs[address]; err != nil {
		return nil, err
	}
	data, ok := f.accounts[address]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// ---------- builders ----------

var errBoom = errors.New("boom")

func testSig(b byte) solana.Signature {
	var s solana.Signature
	for i := range s {
		s[i] = b
	}
	return s
}

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func ts(t time.Time) *time.Time { return &t }

// addTx registers a signature and its transaction with one target instruction per mint.
func (f *fakeChain) addTx(sig solana.Signature, at time.Time, mints ...solana.PublicKey) *Transaction {
	tx := &Transaction{Signature: sig, BlockTime: ts(at)}
	for _, m := range mints {
		tx.Instructions = append(tx.Instructions, Instruction{
			ProgramID: PumpFunProgramID,
			Accounts:  []solana.PublicKey{m, testKey(0xEE)},
			Data:      append([]byte(nil), CreateDiscriminator[:]...),
		})
	}
	f.sigs = append(f.sigs, SignatureEntry{Signature: sig, BlockTime: ts(at)})
	f.txs[sig] = tx
	return tx
}

// addMetadata stores a borsh-encoded metadata account for mint.
func (f *fakeChain) addMetadata(t *testing.T, mint solana.PublicKey, md metadata.Metadata) solana.PublicKey {
	t.Helper()
	addr, err := metadata.DeriveAddress(mint, metadata.ProgramID)
	require.NoError(t, err)
	data, err := metadata.EncodeBorsh(testKey(0xAA), mint, md)
	require.NoError(t, err)
	f.accounts[addr] = data
	return addr
}

func encodeTradeEvent(ev TradeEvent) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(eventCPITag[:])
	buf.Write(tradeEventDiscriminator[:])
	if err := ag_binary.NewBorshEncoder(buf).Encode(ev); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tradeEventIx(t *testing.T, ev TradeEvent) Instruction {
	t.Helper()
	data, err := encodeTradeEvent(ev)
	require.NoError(t, err)
	return Instruction{
		ProgramID: PumpFunProgramID,
		Accounts:  []solana.PublicKey{testKey(0xEF)},
		Data:      data,
	}
}
