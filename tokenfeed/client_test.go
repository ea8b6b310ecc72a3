package tokenfeed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPCClient_CallAppliesDeadline(t *testing.T) {
	c := NewRPCClient(nil, WithCallTimeout(20*time.Millisecond))

	var hadDeadline bool
	err := c.Call(context.Background(), "getTransaction", func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		<-ctx.Done()
		return errors.New("upstream hung")
	})
	require.Error(t, err)
	assert.True(t, hadDeadline)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	wrapped := transportError("getTransaction", err)
	assert.True(t, errors.Is(wrapped, ErrTransport))
	assert.Contains(t, wrapped.Error(), "deadline exceeded")
}

func TestRPCClient_CallPassesResult(t *testing.T) {
	c := NewRPCClient(nil)
	assert.Equal(t, DefaultCallTimeout, c.timeout)
	assert.Equal(t, rpc.CommitmentConfirmed, c.Commitment())

	err := c.Call(context.Background(), "getAccountInfo", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)

	err = c.Call(context.Background(), "getAccountInfo", func(ctx context.Context) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
}

func TestRPCClient_RateLimitWaitHonoursDeadline(t *testing.T) {
	c := NewRPCClient(nil, WithCallTimeout(50*time.Millisecond), WithRateLimit(0.5, 1))

	calls := 0
	fn := func(ctx context.Context) error { calls++; return nil }

	require.NoError(t, c.Call(context.Background(), "getTransaction", fn))
	// the next token is two seconds away, well past the call deadline
	err := c.Call(context.Background(), "getTransaction", fn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, calls)
}

func TestWithRateLimit_NonPositiveDisables(t *testing.T) {
	c := NewRPCClient(nil, WithRateLimit(5, 0), WithRateLimit(0, 10))
	assert.Nil(t, c.limiter)
}

func TestClassifyRPCError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"nil":       {nil, "ok"},
		"not found": {fmt.Errorf("account x: %w", ErrNotFound), "not_found"},
		"deadline":  {fmt.Errorf("%w: slow", context.DeadlineExceeded), "timeout"},
		"canceled":  {context.Canceled, "canceled"},
		"429":       {errors.New("HTTP 429 Too Many Requests"), "rate_limited"},
		"503":       {errors.New("response status 503"), "server_error"},
		"refused":   {errors.New("dial tcp: connection refused"), "network_error"},
		"other":     {errors.New("invalid params"), "client_error"},
		"rpc 500":   {errors.New("rpc call getTransaction() on http://x status code: 500. rpc response missing"), "server_error"},
		"text 503":  {errors.New("503 Service Unavailable"), "server_error"},
		"eof":       {fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), "network_error"},
		"5000ms":    {errors.New("slot lagging, took 5000ms"), "client_error"},
		"eof word":  {errors.New("account geoffrey is not a signer"), "client_error"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyRPCError(tc.err))
		})
	}
}

func TestResolveInstruction_OutOfRangeDropped(t *testing.T) {
	keys := solana.PublicKeySlice{testKey(1), testKey(2)}

	_, ok := resolveInstruction(keys, 2, nil, nil)
	assert.False(t, ok)
	_, ok = resolveInstruction(keys, 1, []uint16{0, 5}, nil)
	assert.False(t, ok)

	ix, ok := resolveInstruction(keys, 1, []uint16{0}, []byte{1})
	require.True(t, ok)
	assert.Equal(t, testKey(2), ix.ProgramID)
	assert.Equal(t, []solana.PublicKey{testKey(1)}, ix.Accounts)
}

func TestConvertTransaction_ResolvesStaticAndLoadedKeys(t *testing.T) {
	payer := testKey(0x01)
	mint := testKey(0xA1)
	loaded := testKey(0x7E)
	sig := testSig(0x33)

	built, err := solana.NewTransaction(
		[]solana.Instruction{solana.NewInstruction(
			PumpFunProgramID,
			solana.AccountMetaSlice{solana.Meta(mint).WRITE(), solana.Meta(payer).WRITE().SIGNER()},
			CreateDiscriminator[:],
		)},
		solana.Hash(testKey(0x42)),
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	built.Signatures = []solana.Signature{sig}
	raw, err := built.MarshalBinary()
	require.NoError(t, err)

	staticKeys := built.Message.AccountKeys
	programIdx := -1
	for i, k := range staticKeys {
		if k.Equals(PumpFunProgramID) {
			programIdx = i
		}
	}
	require.GreaterOrEqual(t, programIdx, 0)

	// inner instruction: program from the static keys, account from the lookup table
	payload := map[string]any{
		"slot":        uint64(250_000_000),
		"blockTime":   int64(1_714_560_000),
		"transaction": []string{base64.StdEncoding.EncodeToString(raw), "base64"},
		"meta": map[string]any{
			"err":          nil,
			"fee":          5000,
			"preBalances":  []uint64{},
			"postBalances": []uint64{},
			"innerInstructions": []map[string]any{{
				"index": 0,
				"instructions": []map[string]any{{
					"programIdIndex": programIdx,
					"accounts":       []int{len(staticKeys)},
					"data":           solana.Base58([]byte{1, 2, 3}).String(),
				}},
			}},
			"loadedAddresses": map[string]any{
				"writable": []string{loaded.String()},
				"readonly": []string{},
			},
		},
	}
	js, err := json.Marshal(payload)
	require.NoError(t, err)
	var res rpc.GetTransactionResult
	require.NoError(t, json.Unmarshal(js, &res))

	tx, err := convertTransaction(sig, &res)
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, sig, tx.Signature)
	assert.Equal(t, uint64(250_000_000), tx.Slot)
	require.NotNil(t, tx.BlockTime)
	assert.Equal(t, time.Unix(1_714_560_000, 0).UTC(), *tx.BlockTime)

	require.Len(t, tx.Instructions, 1)
	assert.Equal(t, PumpFunProgramID, tx.Instructions[0].ProgramID)
	require.Len(t, tx.Instructions[0].Accounts, 2)
	assert.Equal(t, mint, tx.Instructions[0].Accounts[0])
	assert.Equal(t, CreateDiscriminator[:], tx.Instructions[0].Data)

	require.Len(t, tx.InnerInstructions, 1)
	assert.Equal(t, PumpFunProgramID, tx.InnerInstructions[0].ProgramID)
	assert.Equal(t, []solana.PublicKey{loaded}, tx.InnerInstructions[0].Accounts)
}

func TestConvertTransaction_NilResult(t *testing.T) {
	tx, err := convertTransaction(testSig(1), nil)
	require.NoError(t, err)
	assert.Nil(t, tx)

	tx, err = convertTransaction(testSig(1), &rpc.GetTransactionResult{})
	require.NoError(t, err)
	assert.Nil(t, tx)
}
