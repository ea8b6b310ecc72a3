package tokenfeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/franco-bianco/pumpfeed/metrics"
)

// ChainClient is the RPC surface the pipeline consumes.
type ChainClient interface {
	// GetSignatures returns up to limit signatures for address, newest first.
	GetSignatures(ctx context.Context, address solana.PublicKey, limit int) ([]SignatureEntry, error)
	// GetTransaction returns (nil, nil) when the node does not know the transaction.
	GetTransaction(ctx context.Context, sig solana.Signature) (*Transaction, error)
	// GetAccountData returns ErrNotFound when the account does not exist.
	GetAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// DefaultCallTimeout bounds every RPC call.
const DefaultCallTimeout = 10 * time.Second

// RPCClient implements ChainClient over a solana-go JSON-RPC client.
// Each call is raced against its own deadline; there are no retries.
type RPCClient struct {
	rpc        *rpc.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	commitment rpc.CommitmentType
}

// ClientOption configures RPCClient.
type ClientOption func(*RPCClient)

// WithCallTimeout sets the per-call deadline.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *RPCClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps outgoing calls at rps with the given burst. rps <= 0 disables the cap.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *RPCClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCommitment sets the commitment level for reads.
func WithCommitment(commitment rpc.CommitmentType) ClientOption {
	return func(c *RPCClient) {
		c.commitment = commitment
	}
}

// NewRPCClient wraps client. The client is shared; solana-go clients are safe for concurrent use.
func NewRPCClient(client *rpc.Client, opts ...ClientOption) *RPCClient {
	c := &RPCClient{
		rpc:        client,
		timeout:    DefaultCallTimeout,
		commitment: rpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RPC exposes the underlying client for enrichments that need raw calls.
func (c *RPCClient) RPC() *rpc.Client { return c.rpc }

// Commitment returns the configured read commitment.
func (c *RPCClient) Commitment() rpc.CommitmentType { return c.commitment }

// Call runs fn under the client's deadline and rate limit and records metrics.
// Errors from fn are returned as is; the caller decides how to wrap them.
func (c *RPCClient) Call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.wait(ctx, method); err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, classifyRPCError(err)).Inc()
		return err
	}

	start := time.Now()
	err := fn(ctx)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		err = fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.RPCCallsTotal.WithLabelValues(method, classifyRPCError(err)).Inc()
	return err
}

func (c *RPCClient) wait(ctx context.Context, method string) error {
	if c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	metrics.RPCRateLimitWaits.WithLabelValues(method).Inc()
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func (c *RPCClient) GetSignatures(ctx context.Context, address solana.PublicKey, limit int) ([]SignatureEntry, error) {
	const method = "getSignaturesForAddress"

	var out []*rpc.TransactionSignature
	err := c.Call(ctx, method, func(ctx context.Context) error {
		var err error
		out, err = c.rpc.GetSignaturesForAddressWithOpts(ctx, address, &rpc.GetSignaturesForAddressOpts{
			Limit:      pointer.ToInt(limit),
			Commitment: c.commitment,
		})
		return err
	})
	if err != nil {
		return nil, transportError(method, err)
	}

	entries := make([]SignatureEntry, 0, len(out))
	for _, s := range out {
		if s == nil {
			continue
		}
		e := SignatureEntry{Signature: s.Signature}
		if s.BlockTime != nil {
			e.BlockTime = pointer.ToTime(s.BlockTime.Time().UTC())
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (c *RPCClient) GetTransaction(ctx context.Context, sig solana.Signature) (*Transaction, error) {
	const method = "getTransaction"

	var res *rpc.GetTransactionResult
	err := c.Call(ctx, method, func(ctx context.Context) error {
		var err error
		res, err = c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     c.commitment,
			MaxSupportedTransactionVersion: pointer.ToUint64(0),
		})
		if errors.Is(err, rpc.ErrNotFound) {
			res, err = nil, nil
		}
		return err
	})
	if err != nil {
		return nil, transportError(method, err)
	}
	return convertTransaction(sig, res)
}

func (c *RPCClient) GetAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	const method = "getAccountInfo"

	var res *rpc.GetAccountInfoResult
	err := c.Call(ctx, method, func(ctx context.Context) error {
		var err error
		res, err = c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		if errors.Is(err, rpc.ErrNotFound) {
			return fmt.Errorf("account %s: %w", address, ErrNotFound)
		}
		return err
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, err
	case err != nil:
		return nil, transportError(method, err)
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, fmt.Errorf("account %s: %w", address, ErrNotFound)
	}
	return res.Value.Data.GetBinary(), nil
}

// convertTransaction resolves every compiled instruction against the full
// account list: static keys, then loaded writable, then loaded readonly
// addresses (v0 lookup tables).
func convertTransaction(sig solana.Signature, res *rpc.GetTransactionResult) (*Transaction, error) {
	if res == nil || res.Transaction == nil {
		return nil, nil
	}
	parsed, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s: %v", ErrDecode, sig, err)
	}
	if parsed == nil {
		return nil, nil
	}

	keys := make(solana.PublicKeySlice, 0, len(parsed.Message.AccountKeys))
	keys = append(keys, parsed.Message.AccountKeys...)
	if res.Meta != nil {
		keys = append(keys, res.Meta.LoadedAddresses.Writable...)
		keys = append(keys, res.Meta.LoadedAddresses.ReadOnly...)
	}

	tx := &Transaction{
		Signature: sig,
		Slot:      res.Slot,
	}
	if res.BlockTime != nil {
		tx.BlockTime = pointer.ToTime(res.BlockTime.Time().UTC())
	}

	for _, ci := range parsed.Message.Instructions {
		if ix, ok := resolveInstruction(keys, ci.ProgramIDIndex, ci.Accounts, ci.Data); ok {
			tx.Instructions = append(tx.Instructions, ix)
		}
	}
	if res.Meta != nil {
		for _, inner := range res.Meta.InnerInstructions {
			for _, ci := range inner.Instructions {
				if ix, ok := resolveInstruction(keys, ci.ProgramIDIndex, ci.Accounts, ci.Data); ok {
					tx.InnerInstructions = append(tx.InnerInstructions, ix)
				}
			}
		}
	}
	return tx, nil
}

// resolveInstruction maps indexes to keys; instructions pointing outside the key list are dropped.
func resolveInstruction(keys solana.PublicKeySlice, programIdx uint16, accounts []uint16, data []byte) (Instruction, bool) {
	if int(programIdx) >= len(keys) {
		return Instruction{}, false
	}
	ix := Instruction{
		ProgramID: keys[programIdx],
		Accounts:  make([]solana.PublicKey, 0, len(accounts)),
		Data:      data,
	}
	for _, a := range accounts {
		if int(a) >= len(keys) {
			return Instruction{}, false
		}
		ix.Accounts = append(ix.Accounts, keys[a])
	}
	return ix, true
}
