package holder

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ProgramToken     = solana.TokenProgramID
	ProgramToken2022 = solana.Token2022ProgramID
)

// tokenAccountSize is the classic SPL token account length.
const tokenAccountSize uint64 = 165

// ProgramAccountsClient is the one RPC call the counter needs. *rpc.Client satisfies it.
type ProgramAccountsClient interface {
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

// Caller wraps a single RPC call (deadline, rate limit, metrics).
type Caller func(ctx context.Context, method string, fn func(ctx context.Context) error) error

// Result of one holder count. Program is zero when neither program had accounts.
type Result struct {
	Holders  int
	Accounts int
	Program  solana.PublicKey
}

// Counter counts distinct owners holding a non-zero balance of a mint.
type Counter struct {
	client ProgramAccountsClient
	call   Caller
}

type Option func(*Counter)

// WithCaller routes every RPC call through call.
func WithCaller(call Caller) Option {
	return func(c *Counter) {
		if call != nil {
			c.call = call
		}
	}
}

func NewCounter(client ProgramAccountsClient, opts ...Option) *Counter {
	c := &Counter{client: client, call: timeoutCaller(10 * time.Second)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func timeoutCaller(d time.Duration) Caller {
	return func(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return fn(ctx)
	}
}

// CountHolders satisfies the pipeline's holder enrichment.
func (c *Counter) CountHolders(ctx context.Context, mint solana.PublicKey) (int, error) {
	r, err := c.Count(ctx, mint)
	if err != nil {
		return 0, err
	}
	return r.Holders, nil
}

// Count scans the classic Token program, then Token-2022, and reports the
// first program that has accounts for mint. A node without a token account
// index yields zero holders rather than an error. There are no retries.
func (c *Counter) Count(ctx context.Context, mint solana.PublicKey) (*Result, error) {
	for _, program := range []solana.PublicKey{ProgramToken, ProgramToken2022} {
		r, err := c.countForProgram(ctx, mint, program)
		switch {
		case err != nil && scanUnsupported(err):
			continue
		case err != nil:
			return nil, fmt.Errorf("holder scan %s for %s: %w", programName(program), mint, err)
		case r.Accounts > 0:
			return &r, nil
		}
	}
	return &Result{}, nil
}

func programName(program solana.PublicKey) string {
	if program.Equals(ProgramToken2022) {
		return "token-2022"
	}
	return "token"
}

// countForProgram fetches token accounts of mint owned by programID and reads
// owner and amount straight from the account layout.
func (c *Counter) countForProgram(ctx context.Context, mint solana.PublicKey, programID solana.PublicKey) (Result, error) {
	// mint is the first field of a token account
	filters := []rpc.RPCFilter{{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: mint.Bytes()}}}
	// Token-2022 accounts grow with extensions, so only the classic program gets a size filter.
	if programID.Equals(ProgramToken) {
		filters = append(filters, rpc.RPCFilter{DataSize: tokenAccountSize})
	}

	var accounts rpc.GetProgramAccountsResult
	err := c.call(ctx, "getProgramAccounts", func(ctx context.Context) error {
		var err error
		accounts, err = c.client.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
			Filters:    filters,
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Program: programID}
	owners := make(map[solana.PublicKey]struct{})
	for _, acc := range accounts {
		if acc == nil || acc.Account == nil || acc.Account.Data == nil {
			continue
		}
		res.Accounts++
		if owner, amount, ok := ownerAndAmount(acc.Account.Data.GetBinary()); ok && amount > 0 {
			owners[owner] = struct{}{}
		}
	}
	res.Holders = len(owners)
	return res, nil
}

// ownerAndAmount reads mint [0,32), owner [32,64) and amount [64,72) of a token account.
func ownerAndAmount(data []byte) (solana.PublicKey, uint64, bool) {
	dec := ag_binary.NewBinDecoder(data)
	if _, err := dec.ReadNBytes(solana.PublicKeyLength); err != nil {
		return solana.PublicKey{}, 0, false
	}
	ownerBytes, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, 0, false
	}
	amount, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return solana.PublicKey{}, 0, false
	}
	return solana.PublicKeyFromBytes(ownerBytes), amount, true
}

// unsupportedScanErrors are the ways providers say getProgramAccounts over
// the token programs is not available to this caller.
var unsupportedScanErrors = []string{
	"method not found",
	"-32601",
	"excluded from account secondary indexes",
	"secondary indexes are disabled",
	"account indexes disabled",
	"this rpc method unavailable for key",
	"unsupported filters on this plan",
}

func scanUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range unsupportedScanErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
