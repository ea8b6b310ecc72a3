package tokenfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/franco-bianco/pumpfeed/metrics"
)

// ScanOptions narrows which instructions produce candidates.
type ScanOptions struct {
	// CreateOnly keeps only instructions tagged with CreateDiscriminator.
	CreateOnly bool
}

// ScanResult is the outcome of scanning one signature.
type ScanResult struct {
	Entry      SignatureEntry
	Candidates []CandidateMint
	Err        error
}

// ScanTransaction fetches the transaction for entry and returns one candidate
// per top-level instruction of target. A transaction the node does not know,
// or one without instructions, yields no candidates and no error.
func ScanTransaction(
	ctx context.Context,
	client ChainClient,
	entry SignatureEntry,
	target solana.PublicKey,
	opts ScanOptions,
) ([]CandidateMint, error) {
	tx, err := client.GetTransaction(ctx, entry.Signature)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", entry.Signature, err)
	}
	if tx == nil {
		return nil, nil
	}

	var fallback time.Time
	if entry.BlockTime != nil {
		fallback = *entry.BlockTime
	}
	return extractCandidates(tx, target, opts, fallback), nil
}

func extractCandidates(tx *Transaction, target solana.PublicKey, opts ScanOptions, fallback time.Time) []CandidateMint {
	if len(tx.Instructions) == 0 {
		return nil
	}

	blockTime := fallback
	if tx.BlockTime != nil {
		blockTime = *tx.BlockTime
	}

	var buys map[solana.PublicKey]uint64
	var out []CandidateMint
	for i, ix := range tx.Instructions {
		if !ix.ProgramID.Equals(target) || len(ix.Accounts) == 0 {
			continue
		}
		if opts.CreateOnly && !hasPrefix8(ix.Data, CreateDiscriminator) {
			continue
		}
		if buys == nil {
			buys = buyLamportsByMint(tx, target)
		}
		mint := ix.Accounts[0]
		out = append(out, CandidateMint{
			Mint:             mint,
			Signature:        tx.Signature,
			InstructionIndex: i,
			BlockTime:        blockTime,
			BuyLamports:      buys[mint],
		})
	}
	return out
}

// ScanAll scans every entry concurrently. Results keep the order of entries;
// a failed scan is recorded in its own result and never affects the others.
// limit bounds in-flight scans; limit <= 0 means unbounded.
func ScanAll(
	ctx context.Context,
	client ChainClient,
	entries []SignatureEntry,
	target solana.PublicKey,
	opts ScanOptions,
	limit int,
) []ScanResult {
	results := make([]ScanResult, len(entries))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			cands, err := ScanTransaction(ctx, client, entry, target, opts)
			results[i] = ScanResult{Entry: entry, Candidates: cands, Err: err}
			switch {
			case err != nil:
				metrics.ScansTotal.WithLabelValues("error").Inc()
			case len(cands) == 0:
				metrics.ScansTotal.WithLabelValues("empty").Inc()
			default:
				metrics.ScansTotal.WithLabelValues("ok").Inc()
			}
			// isolated: never cancel siblings
			return nil
		})
	}
	_ = g.Wait()
	return results
}
