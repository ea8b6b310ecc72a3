package tokenfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// ListRecentSignatures returns the signatures for program posted within
// lookback of now, in the order the node returned them (newest first).
// Entries without a block time are dropped. A transport failure is returned
// as is and aborts the caller's run.
func ListRecentSignatures(
	ctx context.Context,
	client ChainClient,
	program solana.PublicKey,
	lookback time.Duration,
	limit int,
	now time.Time,
) ([]SignatureEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("signature limit must be positive, got %d", limit)
	}

	entries, err := client.GetSignatures(ctx, program, limit)
	if err != nil {
		return nil, fmt.Errorf("list signatures for %s: %w", program, err)
	}

	cutoff := now.Add(-lookback)
	kept := make([]SignatureEntry, 0, len(entries))
	for _, e := range entries {
		if e.BlockTime == nil || e.BlockTime.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	return kept, nil
}
