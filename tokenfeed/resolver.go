package tokenfeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/franco-bianco/pumpfeed/metrics"
	"github.com/franco-bianco/pumpfeed/spltoken/metadata"
)

// Resolution is the outcome of resolving one candidate.
// Metadata is nil when the account is absent or could not be decoded.
type Resolution struct {
	Candidate CandidateMint
	Address   solana.PublicKey
	Metadata  *metadata.Metadata
	Err       error
}

// ResolveMetadata derives the metadata account for mint, fetches it and decodes it.
// A missing account returns (nil, nil). Decode failures wrap ErrDecode,
// RPC failures wrap ErrTransport.
func ResolveMetadata(
	ctx context.Context,
	client ChainClient,
	mint solana.PublicKey,
	program solana.PublicKey,
	decoder metadata.Decoder,
) (*metadata.Metadata, solana.PublicKey, error) {
	addr, err := metadata.DeriveAddress(mint, program)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	data, err := client.GetAccountData(ctx, addr)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, addr, nil
	case err != nil:
		return nil, addr, fmt.Errorf("fetch metadata %s: %w", addr, err)
	}
	if len(data) == 0 {
		return nil, addr, nil
	}

	md, err := decoder.Decode(data)
	if err != nil {
		return nil, addr, fmt.Errorf("decode metadata %s (%s layout): %w", addr, decoder.Name(), err)
	}
	return &md, addr, nil
}

// ResolveAll resolves candidates concurrently, keeping their order.
// limit bounds in-flight resolutions; limit <= 0 means unbounded.
func ResolveAll(
	ctx context.Context,
	client ChainClient,
	candidates []CandidateMint,
	program solana.PublicKey,
	decoder metadata.Decoder,
	limit int,
) []Resolution {
	results := make([]Resolution, len(candidates))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			md, addr, err := ResolveMetadata(ctx, client, cand.Mint, program, decoder)
			results[i] = Resolution{Candidate: cand, Address: addr, Metadata: md, Err: err}
			metrics.ResolutionsTotal.WithLabelValues(resolutionOutcome(md, err)).Inc()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func resolutionOutcome(md *metadata.Metadata, err error) string {
	switch {
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case err != nil:
		return "error"
	case md == nil:
		return "not_found"
	default:
		return "ok"
	}
}
