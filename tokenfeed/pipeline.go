package tokenfeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/franco-bianco/pumpfeed/metrics"
	"github.com/franco-bianco/pumpfeed/spltoken/metadata"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultLookback       = 24 * time.Hour
	DefaultSignatureLimit = 50

	// MaxClockSkew is how far a block time may run ahead of the local clock.
	// Such records are kept with CreatedAt clamped to now.
	MaxClockSkew = time.Minute
)

// Config is the static configuration of a pipeline.
type Config struct {
	Program         solana.PublicKey
	MetadataProgram solana.PublicKey
	Lookback        time.Duration
	SignatureLimit  int
	// MaxConcurrency bounds in-flight calls per stage; 0 means unbounded.
	MaxConcurrency int
	Decoder        metadata.Decoder
	Scan           ScanOptions
}

// HolderCounter enriches records with a holder count.
type HolderCounter interface {
	CountHolders(ctx context.Context, mint solana.PublicKey) (int, error)
}

// Pipeline lists recent signatures of a program, scans their transactions for
// candidate mints and resolves each mint's metadata. It keeps no state between runs.
type Pipeline struct {
	client  ChainClient
	cfg     Config
	holders HolderCounter
	now     func() time.Time
	Log     *logrus.Logger
}

type Option func(*Pipeline)

// WithHolderCounter enables holder-count enrichment.
func WithHolderCounter(h HolderCounter) Option {
	return func(p *Pipeline) { p.holders = h }
}

// WithClock overrides the source of "now" for the lookback window.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *logrus.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.Log = l
		}
	}
}

// NewLogger returns the logger used when none is injected.
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	return log
}

func New(client ChainClient, cfg Config, opts ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, errors.New("nil chain client")
	}
	if cfg.Program.IsZero() {
		cfg.Program = PumpFunProgramID
	}
	if cfg.MetadataProgram.IsZero() {
		cfg.MetadataProgram = metadata.ProgramID
	}
	if cfg.Lookback == 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Lookback < 0 {
		return nil, fmt.Errorf("lookback must be positive, got %s", cfg.Lookback)
	}
	if cfg.SignatureLimit == 0 {
		cfg.SignatureLimit = DefaultSignatureLimit
	}
	if cfg.SignatureLimit < 0 {
		return nil, fmt.Errorf("signature limit must be positive, got %d", cfg.SignatureLimit)
	}
	if cfg.Decoder == nil {
		cfg.Decoder = metadata.BorshDecoder{}
	}

	p := &Pipeline{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		Log:    NewLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run executes one pass. Only a failure to list signatures fails the run;
// per-signature and per-mint failures are logged and skipped. Mints without
// resolvable metadata are dropped. The result is never nil.
func (p *Pipeline) Run(ctx context.Context) ([]TokenRecord, error) {
	start := time.Now()
	now := p.now().UTC()
	log := p.Log.WithFields(logrus.Fields{
		"run_id":  uuid.NewString(),
		"program": p.cfg.Program.String(),
	})

	entries, err := ListRecentSignatures(ctx, p.client, p.cfg.Program, p.cfg.Lookback, p.cfg.SignatureLimit, now)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		log.WithError(err).Error("listing signatures failed")
		return nil, err
	}

	scans := ScanAll(ctx, p.client, entries, p.cfg.Program, p.cfg.Scan, p.cfg.MaxConcurrency)
	var candidates []CandidateMint
	scanErrors := 0
	for _, s := range scans {
		if s.Err != nil {
			scanErrors++
			log.WithError(s.Err).WithField("signature", s.Entry.Signature.String()).Warn("transaction scan failed, skipping")
			continue
		}
		if len(s.Candidates) == 0 {
			log.WithField("signature", s.Entry.Signature.String()).Debug("no matching instructions")
		}
		candidates = append(candidates, s.Candidates...)
	}

	resolutions := ResolveAll(ctx, p.client, candidates, p.cfg.MetadataProgram, p.cfg.Decoder, p.cfg.MaxConcurrency)
	cutoff := now.Add(-p.cfg.Lookback)
	records := make([]TokenRecord, 0, len(resolutions))
	for _, r := range resolutions {
		mintLog := log.WithFields(logrus.Fields{
			"mint":      r.Candidate.Mint.String(),
			"signature": r.Candidate.Signature.String(),
		})
		switch {
		case r.Err != nil:
			mintLog.WithError(r.Err).Warn("metadata unavailable, skipping")
			continue
		case r.Metadata == nil:
			mintLog.WithField("metadata", r.Address.String()).Warn("no metadata found for mint")
			continue
		}
		created := r.Candidate.BlockTime.UTC()
		if created.Before(cutoff) || created.After(now.Add(MaxClockSkew)) {
			mintLog.WithField("created", created).Debug("outside lookback window, skipping")
			continue
		}
		if created.After(now) {
			created = now
		}
		records = append(records, TokenRecord{
			Name:      r.Metadata.Name,
			Symbol:    r.Metadata.Symbol,
			URI:       r.Metadata.URI,
			Mint:      r.Candidate.Mint.String(),
			Signature: r.Candidate.Signature.String(),
			CreatedAt: created,
			Volume:    float64(r.Candidate.BuyLamports) / float64(solana.LAMPORTS_PER_SOL),
		})
	}

	if p.holders != nil && len(records) > 0 {
		p.enrichHolders(ctx, log, records)
	}

	metrics.RunsTotal.WithLabelValues("ok").Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	metrics.TokensEmitted.Add(float64(len(records)))
	log.WithFields(logrus.Fields{
		"signatures":  len(entries),
		"scan_errors": scanErrors,
		"candidates":  len(candidates),
		"tokens":      len(records),
		"took":        time.Since(start).Round(time.Millisecond).String(),
	}).Info("run complete")

	return records, nil
}

// enrichHolders fills Holders in place; a failed count leaves it nil.
func (p *Pipeline) enrichHolders(ctx context.Context, log *logrus.Entry, records []TokenRecord) {
	var g errgroup.Group
	if p.cfg.MaxConcurrency > 0 {
		g.SetLimit(p.cfg.MaxConcurrency)
	}
	for i := range records {
		i := i
		g.Go(func() error {
			mint, err := solana.PublicKeyFromBase58(records[i].Mint)
			if err != nil {
				return nil
			}
			n, err := p.holders.CountHolders(ctx, mint)
			if err != nil {
				log.WithError(err).WithField("mint", records[i].Mint).Warn("holder count failed")
				return nil
			}
			records[i].Holders = &n
			return nil
		})
	}
	_ = g.Wait()
}
