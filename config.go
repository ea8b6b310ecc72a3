package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/franco-bianco/pumpfeed/spltoken/metadata"
	"github.com/franco-bianco/pumpfeed/tokenfeed"
)

// config is read once at startup and never changes afterwards.
type config struct {
	RPCURL          string
	Program         solana.PublicKey
	MetadataProgram solana.PublicKey
	Lookback        time.Duration
	SignatureLimit  int
	RPCTimeout      time.Duration
	RPCRPS          float64
	MaxConcurrency  int
	MetadataLayout  string
	CreateOnly      bool
	CountHolders    bool
	ListenAddr      string
	LogLevel        logrus.Level
}

// loadConfig reads the environment through getenv (os.Getenv in main).
func loadConfig(getenv func(string) string) (config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := config{
		RPCURL:         env("SOLANA_RPC_URL", ""),
		MetadataLayout: strings.ToLower(env("METADATA_LAYOUT", metadata.LayoutBorsh)),
		ListenAddr:     env("LISTEN_ADDR", ":8080"),
	}
	if cfg.RPCURL == "" {
		return config{}, fmt.Errorf("SOLANA_RPC_URL is required")
	}

	var err error
	if cfg.Program, err = parseAddress("PUMPFUN_PROGRAM_ID", env("PUMPFUN_PROGRAM_ID", tokenfeed.PumpFunProgramID.String())); err != nil {
		return config{}, err
	}
	if cfg.MetadataProgram, err = parseAddress("METADATA_PROGRAM_ID", env("METADATA_PROGRAM_ID", metadata.ProgramID.String())); err != nil {
		return config{}, err
	}
	if cfg.Lookback, err = parsePositiveDuration("LOOKBACK", env("LOOKBACK", "24h")); err != nil {
		return config{}, err
	}
	if cfg.RPCTimeout, err = parsePositiveDuration("RPC_TIMEOUT", env("RPC_TIMEOUT", "10s")); err != nil {
		return config{}, err
	}

	if cfg.SignatureLimit, err = strconv.Atoi(env("SIGNATURE_LIMIT", "50")); err != nil || cfg.SignatureLimit <= 0 {
		return config{}, fmt.Errorf("SIGNATURE_LIMIT must be a positive integer")
	}
	if cfg.MaxConcurrency, err = strconv.Atoi(env("MAX_CONCURRENCY", "0")); err != nil || cfg.MaxConcurrency < 0 {
		return config{}, fmt.Errorf("MAX_CONCURRENCY must be a non-negative integer")
	}
	if cfg.RPCRPS, err = strconv.ParseFloat(env("RPC_RPS", "0"), 64); err != nil || cfg.RPCRPS < 0 {
		return config{}, fmt.Errorf("RPC_RPS must be a non-negative number")
	}
	if cfg.CreateOnly, err = strconv.ParseBool(env("CREATE_ONLY", "false")); err != nil {
		return config{}, fmt.Errorf("CREATE_ONLY: %w", err)
	}
	if cfg.CountHolders, err = strconv.ParseBool(env("COUNT_HOLDERS", "false")); err != nil {
		return config{}, fmt.Errorf("COUNT_HOLDERS: %w", err)
	}
	if cfg.LogLevel, err = logrus.ParseLevel(env("LOG_LEVEL", "info")); err != nil {
		return config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if _, err := metadata.DecoderByName(cfg.MetadataLayout); err != nil {
		return config{}, fmt.Errorf("METADATA_LAYOUT: %w", err)
	}

	return cfg, nil
}

// parseAddress checks that value is base58 for exactly 32 bytes.
func parseAddress(key, value string) (solana.PublicKey, error) {
	raw, err := base58.Decode(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: invalid base58: %w", key, err)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%s: decoded to %d bytes, want %d", key, len(raw), solana.PublicKeyLength)
	}
	return solana.PublicKeyFromBytes(raw), nil
}

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
