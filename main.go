package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/franco-bianco/pumpfeed/spltoken/holder"
	"github.com/franco-bianco/pumpfeed/spltoken/metadata"
	"github.com/franco-bianco/pumpfeed/tokenfeed"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	log := tokenfeed.NewLogger()
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	// Shared Solana RPC client (safe for concurrent use)
	rc := tokenfeed.NewRPCClient(
		rpc.New(cfg.RPCURL),
		tokenfeed.WithCallTimeout(cfg.RPCTimeout),
		tokenfeed.WithRateLimit(cfg.RPCRPS, max(1, int(cfg.RPCRPS))),
	)

	decoder, err := metadata.DecoderByName(cfg.MetadataLayout)
	if err != nil {
		log.WithError(err).Fatal("invalid metadata layout")
	}

	opts := []tokenfeed.Option{tokenfeed.WithLogger(log)}
	if cfg.CountHolders {
		opts = append(opts, tokenfeed.WithHolderCounter(holder.NewCounter(rc.RPC(), holder.WithCaller(rc.Call))))
	}
	pipe, err := tokenfeed.New(rc, tokenfeed.Config{
		Program:         cfg.Program,
		MetadataProgram: cfg.MetadataProgram,
		Lookback:        cfg.Lookback,
		SignatureLimit:  cfg.SignatureLimit,
		MaxConcurrency:  cfg.MaxConcurrency,
		Decoder:         decoder,
		Scan:            tokenfeed.ScanOptions{CreateOnly: cfg.CreateOnly},
	}, opts...)
	if err != nil {
		log.WithError(err).Fatal("build pipeline")
	}

	// HTTP server settings; a request runs the whole pipeline, so writes get more room
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newServer(pipe, log, cfg.Lookback),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"addr":          cfg.ListenAddr,
		"program":       cfg.Program.String(),
		"lookback":      cfg.Lookback.String(),
		"signatures":    cfg.SignatureLimit,
		"rpc_timeout":   cfg.RPCTimeout.String(),
		"layout":        decoder.Name(),
		"create_only":   cfg.CreateOnly,
		"count_holders": cfg.CountHolders,
	}).Info("listening")
	log.Fatal(srv.ListenAndServe())
}
