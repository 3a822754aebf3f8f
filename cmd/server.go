// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/zapdrive/pkg/api"
	"github.com/LeeDigitalWorks/zapdrive/pkg/billing"
	"github.com/LeeDigitalWorks/zapdrive/pkg/blobstore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/debug"
	"github.com/LeeDigitalWorks/zapdrive/pkg/events"
	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/ratelimit"
	"github.com/LeeDigitalWorks/zapdrive/pkg/uploader"
	"github.com/LeeDigitalWorks/zapdrive/pkg/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the file-storage API server",
	Long: `Start the ZapDrive API server. It serves the consumer endpoints
(upload, list, URL resolution, delete, quota, plan upgrade) plus a
debug server with metrics, pprof, and health checks.`,
	Run: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	f := serverCmd.Flags()
	f.String("addr", ":8080", "API listen address")
	f.String("debug_addr", ":8090", "Debug/metrics listen address")
	f.String("auth_secret", "", "HS256 secret shared with the auth service (env: ZAPDRIVE_AUTH_SECRET)")
	f.String("billing_key_file", "", "PEM file with the payment provider's RSA public key (empty disables plan upgrades)")
	registerPipelineFlags(f)

	viper.BindPFlags(f)
}

func runServer(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("server", false)
	f := NewFlagLoader(cmd)

	debug.SetNotReady()

	authSecret := f.String("auth_secret")
	if authSecret == "" {
		authSecret = os.Getenv("ZAPDRIVE_AUTH_SECRET")
	}
	if authSecret == "" {
		logger.Fatal().Msg("--auth_secret is required (or set ZAPDRIVE_AUTH_SECRET)")
	}

	blobs, err := openBlobStore(cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create blob store")
	}
	defer blobs.Close()

	db, err := openMetaStore(cmd.Context(), cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open metadata store")
	}
	defer db.Close()

	// Event notifications (optional publishers from the [events]
	// config section).
	var eventsCfg events.Config
	if err := viper.UnmarshalKey("events", &eventsCfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid events configuration")
	}
	eventsCfg.Validate()
	publishers, err := events.NewPublishers(eventsCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event publishers")
	}
	emitter := events.NoopEmitter()
	if len(publishers) > 0 {
		emitter = events.NewEmitter(events.EmitterConfig{
			Publishers: publishers,
			BufferSize: eventsCfg.BufferSize,
		})
	}
	defer emitter.Close()

	// Per-user API rate limiting from the [ratelimit] section.
	rlCfg := ratelimit.DefaultConfig()
	if err := viper.UnmarshalKey("ratelimit", &rlCfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid ratelimit configuration")
	}
	limiter, err := ratelimit.New(rlCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create rate limiter")
	}
	defer limiter.Close()

	// Plan upgrades need the payment provider's key.
	var billingSvc *billing.Service
	if keyFile := f.String("billing_key_file"); keyFile != "" {
		verifier, err := billing.NewVerifierFromFile(keyFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", keyFile).Msg("failed to load billing key")
		}
		billingSvc = billing.NewService(verifier, db)
	} else {
		logger.Warn().Msg("no billing key configured, plan upgrades disabled")
	}

	upCfg, err := loadUploaderOpts(cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid uploader configuration")
	}
	up, err := uploader.New(upCfg, uploader.Deps{
		Transport: blobstore.NewUploadTransport(blobs),
		Meta:      db,
		Resolver:  blobs,
		Events:    emitter,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create uploader")
	}

	apiCfg := api.DefaultConfig()
	apiCfg.Addr = f.String("addr")
	apiCfg.AuthSecret = authSecret
	srv, err := api.NewServer(apiCfg, api.Deps{
		Uploader: up,
		DB:       db,
		Blobs:    blobs,
		Billing:  billingSvc,
		Events:   emitter,
		Limiter:  limiter,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create API server")
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()
	debug.RegisterHandlerFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"version":%q,"commit":%q,"built":%q}`, Version, GitCommit, BuildDate)
	})
	debugServer := startDebugServer(f.String("debug_addr"))

	debug.SetReady()
	logger.Info().
		Str("addr", apiCfg.Addr).
		Str("policy", upCfg.Policy).
		Int64("chunk_size", upCfg.ChunkSizeBytes).
		Msg("zapdrive server started")

	waitForShutdown()

	debug.SetNotReady()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	debugServer.Shutdown(ctx)
}

func startDebugServer(addr string) *http.Server {
	server := &http.Server{
		Addr:    addr,
		Handler: debug.GetMux(),
	}
	go func() {
		logger.Info().Str("debug_addr", addr).Msg("debug server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start debug server")
		}
	}()
	return server
}

func waitForShutdown() {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan
}
