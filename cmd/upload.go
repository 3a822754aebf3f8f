// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/zapdrive/pkg/blobstore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/uploader"
	"github.com/LeeDigitalWorks/zapdrive/pkg/utils"
)

var uploadCmd = &cobra.Command{
	Use:   "upload --user <id> <files...>",
	Short: "Upload files from disk through the chunked pipeline",
	Long: `Upload one or more local files as the given user, using the same
chunked pipeline the API server runs. Useful for bulk imports and for
exercising a storage backend before pointing the server at it.

Files in a batch are uploaded strictly one at a time; concurrency
applies to the chunks of the file in flight. Ctrl-C cancels the batch:
chunk sends already in flight settle, nothing new is dispatched.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	f := uploadCmd.Flags()
	f.String("user", "", "Owner id to upload as. Required.")
	registerPipelineFlags(f)

	viper.BindPFlags(f)
}

func runUpload(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("upload", false)
	f := NewFlagLoader(cmd)

	userID := f.String("user")
	if userID == "" {
		logger.Fatal().Msg("--user is required")
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

	if _, err := db.EnsureAccount(cmd.Context(), userID); err != nil {
		logger.Fatal().Err(err).Msg("failed to provision account")
	}

	upCfg, err := loadUploaderOpts(cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid uploader configuration")
	}

	up, err := uploader.New(upCfg, uploader.Deps{
		Transport: blobstore.NewUploadTransport(blobs),
		Meta:      db,
		Resolver:  blobs,
		Observer:  printProgress,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create uploader")
	}

	batch, handles, err := openBatch(args)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open input files")
	}
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()

	// Ctrl-C cancels the batch instead of killing the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	watchDone := make(chan struct{})
	go watchForCancel(sigCh, watchDone, func() { up.Cancel(userID) })

	results, err := up.Upload(cmd.Context(), userID, batch)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch rejected")
	}
	close(watchDone)

	failed := 0
	for _, res := range results {
		switch res.Status {
		case uploader.StatusComplete:
			fmt.Printf("%-40s %s  %s\n", res.Name, res.Status, humanize.IBytes(uint64(res.Record.Size)))
		default:
			failed++
			fmt.Printf("%-40s %s  %v\n", res.Name, res.Status, res.Err)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// watchForCancel turns the first signal into a batch cancellation.
// Closing done detaches the watcher; the signal channel is never
// closed, so a signal landing after the batch finished cannot panic
// the runtime's send into a closed channel.
func watchForCancel(sig <-chan os.Signal, done <-chan struct{}, cancel func()) {
	select {
	case <-sig:
		fmt.Fprintln(os.Stderr, "\ncancelling...")
		cancel()
	case <-done:
	}
}

// openBatch stats and opens every input path. The returned files stay
// open until the batch finishes; chunk reads seek within them.
func openBatch(paths []string) ([]uploader.File, []*os.File, error) {
	batch := make([]uploader.File, 0, len(paths))
	handles := make([]*os.File, 0, len(paths))

	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, handles, err
		}
		if fi.IsDir() {
			return nil, handles, fmt.Errorf("%s is a directory", path)
		}

		h, err := os.Open(path)
		if err != nil {
			return nil, handles, err
		}
		handles = append(handles, h)

		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		sum, err := hashFile(h)
		if err != nil {
			return nil, handles, fmt.Errorf("hash %s: %w", path, err)
		}

		batch = append(batch, uploader.File{
			Name:        filepath.Base(path),
			Size:        fi.Size(),
			ContentType: contentType,
			Data:        h,
			ContentHash: sum,
		})
	}
	return batch, handles, nil
}

// hashFile computes the hex SHA-256 of the whole file so the committed
// record carries a verifiable content hash. Chunk reads use ReadAt, so
// the advanced file offset does not matter.
func hashFile(f *os.File) (string, error) {
	h := utils.Sha256PoolGetHasher()
	defer utils.Sha256PoolPutHasher(h)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// printProgress renders one line per progress update.
func printProgress(p uploader.Progress) {
	fmt.Printf("\r%-40s %5.1f%%  %s/s  (%d/%d chunks)",
		p.Name,
		p.Percent,
		humanize.IBytes(uint64(p.Throughput)),
		p.CompletedChunks,
		p.TotalChunks,
	)
	if p.CompletedChunks == p.TotalChunks {
		fmt.Println()
	}
}
