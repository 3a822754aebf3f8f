// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

// Package cmd provides the zapdrive CLI: the API server and an
// operator upload tool.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/LeeDigitalWorks/zapdrive/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:   "zapdrive",
	Short: "ZapDrive - consumer file storage",
	Long: `ZapDrive is a consumer file-storage service: users upload, browse,
download, and delete media files within plan-based storage quotas.
Large files are uploaded as chunks with bounded concurrency and
per-chunk retries.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
