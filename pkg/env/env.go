// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

// Package env exposes the deployment environment the process runs in.
// Commands consult it to refuse configurations that only make sense on
// a developer machine.
package env

import (
	"os"
	"sync"

	"github.com/spf13/viper"
)

const (
	Local      = "local"
	Staging    = "staging"
	Production = "production"
)

var (
	Env string

	once sync.Once
)

func IsLocal() bool {
	return Env == Local
}

func IsProduction() bool {
	return Env == Production
}

func init() {
	once.Do(func() {
		Env = os.Getenv("ZAPDRIVE_ENV")
		if Env == "" {
			Env = viper.GetString("ENV")
		}
		if Env == "" {
			Env = Local
		}
	})
}
