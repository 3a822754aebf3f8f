// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const fallbackFilename = "unnamed"

// NormalizeFilename makes a user-supplied file name safe to store and
// embed in object keys. Path components are stripped, the name is
// normalized to NFC so equal-looking names compare equal, and control
// characters are removed. Empty results fall back to a placeholder.
func NormalizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsControl(r) || r == '/' {
			continue
		}
		b.WriteRune(r)
	}
	name = strings.TrimSpace(b.String())

	if name == "" || name == "." || name == ".." {
		return fallbackFilename
	}
	return name
}

// FileExt returns the lower-cased extension of name without the leading
// dot, or "" when the name has none.
func FileExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
